package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/workoutlog"
)

// HTTPClient implements DataSource by calling the RepFlow REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// sessions live on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. The API
// key is sent on every request; session routes require it.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, id string) (*session.Session, error) {
	body, err := c.get(ctx, "/api/v1/sets/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var sess session.Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("httpclient: decode session: %w", err)
	}
	return &sess, nil
}

func (c *HTTPClient) GetCurrentSession(ctx context.Context) (*session.Session, error) {
	body, err := c.get(ctx, "/api/v1/sets/current", nil)
	if err != nil {
		return nil, err
	}

	var sess session.Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("httpclient: decode current session: %w", err)
	}
	return &sess, nil
}

func (c *HTTPClient) GetSessionsForWorkout(ctx context.Context, workoutLogID string) ([]*session.Session, error) {
	params := url.Values{}
	params.Set("workout_log_id", workoutLogID)
	return c.listSessions(ctx, params)
}

func (c *HTTPClient) GetSessionsForProfile(ctx context.Context, profileID string) ([]*session.Session, error) {
	params := url.Values{}
	params.Set("profile_id", profileID)
	return c.listSessions(ctx, params)
}

func (c *HTTPClient) listSessions(ctx context.Context, params url.Values) ([]*session.Session, error) {
	body, err := c.get(ctx, "/api/v1/sets/", params)
	if err != nil {
		return nil, err
	}

	var sessions []*session.Session
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, fmt.Errorf("httpclient: decode sessions: %w", err)
	}
	return sessions, nil
}

func (c *HTTPClient) QueryCompletedSets(ctx context.Context, start, end time.Time, exerciseID string) ([]workoutlog.CompletedSetRow, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	if exerciseID != "" {
		params.Set("exercise_id", exerciseID)
	}

	body, err := c.get(ctx, "/api/v1/workout-log", params)
	if err != nil {
		return nil, err
	}

	var rows []workoutlog.CompletedSetRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode completed sets: %w", err)
	}
	return rows, nil
}
