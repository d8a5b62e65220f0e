package mcp

import (
	"context"
	"strconv"
	"time"

	"github.com/claude/repflow/internal/engine"
	"github.com/claude/repflow/internal/protocol"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseWeight(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetCurrentSession = mcp.NewTool("get_current_session",
	mcp.WithDescription("Get the advanced-set session most recently worked on: execution state, phase targets, completed sets and rest timer."),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Get one advanced-set session by id."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id (UUID)")),
)

var toolGetActiveSessions = mcp.NewTool("get_active_sessions",
	mcp.WithDescription("List in-flight advanced-set sessions for a workout log or a profile. Exactly one filter is required."),
	mcp.WithString("workout_log_id", mcp.Description("Filter by workout log id")),
	mcp.WithString("profile_id", mcp.Description("Filter by profile id")),
)

var toolGetSetHistory = mcp.NewTool("get_set_history",
	mcp.WithDescription("Query committed set records: weight, reps, RPE and phase per record, newest first."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise id")),
)

var toolPreviewProtocol = mcp.NewTool("preview_protocol",
	mcp.WithDescription("Validate an advanced-set configuration and preview its first phase: starting weight, rep target, total phases and prescribed rest. Creates no session."),
	mcp.WithString("config", mcp.Required(), mcp.Description(`Set configuration as JSON, e.g. {"type":"drop","drop":{"drop_percentages":[20],"counts":{"min":6,"max":10},"rest_between_drops_seconds":45}}`)),
	mcp.WithString("last_weight", mcp.Description("Last known working weight in kg. Defaults to 20.")),
)

// --- Tool handlers ---

func (h *handlers) getCurrentSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := h.ds.GetCurrentSession(ctx)
	if err != nil {
		return mcp.NewToolResultError("no current session: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sess)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	sess, err := h.ds.GetSession(ctx, id)
	if err != nil {
		h.log.Error("mcp get_session", "error", err)
		return mcp.NewToolResultError("lookup failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sess)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getActiveSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workoutLogID := req.GetString("workout_log_id", "")
	profileID := req.GetString("profile_id", "")

	var sessions any
	var err error
	switch {
	case workoutLogID != "":
		sessions, err = h.ds.GetSessionsForWorkout(ctx, workoutLogID)
	case profileID != "":
		sessions, err = h.ds.GetSessionsForProfile(ctx, profileID)
	default:
		return mcp.NewToolResultError("workout_log_id or profile_id is required"), nil
	}
	if err != nil {
		h.log.Error("mcp get_active_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sessions)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSetHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	rows, err := h.ds.QueryCompletedSets(ctx, start, end, req.GetString("exercise", ""))
	if err != nil {
		h.log.Error("mcp get_set_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) previewProtocol(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("config")
	if err != nil {
		return mcp.NewToolResultError("config parameter is required"), nil
	}

	cfg, err := protocol.Decode(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid configuration: " + err.Error()), nil
	}

	var lastWeight *float64
	if s := req.GetString("last_weight", ""); s != "" {
		w, err := parseWeight(s)
		if err != nil {
			return mcp.NewToolResultError("invalid last_weight: " + err.Error()), nil
		}
		lastWeight = &w
	}

	state, err := engine.Initialize(cfg, lastWeight)
	if err != nil {
		return mcp.NewToolResultError("configuration rejected: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(state)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
