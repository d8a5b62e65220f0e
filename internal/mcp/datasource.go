package mcp

import (
	"context"
	"time"

	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/workoutlog"
)

// DataSource abstracts the data layer for MCP tools. LocalSource (in-process
// store) and HTTPClient (remote via REST API) both satisfy this interface.
type DataSource interface {
	GetSession(ctx context.Context, id string) (*session.Session, error)
	GetCurrentSession(ctx context.Context) (*session.Session, error)
	GetSessionsForWorkout(ctx context.Context, workoutLogID string) ([]*session.Session, error)
	GetSessionsForProfile(ctx context.Context, profileID string) ([]*session.Session, error)
	QueryCompletedSets(ctx context.Context, start, end time.Time, exerciseID string) ([]workoutlog.CompletedSetRow, error)
}
