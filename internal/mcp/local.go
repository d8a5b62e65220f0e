package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/workoutlog"
)

// ErrNotFound is returned when a lookup names a session that does not exist.
var ErrNotFound = errors.New("session not found")

// Historian reads back committed set history. *workoutlog.DB satisfies it.
type Historian interface {
	QueryCompletedSets(ctx context.Context, start, end time.Time, exerciseID string) ([]workoutlog.CompletedSetRow, error)
}

// LocalSource serves MCP tools straight from the in-process session store
// and the workout-log database. Used when the MCP server runs inside the
// main binary.
type LocalSource struct {
	store   *session.Store
	history Historian // nil when no workout-log database is attached
}

// Compile-time check: *LocalSource satisfies DataSource.
var _ DataSource = (*LocalSource)(nil)

// NewLocalSource creates a LocalSource over the given store and history.
func NewLocalSource(store *session.Store, history Historian) *LocalSource {
	return &LocalSource{store: store, history: history}
}

func (l *LocalSource) GetSession(_ context.Context, id string) (*session.Session, error) {
	sess := l.store.GetSession(id)
	if sess == nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (l *LocalSource) GetCurrentSession(_ context.Context) (*session.Session, error) {
	sess := l.store.GetCurrentSession()
	if sess == nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (l *LocalSource) GetSessionsForWorkout(_ context.Context, workoutLogID string) ([]*session.Session, error) {
	return l.store.GetSessionsForWorkout(workoutLogID), nil
}

func (l *LocalSource) GetSessionsForProfile(_ context.Context, profileID string) ([]*session.Session, error) {
	return l.store.GetSessionsForProfile(profileID), nil
}

func (l *LocalSource) QueryCompletedSets(ctx context.Context, start, end time.Time, exerciseID string) ([]workoutlog.CompletedSetRow, error) {
	if l.history == nil {
		return nil, errors.New("workout log not configured")
	}
	return l.history.QueryCompletedSets(ctx, start, end, exerciseID)
}
