// Package session holds in-flight advanced-set sessions: the in-memory
// keyed store that is the engine's durability boundary, and the SQLite
// persister that carries it across process restarts.
package session

import (
	"time"

	"github.com/claude/repflow/internal/engine"
	"github.com/claude/repflow/internal/protocol"
)

// TimerState mirrors the rest timer into the persisted session so a crash
// mid-rest can restore the countdown at its last-known remaining seconds.
type TimerState struct {
	IsRunning        bool       `json:"is_running"`
	RemainingSeconds int        `json:"remaining_seconds"`
	TotalSeconds     int        `json:"total_seconds"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
}

// Session is one in-progress execution of a single advanced-set protocol for
// one exercise within one workout.
type Session struct {
	ID           string `json:"id"`
	ProfileID    string `json:"profile_id"`
	WorkoutLogID string `json:"workout_log_id"`
	ExerciseID   string `json:"exercise_id"`

	SetType protocol.SetType `json:"set_type"`

	// ConfigJSON is the stored, opaque form of the configuration. The
	// engine only ever sees the deserialized object.
	ConfigJSON string `json:"config_json"`

	State         engine.ExecutionState       `json:"state"`
	CompletedSets []engine.SetProgressionData `json:"completed_sets"`
	Timer         TimerState                  `json:"timer"`

	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// clone returns a deep copy so callers can't mutate store internals.
func (s *Session) clone() *Session {
	cp := *s
	cp.CompletedSets = make([]engine.SetProgressionData, len(s.CompletedSets))
	copy(cp.CompletedSets, s.CompletedSets)
	if s.Timer.StartedAt != nil {
		t := *s.Timer.StartedAt
		cp.Timer.StartedAt = &t
	}
	return &cp
}
