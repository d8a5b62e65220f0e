package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/repflow/internal/engine"
	"github.com/google/uuid"
)

// SessionTTL is how long an untouched session survives before the expiry
// sweep treats it as abandoned.
const SessionTTL = 24 * time.Hour

// DocumentVersion is the current schema version of the persisted document.
const DocumentVersion = 1

// Document is the single versioned blob the store persists: the whole
// session map plus the current-session pointer.
type Document struct {
	Version          int                 `json:"version"`
	ActiveSessions   map[string]*Session `json:"active_sessions"`
	CurrentSessionID string              `json:"current_session_id"`
}

// Persister is the durable side of the store. Writes are best-effort: a
// failed save leaves in-memory state authoritative for the process lifetime.
type Persister interface {
	Save(doc *Document) error
	Load() (*Document, error)
}

// Store is the persisted map of in-flight sessions. Every mutation updates
// memory synchronously under the lock and then flushes the whole document
// through the persister. Sessions are fully independent, keyed strictly by
// session id.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	currentID string

	persister Persister // nil means memory-only (tests)
	now       func() time.Time
	log       *slog.Logger
}

// NewStore creates a store and restores any persisted document. A document
// with an unrecognized version is discarded rather than field-upgraded.
func NewStore(p Persister, log *slog.Logger) (*Store, error) {
	s := &Store{
		sessions:  make(map[string]*Session),
		persister: p,
		now:       time.Now,
		log:       log,
	}

	if p == nil {
		return s, nil
	}

	doc, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("loading session document: %w", err)
	}
	doc = migrateDocument(doc, log)
	if doc.ActiveSessions != nil {
		s.sessions = doc.ActiveSessions
	}
	s.currentID = doc.CurrentSessionID
	return s, nil
}

// migrateDocument upgrades an older persisted document to the current
// version. The v1 migration is naive: anything that isn't v1 is discarded,
// which loses in-flight sessions on a schema bump but never loads
// incompatible state.
func migrateDocument(doc *Document, log *slog.Logger) *Document {
	if doc == nil {
		return &Document{Version: DocumentVersion, ActiveSessions: map[string]*Session{}}
	}
	if doc.Version != DocumentVersion {
		log.Warn("discarding persisted sessions with incompatible schema",
			"stored_version", doc.Version, "current_version", DocumentVersion)
		return &Document{Version: DocumentVersion, ActiveSessions: map[string]*Session{}}
	}
	return doc
}

// CreateParams seeds a new session.
type CreateParams struct {
	ProfileID    string
	WorkoutLogID string
	ExerciseID   string
	ConfigJSON   string
	State        engine.ExecutionState
}

// CreateSession allocates a fresh id, seeds the timer from the initial rest
// period, inserts the session and marks it current. Ids are never reused.
func (s *Store) CreateSession(p CreateParams) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := s.now()
	s.sessions[id] = &Session{
		ID:           id,
		ProfileID:    p.ProfileID,
		WorkoutLogID: p.WorkoutLogID,
		ExerciseID:   p.ExerciseID,
		SetType:      p.State.SetType,
		ConfigJSON:   p.ConfigJSON,
		State:        p.State,
		Timer: TimerState{
			RemainingSeconds: restOrZero(p.State.RestPeriodSeconds),
			TotalSeconds:     restOrZero(p.State.RestPeriodSeconds),
		},
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActiveAt: now,
	}
	s.currentID = id
	s.persistLocked()
	return id
}

// UpdateExecutionState replaces the session's state, resyncs the timer's
// total/remaining to the new rest period, and bumps timestamps. A missing id
// is a silent no-op: the caller may be racing an abort.
func (s *Store) UpdateExecutionState(id string, state engine.ExecutionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.State = state
	rest := restOrZero(state.RestPeriodSeconds)
	sess.Timer = TimerState{RemainingSeconds: rest, TotalSeconds: rest}
	s.touchLocked(sess)
	s.persistLocked()
}

// AddCompletedSet appends one recorded phase outcome. Append-only, ordered.
func (s *Store) AddCompletedSet(id string, data engine.SetProgressionData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.CompletedSets = append(sess.CompletedSets, data)
	s.touchLocked(sess)
	s.persistLocked()
}

// TimerPatch is a shallow merge into the session's timer state; nil fields
// are left untouched. Used only by the timer-sync path.
type TimerPatch struct {
	IsRunning        *bool
	RemainingSeconds *int
	TotalSeconds     *int
	StartedAt        *time.Time
	ClearStartedAt   bool
}

// UpdateTimerState merges a timer patch into the session.
func (s *Store) UpdateTimerState(id string, patch TimerPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	if patch.IsRunning != nil {
		sess.Timer.IsRunning = *patch.IsRunning
	}
	if patch.RemainingSeconds != nil {
		sess.Timer.RemainingSeconds = *patch.RemainingSeconds
	}
	if patch.TotalSeconds != nil {
		sess.Timer.TotalSeconds = *patch.TotalSeconds
	}
	if patch.StartedAt != nil {
		t := *patch.StartedAt
		sess.Timer.StartedAt = &t
	}
	if patch.ClearStartedAt {
		sess.Timer.StartedAt = nil
	}
	s.touchLocked(sess)
	s.persistLocked()
}

// CompleteSession removes a finished session. History lives in the workout
// log, not here.
func (s *Store) CompleteSession(id string) {
	s.removeSession(id)
}

// AbortSession removes a session on explicit caller abort. Behaviorally
// identical to CompleteSession; the split records caller intent.
func (s *Store) AbortSession(id string) {
	s.removeSession(id)
}

func (s *Store) removeSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	if s.currentID == id {
		s.currentID = ""
	}
	s.persistLocked()
}

// ClearExpiredSessions sweeps sessions idle beyond SessionTTL and returns
// how many were removed. Called opportunistically, typically on load.
func (s *Store) ClearExpiredSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-SessionTTL)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActiveAt.Before(cutoff) {
			delete(s.sessions, id)
			if s.currentID == id {
				s.currentID = ""
			}
			removed++
		}
	}
	if removed > 0 {
		s.log.Info("expired sessions cleared", "count", removed)
		s.persistLocked()
	}
	return removed
}

// GetSession returns a copy of the session, or nil if absent.
func (s *Store) GetSession(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess.clone()
	}
	return nil
}

// GetCurrentSession returns a copy of the current session, or nil.
func (s *Store) GetCurrentSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[s.currentID]; ok {
		return sess.clone()
	}
	return nil
}

// GetSessionsForProfile returns copies of all sessions for a profile.
func (s *Store) GetSessionsForProfile(profileID string) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Session
	for _, sess := range s.sessions {
		if sess.ProfileID == profileID {
			out = append(out, sess.clone())
		}
	}
	return out
}

// GetSessionsForWorkout returns copies of all sessions within a workout log.
func (s *Store) GetSessionsForWorkout(workoutLogID string) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Session
	for _, sess := range s.sessions {
		if sess.WorkoutLogID == workoutLogID {
			out = append(out, sess.clone())
		}
	}
	return out
}

// FindActive returns the non-completed session for (workoutLogID,
// exerciseID), or nil. Uniqueness per pair is enforced by this
// lookup-before-create, not a hard constraint.
func (s *Store) FindActive(workoutLogID, exerciseID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.WorkoutLogID == workoutLogID && sess.ExerciseID == exerciseID && !sess.State.IsCompleted {
			return sess.clone()
		}
	}
	return nil
}

func (s *Store) touchLocked(sess *Session) {
	now := s.now()
	sess.UpdatedAt = now
	sess.LastActiveAt = now
}

// persistLocked flushes the whole document. Failures degrade silently to
// memory-only operation: logged, never surfaced.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	doc := &Document{
		Version:          DocumentVersion,
		ActiveSessions:   s.sessions,
		CurrentSessionID: s.currentID,
	}
	if err := s.persister.Save(doc); err != nil {
		s.log.Warn("session persistence failed; state remains in memory", "error", err)
	}
}

func restOrZero(seconds int) int {
	if seconds < 0 {
		return 0
	}
	return seconds
}
