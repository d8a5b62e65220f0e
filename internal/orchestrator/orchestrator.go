// Package orchestrator wires the pure execution engine to the session store
// and the rest timer. It is the sole mutation surface for advanced sets:
// attach, initialize, complete-set, rest controls, reset and abort all pass
// through here, and every phase transition is synchronous in response to a
// caller action.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/repflow/internal/engine"
	"github.com/claude/repflow/internal/protocol"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/timer"
	"github.com/claude/repflow/internal/workoutlog"
)

// Recorder commits a finished session's history into the durable workout
// log. *workoutlog.DB satisfies it; tests use a fake.
type Recorder interface {
	InsertCompletedSets(ctx context.Context, rows []workoutlog.CompletedSetRow) (int64, error)
}

// Orchestrator drives one advanced set at a time for one
// (profile, workout log, exercise) binding. Engine failures surface through
// Err and the returned error; store and timer operations are local and
// treated as infallible.
type Orchestrator struct {
	store    *session.Store
	recorder Recorder // nil disables workout-log commits
	log      *slog.Logger
	timer    *timer.RestTimer
	now      func() time.Time

	mu           sync.Mutex
	sessionID    string
	profileID    string
	workoutLogID string
	exerciseID   string
	lastErr      error
}

// New creates an orchestrator over the given store and recorder.
func New(store *session.Store, recorder Recorder, log *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}
	o.timer = timer.New(o.mirrorTick, o.mirrorDone)
	return o
}

// Attach binds the orchestrator to an exercise slot and restores any
// non-completed session already persisted for it. A rest timer that was
// running resumes at its last-known remaining seconds; one that was paused
// comes back frozen at its remaining time, ready to resume. Attaching twice
// to the same slot is idempotent: no second session, no double-applied state.
func (o *Orchestrator) Attach(profileID, workoutLogID, exerciseID string) (restored bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.profileID = profileID
	o.workoutLogID = workoutLogID
	o.exerciseID = exerciseID

	existing := o.store.FindActive(workoutLogID, exerciseID)
	if existing == nil {
		o.sessionID = ""
		return false
	}
	if o.sessionID == existing.ID {
		return true
	}

	o.sessionID = existing.ID
	// A session whose rest never began has remaining seconds pre-seeded but
	// StartedAt unset; only a countdown that actually started is rehydrated.
	if existing.Timer.RemainingSeconds > 0 && (existing.Timer.IsRunning || existing.Timer.StartedAt != nil) {
		o.timer.StartAt(existing.Timer.RemainingSeconds, existing.Timer.TotalSeconds)
		if !existing.Timer.IsRunning {
			o.timer.Pause()
		}
	}
	o.log.Info("session restored",
		"session_id", existing.ID,
		"set_type", existing.SetType,
		"phase", existing.State.CurrentPhase,
	)
	return true
}

// Initialize validates the configuration, computes phase 1 and creates a
// persisted session. If a non-completed session already exists for the
// attached slot it is restored instead — lookup-before-create keeps the slot
// unique. On engine failure nothing is stored.
func (o *Orchestrator) Initialize(cfg protocol.SetConfiguration, lastWeight *float64) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing := o.store.FindActive(o.workoutLogID, o.exerciseID); existing != nil {
		o.sessionID = existing.ID
		return existing.ID, nil
	}

	state, err := engine.Initialize(cfg, lastWeight)
	if err != nil {
		o.lastErr = err
		return "", err
	}

	configJSON, err := cfg.Encode()
	if err != nil {
		o.lastErr = err
		return "", err
	}

	id := o.store.CreateSession(session.CreateParams{
		ProfileID:    o.profileID,
		WorkoutLogID: o.workoutLogID,
		ExerciseID:   o.exerciseID,
		ConfigJSON:   configJSON,
		State:        state,
	})
	o.sessionID = id
	o.lastErr = nil
	o.log.Info("session initialized", "session_id", id, "set_type", cfg.Type)
	return id, nil
}

// CompleteCurrentSet records one phase outcome and advances the protocol.
// If the new state prescribes a positive rest, the timer starts and its
// running state is mirrored into the session in the same critical section.
// A completed protocol commits the history to the workout log and removes
// the session.
func (o *Orchestrator) CompleteCurrentSet(data engine.SetProgressionData) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess := o.store.GetSession(o.sessionID)
	if sess == nil {
		err := fmt.Errorf("%w: no active session", engine.ErrIllegalTransition)
		o.lastErr = err
		return err
	}

	if err := engine.ValidateCompletion(sess.State, data); err != nil {
		o.lastErr = err
		return err
	}

	next, err := engine.Progress(sess.State, data)
	if err != nil {
		o.lastErr = err
		return err
	}

	o.store.AddCompletedSet(sess.ID, data)

	if next.IsCompleted {
		o.store.UpdateExecutionState(sess.ID, next)
		o.finalizeLocked(sess.ID)
		return nil
	}

	o.store.UpdateExecutionState(sess.ID, next)
	if next.RestPeriodSeconds > 0 {
		o.startRestLocked(sess.ID, next.RestPeriodSeconds)
	}
	return nil
}

// StartRest manually starts the rest countdown using the current phase's
// prescribed rest. A session without a positive rest period never activates
// the timer.
func (o *Orchestrator) StartRest() {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess := o.store.GetSession(o.sessionID)
	if sess == nil || sess.State.RestPeriodSeconds <= 0 {
		return
	}
	o.startRestLocked(sess.ID, sess.State.RestPeriodSeconds)
}

// PauseRest toggles the countdown without touching the remaining time; a
// second call resumes from the same value. The persisted mirror tracks the
// running flag so a crash while paused restores a paused timer.
func (o *Orchestrator) PauseRest() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.timer.Pause()
	if o.sessionID == "" {
		return
	}
	running := o.timer.Snapshot().Running
	o.store.UpdateTimerState(o.sessionID, session.TimerPatch{IsRunning: &running})
}

// SkipRest bypasses the countdown, zeroing the timer and its persisted
// mirror in the same tick.
func (o *Orchestrator) SkipRest() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.timer.Skip()
	if o.sessionID == "" {
		return
	}
	stopped := false
	zero := 0
	o.store.UpdateTimerState(o.sessionID, session.TimerPatch{
		IsRunning:        &stopped,
		RemainingSeconds: &zero,
		ClearStartedAt:   true,
	})
}

// Reset stops the timer, drops the session and clears any surfaced error.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.timer.Reset()
	if o.sessionID != "" {
		o.store.CompleteSession(o.sessionID)
		o.sessionID = ""
	}
	o.lastErr = nil
}

// Abort stops the timer and explicitly aborts the persisted session.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.timer.Reset()
	if o.sessionID != "" {
		o.store.AbortSession(o.sessionID)
		o.sessionID = ""
	}
}

// SessionID returns the bound session id, or empty when none is active.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// State returns a copy of the current execution state, or nil.
func (o *Orchestrator) State() *engine.ExecutionState {
	o.mu.Lock()
	id := o.sessionID
	o.mu.Unlock()

	sess := o.store.GetSession(id)
	if sess == nil {
		return nil
	}
	state := sess.State
	return &state
}

// CompletedSets returns the recorded history, oldest first.
func (o *Orchestrator) CompletedSets() []engine.SetProgressionData {
	o.mu.Lock()
	id := o.sessionID
	o.mu.Unlock()

	sess := o.store.GetSession(id)
	if sess == nil {
		return nil
	}
	return sess.CompletedSets
}

// Timer returns the live countdown view.
func (o *Orchestrator) Timer() timer.View {
	return o.timer.Snapshot()
}

// Err returns the last surfaced engine error, cleared by Reset or a
// successful Initialize.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// startRestLocked starts the countdown and mirrors the running timer into
// the session synchronously, so a crash mid-rest restores remaining time.
func (o *Orchestrator) startRestLocked(id string, seconds int) {
	o.timer.Start(seconds)
	running := true
	total := seconds
	startedAt := o.now()
	o.store.UpdateTimerState(id, session.TimerPatch{
		IsRunning:        &running,
		RemainingSeconds: &seconds,
		TotalSeconds:     &total,
		StartedAt:        &startedAt,
	})
}

// finalizeLocked commits history to the workout log and removes the session.
// A commit failure is logged, not surfaced: the set is finished either way.
func (o *Orchestrator) finalizeLocked(id string) {
	o.timer.Reset()

	sess := o.store.GetSession(id)
	if sess != nil && o.recorder != nil {
		rows := make([]workoutlog.CompletedSetRow, 0, len(sess.CompletedSets))
		for i, rec := range sess.CompletedSets {
			rows = append(rows, workoutlog.CompletedSetRow{
				SessionID:    sess.ID,
				ProfileID:    sess.ProfileID,
				WorkoutLogID: sess.WorkoutLogID,
				ExerciseID:   sess.ExerciseID,
				SetType:      string(sess.SetType),
				Phase:        i + 1,
				WeightKg:     rec.Weight,
				Reps:         rec.Reps,
				RPE:          rec.RPE,
				Completed:    rec.Completed,
				RecordedAt:   o.now(),
			})
		}
		if _, err := o.recorder.InsertCompletedSets(context.Background(), rows); err != nil {
			o.log.Warn("workout log commit failed", "session_id", id, "error", err)
		}
	}

	o.store.CompleteSession(id)
	o.sessionID = ""
	o.log.Info("session completed", "session_id", id)
}

// mirrorTick keeps the persisted timer in sync with the countdown. It runs
// on the timer goroutine; a tick racing session removal lands on a missing
// id and no-ops.
func (o *Orchestrator) mirrorTick(remaining int) {
	o.mu.Lock()
	id := o.sessionID
	o.mu.Unlock()
	if id == "" {
		return
	}
	o.store.UpdateTimerState(id, session.TimerPatch{RemainingSeconds: &remaining})
}

func (o *Orchestrator) mirrorDone() {
	o.mu.Lock()
	id := o.sessionID
	o.mu.Unlock()
	if id == "" {
		return
	}
	stopped := false
	o.store.UpdateTimerState(id, session.TimerPatch{IsRunning: &stopped, ClearStartedAt: true})
}
