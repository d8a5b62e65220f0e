package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/claude/repflow/internal/engine"
	"github.com/claude/repflow/internal/protocol"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/workoutlog"
)

type fakeRecorder struct {
	rows []workoutlog.CompletedSetRow
	err  error
}

func (f *fakeRecorder) InsertCompletedSets(_ context.Context, rows []workoutlog.CompletedSetRow) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.rows = append(f.rows, rows...)
	return int64(len(rows)), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) (*Orchestrator, *session.Store, *fakeRecorder) {
	t.Helper()
	store, err := session.NewStore(nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	rec := &fakeRecorder{}
	o := New(store, rec, testLogger())
	o.Attach("p1", "w1", "bench")
	return o, store, rec
}

func dropCfg(percentages []float64, rest int) protocol.SetConfiguration {
	return protocol.SetConfiguration{
		Type: protocol.TypeDrop,
		Drop: &protocol.DropConfig{
			DropPercentages:         percentages,
			Counts:                  protocol.IntRange{Min: 6, Max: 10},
			RestBetweenDropsSeconds: rest,
		},
	}
}

func ptr(f float64) *float64 { return &f }

// TestDropSetLifecycle walks the full scenario: initialize a one-drop set at
// 100 kg with 45 s rest, complete both phases, and verify timer mirroring,
// workout-log commit and session removal.
func TestDropSetLifecycle(t *testing.T) {
	o, store, rec := newFixture(t)

	id, err := o.Initialize(dropCfg([]float64{20}, 45), ptr(100))
	if err != nil {
		t.Fatalf("Initialize error: %v", err)
	}
	state := o.State()
	if state == nil || state.CurrentPhase != 1 || state.CurrentSet.Weight != 100 {
		t.Fatalf("initial state = %+v, want phase 1 at 100 kg", state)
	}

	err = o.CompleteCurrentSet(engine.SetProgressionData{Weight: 100, Reps: 8, RPE: ptr(9), Completed: true})
	if err != nil {
		t.Fatalf("CompleteCurrentSet error: %v", err)
	}
	state = o.State()
	if state.CurrentPhase != 2 || state.CurrentSet.Weight != 80 {
		t.Errorf("phase 2 state = phase %d at %g kg, want 2 at 80", state.CurrentPhase, state.CurrentSet.Weight)
	}
	if state.RestPeriodSeconds != 45 {
		t.Errorf("rest = %d, want 45", state.RestPeriodSeconds)
	}

	view := o.Timer()
	if !view.Running || view.RemainingSeconds != 45 {
		t.Errorf("timer = %+v, want running at 45", view)
	}
	sess := store.GetSession(id)
	if !sess.Timer.IsRunning || sess.Timer.RemainingSeconds != 45 || sess.Timer.StartedAt == nil {
		t.Errorf("persisted timer = %+v, want running mirror at 45", sess.Timer)
	}

	err = o.CompleteCurrentSet(engine.SetProgressionData{Weight: 80, Reps: 6, Completed: true})
	if err != nil {
		t.Fatalf("CompleteCurrentSet error: %v", err)
	}
	if store.GetSession(id) != nil {
		t.Error("session still in store after completion")
	}
	if o.SessionID() != "" {
		t.Error("orchestrator still bound after completion")
	}
	if v := o.Timer(); v.Running {
		t.Error("timer restarted after the final phase")
	}
	if len(rec.rows) != 2 {
		t.Fatalf("workout log rows = %d, want 2", len(rec.rows))
	}
	if rec.rows[0].WeightKg != 100 || rec.rows[1].WeightKg != 80 {
		t.Errorf("committed weights = %g, %g, want 100, 80", rec.rows[0].WeightKg, rec.rows[1].WeightKg)
	}
	if rec.rows[1].Phase != 2 {
		t.Errorf("second row phase = %d, want 2", rec.rows[1].Phase)
	}
}

// TestInitializeFailureLeavesStoreUntouched verifies engine failures surface
// without creating a session.
func TestInitializeFailureLeavesStoreUntouched(t *testing.T) {
	o, store, _ := newFixture(t)

	_, err := o.Initialize(dropCfg(nil, 45), ptr(100))
	if !errors.Is(err, engine.ErrInvalidConfiguration) {
		t.Fatalf("error = %v, want ErrInvalidConfiguration", err)
	}
	if o.Err() == nil {
		t.Error("error not surfaced through Err()")
	}
	if store.GetCurrentSession() != nil {
		t.Error("failed initialize created a session")
	}
	if o.SessionID() != "" {
		t.Error("failed initialize bound a session id")
	}
}

// TestInitializeReusesActiveSession verifies lookup-before-create: a second
// initialize on the same slot returns the existing session.
func TestInitializeReusesActiveSession(t *testing.T) {
	o, store, _ := newFixture(t)

	id1, err := o.Initialize(dropCfg([]float64{20}, 0), ptr(100))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := o.Initialize(dropCfg([]float64{30, 30}, 10), ptr(120))
	if err != nil {
		t.Fatal(err)
	}
	if id2 != id1 {
		t.Errorf("second initialize created %s, want reuse of %s", id2, id1)
	}
	if got := len(store.GetSessionsForWorkout("w1")); got != 1 {
		t.Errorf("sessions in store = %d, want 1", got)
	}
}

// TestAttachRestoresIdempotently verifies re-attachment reproduces the prior
// observable state with no second session and no double-applied history.
func TestAttachRestoresIdempotently(t *testing.T) {
	o, store, _ := newFixture(t)

	id, _ := o.Initialize(dropCfg([]float64{20, 40}, 0), ptr(100))
	if err := o.CompleteCurrentSet(engine.SetProgressionData{Weight: 100, Reps: 8, Completed: true}); err != nil {
		t.Fatal(err)
	}

	// A fresh orchestrator over the same store models a process remount.
	o2 := New(store, nil, testLogger())
	for i := 0; i < 2; i++ {
		if restored := o2.Attach("p1", "w1", "bench"); !restored {
			t.Fatalf("attach %d did not restore", i+1)
		}
	}
	if o2.SessionID() != id {
		t.Errorf("restored id = %s, want %s", o2.SessionID(), id)
	}
	state := o2.State()
	if state.CurrentPhase != 2 || state.CurrentSet.Weight != 80 {
		t.Errorf("restored state = phase %d at %g, want 2 at 80", state.CurrentPhase, state.CurrentSet.Weight)
	}
	if got := len(o2.CompletedSets()); got != 1 {
		t.Errorf("restored history length = %d, want 1", got)
	}
	if got := len(store.GetSessionsForWorkout("w1")); got != 1 {
		t.Errorf("sessions after double attach = %d, want 1", got)
	}
}

// TestAttachResumesRunningTimer verifies a persisted mid-rest timer resumes
// at its last-known remaining seconds, not recomputed from wall clock.
func TestAttachResumesRunningTimer(t *testing.T) {
	o, store, _ := newFixture(t)
	id, _ := o.Initialize(dropCfg([]float64{20}, 45), ptr(100))

	running := true
	remaining := 17
	total := 45
	store.UpdateTimerState(id, session.TimerPatch{
		IsRunning:        &running,
		RemainingSeconds: &remaining,
		TotalSeconds:     &total,
	})

	o2 := New(store, nil, testLogger())
	if !o2.Attach("p1", "w1", "bench") {
		t.Fatal("attach did not restore")
	}
	defer o2.Reset()

	view := o2.Timer()
	if !view.Running || view.RemainingSeconds != 17 || view.TotalSeconds != 45 {
		t.Errorf("restored timer = %+v, want running 17/45", view)
	}
}

// TestAttachRestoresPausedTimer verifies a timer paused mid-rest comes back
// frozen at its persisted remaining time after a remount, and a PauseRest on
// the new orchestrator resumes it from that value.
func TestAttachRestoresPausedTimer(t *testing.T) {
	o, store, _ := newFixture(t)
	o.Initialize(dropCfg([]float64{20}, 45), ptr(100))
	o.StartRest()
	o.PauseRest()
	defer o.SkipRest()

	o2 := New(store, nil, testLogger())
	if !o2.Attach("p1", "w1", "bench") {
		t.Fatal("attach did not restore")
	}
	defer o2.Reset()

	view := o2.Timer()
	if view.Running {
		t.Error("restored timer running, want paused")
	}
	if view.RemainingSeconds != 45 || view.TotalSeconds != 45 {
		t.Errorf("restored timer = %+v, want paused at 45/45", view)
	}

	o2.PauseRest() // resume
	if v := o2.Timer(); !v.Running || v.RemainingSeconds != 45 {
		t.Errorf("timer after resume = %+v, want running at 45", v)
	}
}

// TestAttachLeavesUnstartedTimerIdle verifies a session whose rest never
// began does not come back with a phantom countdown.
func TestAttachLeavesUnstartedTimerIdle(t *testing.T) {
	o, store, _ := newFixture(t)
	o.Initialize(dropCfg([]float64{20}, 45), ptr(100))

	o2 := New(store, nil, testLogger())
	if !o2.Attach("p1", "w1", "bench") {
		t.Fatal("attach did not restore")
	}
	if v := o2.Timer(); v.Running || v.RemainingSeconds != 0 {
		t.Errorf("timer = %+v, want idle zero", v)
	}
}

// TestZeroRestNeverStartsTimer verifies neither progression nor StartRest
// activates the timer when no rest is prescribed.
func TestZeroRestNeverStartsTimer(t *testing.T) {
	o, _, _ := newFixture(t)
	o.Initialize(dropCfg([]float64{20}, 0), ptr(100))

	if err := o.CompleteCurrentSet(engine.SetProgressionData{Weight: 100, Reps: 8, Completed: true}); err != nil {
		t.Fatal(err)
	}
	if v := o.Timer(); v.Running {
		t.Errorf("timer running after zero-rest progression: %+v", v)
	}

	o.StartRest()
	if v := o.Timer(); v.Running {
		t.Errorf("timer running after StartRest with zero rest: %+v", v)
	}
}

// TestStartAndSkipRestMirror verifies manual rest controls keep the
// persisted mirror in sync.
func TestStartAndSkipRestMirror(t *testing.T) {
	o, store, _ := newFixture(t)
	id, _ := o.Initialize(dropCfg([]float64{20}, 30), ptr(100))

	o.StartRest()
	if v := o.Timer(); !v.Running || v.RemainingSeconds != 30 {
		t.Errorf("timer after StartRest = %+v, want running at 30", v)
	}
	if sess := store.GetSession(id); !sess.Timer.IsRunning {
		t.Error("persisted mirror not running after StartRest")
	}

	o.SkipRest()
	if v := o.Timer(); v.Running || v.RemainingSeconds != 0 {
		t.Errorf("timer after SkipRest = %+v, want idle zero", v)
	}
	sess := store.GetSession(id)
	if sess.Timer.IsRunning || sess.Timer.RemainingSeconds != 0 || sess.Timer.StartedAt != nil {
		t.Errorf("persisted mirror after SkipRest = %+v, want stopped zero", sess.Timer)
	}
}

// TestCompleteRejectsInvalidData verifies zero reps fail validation before
// any progression happens.
func TestCompleteRejectsInvalidData(t *testing.T) {
	o, store, _ := newFixture(t)
	id, _ := o.Initialize(dropCfg([]float64{20}, 0), ptr(100))

	err := o.CompleteCurrentSet(engine.SetProgressionData{Weight: 100, Reps: 0, Completed: true})
	if !errors.Is(err, engine.ErrValidationFailed) {
		t.Fatalf("error = %v, want ErrValidationFailed", err)
	}
	sess := store.GetSession(id)
	if sess.State.CurrentPhase != 1 || len(sess.CompletedSets) != 0 {
		t.Errorf("state mutated by rejected data: phase %d, history %d", sess.State.CurrentPhase, len(sess.CompletedSets))
	}
}

// TestPauseRestTogglesWithoutReset verifies pause freezes the remaining
// time, mirrors the stopped flag, and a second pause resumes.
func TestPauseRestTogglesWithoutReset(t *testing.T) {
	o, store, _ := newFixture(t)
	id, _ := o.Initialize(dropCfg([]float64{20}, 30), ptr(100))
	defer o.Abort()

	o.StartRest()
	o.PauseRest()
	view := o.Timer()
	if view.Running {
		t.Error("timer still running after pause")
	}
	if view.RemainingSeconds != 30 {
		t.Errorf("remaining = %d, want 30 untouched by pause", view.RemainingSeconds)
	}
	if sess := store.GetSession(id); sess.Timer.IsRunning {
		t.Error("persisted mirror still running after pause")
	}

	o.PauseRest()
	view = o.Timer()
	if !view.Running || view.RemainingSeconds != 30 {
		t.Errorf("timer after resume = %+v, want running at 30", view)
	}
	if sess := store.GetSession(id); !sess.Timer.IsRunning {
		t.Error("persisted mirror not running after resume")
	}
}

// TestCompleteWithoutSession verifies the no-session failure path.
func TestCompleteWithoutSession(t *testing.T) {
	o, _, _ := newFixture(t)
	err := o.CompleteCurrentSet(engine.SetProgressionData{Weight: 100, Reps: 8})
	if !errors.Is(err, engine.ErrIllegalTransition) {
		t.Errorf("error = %v, want ErrIllegalTransition", err)
	}
}

// TestResetClearsErrorAndSession verifies reset semantics.
func TestResetClearsErrorAndSession(t *testing.T) {
	o, store, _ := newFixture(t)

	o.Initialize(dropCfg(nil, 0), ptr(100)) // surfaces an error
	if o.Err() == nil {
		t.Fatal("expected surfaced error")
	}
	o.Initialize(dropCfg([]float64{20}, 0), ptr(100))

	o.Reset()
	if o.Err() != nil {
		t.Error("Reset left the surfaced error in place")
	}
	if o.SessionID() != "" {
		t.Error("Reset left a bound session")
	}
	if store.GetCurrentSession() != nil {
		t.Error("Reset left the session in the store")
	}
}

// TestAbortRemovesSession verifies abort drops the persisted session and
// stops the timer.
func TestAbortRemovesSession(t *testing.T) {
	o, store, _ := newFixture(t)
	id, _ := o.Initialize(dropCfg([]float64{20}, 30), ptr(100))
	o.StartRest()

	o.Abort()
	if store.GetSession(id) != nil {
		t.Error("aborted session still in store")
	}
	if v := o.Timer(); v.Running {
		t.Error("timer still running after abort")
	}
}

// TestRecorderFailureDoesNotBlockCompletion verifies a workout-log commit
// failure degrades silently: the session still completes and is removed.
func TestRecorderFailureDoesNotBlockCompletion(t *testing.T) {
	store, err := session.NewStore(nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	rec := &fakeRecorder{err: errors.New("db down")}
	o := New(store, rec, testLogger())
	o.Attach("p1", "w1", "bench")

	id, _ := o.Initialize(dropCfg([]float64{20}, 0), ptr(100))
	o.CompleteCurrentSet(engine.SetProgressionData{Weight: 100, Reps: 8, Completed: true})
	if err := o.CompleteCurrentSet(engine.SetProgressionData{Weight: 80, Reps: 6, Completed: true}); err != nil {
		t.Fatalf("completion failed on recorder error: %v", err)
	}
	if store.GetSession(id) != nil {
		t.Error("session survived completion with failing recorder")
	}
}

// TestEngineFailureLeavesStateUntouched verifies a rejected progression
// surfaces the error and appends nothing to the session history.
func TestEngineFailureLeavesStateUntouched(t *testing.T) {
	o, store, _ := newFixture(t)
	id, _ := o.Initialize(dropCfg([]float64{20}, 0), ptr(100))
	o.CompleteCurrentSet(engine.SetProgressionData{Weight: 100, Reps: 8, Completed: true})

	// Tamper the stored state into a terminal one so the next progression
	// is rejected by the engine.
	sess := store.GetSession(id)
	done := sess.State
	done.IsCompleted = true
	store.UpdateExecutionState(id, done)

	err := o.CompleteCurrentSet(engine.SetProgressionData{Weight: 80, Reps: 6, Completed: true})
	if !errors.Is(err, engine.ErrIllegalTransition) {
		t.Fatalf("error = %v, want ErrIllegalTransition", err)
	}
	if !errors.Is(o.Err(), engine.ErrIllegalTransition) {
		t.Error("engine error not surfaced through Err()")
	}
	after := store.GetSession(id)
	if got := len(after.CompletedSets); got != 1 {
		t.Errorf("history length = %d, want 1 (rejected progression must not append)", got)
	}
}
