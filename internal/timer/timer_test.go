package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

// TestTickCountsDown verifies the atomic decrement and completion callback.
func TestTickCountsDown(t *testing.T) {
	var doneFired atomic.Bool
	tm := New(nil, func() { doneFired.Store(true) })
	// Drive ticks by hand instead of starting the loop goroutine.
	tm.remaining, tm.total, tm.running = 3, 3, true

	for i := 2; i >= 0; i-- {
		tm.tick(nil)
		if got := tm.Snapshot().RemainingSeconds; got != i {
			t.Fatalf("remaining = %d, want %d", got, i)
		}
	}
	if !doneFired.Load() {
		t.Error("completion callback never fired")
	}
	if tm.Snapshot().Running {
		t.Error("timer still running at zero")
	}
}

// TestPauseFreezesRemaining verifies that pause suspends ticking without
// resetting, and a second pause resumes.
func TestPauseFreezesRemaining(t *testing.T) {
	tm := New(nil, nil)
	tm.remaining, tm.total, tm.running = 10, 10, true

	tm.Pause()
	tm.tick(nil)
	tm.tick(nil)
	if got := tm.Snapshot().RemainingSeconds; got != 10 {
		t.Errorf("remaining after paused ticks = %d, want 10", got)
	}

	tm.Pause() // resume
	tm.tick(nil)
	if got := tm.Snapshot().RemainingSeconds; got != 9 {
		t.Errorf("remaining after resume = %d, want 9", got)
	}
}

// TestResetAndSkipZero verifies both cancellation paths zero the countdown.
func TestResetAndSkipZero(t *testing.T) {
	tm := New(nil, nil)
	tm.remaining, tm.total, tm.running = 30, 45, true
	tm.Reset()
	v := tm.Snapshot()
	if v.Running || v.RemainingSeconds != 0 || v.TotalSeconds != 0 {
		t.Errorf("after Reset: %+v, want idle zero", v)
	}

	tm.remaining, tm.total, tm.running = 30, 45, true
	tm.Skip()
	v = tm.Snapshot()
	if v.Running || v.RemainingSeconds != 0 {
		t.Errorf("after Skip: %+v, want idle zero", v)
	}
}

// TestStartNonPositive verifies zero and negative durations leave the timer idle.
func TestStartNonPositive(t *testing.T) {
	tm := New(nil, nil)
	for _, secs := range []int{0, -5} {
		tm.Start(secs)
		if v := tm.Snapshot(); v.Running {
			t.Errorf("Start(%d) left the timer running", secs)
		}
	}
}

// TestStartAtRestores verifies resuming a countdown mid-rest keeps the
// original total for display.
func TestStartAtRestores(t *testing.T) {
	tm := New(nil, nil)
	tm.StartAt(12, 45)
	defer tm.Reset()

	v := tm.Snapshot()
	if !v.Running {
		t.Error("restored timer not running")
	}
	if v.RemainingSeconds != 12 || v.TotalSeconds != 45 {
		t.Errorf("remaining/total = %d/%d, want 12/45", v.RemainingSeconds, v.TotalSeconds)
	}
}

// TestLoopDrivesTicks runs the real tick loop at a short interval and checks
// ticks arrive through the callback.
func TestLoopDrivesTicks(t *testing.T) {
	var ticks atomic.Int32
	done := make(chan struct{})
	tm := New(
		func(int) { ticks.Add(1) },
		func() { close(done) },
	)
	tm.interval = 5 * time.Millisecond
	tm.Start(3)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never completed")
	}
	if got := ticks.Load(); got != 3 {
		t.Errorf("tick callbacks = %d, want 3", got)
	}
	if v := tm.Snapshot(); v.Running || v.RemainingSeconds != 0 {
		t.Errorf("terminal view = %+v, want idle zero", v)
	}
}

// TestReplacedLoopTickIgnored verifies a decrement arriving from a
// superseded tick loop leaves a fresh countdown untouched and tells that
// loop to exit.
func TestReplacedLoopTickIgnored(t *testing.T) {
	var ticks atomic.Int32
	tm := New(func(int) { ticks.Add(1) }, nil)
	tm.remaining, tm.total, tm.running = 20, 30, true
	tm.stop = make(chan struct{})

	stale := make(chan struct{})
	if done := tm.tick(stale); !done {
		t.Error("superseded tick did not tell its loop to exit")
	}
	if got := tm.Snapshot().RemainingSeconds; got != 20 {
		t.Errorf("remaining = %d, want 20 untouched", got)
	}
	if ticks.Load() != 0 {
		t.Error("superseded tick fired the callback")
	}
}

// TestFormatSeconds verifies the MM:SS rendering.
func TestFormatSeconds(t *testing.T) {
	cases := map[int]string{0: "00:00", 5: "00:05", 60: "01:00", 125: "02:05", -3: "00:00"}
	for in, want := range cases {
		if got := FormatSeconds(in); got != want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", in, got, want)
		}
	}
}
