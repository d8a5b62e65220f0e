// Package timer provides the rest countdown primitive. It knows nothing
// about protocols or sessions: callers start it with a number of seconds and
// observe ticks through callbacks.
package timer

import (
	"fmt"
	"sync"
	"time"
)

// View is a read-only snapshot of the timer.
type View struct {
	Running          bool   `json:"running"`
	RemainingSeconds int    `json:"remaining_seconds"`
	TotalSeconds     int    `json:"total_seconds"`
	Formatted        string `json:"formatted"`
}

// RestTimer counts down in one-second ticks. Pause suspends ticking without
// touching the remaining time; Reset and Skip both zero it out. Ticks keep
// arriving from a single goroutine, so a delayed tick under scheduler
// pressure only delays the decrement, never corrupts it.
type RestTimer struct {
	mu        sync.Mutex
	remaining int
	total     int
	running   bool
	stop      chan struct{}

	// interval is one second in production; package tests shrink it.
	interval time.Duration

	onTick func(remaining int)
	onDone func()
}

// New creates an idle timer. onTick fires after every decrement while
// running; onDone fires once when the countdown reaches zero. Either may be
// nil. Callbacks run on the tick goroutine and must not call back into the
// timer.
func New(onTick func(remaining int), onDone func()) *RestTimer {
	return &RestTimer{
		interval: time.Second,
		onTick:   onTick,
		onDone:   onDone,
	}
}

// Start begins a fresh countdown of the given number of seconds, replacing
// any countdown in flight. Non-positive durations leave the timer idle.
func (t *RestTimer) Start(seconds int) {
	t.StartAt(seconds, seconds)
}

// StartAt resumes a countdown at remaining seconds out of total. Used when
// restoring a persisted session mid-rest.
func (t *RestTimer) StartAt(remaining, total int) {
	t.mu.Lock()
	t.stopLoopLocked()

	if remaining <= 0 {
		t.remaining = 0
		t.total = 0
		t.running = false
		t.mu.Unlock()
		return
	}

	t.remaining = remaining
	t.total = total
	t.running = true
	t.stop = make(chan struct{})
	stop := t.stop
	t.mu.Unlock()

	go t.loop(stop)
}

// Pause toggles the countdown. Pausing leaves the remaining time untouched
// and keeps the tick loop alive, so a second call resumes from the same
// value.
func (t *RestTimer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remaining <= 0 {
		return
	}
	t.running = !t.running
}

// Reset cancels the countdown and zeroes the remaining time.
func (t *RestTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLoopLocked()
	t.remaining = 0
	t.total = 0
	t.running = false
}

// Skip bypasses the rest. Behaviorally identical to Reset; the split exists
// for caller intent.
func (t *RestTimer) Skip() {
	t.Reset()
}

// Snapshot returns the current timer view.
func (t *RestTimer) Snapshot() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return View{
		Running:          t.running,
		RemainingSeconds: t.remaining,
		TotalSeconds:     t.total,
		Formatted:        FormatSeconds(t.remaining),
	}
}

// FormatSeconds renders a second count as MM:SS.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func (t *RestTimer) loop(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if done := t.tick(stop); done {
				return
			}
		}
	}
}

// tick performs one atomic decrement. While paused it is a no-op, which is
// what keeps the remaining time frozen across suspend/resume. The stop
// channel identifies the calling loop: a loop that Start has replaced may
// already be past its select when the channel closes, and its final tick
// must not touch the fresh countdown.
func (t *RestTimer) tick(stop chan struct{}) (done bool) {
	t.mu.Lock()
	if stop != t.stop {
		t.mu.Unlock()
		return true
	}
	if !t.running {
		t.mu.Unlock()
		return false
	}
	t.remaining--
	remaining := t.remaining
	if remaining <= 0 {
		t.remaining = 0
		t.running = false
		done = true
	}
	onTick, onDone := t.onTick, t.onDone
	t.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if done && onDone != nil {
		onDone()
	}
	return done
}

// stopLoopLocked terminates any tick goroutine. Caller holds t.mu.
func (t *RestTimer) stopLoopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}
