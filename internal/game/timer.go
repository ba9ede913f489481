package game

import (
	"time"
)

// PhaseTimer counts down a timed phase against a wall-clock deadline.
// It is owned by the room goroutine and is not safe for concurrent use.
type PhaseTimer struct {
	clock    Clock
	interval time.Duration
	ticker   Ticker
	deadline time.Time
}

func NewPhaseTimer(clock Clock, interval time.Duration) *PhaseTimer {
	if interval <= 0 {
		interval = time.Second
	}
	return &PhaseTimer{clock: clock, interval: interval}
}

// Start begins a countdown of d, replacing any running one.
func (t *PhaseTimer) Start(d time.Duration) {
	t.Stop()
	t.deadline = t.clock.Now().Add(d)
	t.ticker = t.clock.NewTicker(t.interval)
}

// Stop cancels the countdown. Stopping an idle timer is a no-op.
func (t *PhaseTimer) Stop() {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
}

func (t *PhaseTimer) Active() bool {
	return t.ticker != nil
}

// C delivers ticks while the timer is active. It is nil otherwise, so a
// select on it blocks.
func (t *PhaseTimer) C() <-chan time.Time {
	if t.ticker == nil {
		return nil
	}
	return t.ticker.C()
}

// Remaining is the whole seconds left, rounded up, or 0 once the deadline passed.
func (t *PhaseTimer) Remaining() int {
	if t.ticker == nil {
		return 0
	}
	left := t.deadline.Sub(t.clock.Now())
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// Expired reports whether the deadline has been reached.
func (t *PhaseTimer) Expired() bool {
	return t.ticker != nil && !t.clock.Now().Before(t.deadline)
}
