package testutil

import (
	"sync"
	"time"

	"github.com/dom/mafia-server/internal/game"
)

// ManualClock is a game.Clock that only moves when Advance is called.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers map[*manualTicker]struct{}
	timers  map[*manualTimer]struct{}
}

func NewManualClock() *ManualClock {
	return &ManualClock{
		now:     time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC),
		tickers: make(map[*manualTicker]struct{}),
		timers:  make(map[*manualTimer]struct{}),
	}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) NewTicker(d time.Duration) game.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{
		clock: c,
		every: d,
		next:  c.now.Add(d),
		c:     make(chan time.Time),
		stop:  make(chan struct{}),
	}
	c.tickers[t] = struct{}{}
	return t
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) game.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers[t] = struct{}{}
	return t
}

// Advance moves time forward by d. Every ticker that came due receives one
// tick, and the call returns once each tick has been taken by its reader.
// Due AfterFunc callbacks then run on the calling goroutine.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now

	var due []*manualTicker
	for t := range c.tickers {
		if !t.next.After(now) {
			due = append(due, t)
			for !t.next.After(now) {
				t.next = t.next.Add(t.every)
			}
		}
	}
	var fire []*manualTimer
	for t := range c.timers {
		if !t.at.After(now) {
			fire = append(fire, t)
			delete(c.timers, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		select {
		case t.c <- now:
		case <-t.stop:
		}
	}
	for _, t := range fire {
		t.f()
	}
}

// Tickers reports how many tickers are running.
func (c *ManualClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

type manualTicker struct {
	clock *ManualClock
	every time.Duration
	next  time.Time
	c     chan time.Time
	stop  chan struct{}
	once  sync.Once
}

func (t *manualTicker) C() <-chan time.Time {
	return t.c
}

func (t *manualTicker) Stop() {
	t.once.Do(func() {
		t.clock.mu.Lock()
		delete(t.clock.tickers, t)
		t.clock.mu.Unlock()
		close(t.stop)
	})
}

type manualTimer struct {
	clock *ManualClock
	at    time.Time
	f     func()
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	_, pending := t.clock.timers[t]
	delete(t.clock.timers, t)
	return pending
}
