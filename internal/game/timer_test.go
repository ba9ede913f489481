package game_test

import (
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/game"
	"github.com/dom/mafia-server/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPhaseTimer(t *testing.T) {
	clock := testutil.NewManualClock()
	timer := game.NewPhaseTimer(clock, time.Second)

	assert.False(t, timer.Active())
	assert.Nil(t, timer.C())
	assert.Equal(t, 0, timer.Remaining())

	timer.Start(30 * time.Second)
	assert.True(t, timer.Active())
	assert.Equal(t, 30, timer.Remaining())

	ticks := timer.C()
	go func() {
		for range ticks {
		}
	}()

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, 29, timer.Remaining(), "partial seconds round up")
	assert.False(t, timer.Expired())

	clock.Advance(28500 * time.Millisecond)
	assert.Equal(t, 0, timer.Remaining())
	assert.True(t, timer.Expired())

	timer.Stop()
	timer.Stop()
	assert.False(t, timer.Active())
	assert.False(t, timer.Expired())
	assert.Equal(t, 0, clock.Tickers())
}

func TestPhaseTimer_RestartReplacesTicker(t *testing.T) {
	clock := testutil.NewManualClock()
	timer := game.NewPhaseTimer(clock, time.Second)

	timer.Start(10 * time.Second)
	timer.Start(20 * time.Second)

	assert.Equal(t, 1, clock.Tickers())
	assert.Equal(t, 20, timer.Remaining())
	timer.Stop()
}
