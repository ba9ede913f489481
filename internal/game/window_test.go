package game_test

import (
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/game"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPhaseWindow_Drop(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	w := game.NewPhaseWindow(domain.PhaseNightAction)

	w.SetAction(a, domain.Action{Kind: domain.ActionEliminate, Target: b})
	w.SetAction(c, domain.Action{Kind: domain.ActionProtect, Target: c})
	w.CastVote(a, c)
	w.CastVote(b, a)

	w.Drop(b)

	assert.Equal(t, map[uuid.UUID]uuid.UUID{a: c}, w.Votes())
	_, ok := w.ActionOf(a)
	assert.False(t, ok, "actions aimed at a leaver are dropped")
	_, ok = w.ActionOf(c)
	assert.True(t, ok)
}

func TestPhaseWindow_ReturnsCopies(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	w := game.NewPhaseWindow(domain.PhaseDayVoting)
	w.CastVote(a, b)

	votes := w.Votes()
	delete(votes, a)

	assert.Len(t, w.Votes(), 1)
}

func TestEventLog(t *testing.T) {
	log := game.NewEventLog()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, content := range []string{"one", "two", "three"} {
		log.Append(domain.Message{Content: content}, at)
	}

	assert.Equal(t, 3, log.Len())
	recent := log.Recent(2)
	if assert.Len(t, recent, 2) {
		assert.Equal(t, "two", recent[0].Content)
		assert.Equal(t, int64(2), recent[0].ID)
		assert.Equal(t, int64(3), recent[1].ID)
		assert.Equal(t, at, recent[1].Timestamp)
	}
	assert.Len(t, log.Recent(10), 3)
	assert.Equal(t, int64(1), log.All()[0].ID)
}
