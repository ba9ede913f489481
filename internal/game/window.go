package game

import (
	"github.com/dom/mafia-server/internal/domain"
	"github.com/google/uuid"
)

// PhaseWindow collects the votes and night actions of one phase. A new
// window is opened on every transition.
type PhaseWindow struct {
	Phase   domain.Phase
	votes   map[uuid.UUID]uuid.UUID
	actions map[uuid.UUID]domain.Action
}

func NewPhaseWindow(phase domain.Phase) *PhaseWindow {
	return &PhaseWindow{
		Phase:   phase,
		votes:   make(map[uuid.UUID]uuid.UUID),
		actions: make(map[uuid.UUID]domain.Action),
	}
}

// CastVote records voter's ballot, replacing any earlier one.
func (w *PhaseWindow) CastVote(voter, target uuid.UUID) {
	w.votes[voter] = target
}

// SetAction records actor's night action, replacing any earlier one.
func (w *PhaseWindow) SetAction(actor uuid.UUID, a domain.Action) {
	w.actions[actor] = a
}

// Drop removes everything id submitted and every entry aimed at id.
func (w *PhaseWindow) Drop(id uuid.UUID) {
	delete(w.votes, id)
	delete(w.actions, id)
	for voter, target := range w.votes {
		if target == id {
			delete(w.votes, voter)
		}
	}
	for actor, a := range w.actions {
		if a.Target == id {
			delete(w.actions, actor)
		}
	}
}

func (w *PhaseWindow) Votes() map[uuid.UUID]uuid.UUID {
	out := make(map[uuid.UUID]uuid.UUID, len(w.votes))
	for k, v := range w.votes {
		out[k] = v
	}
	return out
}

func (w *PhaseWindow) Actions() map[uuid.UUID]domain.Action {
	out := make(map[uuid.UUID]domain.Action, len(w.actions))
	for k, v := range w.actions {
		out[k] = v
	}
	return out
}

func (w *PhaseWindow) ActionOf(actor uuid.UUID) (domain.Action, bool) {
	a, ok := w.actions[actor]
	return a, ok
}
