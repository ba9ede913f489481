package domain

// Phase is the room's position in the game loop
type Phase string

const (
	PhaseLobby         Phase = "LOBBY"
	PhaseStarting      Phase = "STARTING"
	PhaseDayDiscussion Phase = "DAY_DISCUSSION"
	PhaseDayVoting     Phase = "DAY_VOTING"
	PhaseNightAction   Phase = "NIGHT_ACTION"
	PhaseGameEnd       Phase = "GAME_END"
)

var phaseTransitions = map[Phase][]Phase{
	PhaseLobby:         {PhaseStarting},
	PhaseStarting:      {PhaseDayDiscussion},
	PhaseDayDiscussion: {PhaseDayVoting, PhaseGameEnd},
	PhaseDayVoting:     {PhaseNightAction, PhaseGameEnd},
	PhaseNightAction:   {PhaseDayDiscussion, PhaseGameEnd},
	PhaseGameEnd:       {PhaseLobby},
}

// CanTransitionTo reports whether next directly follows p
func (p Phase) CanTransitionTo(next Phase) bool {
	for _, allowed := range phaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Timed reports whether the phase runs on a countdown
func (p Phase) Timed() bool {
	switch p {
	case PhaseDayDiscussion, PhaseDayVoting, PhaseNightAction:
		return true
	}
	return false
}

// InGame reports whether roles are dealt during the phase
func (p Phase) InGame() bool {
	switch p {
	case PhaseDayDiscussion, PhaseDayVoting, PhaseNightAction, PhaseGameEnd:
		return true
	}
	return false
}

// Duration returns the countdown length in seconds for a timed phase, 0 otherwise
func (p Phase) Duration(s Settings) int {
	switch p {
	case PhaseDayDiscussion:
		return s.DiscussionTime
	case PhaseDayVoting:
		return s.DayDuration
	case PhaseNightAction:
		return s.NightDuration
	}
	return 0
}
