package domain

import (
	"github.com/google/uuid"
)

// Shuffler is satisfied by *math/rand/v2.Rand.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// AssignRoles deals counts to members after a uniform shuffle of the members.
func AssignRoles(members []uuid.UUID, counts RoleCounts, rng Shuffler) (map[uuid.UUID]Role, error) {
	deck, err := counts.Deck(len(members))
	if err != nil {
		return nil, err
	}

	order := make([]uuid.UUID, len(members))
	copy(order, members)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	roles := make(map[uuid.UUID]Role, len(order))
	for i, id := range order {
		roles[id] = deck[i]
	}
	return roles, nil
}

// TallyVotes returns the target with strictly the most ballots. A tie among
// the leaders or an empty ballot box returns false.
func TallyVotes(votes map[uuid.UUID]uuid.UUID) (uuid.UUID, bool) {
	counts := make(map[uuid.UUID]int, len(votes))
	for _, target := range votes {
		counts[target]++
	}

	var leader uuid.UUID
	best, tied := 0, false
	for target, n := range counts {
		switch {
		case n > best:
			leader, best, tied = target, n, false
		case n == best:
			tied = true
		}
	}
	if best == 0 || tied {
		return uuid.Nil, false
	}
	return leader, true
}

// Investigation is a detective's private result
type Investigation struct {
	Detective uuid.UUID
	Target    uuid.UUID
	Role      Role
}

// NightOutcome is the result of resolving one night
type NightOutcome struct {
	// Target is the mafia's chosen victim, uuid.Nil when they did not agree.
	Target uuid.UUID
	// Killed is set when Target died.
	Killed         bool
	Saved          bool
	Investigations []Investigation
}

// ResolveNight applies protects, then the mafia's majority target, then
// detective reveals. roles must hold every actor and target.
func ResolveNight(actions map[uuid.UUID]Action, roles map[uuid.UUID]Role) NightOutcome {
	var out NightOutcome

	protected := make(map[uuid.UUID]bool)
	for actor, a := range actions {
		if a.Kind == ActionProtect && roles[actor] == RoleDoctor {
			protected[a.Target] = true
		}
	}

	ballots := make(map[uuid.UUID]uuid.UUID)
	for actor, a := range actions {
		if a.Kind == ActionEliminate && roles[actor] == RoleMafia {
			ballots[actor] = a.Target
		}
	}
	if target, ok := TallyVotes(ballots); ok {
		out.Target = target
		if protected[target] {
			out.Saved = true
		} else {
			out.Killed = true
		}
	}

	for actor, a := range actions {
		if a.Kind == ActionInvestigate && roles[actor] == RoleDetective {
			out.Investigations = append(out.Investigations, Investigation{
				Detective: actor,
				Target:    a.Target,
				Role:      roles[a.Target],
			})
		}
	}
	return out
}

// CheckWinner evaluates the win condition over the roles of the living.
func CheckWinner(alive []Role) (Winner, bool) {
	mafia := 0
	for _, r := range alive {
		if r.IsMafia() {
			mafia++
		}
	}
	switch {
	case mafia == 0:
		return WinnerVillagers, true
	case mafia >= len(alive)-mafia:
		return WinnerMafia, true
	}
	return "", false
}
