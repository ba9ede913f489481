package domain

// Role is the secret team/ability a player is dealt when the game starts.
type Role string

const (
	RoleNone      Role = ""
	RoleVillager  Role = "VILLAGER"
	RoleMafia     Role = "MAFIA"
	RoleDetective Role = "DETECTIVE"
	RoleDoctor    Role = "DOCTOR"
)

// AllRoles contains all dealable roles in dealing order
var AllRoles = []Role{RoleMafia, RoleDetective, RoleDoctor, RoleVillager}

// IsValid checks if a role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleVillager, RoleMafia, RoleDetective, RoleDoctor:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// IsMafia reports whether the role plays for the mafia side
func (r Role) IsMafia() bool {
	return r == RoleMafia
}

// Grants reports whether the role may perform the given night action
func (r Role) Grants(kind ActionKind) bool {
	switch kind {
	case ActionEliminate:
		return r == RoleMafia
	case ActionInvestigate:
		return r == RoleDetective
	case ActionProtect:
		return r == RoleDoctor
	}
	return false
}

// ActionKind is a night ability
type ActionKind string

const (
	ActionEliminate   ActionKind = "eliminate"
	ActionInvestigate ActionKind = "investigate"
	ActionProtect     ActionKind = "protect"
)

func (k ActionKind) IsValid() bool {
	switch k {
	case ActionEliminate, ActionInvestigate, ActionProtect:
		return true
	}
	return false
}

// PlayerState is a member's liveness within a game
type PlayerState string

const (
	PlayerAlive PlayerState = "ALIVE"
	PlayerDead  PlayerState = "DEAD"
	// PlayerSpectating is reserved; members are never assigned it.
	PlayerSpectating PlayerState = "SPECTATING"
)

// Winner is the side that won a finished game
type Winner string

const (
	WinnerMafia     Winner = "MAFIA"
	WinnerVillagers Winner = "VILLAGERS"
)
