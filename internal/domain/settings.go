package domain

import "fmt"

const (
	MinMaxPlayers = 5
	MaxMaxPlayers = 15

	MinDayDuration        = 60
	MaxDayDuration        = 300
	MinNightDuration      = 15
	MaxNightDuration      = 120
	MinDiscussionDuration = 15
	MaxDiscussionDuration = 180
)

// RoleCounts is how many of each role a game deals. A zero villager count
// means villagers fill whatever seats the special roles leave.
type RoleCounts struct {
	Mafia     int `json:"MAFIA" mapstructure:"mafia"`
	Detective int `json:"DETECTIVE" mapstructure:"detective"`
	Doctor    int `json:"DOCTOR" mapstructure:"doctor"`
	Villager  int `json:"VILLAGER" mapstructure:"villager"`
}

// Specials is the number of non-villager roles
func (c RoleCounts) Specials() int {
	return c.Mafia + c.Detective + c.Doctor
}

func (c RoleCounts) IsZero() bool {
	return c == RoleCounts{}
}

// Deck returns the roles to deal to n players in dealing order.
func (c RoleCounts) Deck(n int) ([]Role, error) {
	villagers := c.Villager
	if villagers == 0 {
		villagers = n - c.Specials()
	}
	if villagers < 0 || c.Specials()+villagers != n {
		return nil, fmt.Errorf("%w: %d roles configured for %d players", ErrRoleCountMismatch, c.Specials()+c.Villager, n)
	}

	deck := make([]Role, 0, n)
	for _, rc := range []struct {
		role  Role
		count int
	}{
		{RoleMafia, c.Mafia},
		{RoleDetective, c.Detective},
		{RoleDoctor, c.Doctor},
		{RoleVillager, villagers},
	} {
		for i := 0; i < rc.count; i++ {
			deck = append(deck, rc.role)
		}
	}
	return deck, nil
}

// Settings configures a room. Durations are in seconds.
type Settings struct {
	MaxPlayers     int        `json:"maxPlayers" mapstructure:"max_players"`
	Roles          RoleCounts `json:"roles" mapstructure:"roles"`
	DayDuration    int        `json:"dayDuration" mapstructure:"day_duration"`
	NightDuration  int        `json:"nightDuration" mapstructure:"night_duration"`
	DiscussionTime int        `json:"discussionTime" mapstructure:"discussion_time"`
}

// DefaultSettings matches the values offered by the room creation form
func DefaultSettings() Settings {
	return Settings{
		MaxPlayers: 10,
		Roles: RoleCounts{
			Mafia:     2,
			Detective: 1,
			Doctor:    1,
			Villager:  6,
		},
		DayDuration:    120,
		NightDuration:  30,
		DiscussionTime: 60,
	}
}

// WithDefaults fills every zero field of s from def.
func (s Settings) WithDefaults(def Settings) Settings {
	if s.MaxPlayers == 0 {
		s.MaxPlayers = def.MaxPlayers
	}
	if s.Roles.IsZero() {
		s.Roles = def.Roles
	}
	if s.DayDuration == 0 {
		s.DayDuration = def.DayDuration
	}
	if s.NightDuration == 0 {
		s.NightDuration = def.NightDuration
	}
	if s.DiscussionTime == 0 {
		s.DiscussionTime = def.DiscussionTime
	}
	return s
}

// Validate checks bounds and role totals. Errors wrap ErrInvalidSettings.
func (s Settings) Validate() error {
	if s.MaxPlayers < MinMaxPlayers || s.MaxPlayers > MaxMaxPlayers {
		return fmt.Errorf("%w: maxPlayers must be between %d and %d", ErrInvalidSettings, MinMaxPlayers, MaxMaxPlayers)
	}
	r := s.Roles
	if r.Mafia < 0 || r.Detective < 0 || r.Doctor < 0 || r.Villager < 0 {
		return fmt.Errorf("%w: role counts must be non-negative", ErrInvalidSettings)
	}
	if r.Mafia < 1 {
		return fmt.Errorf("%w: at least one mafia is required", ErrInvalidSettings)
	}
	if r.Specials() > s.MaxPlayers-1 {
		return fmt.Errorf("%w: special roles must leave at least one villager seat", ErrInvalidSettings)
	}
	if r.Specials()+r.Villager > s.MaxPlayers {
		return fmt.Errorf("%w: role counts exceed maxPlayers", ErrInvalidSettings)
	}
	if err := checkRange("dayDuration", s.DayDuration, MinDayDuration, MaxDayDuration); err != nil {
		return err
	}
	if err := checkRange("nightDuration", s.NightDuration, MinNightDuration, MaxNightDuration); err != nil {
		return err
	}
	return checkRange("discussionTime", s.DiscussionTime, MinDiscussionDuration, MaxDiscussionDuration)
}

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s must be between %d and %d seconds", ErrInvalidSettings, name, lo, hi)
	}
	return nil
}

// MinPlayers is the member count required to start a room with the given capacity.
func MinPlayers(maxPlayers int) int {
	if maxPlayers >= 7 {
		return 7
	}
	return 5
}
