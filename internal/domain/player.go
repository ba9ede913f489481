package domain

import (
	"time"

	"github.com/google/uuid"
)

// Player is one member of a room
type Player struct {
	ID       uuid.UUID   `json:"id"`
	Name     string      `json:"name"`
	State    PlayerState `json:"state"`
	Role     Role        `json:"role,omitempty"`
	IsReady  bool        `json:"isReady"`
	IsHost   bool        `json:"isHost"`
	JoinedAt time.Time   `json:"joinedAt"`
}

func (p *Player) IsAlive() bool {
	return p.State == PlayerAlive
}

// Message is an entry in a room's chat and game-event log
type Message struct {
	ID          int64      `json:"id"`
	SenderID    *uuid.UUID `json:"senderId,omitempty"`
	Sender      string     `json:"sender"`
	Content     string     `json:"content"`
	Timestamp   time.Time  `json:"timestamp"`
	IsGameEvent bool       `json:"isGameEvent"`
}

// Action is a night ability recorded for one actor
type Action struct {
	Kind   ActionKind `json:"action"`
	Target uuid.UUID  `json:"targetId"`
}
