package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GameRecord is the archived result of a finished game
type GameRecord struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID      `json:"roomId" gorm:"type:uuid;not null;index"`
	RoomCode  string         `json:"roomCode" gorm:"not null;index"`
	Winner    Winner         `json:"winner" gorm:"not null"`
	Rounds    int            `json:"rounds" gorm:"not null;default:0"`
	Players   datatypes.JSON `json:"players"`
	Log       datatypes.JSON `json:"log"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   time.Time      `json:"endedAt"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (GameRecord) TableName() string {
	return "game_records"
}

// RecordedPlayer is the per-player entry stored in GameRecord.Players
type RecordedPlayer struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Role  Role        `json:"role"`
	State PlayerState `json:"state"`
}
