package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GameRecordBuilder creates archived games with a builder pattern
type GameRecordBuilder struct {
	roomID  uuid.UUID
	code    string
	winner  domain.Winner
	rounds  int
	endedAt time.Time
	players []domain.RecordedPlayer
}

// NewGameRecordBuilder creates a builder for a villager win in room ABC123
func NewGameRecordBuilder() *GameRecordBuilder {
	return &GameRecordBuilder{
		roomID:  uuid.New(),
		code:    "ABC123",
		winner:  domain.WinnerVillagers,
		rounds:  2,
		endedAt: time.Now().UTC().Truncate(time.Second),
		players: []domain.RecordedPlayer{
			{ID: uuid.New(), Name: "alice", Role: domain.RoleMafia, State: domain.PlayerDead},
			{ID: uuid.New(), Name: "bob", Role: domain.RoleVillager, State: domain.PlayerAlive},
		},
	}
}

func (b *GameRecordBuilder) WithRoomID(id uuid.UUID) *GameRecordBuilder {
	b.roomID = id
	return b
}

func (b *GameRecordBuilder) WithRoomCode(code string) *GameRecordBuilder {
	b.code = code
	return b
}

func (b *GameRecordBuilder) WithWinner(w domain.Winner) *GameRecordBuilder {
	b.winner = w
	return b
}

func (b *GameRecordBuilder) WithEndedAt(at time.Time) *GameRecordBuilder {
	b.endedAt = at
	return b
}

// Record returns the record without storing it
func (b *GameRecordBuilder) Record(t *testing.T) *domain.GameRecord {
	t.Helper()

	players, err := json.Marshal(b.players)
	if err != nil {
		t.Fatalf("failed to marshal players: %v", err)
	}
	return &domain.GameRecord{
		ID:        uuid.New(),
		RoomID:    b.roomID,
		RoomCode:  b.code,
		Winner:    b.winner,
		Rounds:    b.rounds,
		Players:   players,
		Log:       []byte("[]"),
		StartedAt: b.endedAt.Add(-10 * time.Minute),
		EndedAt:   b.endedAt,
	}
}

// Build stores the record in db
func (b *GameRecordBuilder) Build(t *testing.T, db *gorm.DB) *domain.GameRecord {
	t.Helper()

	rec := b.Record(t)
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("failed to create game record: %v", err)
	}
	return rec
}
