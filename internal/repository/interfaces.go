package repository

import (
	"context"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/google/uuid"
)

type GameRecordRepository interface {
	Create(ctx context.Context, rec *domain.GameRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GameRecord, error)
	ListByRoomCode(ctx context.Context, code string, limit, offset int) ([]*domain.GameRecord, error)
	ListByRoomID(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*domain.GameRecord, error)
}

type Repositories struct {
	GameRecord GameRecordRepository
}
