package postgres

import (
	"context"
	"strings"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gameRecordRepository struct {
	db *gorm.DB
}

func NewGameRecordRepository(db *gorm.DB) *gameRecordRepository {
	return &gameRecordRepository{db: db}
}

func (r *gameRecordRepository) Create(ctx context.Context, rec *domain.GameRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *gameRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.GameRecord, error) {
	var rec domain.GameRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByRoomCode returns the newest games played under a room code first.
func (r *gameRecordRepository) ListByRoomCode(ctx context.Context, code string, limit, offset int) ([]*domain.GameRecord, error) {
	return r.list(ctx, r.db.Where("room_code = ?", strings.ToUpper(code)), limit, offset)
}

func (r *gameRecordRepository) ListByRoomID(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*domain.GameRecord, error) {
	return r.list(ctx, r.db.Where("room_id = ?", roomID), limit, offset)
}

func (r *gameRecordRepository) list(ctx context.Context, scope *gorm.DB, limit, offset int) ([]*domain.GameRecord, error) {
	var recs []*domain.GameRecord
	err := scope.WithContext(ctx).
		Order("ended_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}
