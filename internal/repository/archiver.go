package repository

import (
	"context"
	"fmt"

	"github.com/dom/mafia-server/internal/domain"
)

// GameArchiver stores finished games through a GameRecordRepository.
type GameArchiver struct {
	records GameRecordRepository
}

func NewGameArchiver(records GameRecordRepository) *GameArchiver {
	return &GameArchiver{records: records}
}

func (a *GameArchiver) Archive(ctx context.Context, rec *domain.GameRecord) error {
	if err := a.records.Create(ctx, rec); err != nil {
		return fmt.Errorf("archive game %s: %w", rec.ID, err)
	}
	return nil
}
