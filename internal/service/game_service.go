package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrGameNotFound = errors.New("game not found")

// Page selects a window of a listing. Out of range values fall back to the
// defaults.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 || p.Limit > MaxPageSize {
		p.Limit = DefaultPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// GameService reads the archive of finished games.
type GameService struct {
	records repository.GameRecordRepository
}

func NewGameService(records repository.GameRecordRepository) *GameService {
	return &GameService{records: records}
}

func (s *GameService) Get(ctx context.Context, id uuid.UUID) (*domain.GameRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("get game %s: %w", id, err)
	}
	return rec, nil
}

// ListByRoom returns games played in a room, newest first. idOrCode is the
// room's UUID or its join code. It never returns a nil slice.
func (s *GameService) ListByRoom(ctx context.Context, idOrCode string, page Page) ([]*domain.GameRecord, error) {
	page = page.normalize()
	var (
		recs []*domain.GameRecord
		err  error
	)
	if id, perr := uuid.Parse(idOrCode); perr == nil {
		recs, err = s.records.ListByRoomID(ctx, id, page.Limit, page.Offset)
	} else {
		recs, err = s.records.ListByRoomCode(ctx, idOrCode, page.Limit, page.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list games for %s: %w", idOrCode, err)
	}
	if recs == nil {
		recs = []*domain.GameRecord{}
	}
	return recs, nil
}
