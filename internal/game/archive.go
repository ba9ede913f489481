package game

import (
	"context"
	"encoding/json"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Archiver stores finished games. It is called off the room goroutine.
type Archiver interface {
	Archive(ctx context.Context, rec *domain.GameRecord) error
}

// NopArchiver discards records.
type NopArchiver struct{}

func (NopArchiver) Archive(context.Context, *domain.GameRecord) error {
	return nil
}

func (r *Room) gameRecord() (*domain.GameRecord, error) {
	players := make([]domain.RecordedPlayer, 0, len(r.order))
	for _, id := range r.order {
		p := r.players[id]
		players = append(players, domain.RecordedPlayer{
			ID:    p.ID,
			Name:  p.Name,
			Role:  p.Role,
			State: p.State,
		})
	}
	playersJSON, err := json.Marshal(players)
	if err != nil {
		return nil, err
	}
	logJSON, err := json.Marshal(r.events.All())
	if err != nil {
		return nil, err
	}
	return &domain.GameRecord{
		ID:        uuid.New(),
		RoomID:    r.id,
		RoomCode:  r.code,
		Winner:    r.winner,
		Rounds:    r.round,
		Players:   playersJSON,
		Log:       logJSON,
		StartedAt: r.startedAt,
		EndedAt:   r.opts.Clock.Now(),
	}, nil
}

// archive hands the finished game to the archiver without blocking the room.
func (r *Room) archive() {
	if r.archiver == nil {
		return
	}
	rec, err := r.gameRecord()
	if err != nil {
		r.log.Error("failed to build game record", zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.ArchiveTimeout)
		defer cancel()
		if err := r.archiver.Archive(ctx, rec); err != nil {
			r.log.Error("failed to archive game", zap.Error(err), zap.String("game", rec.ID.String()))
			return
		}
		r.log.Debug("game archived", zap.String("game", rec.ID.String()))
	}()
}
