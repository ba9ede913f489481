package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/protocol"
	"github.com/dom/mafia-server/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bot is a scripted player that makes random legal moves.
type Bot struct {
	ID     uuid.UUID
	Name   string
	client *session.Client
	log    *zap.Logger

	// host bots advance phases after pace instead of waiting for timers.
	host bool
	pace time.Duration

	mu    sync.Mutex
	role  domain.Role
	known map[uuid.UUID]domain.Role

	ended chan protocol.GameEndedPayload
	lost  chan error
}

func NewBot(id uuid.UUID, name string, opts session.Options, log *zap.Logger) *Bot {
	opts.Logger = log
	b := &Bot{
		ID:     id,
		Name:   name,
		client: session.New(opts),
		log:    log.With(zap.String("bot", name)),
		known:  make(map[uuid.UUID]domain.Role),
		ended:  make(chan protocol.GameEndedPayload, 1),
		lost:   make(chan error, 1),
	}

	b.client.Subscribe(protocol.EventGameStarted, b.onStarted)
	b.client.Subscribe(protocol.EventPhaseChanged, b.onPhase)
	b.client.Subscribe(protocol.EventInvestigation, b.onInvestigation)
	b.client.Subscribe(protocol.EventGameEnded, b.onEnded)
	b.client.Subscribe(session.EventReconnectFailed, func(e session.Event) {
		select {
		case b.lost <- e.Err:
		default:
		}
	})
	return b
}

func (b *Bot) Connect(ctx context.Context) error {
	return b.client.Connect(ctx)
}

func (b *Bot) Close() {
	b.client.Close()
}

// Role is the bot's dealt role, empty before the game starts.
func (b *Bot) Role() domain.Role {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.role
}

func (b *Bot) Create(ctx context.Context, settings domain.Settings) (*protocol.CreateRoomResponse, error) {
	var resp protocol.CreateRoomResponse
	if err := b.emit(ctx, protocol.EventRoomCreate, protocol.CreateRoomRequest{Settings: settings}, &resp); err != nil {
		return nil, err
	}
	b.host = true
	return &resp, nil
}

func (b *Bot) Join(ctx context.Context, code string) error {
	return b.emit(ctx, protocol.EventRoomJoin, protocol.JoinRoomRequest{Code: code}, nil)
}

func (b *Bot) Ready(ctx context.Context) error {
	return b.emit(ctx, protocol.EventPlayerReady, protocol.ReadyRequest{IsReady: true}, nil)
}

func (b *Bot) Start(ctx context.Context) error {
	return b.emit(ctx, protocol.EventGameStart, nil, nil)
}

func (b *Bot) Say(ctx context.Context, content string) error {
	return b.emit(ctx, protocol.EventChatMessage, protocol.ChatRequest{Content: content}, nil)
}

// Wait blocks until the game ends or the bot loses its connection for good.
func (b *Bot) Wait(ctx context.Context) (protocol.GameEndedPayload, error) {
	select {
	case res := <-b.ended:
		return res, nil
	case err := <-b.lost:
		return protocol.GameEndedPayload{}, err
	case <-ctx.Done():
		return protocol.GameEndedPayload{}, ctx.Err()
	}
}

func (b *Bot) emit(ctx context.Context, event string, payload, out interface{}) error {
	raw, err := b.client.Emit(ctx, event, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (b *Bot) onStarted(e session.Event) {
	var p protocol.GameStartedPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		b.log.Warn("bad game:started payload", zap.Error(err))
		return
	}
	b.mu.Lock()
	b.role = p.PlayerRoles[b.ID]
	for id, role := range p.PlayerRoles {
		b.known[id] = role
	}
	b.mu.Unlock()
	b.log.Debug("dealt role", zap.String("role", b.role.String()))
}

func (b *Bot) onInvestigation(e session.Event) {
	var p protocol.InvestigationPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return
	}
	b.mu.Lock()
	b.known[p.TargetID] = p.Role
	b.mu.Unlock()
}

func (b *Bot) onEnded(e session.Event) {
	var p protocol.GameEndedPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		b.log.Warn("bad game:ended payload", zap.Error(err))
	}
	select {
	case b.ended <- p:
	default:
	}
}

func (b *Bot) onPhase(e session.Event) {
	var p protocol.PhaseChangedPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.act(ctx, p.Phase); err != nil {
		b.log.Debug("move rejected", zap.String("phase", string(p.Phase)), zap.Error(err))
	}

	if b.host && p.Phase != domain.PhaseGameEnd && p.Phase != domain.PhaseLobby {
		phase := p.Phase
		time.AfterFunc(b.pace, func() { b.advance(phase) })
	}
}

// advance moves the game on if it is still in phase. A timer may have got there first.
func (b *Bot) advance(phase domain.Phase) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var snap protocol.RoomSnapshot
	if err := b.emit(ctx, protocol.EventRoomSync, nil, &snap); err != nil || snap.Phase != phase {
		return
	}
	var remote *session.RemoteError
	if err := b.emit(ctx, protocol.EventGameAdvance, nil, nil); err != nil && !errors.As(err, &remote) {
		b.log.Warn("advance failed", zap.Error(err))
	}
}

func (b *Bot) act(ctx context.Context, phase domain.Phase) error {
	if phase != domain.PhaseDayVoting && phase != domain.PhaseNightAction {
		return nil
	}

	var snap protocol.RoomSnapshot
	if err := b.emit(ctx, protocol.EventRoomSync, nil, &snap); err != nil {
		return err
	}
	if !alive(snap.Players, b.ID) {
		return nil
	}

	b.mu.Lock()
	role := b.role
	known := make(map[uuid.UUID]domain.Role, len(b.known))
	for id, r := range b.known {
		known[id] = r
	}
	b.mu.Unlock()

	if phase == domain.PhaseDayVoting {
		target, ok := pick(snap.Players, func(p domain.Player) bool {
			if p.ID == b.ID {
				return false
			}
			// Mafia never vote for a partner; everyone else votes for a known mafioso if they can.
			if role.IsMafia() {
				return !known[p.ID].IsMafia()
			}
			return true
		})
		if !ok {
			return nil
		}
		if !role.IsMafia() {
			if suspect, found := pick(snap.Players, func(p domain.Player) bool { return known[p.ID].IsMafia() && p.ID != b.ID }); found {
				target = suspect
			}
		}
		if err := b.emit(ctx, protocol.EventGameVote, protocol.VoteRequest{TargetID: target}, nil); err != nil {
			return err
		}
		return b.Say(ctx, fmt.Sprintf("I'm voting for %s", nameOf(snap.Players, target)))
	}

	var (
		kind   domain.ActionKind
		target uuid.UUID
		ok     bool
	)
	switch role {
	case domain.RoleMafia:
		kind = domain.ActionEliminate
		target, ok = pick(snap.Players, func(p domain.Player) bool { return !known[p.ID].IsMafia() })
	case domain.RoleDetective:
		kind = domain.ActionInvestigate
		target, ok = pick(snap.Players, func(p domain.Player) bool { _, seen := known[p.ID]; return p.ID != b.ID && !seen })
	case domain.RoleDoctor:
		kind = domain.ActionProtect
		target, ok = pick(snap.Players, func(domain.Player) bool { return true })
	default:
		return nil
	}
	if !ok {
		return nil
	}
	return b.emit(ctx, protocol.EventGameAction, protocol.ActionRequest{Action: kind, TargetID: target}, nil)
}

func alive(players []domain.Player, id uuid.UUID) bool {
	for _, p := range players {
		if p.ID == id {
			return p.IsAlive()
		}
	}
	return false
}

// pick returns a random living player accepted by keep.
func pick(players []domain.Player, keep func(domain.Player) bool) (uuid.UUID, bool) {
	var candidates []uuid.UUID
	for _, p := range players {
		if p.IsAlive() && keep(p) {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 {
		return uuid.Nil, false
	}
	return candidates[rand.IntN(len(candidates))], true
}

func nameOf(players []domain.Player, id uuid.UUID) string {
	for _, p := range players {
		if p.ID == id {
			return p.Name
		}
	}
	return id.String()
}
