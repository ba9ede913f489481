package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dom/mafia-server/internal/config"
	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/protocol"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCodeAttempts = 16

var ErrRegistryStopped = errors.New("room registry is shut down")

// Options configures every room created by a Registry.
type Options struct {
	Defaults       domain.Settings
	TickInterval   time.Duration
	HistorySize    int
	EventBuffer    int
	EndedRoomTTL   time.Duration
	ArchiveTimeout time.Duration

	Clock Clock
	// Rand returns the shuffler used to deal roles for one game.
	Rand func() domain.Shuffler
	// Code generates a candidate room code.
	Code func() string
}

// OptionsFromConfig maps the game section of the server configuration.
func OptionsFromConfig(cfg config.GameConfig) Options {
	return Options{
		Defaults:       cfg.Defaults,
		TickInterval:   cfg.TickInterval,
		HistorySize:    cfg.HistorySize,
		EventBuffer:    cfg.EventBuffer,
		EndedRoomTTL:   cfg.EndedRoomTTL,
		ArchiveTimeout: cfg.ArchiveTimeout,
	}
}

type globalRand struct{}

func (globalRand) Shuffle(n int, swap func(i, j int)) {
	mrand.Shuffle(n, swap)
}

func (o Options) withDefaults() Options {
	o.Defaults = o.Defaults.WithDefaults(domain.DefaultSettings())
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.HistorySize <= 0 {
		o.HistorySize = 50
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 64
	}
	if o.ArchiveTimeout <= 0 {
		o.ArchiveTimeout = 5 * time.Second
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	if o.Rand == nil {
		o.Rand = func() domain.Shuffler { return globalRand{} }
	}
	if o.Code == nil {
		o.Code = generateCode
	}
	return o
}

// generateCode returns six upper-case hex characters.
func generateCode() string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return strings.ToUpper(hex.EncodeToString(b))
}

// Registry creates rooms, resolves short codes and forgets rooms once they
// close.
type Registry struct {
	opts     Options
	archiver Archiver
	log      *zap.Logger

	rooms   map[uuid.UUID]*Room
	codes   map[string]*Room
	stopped bool
	mu      sync.RWMutex
}

func NewRegistry(opts Options, archiver Archiver, log *zap.Logger) *Registry {
	if archiver == nil {
		archiver = NopArchiver{}
	}
	return &Registry{
		opts:     opts.withDefaults(),
		archiver: archiver,
		log:      log.Named("registry"),
		rooms:    make(map[uuid.UUID]*Room),
		codes:    make(map[string]*Room),
	}
}

// Defaults are the settings applied to zero fields on room creation.
func (reg *Registry) Defaults() domain.Settings {
	return reg.opts.Defaults
}

// Create validates settings and opens a room hosted by host.
func (reg *Registry) Create(ctx context.Context, host Identity, settings domain.Settings) (*Room, *protocol.RoomSnapshot, error) {
	settings = settings.WithDefaults(reg.opts.Defaults)
	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}

	reg.mu.Lock()
	if reg.stopped {
		reg.mu.Unlock()
		return nil, nil, ErrRegistryStopped
	}
	code, err := reg.uniqueCodeLocked()
	if err != nil {
		reg.mu.Unlock()
		return nil, nil, err
	}
	room := newRoom(uuid.New(), code, host, settings, reg.opts, reg.archiver, reg.log.Named("room"), reg.forget)
	reg.rooms[room.id] = room
	reg.codes[code] = room
	reg.mu.Unlock()

	go room.Run()
	reg.log.Info("room created",
		zap.String("room", room.id.String()),
		zap.String("code", code),
		zap.String("host", host.ID.String()))

	snap, err := room.Snapshot(ctx, host.ID)
	if err != nil {
		return nil, nil, err
	}
	return room, snap, nil
}

func (reg *Registry) uniqueCodeLocked() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := strings.ToUpper(reg.opts.Code())
		if _, taken := reg.codes[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a room code after %d attempts", maxCodeAttempts)
}

// Join seats who in the room with the given code.
func (reg *Registry) Join(ctx context.Context, code string, who Identity) (*Room, *protocol.RoomSnapshot, error) {
	room, ok := reg.ByCode(code)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	snap, err := room.Join(ctx, who)
	if err != nil {
		return nil, nil, err
	}
	return room, snap, nil
}

// Leave removes playerID from roomID.
func (reg *Registry) Leave(ctx context.Context, roomID, playerID uuid.UUID) error {
	room, ok := reg.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.Leave(ctx, playerID)
}

func (reg *Registry) Get(id uuid.UUID) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[id]
	return room, ok
}

// ByCode looks a room up by its short code, ignoring case.
func (reg *Registry) ByCode(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.codes[strings.ToUpper(strings.TrimSpace(code))]
	return room, ok
}

// Lookup accepts either a room ID or a short code.
func (reg *Registry) Lookup(idOrCode string) (*Room, bool) {
	if id, err := uuid.Parse(idOrCode); err == nil {
		return reg.Get(id)
	}
	return reg.ByCode(idOrCode)
}

// Lobbies lists rooms that are still in the lobby with a free seat, ordered
// by code. Rooms that close while being inspected are skipped.
func (reg *Registry) Lobbies(ctx context.Context) []protocol.RoomSummary {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()

	out := make([]protocol.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		snap, err := room.Snapshot(ctx, uuid.Nil)
		if err != nil {
			continue
		}
		if snap.Phase != domain.PhaseLobby || len(snap.Players) >= snap.Settings.MaxPlayers {
			continue
		}
		sum := protocol.RoomSummary{
			ID:         snap.ID,
			Code:       snap.Code,
			Players:    len(snap.Players),
			MaxPlayers: snap.Settings.MaxPlayers,
		}
		for _, p := range snap.Players {
			if p.ID == snap.HostID {
				sum.HostName = p.Name
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Shutdown stops every room and waits for them to exit.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	if reg.stopped {
		reg.mu.Unlock()
		return
	}
	reg.stopped = true
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.Unlock()

	for _, room := range rooms {
		room.Stop()
	}
	reg.log.Info("registry stopped", zap.Int("rooms", len(rooms)))
}

// forget is called by a room once it has been torn down.
func (reg *Registry) forget(room *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, room.id)
	if reg.codes[room.code] == room {
		delete(reg.codes, room.code)
	}
}
