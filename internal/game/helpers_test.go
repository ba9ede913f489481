package game_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/game"
	"github.com/dom/mafia-server/internal/protocol"
	"github.com/dom/mafia-server/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// inOrder deals roles in join order: mafia first, then detective, doctor
// and villagers.
type inOrder struct{}

func (inOrder) Shuffle(int, func(i, j int)) {}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	clock   *testutil.ManualClock
	reg     *game.Registry
	room    *game.Room
	players []game.Identity
}

func newFixture(t *testing.T, archiver game.Archiver, tweak ...func(*game.Options)) *fixture {
	t.Helper()
	clock := testutil.NewManualClock()
	opts := game.Options{
		TickInterval: time.Second,
		EventBuffer:  512,
		Clock:        clock,
		Rand:         func() domain.Shuffler { return inOrder{} },
	}
	for _, fn := range tweak {
		fn(&opts)
	}
	reg := game.NewRegistry(opts, archiver, zap.NewNop())
	t.Cleanup(reg.Shutdown)
	return &fixture{t: t, ctx: context.Background(), clock: clock, reg: reg}
}

func identity(i int) game.Identity {
	return game.Identity{ID: uuid.New(), Name: fmt.Sprintf("player-%d", i)}
}

// open creates a room with n members; players[0] is the host.
func (f *fixture) open(settings domain.Settings, n int) {
	f.t.Helper()
	f.players = make([]game.Identity, n)
	for i := range f.players {
		f.players[i] = identity(i)
	}
	room, _, err := f.reg.Create(f.ctx, f.players[0], settings)
	require.NoError(f.t, err)
	f.room = room
	for _, p := range f.players[1:] {
		_, _, err := f.reg.Join(f.ctx, room.Code(), p)
		require.NoError(f.t, err)
	}
}

func (f *fixture) readyAll() {
	f.t.Helper()
	for _, p := range f.players {
		require.NoError(f.t, f.room.SetReady(f.ctx, p.ID, true))
	}
}

func (f *fixture) start() {
	f.t.Helper()
	f.readyAll()
	require.NoError(f.t, f.room.Start(f.ctx, f.host()))
}

func (f *fixture) host() uuid.UUID {
	return f.players[0].ID
}

func (f *fixture) id(i int) uuid.UUID {
	return f.players[i].ID
}

func (f *fixture) snap(viewer uuid.UUID) *protocol.RoomSnapshot {
	f.t.Helper()
	s, err := f.room.Snapshot(f.ctx, viewer)
	require.NoError(f.t, err)
	return s
}

func (f *fixture) phase() domain.Phase {
	return f.snap(uuid.Nil).Phase
}

func (f *fixture) player(i int) domain.Player {
	f.t.Helper()
	for _, p := range f.snap(uuid.Nil).Players {
		if p.ID == f.id(i) {
			return p
		}
	}
	f.t.Fatalf("player %d not in room", i)
	return domain.Player{}
}

func (f *fixture) advance() {
	f.t.Helper()
	require.NoError(f.t, f.room.Advance(f.ctx, f.host()))
}

// voteOut has every living player vote for target and closes the vote.
func (f *fixture) voteOut(target int) {
	f.t.Helper()
	require.Equal(f.t, domain.PhaseDayDiscussion, f.phase())
	f.advance()
	for i := range f.players {
		if f.player(i).State == domain.PlayerAlive {
			require.NoError(f.t, f.room.Vote(f.ctx, f.id(i), f.id(target)))
		}
	}
	f.advance()
}

func drain(sub *game.Subscription) []game.Event {
	var out []game.Event
	for {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func names(events []game.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func phases(events []game.Event) []domain.Phase {
	var out []domain.Phase
	for _, e := range events {
		if p, ok := e.Payload.(protocol.PhaseChangedPayload); ok {
			out = append(out, p.Phase)
		}
	}
	return out
}

// sevenPlayer has two mafia, a detective, a doctor and three villagers.
func sevenPlayer() domain.Settings {
	return domain.Settings{
		MaxPlayers: 7,
		Roles:      domain.RoleCounts{Mafia: 2, Detective: 1, Doctor: 1, Villager: 3},
	}
}
