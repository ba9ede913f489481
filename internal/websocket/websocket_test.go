package websocket_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/config"
	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/protocol"
	"github.com/dom/mafia-server/internal/testutil"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wait = 2 * time.Second

type player struct {
	id     uuid.UUID
	client *testutil.WSClient
}

func connect(t *testing.T, ts *testutil.TestServer, name string) player {
	t.Helper()
	id, token := ts.Token(t, name)
	return player{id: id, client: testutil.NewWSClient(t, ts.WebSocketURL(), token)}
}

func sevenPlayer() domain.Settings {
	return domain.Settings{
		MaxPlayers: 7,
		Roles:      domain.RoleCounts{Mafia: 2, Detective: 1, Doctor: 1, Villager: 3},
	}
}

// lobby opens a room over the wire with n connected members; the first is host.
func lobby(t *testing.T, ts *testutil.TestServer, settings domain.Settings, n int) (string, []player) {
	t.Helper()
	players := make([]player, n)
	for i := range players {
		players[i] = connect(t, ts, "p"+string(rune('a'+i)))
	}

	var created protocol.CreateRoomResponse
	players[0].client.Request(protocol.EventRoomCreate, protocol.CreateRoomRequest{Settings: settings}, &created)
	require.Len(t, created.Code, 6)

	for _, p := range players[1:] {
		var snap protocol.RoomSnapshot
		p.client.Request(protocol.EventRoomJoin, protocol.JoinRoomRequest{Code: created.Code}, &snap)
		require.Equal(t, created.RoomID, snap.ID)
	}
	return created.Code, players
}

func TestRejectsMissingToken(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, resp, err := gorillaWS.DefaultDialer.Dial(ts.WebSocketURL(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = gorillaWS.DefaultDialer.Dial(ts.WebSocketURL()+"?token=garbage", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFullGameStart(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, players := lobby(t, ts, sevenPlayer(), 7)
	host := players[0].client

	assert.Equal(t, protocol.CodeNotAllReady, host.ExpectError(protocol.EventGameStart, nil))

	for _, p := range players {
		p.client.Request(protocol.EventPlayerReady, protocol.ReadyRequest{IsReady: true}, nil)
	}
	assert.Equal(t, protocol.CodeNotHost, players[1].client.ExpectError(protocol.EventGameStart, nil))
	host.Request(protocol.EventGameStart, nil, nil)

	counts := map[domain.Role]int{}
	for _, p := range players {
		var started protocol.GameStartedPayload
		p.client.ExpectPush(protocol.EventGameStarted, wait, &started)
		role, ok := started.PlayerRoles[p.id]
		require.True(t, ok, "every player learns their own role")
		counts[role]++
		if role == domain.RoleMafia {
			assert.Len(t, started.PlayerRoles, 2, "mafia learn their partner")
		} else {
			assert.Len(t, started.PlayerRoles, 1)
		}
	}
	assert.Equal(t, map[domain.Role]int{
		domain.RoleMafia:     2,
		domain.RoleDetective: 1,
		domain.RoleDoctor:    1,
		domain.RoleVillager:  3,
	}, counts)

	var phase protocol.PhaseChangedPayload
	for {
		players[3].client.ExpectPush(protocol.EventPhaseChanged, wait, &phase)
		if phase.Phase == domain.PhaseDayDiscussion {
			break
		}
	}
	assert.Equal(t, 60, phase.TimeLimit)
	assert.Equal(t, 1, phase.Round)

	host.Request(protocol.EventGameAdvance, nil, nil)
	players[3].client.ExpectPush(protocol.EventPhaseChanged, wait, &phase)
	assert.Equal(t, domain.PhaseDayVoting, phase.Phase)

	players[2].client.Request(protocol.EventGameVote, protocol.VoteRequest{TargetID: players[5].id}, nil)
	var cast protocol.VoteCastPayload
	players[4].client.ExpectPush(protocol.EventVoteCast, wait, &cast)
	assert.Equal(t, protocol.VoteCastPayload{VoterID: players[2].id, TargetID: players[5].id}, cast)

	var snap protocol.RoomSnapshot
	players[6].client.Request(protocol.EventRoomSync, nil, &snap)
	assert.Equal(t, domain.PhaseDayVoting, snap.Phase)
	assert.Equal(t, players[5].id, snap.Votes[players[2].id])
}

func TestErrorReplies(t *testing.T) {
	ts := testutil.NewTestServer(t)
	p := connect(t, ts, "solo")

	tests := []struct {
		name    string
		event   string
		payload interface{}
		want    string
	}{
		{"vote outside a room", protocol.EventGameVote, protocol.VoteRequest{TargetID: uuid.New()}, protocol.CodeNotInRoom},
		{"unknown event", "game:explode", nil, protocol.CodeUnknownEvent},
		{"join without payload", protocol.EventRoomJoin, nil, protocol.CodeInvalidPayload},
		{"join unknown code", protocol.EventRoomJoin, protocol.JoinRoomRequest{Code: "NOPE00"}, protocol.CodeRoomNotFound},
		{"invalid settings", protocol.EventRoomCreate, protocol.CreateRoomRequest{Settings: domain.Settings{MaxPlayers: 99}}, protocol.CodeInvalidSettings},
		{"leave outside a room", protocol.EventRoomLeave, nil, protocol.CodeNotInRoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.client.ExpectError(tt.event, tt.payload))
		})
	}
}

func TestRoomList(t *testing.T) {
	ts := testutil.NewTestServer(t)
	code, _ := lobby(t, ts, domain.Settings{}, 2)
	browser := connect(t, ts, "browser")

	var list protocol.RoomListResponse
	browser.client.Request(protocol.EventRoomList, nil, &list)
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, code, list.Rooms[0].Code)
	assert.Equal(t, 2, list.Rooms[0].Players)
	assert.Equal(t, "pa", list.Rooms[0].HostName)
}

func TestChatBroadcast(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, players := lobby(t, ts, domain.Settings{}, 2)

	var reply protocol.ChatMessagePayload
	players[0].client.Request(protocol.EventChatMessage, protocol.ChatRequest{Content: "hello"}, &reply)
	assert.Equal(t, "hello", reply.Message.Content)

	var pushed protocol.ChatMessagePayload
	for {
		players[1].client.ExpectPush(protocol.EventChatMessage, wait, &pushed)
		if !pushed.Message.IsGameEvent {
			break
		}
	}
	assert.Equal(t, reply.Message.ID, pushed.Message.ID)

	assert.Equal(t, protocol.CodeInvalidPayload, players[1].client.ExpectError(protocol.EventChatMessage, protocol.ChatRequest{Content: "  "}))
}

func TestRateLimit(t *testing.T) {
	ts := testutil.NewTestServer(t, func(cfg *config.Config) {
		cfg.WebSocket.RateLimit = 0.01
		cfg.WebSocket.RateBurst = 2
	})
	p := connect(t, ts, "spammer")

	p.client.Request(protocol.EventRoomCreate, nil, nil)
	p.client.Request(protocol.EventRoomSync, nil, nil)
	assert.Equal(t, protocol.CodeRateLimited, p.client.ExpectError(protocol.EventRoomSync, nil))
}

func TestDisconnect(t *testing.T) {
	t.Run("lobby frees the seat", func(t *testing.T) {
		ts := testutil.NewTestServer(t)
		code, players := lobby(t, ts, domain.Settings{}, 3)

		players[2].client.Drop()

		room, ok := ts.Registry.ByCode(code)
		require.True(t, ok)
		assert.Eventually(t, func() bool {
			snap, err := room.Snapshot(t.Context(), uuid.Nil)
			return err == nil && len(snap.Players) == 2
		}, wait, 20*time.Millisecond)
	})

	t.Run("game keeps the seat for a rejoin", func(t *testing.T) {
		ts := testutil.NewTestServer(t)
		code, players := lobby(t, ts, sevenPlayer(), 7)
		for _, p := range players {
			p.client.Request(protocol.EventPlayerReady, protocol.ReadyRequest{IsReady: true}, nil)
		}
		players[0].client.Request(protocol.EventGameStart, nil, nil)

		players[4].client.Drop()
		assert.Eventually(t, func() bool { return ts.Hub.Count() == 6 }, wait, 20*time.Millisecond)

		again := testutil.NewWSClient(t, ts.WebSocketURL(), mustToken(t, ts, players[4].id))
		var snap protocol.RoomSnapshot
		again.Request(protocol.EventRoomJoin, protocol.JoinRoomRequest{Code: code}, &snap)
		assert.Len(t, snap.Players, 7)
		assert.Equal(t, domain.PhaseDayDiscussion, snap.Phase)
	})
}

func TestLastLeaveClosesRoom(t *testing.T) {
	ts := testutil.NewTestServer(t)
	code, players := lobby(t, ts, domain.Settings{}, 1)

	players[0].client.Request(protocol.EventRoomLeave, nil, nil)

	assert.Eventually(t, func() bool {
		_, ok := ts.Registry.ByCode(code)
		return !ok
	}, wait, 20*time.Millisecond)
}

func mustToken(t *testing.T, ts *testutil.TestServer, id uuid.UUID) string {
	t.Helper()
	token, err := ts.Issuer.Issue(id, "returning")
	require.NoError(t, err)
	return token
}
