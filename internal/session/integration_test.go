package session_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/config"
	"github.com/dom/mafia-server/internal/protocol"
	"github.com/dom/mafia-server/internal/session"
	"github.com/dom/mafia-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialServer(t *testing.T, ts *testutil.TestServer, name string) *session.Client {
	t.Helper()
	_, token := ts.Token(t, name)
	opts := session.OptionsFromConfig(ts.WebSocketURL(), token, ts.Config.Client)
	c := session.New(opts)
	t.Cleanup(c.Close)
	require.NoError(t, c.Connect(context.Background()))
	return c
}

func TestSession_AgainstServer(t *testing.T) {
	ts := testutil.NewTestServer(t)
	host := dialServer(t, ts, "host")
	guest := dialServer(t, ts, "guest")

	raw, err := host.Emit(context.Background(), protocol.EventRoomCreate, protocol.CreateRoomRequest{})
	require.NoError(t, err)
	var created protocol.CreateRoomResponse
	require.NoError(t, json.Unmarshal(raw, &created))
	require.Len(t, created.Code, 6)

	updates := events(host, protocol.EventRoomUpdated)

	raw, err = guest.Emit(context.Background(), protocol.EventRoomJoin, protocol.JoinRoomRequest{Code: created.Code})
	require.NoError(t, err)
	var snap protocol.RoomSnapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, created.RoomID, snap.ID)
	assert.Len(t, snap.Players, 2)

	var updated protocol.RoomUpdatedPayload
	require.NoError(t, json.Unmarshal(expect(t, updates).Payload, &updated))

	_, err = guest.Emit(context.Background(), protocol.EventGameStart, nil)
	var remote *session.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, protocol.CodeNotHost, remote.Code)
}

func TestSession_ServerGoesAway(t *testing.T) {
	ts := testutil.NewTestServer(t, func(cfg *config.Config) {
		cfg.Client.ReconnectAttempts = 2
		cfg.Client.ReconnectDelay = 20 * time.Millisecond
	})
	c := dialServer(t, ts, "solo")
	failed := events(c, session.EventReconnectFailed)

	ts.Server.Close()
	ts.Hub.Stop()

	expect(t, failed)
	assert.Equal(t, session.StateFailed, c.State())
}
