package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/protocol"
	"github.com/dom/mafia-server/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameHandler_Get(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := ts.Token(t, "reader")
	rec := testutil.NewGameRecordBuilder().WithWinner(domain.WinnerMafia).Build(t, ts.DB)

	t.Run("existing game", func(t *testing.T) {
		resp := get(t, ts.APIURL("/games/"+rec.ID.String()), token)
		testutil.AssertStatusCode(t, resp, http.StatusOK)

		var got domain.GameRecord
		testutil.AssertJSONResponse(t, resp, &got)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, domain.WinnerMafia, got.Winner)
		assert.JSONEq(t, string(rec.Players), string(got.Players))
	})

	t.Run("unknown game", func(t *testing.T) {
		resp := get(t, ts.APIURL("/games/"+uuid.NewString()), token)
		testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "GAME_NOT_FOUND")
	})

	t.Run("malformed id", func(t *testing.T) {
		resp := get(t, ts.APIURL("/games/nope"), token)
		testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, protocol.CodeInvalidPayload)
	})
}

func TestGameHandler_ListByRoom(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := ts.Token(t, "reader")

	now := time.Now().UTC().Truncate(time.Second)
	first := testutil.NewGameRecordBuilder().WithRoomCode("ROOM01").WithEndedAt(now.Add(-time.Hour)).Build(t, ts.DB)
	second := testutil.NewGameRecordBuilder().WithRoomCode("ROOM01").WithEndedAt(now).Build(t, ts.DB)

	resp := get(t, ts.APIURL("/rooms/room01/games"), token)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var recs []domain.GameRecord
	testutil.AssertJSONResponse(t, resp, &recs)
	require.Len(t, recs, 2)
	assert.Equal(t, second.ID, recs[0].ID)
	assert.Equal(t, first.ID, recs[1].ID)

	resp = get(t, ts.APIURL("/rooms/ROOM01/games?limit=1&offset=1"), token)
	recs = nil
	testutil.AssertJSONResponse(t, resp, &recs)
	require.Len(t, recs, 1)
	assert.Equal(t, first.ID, recs[0].ID)

	resp = get(t, ts.APIURL("/rooms/EMPTY1/games"), token)
	recs = nil
	testutil.AssertJSONResponse(t, resp, &recs)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	t.Run("by room id", func(t *testing.T) {
		roomID := uuid.New()
		rec := testutil.NewGameRecordBuilder().WithRoomID(roomID).WithRoomCode("ROOM02").Build(t, ts.DB)

		resp := get(t, ts.APIURL("/rooms/"+roomID.String()+"/games"), token)
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		var recs []domain.GameRecord
		testutil.AssertJSONResponse(t, resp, &recs)
		require.Len(t, recs, 1)
		assert.Equal(t, rec.ID, recs[0].ID)
	})
}
