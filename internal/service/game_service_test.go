package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/repository/postgres"
	"github.com/dom/mafia-server/internal/service"
	"github.com/dom/mafia-server/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameService_Get(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	games := service.NewGameService(postgres.NewRepositories(db).GameRecord)
	ctx := context.Background()
	rec := testutil.NewGameRecordBuilder().Build(t, db)

	got, err := games.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = games.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrGameNotFound)
}

func TestGameService_ListByRoom(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	games := service.NewGameService(postgres.NewRepositories(db).GameRecord)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		testutil.NewGameRecordBuilder().WithRoomCode("PAGED1").WithEndedAt(base.Add(time.Duration(i) * time.Minute)).Build(t, db)
	}

	tests := []struct {
		name    string
		page    service.Page
		wantLen int
	}{
		{name: "defaults", page: service.Page{}, wantLen: service.DefaultPageSize},
		{name: "explicit limit", page: service.Page{Limit: 5}, wantLen: 5},
		{name: "limit above max", page: service.Page{Limit: service.MaxPageSize + 1}, wantLen: service.DefaultPageSize},
		{name: "offset", page: service.Page{Limit: 10, Offset: 20}, wantLen: 5},
		{name: "negative offset", page: service.Page{Limit: 3, Offset: -4}, wantLen: 3},
		{name: "past the end", page: service.Page{Offset: 100}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := games.ListByRoom(ctx, "paged1", tt.page)
			require.NoError(t, err)
			require.NotNil(t, recs)
			assert.Len(t, recs, tt.wantLen)
			for i := 1; i < len(recs); i++ {
				assert.True(t, recs[i-1].EndedAt.After(recs[i].EndedAt), "records should be newest first")
			}
		})
	}
}

func TestGameService_ListByRoomAcceptsID(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	games := service.NewGameService(postgres.NewRepositories(db).GameRecord)
	ctx := context.Background()

	roomID := uuid.New()
	rec := testutil.NewGameRecordBuilder().WithRoomID(roomID).WithRoomCode("BYID01").Build(t, db)

	byID, err := games.ListByRoom(ctx, roomID.String(), service.Page{})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, rec.ID, byID[0].ID)

	byCode, err := games.ListByRoom(ctx, "byid01", service.Page{})
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, rec.ID, byCode[0].ID)
}
