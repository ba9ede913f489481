package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/auth"
	"github.com/dom/mafia-server/internal/service"
	"github.com/dom/mafia-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Guest(t *testing.T) {
	cfg := testutil.TestConfig()
	authService := service.NewAuthService(auth.NewIssuer(cfg.Auth.JWTSecret, time.Hour))
	validator := auth.NewValidator(cfg.Auth.JWTSecret)
	ctx := context.Background()

	tests := []struct {
		name     string
		input    string
		wantName string
		wantErr  error
	}{
		{name: "plain name", input: "alice", wantName: "alice"},
		{name: "trimmed", input: "  bob  ", wantName: "bob"},
		{name: "multibyte at limit", input: strings.Repeat("é", 32), wantName: strings.Repeat("é", 32)},
		{name: "empty", input: "", wantErr: service.ErrInvalidName},
		{name: "blank", input: "   ", wantErr: service.ErrInvalidName},
		{name: "too long", input: strings.Repeat("x", 33), wantErr: service.ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := authService.Guest(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, result.User.Name)
			assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)

			claims, err := validator.Validate(result.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, result.User.ID, claims.UserID)
			assert.Equal(t, tt.wantName, claims.Name)
		})
	}
}

func TestAuthService_GuestIdentitiesAreDistinct(t *testing.T) {
	authService := service.NewAuthService(auth.NewIssuer("secret", 0))

	a, err := authService.Guest(context.Background(), "same")
	require.NoError(t, err)
	b, err := authService.Guest(context.Background(), "same")
	require.NoError(t, err)

	assert.NotEqual(t, a.User.ID, b.User.ID)
}
