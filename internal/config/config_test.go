package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MAFIA_AUTH_JWT_SECRET", "")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 10, cfg.Game.Defaults.MaxPlayers)
	assert.Equal(t, 2, cfg.Game.Defaults.Roles.Mafia)
	assert.Equal(t, 6, cfg.Game.Defaults.Roles.Villager)
	assert.Equal(t, time.Second, cfg.Game.TickInterval)
	assert.Equal(t, 3, cfg.Client.ReconnectAttempts)
	assert.Equal(t, 2*time.Second, cfg.Client.ReconnectDelay)
	assert.Equal(t, 5*time.Second, cfg.Client.EmitTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAFIA_AUTH_JWT_SECRET", "prefixed")
	t.Setenv("MAFIA_SERVER_PORT", "9090")
	t.Setenv("MAFIA_DATABASE_DRIVER", "none")
	t.Setenv("MAFIA_GAME_DEFAULTS_MAX_PLAYERS", "12")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "prefixed", cfg.Auth.JWTSecret)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "none", cfg.Database.Driver)
	assert.Equal(t, 12, cfg.Game.Defaults.MaxPlayers)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	path := filepath.Join(t.TempDir(), "mafia.yaml")
	yaml := `
database:
  driver: sqlite
  dsn: "file::memory:"
game:
  defaults:
    night_duration: 45
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, 45, cfg.Game.Defaults.NightDuration)
	assert.Equal(t, 120, cfg.Game.Defaults.DayDuration)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	t.Run("driver", func(t *testing.T) {
		t.Setenv("MAFIA_DATABASE_DRIVER", "mongo")
		_, err := config.Load("")
		assert.Error(t, err)
	})

	t.Run("default settings", func(t *testing.T) {
		t.Setenv("MAFIA_GAME_DEFAULTS_MAX_PLAYERS", "40")
		_, err := config.Load("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
