package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/api"
	"github.com/dom/mafia-server/internal/auth"
	"github.com/dom/mafia-server/internal/config"
	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/game"
	"github.com/dom/mafia-server/internal/repository"
	repoPostgres "github.com/dom/mafia-server/internal/repository/postgres"
	"github.com/dom/mafia-server/internal/service"
	"github.com/dom/mafia-server/internal/websocket"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB starts a PostgreSQL container. It skips the test in -short mode.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_mafia"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// NewSQLiteDB opens a private in-memory sqlite database with the archive schema.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:        "0",
			Environment: "test",
		},
		Auth: config.AuthConfig{
			JWTSecret: "test-jwt-secret-key-for-testing-only",
			TokenTTL:  time.Hour,
		},
		Database: config.DatabaseConfig{Driver: "sqlite"},
		Game: config.GameConfig{
			Defaults:       domain.DefaultSettings(),
			TickInterval:   time.Second,
			HistorySize:    50,
			EventBuffer:    256,
			ArchiveTimeout: 2 * time.Second,
		},
		WebSocket: config.WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			MaxMessageSize:  512 * 1024,
			SendBuffer:      512,
			WriteWait:       5 * time.Second,
			PongWait:        30 * time.Second,
		},
		Client: config.ClientConfig{
			ReconnectAttempts: 3,
			ReconnectDelay:    50 * time.Millisecond,
			EmitTimeout:       2 * time.Second,
		},
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *gorm.DB
	Repos    *repository.Repositories
	Registry *game.Registry
	Hub      *websocket.Hub
	Issuer   *auth.Issuer
	Config   *config.Config
}

// NewTestServer wires the full server over a sqlite archive. tweak may
// adjust the configuration before anything is built.
func NewTestServer(t *testing.T, tweak ...func(*config.Config)) *TestServer {
	t.Helper()

	cfg := TestConfig()
	for _, fn := range tweak {
		fn(cfg)
	}
	log := zap.NewNop()

	db := NewSQLiteDB(t)
	repos := repoPostgres.NewRepositories(db)

	registry := game.NewRegistry(game.OptionsFromConfig(cfg.Game), repository.NewGameArchiver(repos.GameRecord), log)
	hub := websocket.NewHub(registry, cfg.WebSocket, log)
	go hub.Run()

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	router := api.NewRouter(registry, hub, service.NewServices(repos, issuer), auth.NewValidator(cfg.Auth.JWTSecret), cfg, log)
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       db,
		Repos:    repos,
		Registry: registry,
		Hub:      hub,
		Issuer:   issuer,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
		registry.Shutdown()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the WebSocket URL without a token
func (ts *TestServer) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/api/v1/ws"
}

// Token mints an access token for a new player called name.
func (ts *TestServer) Token(t *testing.T, name string) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	token, err := ts.Issuer.Issue(id, name)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return id, token
}
