package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dom/mafia-server/internal/api"
	"github.com/dom/mafia-server/internal/auth"
	"github.com/dom/mafia-server/internal/config"
	"github.com/dom/mafia-server/internal/game"
	"github.com/dom/mafia-server/internal/logger"
	"github.com/dom/mafia-server/internal/repository"
	"github.com/dom/mafia-server/internal/repository/postgres"
	"github.com/dom/mafia-server/internal/service"
	"github.com/dom/mafia-server/internal/websocket"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	cfg.Watch(func(next *config.Config, err error) {
		if err != nil {
			zl.Warn("ignoring config change", zap.Error(err))
			return
		}
		logger.SetLevel(next.Log.Level)
		zl.Info("log level updated", zap.String("level", next.Log.Level))
	})

	// Finished games are archived when a database is configured.
	var (
		repos    *repository.Repositories
		archiver game.Archiver = game.NopArchiver{}
	)
	if cfg.Database.Driver != "none" {
		db, err := postgres.NewConnection(cfg.Database, zl)
		if err != nil {
			zl.Fatal("failed to connect to database", zap.Error(err))
		}
		repos = postgres.NewRepositories(db)
		archiver = repository.NewGameArchiver(repos.GameRecord)
	} else {
		zl.Warn("database disabled, finished games will not be archived")
	}

	registry := game.NewRegistry(game.OptionsFromConfig(cfg.Game), archiver, zl)

	hub := websocket.NewHub(registry, cfg.WebSocket, zl)
	go hub.Run()

	services := service.NewServices(repos, auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
	router := api.NewRouter(registry, hub, services, auth.NewValidator(cfg.Auth.JWTSecret), cfg, zl)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	hub.Stop()
	registry.Shutdown()

	zl.Info("server stopped")
}
