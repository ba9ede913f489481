package api

import (
	"net/http"

	"github.com/dom/mafia-server/internal/api/handlers"
	"github.com/dom/mafia-server/internal/api/middleware"
	"github.com/dom/mafia-server/internal/auth"
	"github.com/dom/mafia-server/internal/config"
	"github.com/dom/mafia-server/internal/game"
	"github.com/dom/mafia-server/internal/service"
	"github.com/dom/mafia-server/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter builds the HTTP surface. The archive routes are only mounted when
// services.Game is set.
func NewRouter(registry *game.Registry, hub *websocket.Hub, services *service.Services, validator *auth.Validator, cfg *config.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handlers.NewAuthHandler(services.Auth, log)
	roomHandler := handlers.NewRoomHandler(registry)
	wsHandler := handlers.NewWebSocketHandler(hub, validator, cfg.WebSocket, log)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/guest", authHandler.Guest)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validator, log))

			r.Get("/rooms/{idOrCode}", roomHandler.Get)

			if services.Game != nil {
				gameHandler := handlers.NewGameHandler(services.Game, log)
				r.Get("/rooms/{idOrCode}/games", gameHandler.ListByRoom)
				r.Get("/games/{id}", gameHandler.Get)
			}
		})

		// WebSocket endpoint, authenticated by the handler itself
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
