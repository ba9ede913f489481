package handlers

import (
	"net/http"

	"github.com/dom/mafia-server/internal/api/middleware"
	"github.com/dom/mafia-server/internal/auth"
	"github.com/dom/mafia-server/internal/config"
	"github.com/dom/mafia-server/internal/game"
	"github.com/dom/mafia-server/internal/websocket"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub       *websocket.Hub
	validator *auth.Validator
	upgrader  ws.Upgrader
	log       *zap.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, validator *auth.Validator, cfg config.WebSocketConfig, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		validator: validator,
		upgrader: ws.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		log: log.Named("ws"),
	}
}

func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.validator.Validate(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.Serve(conn, game.Identity{ID: claims.UserID, Name: claims.Name})
}
