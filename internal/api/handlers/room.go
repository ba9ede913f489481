package handlers

import (
	"net/http"

	"github.com/dom/mafia-server/internal/api/middleware"
	"github.com/dom/mafia-server/internal/game"
	"github.com/dom/mafia-server/internal/protocol"
	"github.com/go-chi/chi/v5"
)

type RoomHandler struct {
	registry *game.Registry
}

func NewRoomHandler(registry *game.Registry) *RoomHandler {
	return &RoomHandler{registry: registry}
}

// Get returns the caller's view of a live room, looked up by ID or code.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	idOrCode := chi.URLParam(r, "idOrCode")
	room, ok := h.registry.Lookup(idOrCode)
	if !ok {
		writeError(w, http.StatusNotFound, protocol.CodeRoomNotFound, "room not found")
		return
	}

	snap, err := room.Snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, protocol.CodeFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
