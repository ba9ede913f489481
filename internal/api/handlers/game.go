package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dom/mafia-server/internal/protocol"
	"github.com/dom/mafia-server/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const codeGameNotFound = "GAME_NOT_FOUND"

// GameHandler serves archived game results.
type GameHandler struct {
	games *service.GameService
	log   *zap.Logger
}

func NewGameHandler(games *service.GameService, log *zap.Logger) *GameHandler {
	return &GameHandler{games: games, log: log.Named("games")}
}

func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, protocol.CodeInvalidPayload, "invalid game id")
		return
	}

	rec, err := h.games.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			writeError(w, http.StatusNotFound, codeGameNotFound, err.Error())
			return
		}
		h.log.Error("failed to load game", zap.String("game", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, protocol.CodeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListByRoom returns the games played in a room, newest first. The room is
// named by its UUID or its join code.
func (h *GameHandler) ListByRoom(w http.ResponseWriter, r *http.Request) {
	idOrCode := chi.URLParam(r, "idOrCode")
	page := service.Page{
		Limit:  queryInt(r, "limit", service.DefaultPageSize),
		Offset: queryInt(r, "offset", 0),
	}

	recs, err := h.games.ListByRoom(r.Context(), idOrCode, page)
	if err != nil {
		h.log.Error("failed to list games", zap.String("room", idOrCode), zap.Error(err))
		writeError(w, http.StatusInternalServerError, protocol.CodeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
