package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/mafia-server/internal/protocol"
	"github.com/dom/mafia-server/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth *service.AuthService
	log  *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log.Named("auth")}
}

type GuestRequest struct {
	Name string `json:"name"`
}

// Guest issues a token for a new guest identity.
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	var req GuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, protocol.CodeInvalidPayload, "invalid request body")
		return
	}

	result, err := h.auth.Guest(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, service.ErrInvalidName) {
			writeError(w, http.StatusBadRequest, protocol.CodeInvalidPayload, err.Error())
			return
		}
		h.log.Error("failed to issue guest token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, protocol.CodeInternal, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
