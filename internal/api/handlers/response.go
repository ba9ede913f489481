package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/mafia-server/internal/protocol"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends the same error body used in websocket reply frames.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, protocol.Error{Code: code, Message: message})
}
