// Package api provides HTTP handlers for the messagerie API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gestio/messagerie/internal/conversation"
	"github.com/gestio/messagerie/internal/dispatch"
	"github.com/gestio/messagerie/internal/notify"
)

// Handler provides common handler utilities.
type Handler struct {
	sessions   *conversation.Manager
	dispatcher *dispatch.Dispatcher
	notices    *notify.Hub
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(sessions *conversation.Manager, dispatcher *dispatch.Dispatcher, notices *notify.Hub) *Handler {
	return &Handler{
		sessions:   sessions,
		dispatcher: dispatcher,
		notices:    notices,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
