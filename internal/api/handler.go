// Package api provides the HTTP handlers of the development backend.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ConversationCloser terminates the live sockets of a conversation.
type ConversationCloser interface {
	CloseConversation(conversationID string)
}

// Handler provides common handler utilities.
type Handler struct {
	repo   *MemoryRepository
	closer ConversationCloser
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo *MemoryRepository, closer ConversationCloser) *Handler {
	return &Handler{
		repo:   repo,
		closer: closer,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"message": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response. Clients read the text from "message".
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}

// repoError maps repository errors to responses.
func repoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrConflict):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
