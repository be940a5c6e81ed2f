package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type chatSessionRequest struct {
	Agent string `json:"agent"`
}

// CreateChatSession handles POST /chat/sessions/.
func (h *Handler) CreateChatSession(w http.ResponseWriter, r *http.Request) {
	var req chatSessionRequest
	if err := decode(r, &req); err != nil || req.Agent == "" {
		Error(w, http.StatusBadRequest, "agent is required")
		return
	}

	conv, err := h.repo.OpenConversation(owner(r), req.Agent)
	if err != nil {
		repoError(w, err)
		return
	}
	slog.Info("Chat session opened", "conversation_id", conv.ID, "agent_id", conv.AgentID)
	JSON(w, http.StatusCreated, conv)
}

// CloseChatSession handles POST /chat/sessions/{sessionID}/close/. Live
// sockets on the conversation are closed normally.
func (h *Handler) CloseChatSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.repo.CloseConversation(owner(r), id); err != nil {
		repoError(w, err)
		return
	}
	if h.closer != nil {
		h.closer.CloseConversation(id)
	}
	slog.Info("Chat session closed", "conversation_id", id)
	JSON(w, http.StatusNoContent, nil)
}
