package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// Frame types.
const (
	FrameAuthentication = "authentication"
	FrameChatMessage    = "chat.message"
)

// Frame is the envelope of every socket message.
type Frame struct {
	Type    string              `json:"type"`
	Token   string              `json:"token,omitempty"`
	Message *domain.ChatMessage `json:"message,omitempty"`
}

// Backend is what the handler needs from the repository.
type Backend interface {
	UserByToken(token string) (*domain.Session, bool)
	Conversation(id string) (conv domain.Conversation, owner string, ok bool)
	AppendHistory(agentID string, msg domain.ChatMessage)
	TouchConversation(id string)
}

// Responder produces the assistant reply to a client message.
type Responder func(ctx context.Context, conv domain.Conversation, msg domain.ChatMessage) (string, error)

// EchoResponder answers with the client's own text.
func EchoResponder(_ context.Context, _ domain.Conversation, msg domain.ChatMessage) (string, error) {
	return "You said: " + msg.Content, nil
}

// WebSocketHandler serves /ws/chat/{conversationID}/.
type WebSocketHandler struct {
	backend     Backend
	sm          *SessionManager
	respond     Responder
	authTimeout time.Duration
	now         func() time.Time
}

// NewWebSocketHandler creates a new WebSocket handler. A nil respond uses
// EchoResponder.
func NewWebSocketHandler(backend Backend, sm *SessionManager, respond Responder) *WebSocketHandler {
	if respond == nil {
		respond = EchoResponder
	}
	return &WebSocketHandler{
		backend:     backend,
		sm:          sm,
		respond:     respond,
		authTimeout: 10 * time.Second,
		now:         time.Now,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	conv, owner, ok := h.backend.Conversation(conversationID)
	if !ok {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "conversation_id", conversationID)
		return
	}
	defer ws.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := h.authenticate(ctx, ws, owner); err != nil {
		slog.Warn("Chat socket authentication failed", "error", err, "conversation_id", conversationID)
		_ = ws.Close(websocket.StatusPolicyViolation, "authentication failed")
		return
	}

	h.sm.Register(conversationID, ws)
	defer h.sm.Unregister(conversationID, ws)

	h.readLoop(ctx, ws, conv)
}

// authenticate expects the first frame to carry the owner's token.
func (h *WebSocketHandler) authenticate(ctx context.Context, ws *websocket.Conn, owner string) error {
	authCtx, cancel := context.WithTimeout(ctx, h.authTimeout)
	defer cancel()

	_, data, err := ws.Read(authCtx)
	if err != nil {
		return err
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	if frame.Type != FrameAuthentication {
		return errors.New("first frame is not authentication")
	}
	user, ok := h.backend.UserByToken(frame.Token)
	if !ok || user.UUID != owner {
		return errors.New("token does not own conversation")
	}
	return nil
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, conv domain.Conversation) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				slog.Debug("Chat socket closed by peer", "conversation_id", conv.ID)
			case -1:
				slog.Debug("Chat socket read ended", "error", err, "conversation_id", conv.ID)
			default:
				slog.Warn("Chat socket closed abnormally", "error", err, "conversation_id", conv.ID)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type != FrameChatMessage || frame.Message == nil {
			slog.Debug("Ignoring chat frame", "conversation_id", conv.ID)
			continue
		}

		h.backend.TouchConversation(conv.ID)
		msg := *frame.Message
		msg.Role = domain.RoleClient
		h.backend.AppendHistory(conv.AgentID, msg)
		if err := h.write(ctx, ws, msg); err != nil {
			return
		}

		content, err := h.respond(ctx, conv, msg)
		if err != nil {
			slog.Error("Responder failed", "error", err, "conversation_id", conv.ID)
			continue
		}
		reply := domain.ChatMessage{
			Content:   content,
			Role:      domain.RoleAssistant,
			Timestamp: domain.FormatTimestamp(h.now()),
		}
		h.backend.AppendHistory(conv.AgentID, reply)
		if err := h.write(ctx, ws, reply); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) write(ctx context.Context, ws *websocket.Conn, msg domain.ChatMessage) error {
	data, err := json.Marshal(Frame{Type: FrameChatMessage, Message: &msg})
	if err != nil {
		return err
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("Chat socket write error", "error", err)
		return err
	}
	return nil
}
