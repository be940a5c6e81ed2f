// Package chatws serves the realtime chat socket of the development backend.
package chatws

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// SessionManager tracks the live sockets of each conversation.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]struct{}
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Count returns the number of live sockets on a conversation.
func (m *SessionManager) Count(conversationID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active[conversationID])
}

// Register adds a socket to a conversation.
func (m *SessionManager) Register(conversationID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[conversationID]; !exists {
		m.active[conversationID] = make(map[*websocket.Conn]struct{})
	}
	m.active[conversationID][conn] = struct{}{}
	slog.Info("Chat socket registered", "conversation_id", conversationID)
}

// Unregister removes a socket from a conversation.
func (m *SessionManager) Unregister(conversationID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.active[conversationID]
	if !ok {
		return
	}
	if _, exists := conns[conn]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(m.active, conversationID)
		}
		slog.Info("Chat socket unregistered", "conversation_id", conversationID)
	}
}

// CloseConversation closes every socket of a conversation with a normal
// closure, so clients do not reconnect.
func (m *SessionManager) CloseConversation(conversationID string) {
	m.mu.Lock()
	conns := m.active[conversationID]
	delete(m.active, conversationID)
	m.mu.Unlock()

	// Close blocks on the handshake; never hold the lock across it.
	for conn := range conns {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
	}
	if len(conns) > 0 {
		slog.Info("Chat sockets closed", "conversation_id", conversationID, "count", len(conns))
	}
}
