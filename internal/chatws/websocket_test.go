package chatws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

type fakeBackend struct {
	mu      sync.Mutex
	history []domain.ChatMessage
}

func (f *fakeBackend) UserByToken(token string) (*domain.Session, bool) {
	if token != "t1" {
		return nil, false
	}
	return &domain.Session{Token: "t1", UUID: "u1"}, true
}

func (f *fakeBackend) Conversation(id string) (domain.Conversation, string, bool) {
	if id != "c1" {
		return domain.Conversation{}, "", false
	}
	return domain.Conversation{ID: "c1", AgentID: "a1"}, "u1", true
}

func (f *fakeBackend) AppendHistory(_ string, msg domain.ChatMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, msg)
}

func (f *fakeBackend) TouchConversation(string) {}

func newTestServer(t *testing.T) (*httptest.Server, *SessionManager, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	sm := NewSessionManager()
	h := NewWebSocketHandler(backend, sm, nil)
	h.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	r := chi.NewRouter()
	r.Get("/ws/chat/{conversationID}/", h.ServeHTTP)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, sm, backend
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/" + id + "/"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return conn
}

func writeFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, f Frame) {
	t.Helper()
	data, _ := json.Marshal(f)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) Frame {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return f
}

func TestChatRoundTrip(t *testing.T) {
	srv, sm, backend := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, srv, "c1")
	defer conn.CloseNow()

	writeFrame(t, ctx, conn, Frame{Type: FrameAuthentication, Token: "t1"})
	writeFrame(t, ctx, conn, Frame{Type: FrameChatMessage, Message: &domain.ChatMessage{Content: "hi", Role: domain.RoleClient}})

	echo := readFrame(t, ctx, conn)
	if echo.Message == nil || echo.Message.Role != domain.RoleClient || echo.Message.Content != "hi" {
		t.Fatalf("Expected client echo, got %+v", echo)
	}
	reply := readFrame(t, ctx, conn)
	if reply.Message == nil || reply.Message.Role != domain.RoleAssistant || reply.Message.Content != "You said: hi" {
		t.Fatalf("Expected assistant reply, got %+v", reply)
	}
	if reply.Message.Timestamp != "2024-01-02T03:04:05.000Z" {
		t.Errorf("Unexpected timestamp %q", reply.Message.Timestamp)
	}

	if sm.Count("c1") != 1 {
		t.Errorf("Expected 1 registered socket, got %d", sm.Count("c1"))
	}
	backend.mu.Lock()
	if len(backend.history) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(backend.history))
	}
	backend.mu.Unlock()
}

func TestBadAuthenticationClosesWithPolicyViolation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, srv, "c1")
	defer conn.CloseNow()

	writeFrame(t, ctx, conn, Frame{Type: FrameAuthentication, Token: "wrong"})
	_, _, err := conn.Read(ctx)
	if got := websocket.CloseStatus(err); got != websocket.StatusPolicyViolation {
		t.Errorf("Expected policy violation close, got %v (%v)", got, err)
	}
}

func TestCloseConversationUsesNormalClosure(t *testing.T) {
	srv, sm, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, srv, "c1")
	defer conn.CloseNow()
	writeFrame(t, ctx, conn, Frame{Type: FrameAuthentication, Token: "t1"})

	deadline := time.Now().Add(2 * time.Second)
	for sm.Count("c1") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		sm.CloseConversation("c1")
	}()

	_, _, err := conn.Read(ctx)
	if got := websocket.CloseStatus(err); got != websocket.StatusNormalClosure {
		t.Errorf("Expected normal closure, got %v (%v)", got, err)
	}
	<-closed
}

func TestUnknownConversationIsNotUpgraded(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/nope/"
	_, resp, err := websocket.Dial(ctx, url, nil)
	if err == nil {
		t.Fatal("Expected dial to fail")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Errorf("Expected 404, got %v", resp)
	}
}
