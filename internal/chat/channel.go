// Package chat keeps one authenticated WebSocket open per conversation.
//
// A Channel moves between Disconnected, Connecting and Connected. A close
// with status 1000 is final; any other close or read failure schedules one
// reconnect after the configured delay. Switching conversation or closing
// the channel closes the socket with 1000 and cancels a pending reconnect.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/coder/websocket"
)

// DefaultReconnectDelay is used when Config.ReconnectDelay is zero.
const DefaultReconnectDelay = 3 * time.Second

// Frame types.
const (
	FrameAuthentication = "authentication"
	FrameChatMessage    = "chat.message"
)

// State of the channel's socket.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type frame struct {
	Type    string              `json:"type"`
	Token   string              `json:"token,omitempty"`
	Message *domain.ChatMessage `json:"message,omitempty"`
}

// Config configures a Channel.
type Config struct {
	// BaseURL is the http(s) or ws(s) origin the chat path is appended to.
	BaseURL        string
	ReconnectDelay time.Duration
	// Token returns the session token sent in the authentication frame.
	Token       func() string
	DialOptions *websocket.DialOptions
	Logger      *slog.Logger

	// OnMessage and OnStateChange run on the channel's goroutines, never
	// while the channel's lock is held. Close waits for those goroutines, so
	// a callback that needs to close the channel must do it from a new
	// goroutine.
	OnMessage     func(domain.ChatMessage)
	OnStateChange func(State)
}

// Channel is the realtime chat connection of one conversation at a time.
type Channel struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu             sync.Mutex
	state          State
	conversationID string
	messages       []domain.ChatMessage
	conn           *websocket.Conn
	cancel         context.CancelFunc
	timer          *time.Timer
	gen            uint64
	closed         bool

	wg sync.WaitGroup
}

// New creates a disconnected channel.
func New(cfg Config) (*Channel, error) {
	if _, err := SocketURL(cfg.BaseURL, "_"); err != nil {
		return nil, err
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		cfg:    cfg,
		logger: logger.With("component", "chat"),
		now:    time.Now,
	}, nil
}

// SocketURL builds the socket address of a conversation, rewriting http to
// ws and https to wss.
func SocketURL(base, conversationID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse chat base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("chat base url %q: unsupported scheme %q", base, u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/chat/" + url.PathEscape(conversationID) + "/"
	u.RawPath = ""
	return u.String(), nil
}

// State returns the current socket state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the socket is open.
func (c *Channel) IsConnected() bool {
	return c.State() == Connected
}

// ConversationID returns the active conversation, or "".
func (c *Channel) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Messages returns a copy of the received messages, oldest first.
func (c *Channel) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatMessage(nil), c.messages...)
}

// SetConversation points the channel at id. The previous socket, if any, is
// closed with 1000 first and the message list restarts. An empty id only
// disconnects. Setting the current id again is a no-op.
func (c *Channel) SetConversation(id string) {
	c.mu.Lock()
	if c.closed || (id == c.conversationID && (c.state != Disconnected || c.timer != nil)) {
		c.mu.Unlock()
		return
	}
	conn, cancel, changed := c.teardownLocked()
	c.conversationID = id
	c.messages = nil
	var start func()
	if id != "" {
		start = c.connectLocked()
	}
	state := c.state
	c.mu.Unlock()

	c.release(conn, cancel, "replaced")
	if changed || start != nil {
		c.notifyState(state)
	}
	if start != nil {
		start()
	}
}

// Close disconnects, cancels any pending reconnect and waits for the
// channel's goroutines to exit. The channel cannot be reused. Calling Close
// directly from OnMessage or OnStateChange deadlocks.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn, cancel, changed := c.teardownLocked()
	c.mu.Unlock()

	c.release(conn, cancel, "component unmounted")
	if changed {
		c.notifyState(Disconnected)
	}
	c.wg.Wait()
	return nil
}

// SendMessage sends a client message. It does nothing but log a warning
// when the socket is not open.
func (c *Channel) SendMessage(ctx context.Context, content string) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == Connected && conn != nil
	c.mu.Unlock()

	if !open {
		c.logger.Warn("Chat socket is not connected, message dropped")
		return
	}

	msg := domain.ChatMessage{
		Content:   content,
		Role:      domain.RoleClient,
		Timestamp: domain.FormatTimestamp(c.now()),
	}
	if err := writeFrame(ctx, conn, frame{Type: FrameChatMessage, Message: &msg}); err != nil {
		c.logger.Warn("Failed to send chat message", "error", err)
	}
}

// teardownLocked detaches the current socket and cancels a pending
// reconnect. The caller releases the returned socket after unlocking.
func (c *Channel) teardownLocked() (*websocket.Conn, context.CancelFunc, bool) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	conn, cancel := c.conn, c.cancel
	c.conn, c.cancel = nil, nil
	changed := c.state != Disconnected
	c.state = Disconnected
	return conn, cancel, changed
}

// connectLocked moves to Connecting and returns the function that starts
// the dial. Callers run it after unlocking and reporting the state.
func (c *Channel) connectLocked() func() {
	c.gen++
	gen, id := c.gen, c.conversationID
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = Connecting

	c.wg.Add(1)
	return func() {
		go func() {
			defer c.wg.Done()
			c.run(ctx, gen, id)
		}()
	}
}

func (c *Channel) release(conn *websocket.Conn, cancel context.CancelFunc, reason string) {
	// Close before cancel: cancelling a pending Read tears the socket down
	// without the 1000 close frame.
	if conn != nil {
		if err := conn.Close(websocket.StatusNormalClosure, reason); err != nil {
			c.logger.Debug("Chat socket close", "error", err)
		}
	}
	if cancel != nil {
		cancel()
	}
}

func (c *Channel) run(ctx context.Context, gen uint64, conversationID string) {
	target, err := SocketURL(c.cfg.BaseURL, conversationID)
	if err != nil {
		c.logger.Error("Invalid chat socket url", "error", err)
		return
	}

	conn, _, err := websocket.Dial(ctx, target, c.cfg.DialOptions)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("Chat socket dial failed", "error", err, "conversation_id", conversationID)
		c.handleClose(gen, -1)
		return
	}

	// The authentication frame goes out before the socket is published, so
	// SendMessage can never precede it.
	if c.cfg.Token != nil {
		if token := c.cfg.Token(); token != "" {
			if err := writeFrame(ctx, conn, frame{Type: FrameAuthentication, Token: token}); err != nil {
				_ = conn.CloseNow()
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("Failed to send authentication frame", "error", err, "conversation_id", conversationID)
				c.handleClose(gen, -1)
				return
			}
		}
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "replaced")
		return
	}
	c.conn = conn
	c.state = Connected
	c.mu.Unlock()
	c.notifyState(Connected)
	c.logger.Info("Chat socket connected", "conversation_id", conversationID)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == -1 && ctx.Err() == nil {
				c.logger.Warn("Chat socket error", "error", err, "conversation_id", conversationID)
			}
			c.handleClose(gen, status)
			return
		}
		c.handleFrame(gen, data)
	}
}

func (c *Channel) handleFrame(gen uint64, data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.logger.Warn("Ignoring malformed chat frame", "error", err)
		return
	}
	if f.Type != FrameChatMessage || f.Message == nil {
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.messages = append(c.messages, *f.Message)
	c.mu.Unlock()

	if c.cfg.OnMessage != nil {
		c.cfg.OnMessage(*f.Message)
	}
}

// handleClose applies the close rule for a socket of generation gen. Sockets
// the channel closed itself have a stale generation and are ignored.
func (c *Channel) handleClose(gen uint64, status websocket.StatusCode) {
	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.conn, c.cancel = nil, nil
	c.state = Disconnected
	if cancel != nil {
		defer cancel()
	}

	if status == websocket.StatusNormalClosure {
		c.mu.Unlock()
		c.logger.Info("Chat socket closed normally", "conversation_id", c.ConversationID())
		c.notifyState(Disconnected)
		return
	}

	delay := c.cfg.ReconnectDelay
	c.timer = time.AfterFunc(delay, func() { c.reconnect(gen) })
	conversationID := c.conversationID
	c.mu.Unlock()

	c.logger.Info("Chat socket closed, reconnecting", "status", int(status), "delay", delay, "conversation_id", conversationID)
	c.notifyState(Disconnected)
}

func (c *Channel) reconnect(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.closed || c.conversationID == "" {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	start := c.connectLocked()
	c.mu.Unlock()

	c.notifyState(Connecting)
	start()
}

func (c *Channel) notifyState(s State) {
	if c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(s)
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
