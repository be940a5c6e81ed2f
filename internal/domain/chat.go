package domain

import "time"

// Role values carried by chat messages.
const (
	RoleClient    = "client"
	RoleAssistant = "assistant"
)

// Conversation is a chat thread between a user and an agent.
type Conversation struct {
	ID      string `json:"id"`
	AgentID string `json:"agentId"`
}

// ChatMessage is one message in a conversation.
type ChatMessage struct {
	Content   string `json:"content"`
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
}

// TimestampLayout is the wire format of ChatMessage.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
