package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type account struct {
	user     domain.Session
	password string
}

// MemoryRepository holds everything the development backend serves.
// Records are scoped to the owning user's UUID.
type MemoryRepository struct {
	mu            sync.RWMutex
	accounts      map[string]*account // by email
	tokens        map[string]string   // token -> email
	teams         map[string]domain.Team
	agents        map[string]domain.Agent
	tools         map[string]domain.Tool
	apiKeys       map[string]domain.APIKey
	tags          map[string][]domain.KnowledgeTag
	history       map[string][]domain.ChatMessage
	conversations map[string]conversation
	now           func() time.Time
}

type conversation struct {
	domain.Conversation
	owner    string
	closed   bool
	lastSeen time.Time
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts:      make(map[string]*account),
		tokens:        make(map[string]string),
		teams:         make(map[string]domain.Team),
		agents:        make(map[string]domain.Agent),
		tools:         make(map[string]domain.Tool),
		apiKeys:       make(map[string]domain.APIKey),
		tags:          make(map[string][]domain.KnowledgeTag),
		history:       make(map[string][]domain.ChatMessage),
		conversations: make(map[string]conversation),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser registers an account and returns it signed in.
func (r *MemoryRepository) CreateUser(email, password, firstName, lastName string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[email]; exists {
		return nil, fmt.Errorf("%w: email %s already registered", ErrConflict, email)
	}
	acc := &account{
		user: domain.Session{
			UUID:      uuid.NewString(),
			Email:     email,
			FirstName: firstName,
			LastName:  lastName,
		},
		password: password,
	}
	r.accounts[email] = acc
	return r.issueTokenLocked(acc)
}

// Authenticate checks credentials and returns the user with a fresh token.
func (r *MemoryRepository) Authenticate(email, password string) (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[email]
	if !ok || acc.password != password {
		return nil, false
	}
	s, err := r.issueTokenLocked(acc)
	if err != nil {
		return nil, false
	}
	return s, true
}

func (r *MemoryRepository) issueTokenLocked(acc *account) (*domain.Session, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)
	r.tokens[token] = acc.user.Email

	s := acc.user
	s.Token = token
	return &s, nil
}

// UserByToken resolves a session token.
func (r *MemoryRepository) UserByToken(token string) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email, ok := r.tokens[token]
	if !ok {
		return nil, false
	}
	s := r.accounts[email].user
	s.Token = token
	return &s, true
}

// RevokeToken invalidates a session token.
func (r *MemoryRepository) RevokeToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
}

// ListTeams returns the teams owned by owner, oldest first.
func (r *MemoryRepository) ListTeams(owner string) []domain.Team {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedOwned(r.teams, owner, func(t domain.Team) (string, time.Time, string) { return t.Owner, t.CreatedAt, t.ID })
}

// GetTeam returns one team.
func (r *MemoryRepository) GetTeam(owner, id string) (domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[id]
	if !ok || t.Owner != owner {
		return domain.Team{}, ErrNotFound
	}
	return t, nil
}

// SaveTeam inserts (empty ID) or replaces a team.
func (r *MemoryRepository) SaveTeam(owner string, t domain.Team) (domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if t.ID == "" {
		t.ID = uuid.NewString()
		t.CreatedAt = now
	} else {
		existing, ok := r.teams[t.ID]
		if !ok || existing.Owner != owner {
			return domain.Team{}, ErrNotFound
		}
		t.CreatedAt = existing.CreatedAt
	}
	t.Owner = owner
	t.UpdatedAt = now
	r.teams[t.ID] = t
	return t, nil
}

// DeleteTeam removes a team and its agents.
func (r *MemoryRepository) DeleteTeam(owner, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.teams[id]
	if !ok || t.Owner != owner {
		return ErrNotFound
	}
	delete(r.teams, id)
	for agentID, a := range r.agents {
		if a.TeamID == id {
			r.deleteAgentLocked(agentID)
		}
	}
	return nil
}

// ListTeamAgents returns the agents of a team.
func (r *MemoryRepository) ListTeamAgents(owner, teamID string) ([]domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.teams[teamID]; !ok || t.Owner != owner {
		return nil, ErrNotFound
	}
	agents := sortedOwned(r.agents, owner, func(a domain.Agent) (string, time.Time, string) { return a.Owner, a.CreatedAt, a.ID })
	return slices.DeleteFunc(agents, func(a domain.Agent) bool { return a.TeamID != teamID }), nil
}

// GetAgent returns one agent.
func (r *MemoryRepository) GetAgent(owner, id string) (domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok || a.Owner != owner {
		return domain.Agent{}, ErrNotFound
	}
	return a, nil
}

// SaveAgent inserts (empty ID) or replaces an agent.
func (r *MemoryRepository) SaveAgent(owner string, a domain.Agent) (domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.teams[a.TeamID]; !ok || t.Owner != owner {
		return domain.Agent{}, ErrNotFound
	}
	now := r.now()
	if a.ID == "" {
		a.ID = uuid.NewString()
		a.CreatedAt = now
	} else {
		existing, ok := r.agents[a.ID]
		if !ok || existing.Owner != owner {
			return domain.Agent{}, ErrNotFound
		}
		a.CreatedAt = existing.CreatedAt
	}
	a.Owner = owner
	a.UpdatedAt = now
	r.agents[a.ID] = a
	return a, nil
}

// DeleteAgent removes an agent with its tools, tags and history.
func (r *MemoryRepository) DeleteAgent(owner, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok || a.Owner != owner {
		return ErrNotFound
	}
	r.deleteAgentLocked(id)
	return nil
}

func (r *MemoryRepository) deleteAgentLocked(id string) {
	delete(r.agents, id)
	delete(r.tags, id)
	delete(r.history, id)
	for toolID, t := range r.tools {
		if t.AgentID == id {
			delete(r.tools, toolID)
		}
	}
}

// SaveTool inserts (empty ID) or replaces a tool of an owned agent.
func (r *MemoryRepository) SaveTool(owner string, t domain.Tool) (domain.Tool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.agents[t.AgentID]; !ok || a.Owner != owner {
		return domain.Tool{}, ErrNotFound
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	} else if _, ok := r.tools[t.ID]; !ok {
		return domain.Tool{}, ErrNotFound
	}
	r.tools[t.ID] = t
	return t, nil
}

// KnowledgeTags returns the tags of an agent.
func (r *MemoryRepository) KnowledgeTags(owner, agentID string) ([]domain.KnowledgeTag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.agents[agentID]; !ok || a.Owner != owner {
		return nil, ErrNotFound
	}
	return append([]domain.KnowledgeTag{}, r.tags[agentID]...), nil
}

// SetKnowledgeTags replaces the tags of an agent, assigning missing IDs.
func (r *MemoryRepository) SetKnowledgeTags(owner, agentID string, tags []domain.KnowledgeTag) ([]domain.KnowledgeTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[agentID]; !ok || a.Owner != owner {
		return nil, ErrNotFound
	}
	saved := make([]domain.KnowledgeTag, len(tags))
	for i, t := range tags {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		saved[i] = t
	}
	r.tags[agentID] = saved
	return append([]domain.KnowledgeTag{}, saved...), nil
}

// ListAPIKeys returns the owner's keys with secrets blanked.
func (r *MemoryRepository) ListAPIKeys(owner string) []domain.APIKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := sortedOwned(r.apiKeys, owner, func(k domain.APIKey) (string, time.Time, string) { return k.Owner, k.CreatedAt, k.ID })
	for i := range keys {
		keys[i].Key = ""
	}
	return keys
}

// CreateAPIKey stores a key. The returned copy has its secret blanked.
func (r *MemoryRepository) CreateAPIKey(owner string, k domain.APIKey) domain.APIKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	k.ID = uuid.NewString()
	k.Owner = owner
	k.CreatedAt = r.now()
	r.apiKeys[k.ID] = k
	k.Key = ""
	return k
}

// DeleteAPIKey removes a key.
func (r *MemoryRepository) DeleteAPIKey(owner, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.apiKeys[id]
	if !ok || k.Owner != owner {
		return ErrNotFound
	}
	delete(r.apiKeys, id)
	return nil
}

// History returns an agent's chat history, oldest first.
func (r *MemoryRepository) History(owner, agentID string) ([]domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.agents[agentID]; !ok || a.Owner != owner {
		return nil, ErrNotFound
	}
	return append([]domain.ChatMessage{}, r.history[agentID]...), nil
}

// AppendHistory records a message against an agent.
func (r *MemoryRepository) AppendHistory(agentID string, msg domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[agentID] = append(r.history[agentID], msg)
}

// OpenConversation starts a conversation with an owned agent.
func (r *MemoryRepository) OpenConversation(owner, agentID string) (domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[agentID]; !ok || a.Owner != owner {
		return domain.Conversation{}, ErrNotFound
	}
	conv := conversation{
		Conversation: domain.Conversation{ID: uuid.NewString(), AgentID: agentID},
		owner:        owner,
		lastSeen:     r.now(),
	}
	r.conversations[conv.ID] = conv
	return conv.Conversation, nil
}

// Conversation returns an open conversation and its owner.
func (r *MemoryRepository) Conversation(id string) (domain.Conversation, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.conversations[id]
	if !ok || conv.closed {
		return domain.Conversation{}, "", false
	}
	return conv.Conversation, conv.owner, true
}

// TouchConversation records activity on an open conversation.
func (r *MemoryRepository) TouchConversation(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.conversations[id]; ok && !conv.closed {
		conv.lastSeen = r.now()
		r.conversations[id] = conv
	}
}

// CloseExpiredConversations closes open conversations idle for longer than
// ttl and returns their IDs.
func (r *MemoryRepository) CloseExpiredConversations(ttl time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-ttl)
	var expired []string
	for id, conv := range r.conversations {
		if conv.closed || conv.lastSeen.After(cutoff) {
			continue
		}
		conv.closed = true
		r.conversations[id] = conv
		expired = append(expired, id)
	}
	slices.Sort(expired)
	return expired
}

// CloseConversation marks a conversation closed.
func (r *MemoryRepository) CloseConversation(owner, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok || conv.owner != owner {
		return ErrNotFound
	}
	conv.closed = true
	r.conversations[id] = conv
	return nil
}

// sortedOwned filters m by owner and orders by creation time, then ID.
func sortedOwned[T any](m map[string]T, owner string, key func(T) (string, time.Time, string)) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		if o, _, _ := key(v); o == owner {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b T) int {
		_, ta, ia := key(a)
		_, tb, ib := key(b)
		if c := ta.Compare(tb); c != 0 {
			return c
		}
		return strings.Compare(ia, ib)
	})
	return out
}
