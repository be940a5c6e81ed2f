package apiclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ashureev/teamconsole/internal/domain"
)

func resourcePath(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}

func requireID(kind, id string) error {
	if id == "" {
		return &domain.ValidationError{Field: "id", Message: kind + " id is required"}
	}
	return nil
}

// ListTeams returns every team visible to the session.
func (c *Client) ListTeams(ctx context.Context) ([]domain.Team, error) {
	var teams []domain.Team
	if err := c.Get(ctx, "teams/", &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// GetTeam returns one team.
func (c *Client) GetTeam(ctx context.Context, id string) (*domain.Team, error) {
	if err := requireID("team", id); err != nil {
		return nil, err
	}
	var team domain.Team
	if err := c.Get(ctx, resourcePath("teams/%s/", id), &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// CreateTeam validates and submits a new team.
func (c *Client) CreateTeam(ctx context.Context, team *domain.Team) (*domain.Team, error) {
	if err := team.Validate(); err != nil {
		return nil, err
	}
	var created domain.Team
	if err := c.Post(ctx, "teams/", &RequestOptions{Body: team}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTeam validates and replaces a team.
func (c *Client) UpdateTeam(ctx context.Context, team *domain.Team) (*domain.Team, error) {
	if err := requireID("team", team.ID); err != nil {
		return nil, err
	}
	if err := team.Validate(); err != nil {
		return nil, err
	}
	var updated domain.Team
	if err := c.Put(ctx, resourcePath("teams/%s/", team.ID), &RequestOptions{Body: team}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTeam removes a team.
func (c *Client) DeleteTeam(ctx context.Context, id string) error {
	if err := requireID("team", id); err != nil {
		return err
	}
	return c.Delete(ctx, resourcePath("teams/%s/", id), nil, nil)
}

// ListTeamAgents returns the agents of a team.
func (c *Client) ListTeamAgents(ctx context.Context, teamID string) ([]domain.Agent, error) {
	if err := requireID("team", teamID); err != nil {
		return nil, err
	}
	var agents []domain.Agent
	if err := c.Get(ctx, resourcePath("agents/teams/%s/", teamID), &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// GetAgent returns one agent.
func (c *Client) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	if err := requireID("agent", id); err != nil {
		return nil, err
	}
	var agent domain.Agent
	if err := c.Get(ctx, resourcePath("agents/%s/", id), &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// CreateAgent validates and submits an agent under a team.
func (c *Client) CreateAgent(ctx context.Context, teamID string, agent *domain.Agent) (*domain.Agent, error) {
	if err := requireID("team", teamID); err != nil {
		return nil, err
	}
	if err := agent.Validate(); err != nil {
		return nil, err
	}
	var created domain.Agent
	if err := c.Post(ctx, resourcePath("agents/teams/%s/", teamID), &RequestOptions{Body: agent}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateAgent validates and replaces an agent.
func (c *Client) UpdateAgent(ctx context.Context, agent *domain.Agent) (*domain.Agent, error) {
	if err := requireID("agent", agent.ID); err != nil {
		return nil, err
	}
	if err := agent.Validate(); err != nil {
		return nil, err
	}
	var updated domain.Agent
	if err := c.Put(ctx, resourcePath("agents/%s/", agent.ID), &RequestOptions{Body: agent}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteAgent removes an agent.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	if err := requireID("agent", id); err != nil {
		return err
	}
	return c.Delete(ctx, resourcePath("agents/%s/", id), nil, nil)
}

// ChatHistory returns the stored messages of an agent, oldest first.
func (c *Client) ChatHistory(ctx context.Context, agentID string) ([]domain.ChatMessage, error) {
	if err := requireID("agent", agentID); err != nil {
		return nil, err
	}
	var history []domain.ChatMessage
	if err := c.Get(ctx, resourcePath("agents/%s/chat-history/", agentID), &history); err != nil {
		return nil, err
	}
	return history, nil
}

// KnowledgeTags returns the tags attached to an agent.
func (c *Client) KnowledgeTags(ctx context.Context, agentID string) ([]domain.KnowledgeTag, error) {
	if err := requireID("agent", agentID); err != nil {
		return nil, err
	}
	var tags []domain.KnowledgeTag
	if err := c.Get(ctx, resourcePath("agents/%s/knowledge-tags/", agentID), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// SetKnowledgeTags replaces the tags attached to an agent.
func (c *Client) SetKnowledgeTags(ctx context.Context, agentID string, tags []domain.KnowledgeTag) ([]domain.KnowledgeTag, error) {
	if err := requireID("agent", agentID); err != nil {
		return nil, err
	}
	for i := range tags {
		if tags[i].Name == "" {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("tags[%d].name", i), Message: "tag name is required"}
		}
	}
	var saved []domain.KnowledgeTag
	if err := c.Put(ctx, resourcePath("agents/%s/knowledge-tags/", agentID), &RequestOptions{Body: tags}, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// CreateTool validates and submits a new tool.
func (c *Client) CreateTool(ctx context.Context, tool *domain.Tool) (*domain.Tool, error) {
	if err := tool.Validate(); err != nil {
		return nil, err
	}
	var created domain.Tool
	if err := c.Post(ctx, "tools/create/", &RequestOptions{Body: tool}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ModifyTool validates and replaces a tool.
func (c *Client) ModifyTool(ctx context.Context, tool *domain.Tool) (*domain.Tool, error) {
	if err := requireID("tool", tool.ID); err != nil {
		return nil, err
	}
	if err := tool.Validate(); err != nil {
		return nil, err
	}
	var updated domain.Tool
	if err := c.Put(ctx, resourcePath("tools/modify/%s/", tool.ID), &RequestOptions{Body: tool}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListAPIKeys returns the account's provider keys. Secrets are not echoed back.
func (c *Client) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	var keys []domain.APIKey
	if err := c.Get(ctx, "api-keys/", &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// CreateAPIKey validates and submits a provider key.
func (c *Client) CreateAPIKey(ctx context.Context, key *domain.APIKey) (*domain.APIKey, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var created domain.APIKey
	if err := c.Post(ctx, "api-keys/", &RequestOptions{Body: key}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteAPIKey removes a provider key.
func (c *Client) DeleteAPIKey(ctx context.Context, id string) error {
	if err := requireID("api key", id); err != nil {
		return err
	}
	return c.Delete(ctx, resourcePath("api-keys/%s/", id), nil, nil)
}

// CreateChatSession opens a conversation with an agent. It must precede
// dialing the chat socket.
func (c *Client) CreateChatSession(ctx context.Context, agentID string) (*domain.Conversation, error) {
	if err := requireID("agent", agentID); err != nil {
		return nil, err
	}
	var conv domain.Conversation
	body := map[string]string{"agent": agentID}
	if err := c.Post(ctx, "chat/sessions/", &RequestOptions{Body: body}, &conv); err != nil {
		return nil, err
	}
	if conv.AgentID == "" {
		conv.AgentID = agentID
	}
	return &conv, nil
}

// CloseChatSession terminates a conversation.
func (c *Client) CloseChatSession(ctx context.Context, id string) error {
	if err := requireID("chat session", id); err != nil {
		return err
	}
	return c.Post(ctx, resourcePath("chat/sessions/%s/close/", id), nil, nil)
}
