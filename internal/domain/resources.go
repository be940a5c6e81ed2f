package domain

import (
	"time"
)

// Team is an organizational group that owns agents.
type Team struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Validate checks required fields before submission.
func (t *Team) Validate() error {
	return required("name", t.Name)
}

// Agent is an AI assistant belonging to a team.
type Agent struct {
	ID           string    `json:"id,omitempty"`
	TeamID       string    `json:"team,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Instructions string    `json:"instructions,omitempty"`
	Model        string    `json:"model,omitempty"`
	Greeting     string    `json:"greeting,omitempty"`
	Owner        string    `json:"owner,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// Validate checks required fields before submission.
func (a *Agent) Validate() error {
	return required("name", a.Name)
}

// APIKey is a provider credential attached to the account.
type APIKey struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	Key       string    `json:"key,omitempty"`
	Owner     string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Validate checks required fields before submission.
func (k *APIKey) Validate() error {
	if err := required("name", k.Name); err != nil {
		return err
	}
	if err := required("provider", k.Provider); err != nil {
		return err
	}
	return required("key", k.Key)
}

// KnowledgeTag labels knowledge an agent may draw on.
type KnowledgeTag struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Tool is a callable capability attached to an agent.
type Tool struct {
	ID          string            `json:"id,omitempty"`
	AgentID     string            `json:"agent"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Method      string            `json:"method,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Validate checks required fields before submission.
func (t *Tool) Validate() error {
	if err := required("agent", t.AgentID); err != nil {
		return err
	}
	return required("name", t.Name)
}
