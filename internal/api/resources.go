package api

import (
	"net/http"

	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/ashureev/teamconsole/internal/identity"
	"github.com/go-chi/chi/v5"
)

func owner(r *http.Request) string {
	return identity.UserFromContext(r.Context()).UUID
}

// decodeValid decodes the body into v and runs its Validate method.
func decodeValid(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) bool {
	if err := decode(r, v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := v.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// ListTeams handles GET /teams/.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.repo.ListTeams(owner(r)))
}

// CreateTeam handles POST /teams/.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var team domain.Team
	if !decodeValid(w, r, &team) {
		return
	}
	team.ID = ""
	saved, err := h.repo.SaveTeam(owner(r), team)
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusCreated, saved)
}

// GetTeam handles GET /teams/{teamID}/.
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.repo.GetTeam(owner(r), chi.URLParam(r, "teamID"))
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusOK, team)
}

// UpdateTeam handles PUT /teams/{teamID}/.
func (h *Handler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	var team domain.Team
	if !decodeValid(w, r, &team) {
		return
	}
	team.ID = chi.URLParam(r, "teamID")
	saved, err := h.repo.SaveTeam(owner(r), team)
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusOK, saved)
}

// DeleteTeam handles DELETE /teams/{teamID}/.
func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteTeam(owner(r), chi.URLParam(r, "teamID")); err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusNoContent, nil)
}

// ListTeamAgents handles GET /agents/teams/{teamID}/.
func (h *Handler) ListTeamAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.repo.ListTeamAgents(owner(r), chi.URLParam(r, "teamID"))
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusOK, agents)
}

// CreateAgent handles POST /agents/teams/{teamID}/.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var agent domain.Agent
	if !decodeValid(w, r, &agent) {
		return
	}
	agent.ID = ""
	agent.TeamID = chi.URLParam(r, "teamID")
	saved, err := h.repo.SaveAgent(owner(r), agent)
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusCreated, saved)
}

// GetAgent handles GET /agents/{agentID}/.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.repo.GetAgent(owner(r), chi.URLParam(r, "agentID"))
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusOK, agent)
}

// UpdateAgent handles PUT /agents/{agentID}/. The team cannot change.
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var agent domain.Agent
	if !decodeValid(w, r, &agent) {
		return
	}
	existing, err := h.repo.GetAgent(owner(r), chi.URLParam(r, "agentID"))
	if err != nil {
		repoError(w, err)
		return
	}
	agent.ID = existing.ID
	agent.TeamID = existing.TeamID
	saved, err := h.repo.SaveAgent(owner(r), agent)
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusOK, saved)
}

// DeleteAgent handles DELETE /agents/{agentID}/.
func (h *Handler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteAgent(owner(r), chi.URLParam(r, "agentID")); err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusNoContent, nil)
}

// ChatHistory handles GET /agents/{agentID}/chat-history/.
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.repo.History(owner(r), chi.URLParam(r, "agentID"))
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusOK, history)
}

// KnowledgeTags handles GET /agents/{agentID}/knowledge-tags/.
func (h *Handler) KnowledgeTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.repo.KnowledgeTags(owner(r), chi.URLParam(r, "agentID"))
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusOK, tags)
}

// SetKnowledgeTags handles PUT /agents/{agentID}/knowledge-tags/.
func (h *Handler) SetKnowledgeTags(w http.ResponseWriter, r *http.Request) {
	var tags []domain.KnowledgeTag
	if err := decode(r, &tags); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	saved, err := h.repo.SetKnowledgeTags(owner(r), chi.URLParam(r, "agentID"), tags)
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusOK, saved)
}

// CreateTool handles POST /tools/create/.
func (h *Handler) CreateTool(w http.ResponseWriter, r *http.Request) {
	var tool domain.Tool
	if !decodeValid(w, r, &tool) {
		return
	}
	tool.ID = ""
	saved, err := h.repo.SaveTool(owner(r), tool)
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusCreated, saved)
}

// ModifyTool handles PUT /tools/modify/{toolID}/.
func (h *Handler) ModifyTool(w http.ResponseWriter, r *http.Request) {
	var tool domain.Tool
	if !decodeValid(w, r, &tool) {
		return
	}
	tool.ID = chi.URLParam(r, "toolID")
	saved, err := h.repo.SaveTool(owner(r), tool)
	if err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusOK, saved)
}

// ListAPIKeys handles GET /api-keys/.
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.repo.ListAPIKeys(owner(r)))
}

// CreateAPIKey handles POST /api-keys/.
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var key domain.APIKey
	if !decodeValid(w, r, &key) {
		return
	}
	JSON(w, http.StatusCreated, h.repo.CreateAPIKey(owner(r), key))
}

// DeleteAPIKey handles DELETE /api-keys/{keyID}/.
func (h *Handler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteAPIKey(owner(r), chi.URLParam(r, "keyID")); err != nil {
		repoError(w, err)
		return
	}
	JSON(w, http.StatusNoContent, nil)
}
