package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/ashureev/teamconsole/internal/identity"
)

type registerRequest struct {
	domain.Credentials
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Login handles POST /auth/login/.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := decode(r, &creds); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := creds.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	user, ok := h.repo.Authenticate(creds.Email, creds.Password)
	if !ok {
		slog.Info("Login rejected", "email", creds.Email)
		Error(w, http.StatusBadRequest, "Unable to log in with provided credentials.")
		return
	}

	slog.Info("User logged in", "user_id", user.UUID)
	JSON(w, http.StatusOK, user)
}

// Register handles POST /auth/register/ and signs the new user in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password == "" {
		Error(w, http.StatusBadRequest, "password is required")
		return
	}

	user, err := h.repo.CreateUser(req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		repoError(w, err)
		return
	}

	slog.Info("User registered", "user_id", user.UUID)
	JSON(w, http.StatusCreated, user)
}

// Validate handles GET /auth/validate/.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, identity.UserFromContext(r.Context()))
}

// Logout handles POST /auth/logout/.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.repo.RevokeToken(identity.TokenFromContext(r.Context()))
	JSON(w, http.StatusNoContent, nil)
}
