// Package auth signs users in and out against the console API.
//
// Login never persists anything; callers write the session to durable
// storage with PersistSession once they have accepted it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ashureev/teamconsole/internal/apiclient"
	"github.com/ashureev/teamconsole/internal/appstate"
	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/ashureev/teamconsole/internal/store"
)

// userPayload is the user shape returned by the backend.
type userPayload struct {
	Token       string `json:"token"`
	UUID        string `json:"uuid"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsSuperuser bool   `json:"is_superuser"`
}

// loginPayload accepts both flat payloads and payloads nested under "user".
type loginPayload struct {
	userPayload
	User *userPayload `json:"user"`
}

func (p loginPayload) normalize() *domain.Session {
	u := p.userPayload
	if p.User != nil {
		nested := *p.User
		if nested.Token == "" {
			nested.Token = u.Token
		}
		u = nested
	}
	return &domain.Session{
		Token:       u.Token,
		UUID:        u.UUID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsSuperuser: u.IsSuperuser,
	}
}

// ErrNoToken is returned when a login response carries no token.
var ErrNoToken = errors.New("auth: login response has no token")

// Login exchanges credentials for a session.
func Login(ctx context.Context, c *apiclient.Client, creds domain.Credentials) (*domain.Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	var payload loginPayload
	opts := &apiclient.RequestOptions{Body: creds, SkipCSRF: true}
	if err := c.Post(ctx, apiclient.PathLogin, opts, &payload); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	session := payload.normalize()
	if session.Token == "" {
		return nil, ErrNoToken
	}
	return session, nil
}

// Register creates an account. Some backends sign the user in directly; in
// that case the returned session is non-nil.
func Register(ctx context.Context, c *apiclient.Client, creds domain.Credentials) (*domain.Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	var payload loginPayload
	opts := &apiclient.RequestOptions{Body: creds, SkipCSRF: true}
	if err := c.Post(ctx, apiclient.PathRegister, opts, &payload); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	session := payload.normalize()
	if session.Token == "" {
		return nil, nil
	}
	return session, nil
}

// Validation is the outcome of ValidateToken.
type Validation struct {
	IsValid bool
	User    *domain.Session
}

// ValidateToken checks token against the backend. It never returns an error;
// any failure yields IsValid false.
func ValidateToken(ctx context.Context, c *apiclient.Client, token string) Validation {
	if token == "" {
		return Validation{}
	}

	var payload loginPayload
	opts := &apiclient.RequestOptions{Headers: map[string]string{"Authorization": "Token " + token}}
	if err := c.Do(ctx, http.MethodGet, apiclient.PathValidate, opts, &payload); err != nil {
		slog.Debug("Token validation failed", "error", err)
		return Validation{}
	}

	user := payload.normalize()
	if user.Token == "" {
		user.Token = token
	}
	return Validation{IsValid: true, User: user}
}

// PersistSession writes the token and email to durable storage.
func PersistSession(ctx context.Context, storage store.Storage, s *domain.Session) error {
	if err := storage.Set(ctx, store.KeyAuthToken, s.Token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := storage.Set(ctx, store.KeyUserEmail, s.Email); err != nil {
		return fmt.Errorf("persist email: %w", err)
	}
	return nil
}

// RestoreSession reads the stored token and validates it. It returns nil
// when there is no stored token or the token is no longer valid.
func RestoreSession(ctx context.Context, c *apiclient.Client, storage store.Storage) (*domain.Session, error) {
	token, ok, err := storage.Get(ctx, store.KeyAuthToken)
	if err != nil {
		return nil, fmt.Errorf("read stored token: %w", err)
	}
	if !ok || token == "" {
		return nil, nil
	}

	v := ValidateToken(ctx, c, token)
	if !v.IsValid {
		return nil, nil
	}
	if v.User.Email == "" {
		if email, ok, _ := storage.Get(ctx, store.KeyUserEmail); ok {
			v.User.Email = email
		}
	}
	return v.User, nil
}

// Logout clears session state and the stored credentials. Preferences
// (language, fonts) survive.
func Logout(ctx context.Context, st *appstate.Store, storage store.Storage) error {
	st.Dispatch(appstate.CleanState{})

	var errs []error
	for _, key := range []string{store.KeyAuthToken, store.KeyUserEmail} {
		if err := storage.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// SignIn logs in, installs the session in st and persists it, the way the
// login screen does.
func SignIn(ctx context.Context, c *apiclient.Client, st *appstate.Store, storage store.Storage, creds domain.Credentials) (*domain.Session, error) {
	session, err := Login(ctx, c, creds)
	if err != nil {
		return nil, err
	}
	st.Dispatch(appstate.SetSession{Session: session})
	if err := PersistSession(ctx, storage, session); err != nil {
		return session, err
	}
	return session, nil
}
