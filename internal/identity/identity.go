// Package identity resolves the signed-in user from the Authorization header.
package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/ashureev/teamconsole/internal/domain"
)

type contextKey int

const (
	userKey contextKey = iota
	tokenKey
)

// UserLookup resolves a session token to its user.
type UserLookup interface {
	UserByToken(token string) (*domain.Session, bool)
}

// UserFromContext extracts the user from the request context.
func UserFromContext(ctx context.Context) *domain.Session {
	if v, ok := ctx.Value(userKey).(*domain.Session); ok {
		return v
	}
	return nil
}

// TokenFromContext extracts the raw token from the request context.
func TokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey).(string); ok {
		return v
	}
	return ""
}

// WithUser returns a context carrying user and token.
func WithUser(ctx context.Context, user *domain.Session, token string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromRequest parses "Token <t>" (or "Bearer <t>") from the Authorization header.
func TokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	for _, scheme := range []string{"Token ", "Bearer "} {
		if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			return strings.TrimSpace(header[len(scheme):])
		}
	}
	return ""
}

// Middleware rejects requests without a valid token and injects the user.
func Middleware(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeUnauthorized(w, "authentication credentials were not provided")
				return
			}

			user, ok := users.UserByToken(token)
			if !ok {
				writeUnauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, token)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"message":"` + message + `"}`))
}
