package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/teamconsole/internal/domain"
)

type staticUsers map[string]*domain.Session

func (s staticUsers) UserByToken(token string) (*domain.Session, bool) {
	u, ok := s[token]
	return u, ok
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		header, want string
	}{
		{"Token abc", "abc"},
		{"token abc", "abc"},
		{"Bearer xyz", "xyz"},
		{"Basic Zm9v", ""},
		{"Token", ""},
		{"", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		if got := TokenFromRequest(r); got != tt.want {
			t.Errorf("TokenFromRequest(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	users := staticUsers{"t1": {Token: "t1", Email: "a@b.com"}}
	var seen *domain.Session
	h := Middleware(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
	}))

	for _, tc := range []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Token nope", http.StatusUnauthorized},
		{"Token t1", http.StatusOK},
	} {
		seen = nil
		r := httptest.NewRequest(http.MethodGet, "/teams/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)
		if rr.Code != tc.status {
			t.Errorf("header %q: expected %d, got %d", tc.header, tc.status, rr.Code)
		}
		if tc.status == http.StatusOK && (seen == nil || seen.Email != "a@b.com") {
			t.Errorf("Expected user in context, got %+v", seen)
		}
	}
}
