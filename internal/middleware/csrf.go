package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	CSRFCookieName = "csrftoken"
	CSRFHeaderName = "X-CSRFToken"

	// CSRFTokenTTL bounds how long an issued token stays valid.
	CSRFTokenTTL = 12 * time.Hour
)

// CSRF issues anti-forgery tokens and enforces them on mutating requests.
// A request passes when its header token matches its cookie and the token
// was issued since the last Rotate.
type CSRF struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	secure bool
	now    func() time.Time
}

// NewCSRF creates an issuer. secure marks the cookie Secure.
func NewCSRF(secure bool) *CSRF {
	return &CSRF{tokens: make(map[string]time.Time), secure: secure, now: time.Now}
}

// Issue handles GET for the CSRF endpoint.
func (c *CSRF) Issue(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		slog.Error("Failed to generate csrf token", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"failed to generate csrf token"}`))
		return
	}
	token := hex.EncodeToString(buf)

	c.mu.Lock()
	c.tokens[token] = c.now()
	c.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"csrfToken": token})
}

// Rotate invalidates every issued token, as a server restart or session
// change would.
func (c *CSRF) Rotate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = make(map[string]time.Time)
}

// Evict drops tokens issued more than CSRFTokenTTL ago.
func (c *CSRF) Evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-CSRFTokenTTL)
	for token, issued := range c.tokens {
		if !issued.After(cutoff) {
			delete(c.tokens, token)
		}
	}
}

// Middleware rejects mutating requests without a valid token with 403.
func (c *CSRF) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if !c.valid(r) {
			slog.Warn("CSRF check failed", "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"CSRF Failed: CSRF token missing or incorrect."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *CSRF) valid(r *http.Request) bool {
	header := r.Header.Get(CSRFHeaderName)
	if header == "" {
		return false
	}
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value != header {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	issued, ok := c.tokens[header]
	return ok && issued.After(c.now().Add(-CSRFTokenTTL))
}
