package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ashureev/teamconsole/internal/domain"
)

type recordedRequest struct {
	Method      string
	Path        string
	CSRF        string
	Auth        string
	ContentType string
	Body        string
}

// fakeBackend records every request and answers main requests with a
// scripted list of statuses; the last status repeats.
type fakeBackend struct {
	mu        sync.Mutex
	requests  []recordedRequest
	csrfCalls int

	csrfStatus int
	csrfBody   string // empty means {"csrfToken":"tok-N"}
	statuses   []int
	body       string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		CSRF:        r.Header.Get(HeaderCSRF),
		Auth:        r.Header.Get("Authorization"),
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(body),
	})

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/api/csrf/" {
		f.csrfCalls++
		if f.csrfStatus != 0 {
			w.WriteHeader(f.csrfStatus)
		}
		if f.csrfBody != "" {
			_, _ = io.WriteString(w, f.csrfBody)
			return
		}
		_, _ = fmt.Fprintf(w, `{"csrfToken":"tok-%d"}`, f.csrfCalls)
		return
	}

	status := http.StatusOK
	if len(f.statuses) > 0 {
		status = f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
	}
	w.WriteHeader(status)
	if f.body != "" {
		_, _ = io.WriteString(w, f.body)
	}
}

func (f *fakeBackend) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newTestClient(t *testing.T, backend http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestURLJoinsWithSingleSlash(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"http://127.0.0.1:8000/", "/teams/", "http://127.0.0.1:8000/teams/"},
		{"http://127.0.0.1:8000/", "teams/", "http://127.0.0.1:8000/teams/"},
		{"http://127.0.0.1:8000", "/teams/", "http://127.0.0.1:8000/teams/"},
		{"http://127.0.0.1:8000", "teams/", "http://127.0.0.1:8000/teams/"},
		{"https://api.example.com/v1/", "/agents/7/", "https://api.example.com/v1/agents/7/"},
	}

	for _, tt := range tests {
		c, err := New(tt.base)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		got := c.URL(tt.path)
		if got != tt.want {
			t.Errorf("URL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
		rest := strings.TrimPrefix(got, "http://")
		rest = strings.TrimPrefix(rest, "https://")
		if strings.Contains(rest, "//") {
			t.Errorf("URL %q contains a double slash", got)
		}
	}
}

func TestMutatingCallFetchesCSRFFirst(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			backend := &fakeBackend{body: `{}`}
			c := newTestClient(t, backend)

			if err := c.Do(context.Background(), method, "/teams/1/", &RequestOptions{Body: map[string]string{"name": "x"}}, nil); err != nil {
				t.Fatalf("Do failed: %v", err)
			}

			reqs := backend.recorded()
			if len(reqs) != 2 {
				t.Fatalf("Expected 2 requests, got %d", len(reqs))
			}
			if reqs[0].Method != http.MethodGet || reqs[0].Path != "/api/csrf/" {
				t.Errorf("Expected csrf GET first, got %s %s", reqs[0].Method, reqs[0].Path)
			}
			if reqs[1].Method != method || reqs[1].CSRF != "tok-1" {
				t.Errorf("Expected %s with csrf tok-1, got %s csrf=%q", method, reqs[1].Method, reqs[1].CSRF)
			}
			if reqs[1].ContentType != "application/json" {
				t.Errorf("Expected JSON content type, got %q", reqs[1].ContentType)
			}
		})
	}
}

func TestGetAndSkipCSRFDoNotFetchToken(t *testing.T) {
	backend := &fakeBackend{body: `[]`}
	c := newTestClient(t, backend)
	ctx := context.Background()

	if err := c.Get(ctx, "teams/", nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := c.Post(ctx, PathLogin, &RequestOptions{SkipCSRF: true}, nil); err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	for _, r := range backend.recorded() {
		if r.Path == "/api/csrf/" {
			t.Fatalf("Unexpected csrf fetch")
		}
	}
}

func TestCSRFFailureNeverSendsMainRequest(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		target  error
	}{
		{"missing token field", &fakeBackend{csrfBody: `{"other":"x"}`}, ErrCSRFTokenMissing},
		{"server error", &fakeBackend{csrfStatus: http.StatusInternalServerError, csrfBody: `{}`}, nil},
		{"not json", &fakeBackend{csrfBody: `<html>`}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.backend)

			err := c.Post(context.Background(), "teams/", &RequestOptions{Body: map[string]string{}}, nil)
			var csrfErr *CSRFError
			if !errors.As(err, &csrfErr) {
				t.Fatalf("Expected CSRFError, got %v", err)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}

			for _, r := range tt.backend.recorded() {
				if r.Path != "/api/csrf/" {
					t.Fatalf("Main request was sent: %s %s", r.Method, r.Path)
				}
			}
		})
	}
}

func TestCSRFNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	err = c.Post(context.Background(), "teams/", nil, nil)
	var csrfErr *CSRFError
	if !errors.As(err, &csrfErr) {
		t.Fatalf("Expected CSRFError, got %v", err)
	}
}

func TestForbiddenRetriesOnceWithFreshToken(t *testing.T) {
	backend := &fakeBackend{statuses: []int{http.StatusForbidden, http.StatusCreated}, body: `{"id":"t1","name":"Support"}`}
	c := newTestClient(t, backend)

	var team domain.Team
	if err := c.Post(context.Background(), "teams/", &RequestOptions{Body: domain.Team{Name: "Support"}}, &team); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if team.ID != "t1" {
		t.Errorf("Expected decoded team t1, got %+v", team)
	}

	reqs := backend.recorded()
	want := []string{"GET /api/csrf/", "POST /teams/", "GET /api/csrf/", "POST /teams/"}
	if len(reqs) != len(want) {
		t.Fatalf("Expected %d requests, got %d: %+v", len(want), len(reqs), reqs)
	}
	for i, r := range reqs {
		if got := r.Method + " " + r.Path; got != want[i] {
			t.Errorf("Request %d = %s, want %s", i, got, want[i])
		}
	}
	if reqs[1].CSRF != "tok-1" || reqs[3].CSRF != "tok-2" {
		t.Errorf("Expected retry with fresh token, got %q then %q", reqs[1].CSRF, reqs[3].CSRF)
	}
	if reqs[1].Body != reqs[3].Body {
		t.Errorf("Expected replayed body, got %q then %q", reqs[1].Body, reqs[3].Body)
	}
}

func TestSecondForbiddenPropagates(t *testing.T) {
	backend := &fakeBackend{statuses: []int{http.StatusForbidden}, body: `{"message":"CSRF Failed"}`}
	c := newTestClient(t, backend)

	err := c.Delete(context.Background(), "teams/1/", nil, nil)
	if !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("Expected 403 HTTPError, got %v", err)
	}

	mains := 0
	for _, r := range backend.recorded() {
		if r.Path == "/teams/1/" {
			mains++
		}
	}
	if mains != 2 {
		t.Errorf("Expected exactly 2 main requests, got %d", mains)
	}
}

func TestGetForbiddenIsNotRetried(t *testing.T) {
	backend := &fakeBackend{statuses: []int{http.StatusForbidden}, body: `{}`}
	c := newTestClient(t, backend)

	if err := c.Get(context.Background(), "teams/", nil); !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("Expected 403, got %v", err)
	}
	if n := len(backend.recorded()); n != 1 {
		t.Errorf("Expected 1 request, got %d", n)
	}
}

func TestHTTPErrorCarriesStatusTextAndData(t *testing.T) {
	backend := &fakeBackend{statuses: []int{http.StatusBadRequest}, body: `{"message":"name already taken"}`}
	c := newTestClient(t, backend)

	err := c.Post(context.Background(), "teams/", &RequestOptions{Body: map[string]string{"name": "x"}}, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusBadRequest || httpErr.StatusText != "Bad Request" {
		t.Errorf("Unexpected status %d %q", httpErr.Status, httpErr.StatusText)
	}
	if httpErr.Message() != "name already taken" {
		t.Errorf("Expected data.message, got %q", httpErr.Message())
	}

	var data map[string]string
	if err := httpErr.Decode(&data); err != nil || data["message"] == "" {
		t.Errorf("Decode failed: %v %v", data, err)
	}
}

func TestHTTPErrorWithPlainTextBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))

	err := c.Get(context.Background(), "teams/", nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected HTTPError, got %v", err)
	}
	var text string
	if err := json.Unmarshal(httpErr.Data, &text); err != nil || text != "upstream down" {
		t.Errorf("Expected quoted text body, got %s (%v)", httpErr.Data, err)
	}
}

func TestAuthorizationHeaderFromTokenSource(t *testing.T) {
	backend := &fakeBackend{body: `[]`}
	token := ""
	c := newTestClient(t, backend, WithTokenSource(func() string { return token }))
	ctx := context.Background()

	_ = c.Get(ctx, "teams/", nil)
	token = "t1"
	_ = c.Get(ctx, "teams/", nil)

	reqs := backend.recorded()
	if reqs[0].Auth != "" {
		t.Errorf("Expected no Authorization while signed out, got %q", reqs[0].Auth)
	}
	if reqs[1].Auth != "Token t1" {
		t.Errorf("Expected Token t1, got %q", reqs[1].Auth)
	}
}

func TestMultipartBodyKeepsBoundary(t *testing.T) {
	backend := &fakeBackend{body: `{}`}
	c := newTestClient(t, backend)

	form := NewMultipartBody()
	if err := form.WriteField("name", "avatar"); err != nil {
		t.Fatalf("WriteField failed: %v", err)
	}
	if err := form.WriteFile("file", "a.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := c.Post(context.Background(), "agents/1/avatar/", &RequestOptions{Body: form}, nil); err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	reqs := backend.recorded()
	main := reqs[len(reqs)-1]
	if !strings.HasPrefix(main.ContentType, "multipart/form-data; boundary=") {
		t.Errorf("Expected multipart content type, got %q", main.ContentType)
	}
	if !strings.Contains(main.Body, "hello") {
		t.Errorf("Expected file content in body")
	}
}

func TestHeaderOverrides(t *testing.T) {
	backend := &fakeBackend{body: `{}`}
	c := newTestClient(t, backend)

	opts := &RequestOptions{SkipCSRF: true, Headers: map[string]string{"Content-Type": "text/plain"}}
	if err := c.Post(context.Background(), "echo/", opts, nil); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if got := backend.recorded()[0].ContentType; got != "text/plain" {
		t.Errorf("Expected override, got %q", got)
	}
}

func TestNetworkFailureIsReturnedUnnormalized(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	err = c.Get(context.Background(), "teams/", nil)
	if err == nil {
		t.Fatal("Expected network error")
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		t.Errorf("Network failure must not be an HTTPError: %v", err)
	}
}
