package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/ashureev/teamconsole/internal/api"
	"github.com/ashureev/teamconsole/internal/apiclient"
	"github.com/ashureev/teamconsole/internal/appstate"
	"github.com/ashureev/teamconsole/internal/auth"
	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/ashureev/teamconsole/internal/store"
)

// stubBackend answers the login and validate endpoints with fixed bodies
// and fails the test on any CSRF fetch.
func stubBackend(t *testing.T, loginBody string, validateStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("login method = %s", r.Method)
		}
		var creds domain.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" {
			t.Errorf("login body: %+v %v", creds, err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(loginBody))
	})
	mux.HandleFunc("/auth/validate/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token t1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(validateStatus)
		_, _ = w.Write([]byte(`{"uuid":"u1","email":"a@b.com","first_name":"Ada"}`))
	})
	mux.HandleFunc("/api/csrf/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected csrf fetch")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, url string) *apiclient.Client {
	t.Helper()
	c, err := apiclient.New(url)
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	return c
}

func TestSignInStoresAndPersistsSession(t *testing.T) {
	srv := stubBackend(t, `{"token":"t1","uuid":"u1","email":"a@b.com"}`, http.StatusOK)
	c := newClient(t, srv.URL)
	st := appstate.NewStore(appstate.Initial())
	storage := store.NewMemory()
	ctx := context.Background()

	_, err := auth.SignIn(ctx, c, st, storage, domain.Credentials{Email: "a@b.com", Password: "secret"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	want := &domain.Session{Token: "t1", UUID: "u1", Email: "a@b.com"}
	if got := st.State().Session; !reflect.DeepEqual(got, want) {
		t.Errorf("Session = %+v, want %+v", got, want)
	}
	for key, want := range map[string]string{store.KeyAuthToken: "t1", store.KeyUserEmail: "a@b.com"} {
		got, ok, err := storage.Get(ctx, key)
		if err != nil || !ok || got != want {
			t.Errorf("storage[%s] = %q, %v, %v; want %q", key, got, ok, err, want)
		}
	}
}

func TestLoginNormalizesNestedPayload(t *testing.T) {
	srv := stubBackend(t, `{"token":"t1","user":{"uuid":"u1","email":"a@b.com","last_name":"Lovelace","is_superuser":true}}`, http.StatusOK)
	c := newClient(t, srv.URL)

	s, err := auth.Login(context.Background(), c, domain.Credentials{Email: "a@b.com", Code: "123456"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	want := &domain.Session{Token: "t1", UUID: "u1", Email: "a@b.com", LastName: "Lovelace", IsSuperuser: true}
	if !reflect.DeepEqual(s, want) {
		t.Errorf("Session = %+v, want %+v", s, want)
	}
}

func TestLoginWithoutTokenFails(t *testing.T) {
	srv := stubBackend(t, `{"uuid":"u1"}`, http.StatusOK)
	c := newClient(t, srv.URL)

	_, err := auth.Login(context.Background(), c, domain.Credentials{Email: "a@b.com", Password: "x"})
	if !errors.Is(err, auth.ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}
}

func TestLoginValidatesBeforeSending(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1/")
	_, err := auth.Login(context.Background(), c, domain.Credentials{Email: "a@b.com"})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
}

func TestValidateToken(t *testing.T) {
	srv := stubBackend(t, `{}`, http.StatusOK)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	v := auth.ValidateToken(ctx, c, "t1")
	if !v.IsValid || v.User == nil || v.User.Token != "t1" || v.User.FirstName != "Ada" {
		t.Errorf("Expected valid user with token, got %+v", v)
	}

	if v := auth.ValidateToken(ctx, c, "bad"); v.IsValid || v.User != nil {
		t.Errorf("Expected invalid, got %+v", v)
	}
	if v := auth.ValidateToken(ctx, c, ""); v.IsValid {
		t.Error("Expected empty token to be invalid")
	}

	down := newClient(t, "http://127.0.0.1:1/")
	if v := auth.ValidateToken(ctx, down, "t1"); v.IsValid {
		t.Error("Expected network failure to be invalid")
	}
}

func TestRestoreSession(t *testing.T) {
	srv := stubBackend(t, `{}`, http.StatusOK)
	c := newClient(t, srv.URL)
	ctx := context.Background()
	storage := store.NewMemory()

	s, err := auth.RestoreSession(ctx, c, storage)
	if err != nil || s != nil {
		t.Fatalf("Expected nothing to restore, got %+v, %v", s, err)
	}

	_ = storage.Set(ctx, store.KeyAuthToken, "t1")
	s, err = auth.RestoreSession(ctx, c, storage)
	if err != nil || s == nil || s.UUID != "u1" || s.Token != "t1" {
		t.Fatalf("RestoreSession = %+v, %v", s, err)
	}

	_ = storage.Set(ctx, store.KeyAuthToken, "stale")
	if s, _ := auth.RestoreSession(ctx, c, storage); s != nil {
		t.Errorf("Expected stale token to restore nothing, got %+v", s)
	}
}

func TestLogoutKeepsPreferences(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemory()
	st := appstate.NewStore(appstate.Initial())
	st.Dispatch(appstate.SetLanguage{Language: "fr"})
	st.Dispatch(appstate.SetFontLoaded{Loaded: true})
	st.Dispatch(appstate.SetSession{Session: &domain.Session{Token: "t1", Email: "a@b.com"}})
	_ = auth.PersistSession(ctx, storage, st.State().Session)
	_ = storage.Set(ctx, store.KeyLanguage, "fr")

	if err := auth.Logout(ctx, st, storage); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	s := st.State()
	if s.Session != nil || s.Language != "fr" || !s.FontLoaded {
		t.Errorf("Unexpected state after logout: %+v", s)
	}
	if _, ok, _ := storage.Get(ctx, store.KeyAuthToken); ok {
		t.Error("Expected token removed")
	}
	if v, _, _ := storage.Get(ctx, store.KeyLanguage); v != "fr" {
		t.Errorf("Expected language kept, got %q", v)
	}
}

func TestAgainstDevelopmentBackend(t *testing.T) {
	s := api.NewServer(api.ServerOptions{})
	if _, err := s.Repo.CreateUser("a@b.com", "secret", "", ""); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	srv := httptest.NewServer(s.Router)
	defer srv.Close()

	ctx := context.Background()
	st := appstate.NewStore(appstate.Initial())
	storage := store.NewMemory()
	c, err := apiclient.New(srv.URL, apiclient.WithTokenSource(st.Token))
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}

	if _, err := auth.SignIn(ctx, c, st, storage, domain.Credentials{Email: "a@b.com", Password: "wrong"}); !apiclient.IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("Expected 400 for bad password, got %v", err)
	}

	session, err := auth.SignIn(ctx, c, st, storage, domain.Credentials{Email: "a@b.com", Password: "secret"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	restored, err := auth.RestoreSession(ctx, c, storage)
	if err != nil || restored == nil || restored.UUID != session.UUID {
		t.Fatalf("RestoreSession = %+v, %v", restored, err)
	}

	if _, err := c.CreateTeam(ctx, &domain.Team{Name: "Support"}); err != nil {
		t.Fatalf("CreateTeam with session token: %v", err)
	}

	registered, err := auth.Register(ctx, c, domain.Credentials{Email: "new@b.com", Password: "pw"})
	if err != nil || registered == nil || registered.Token == "" {
		t.Fatalf("Register = %+v, %v", registered, err)
	}
}
