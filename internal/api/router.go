package api

import (
	"net/http"
	"time"

	"github.com/ashureev/teamconsole/internal/chatws"
	"github.com/ashureev/teamconsole/internal/identity"
	"github.com/ashureev/teamconsole/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// ServerOptions configures NewServer.
type ServerOptions struct {
	AllowedOrigins []string
	SecureCookies  bool
	Respond        chatws.Responder
	RequestLogging bool
	// LoginRate caps sign-in and registration attempts per client per minute.
	// Zero means DefaultLoginRate.
	LoginRate int
}

// DefaultLoginRate is the per-minute sign-in allowance of one client.
const DefaultLoginRate = 20

// Server is the assembled development backend.
type Server struct {
	Repo     *MemoryRepository
	CSRF     *middleware.CSRF
	Sessions *chatws.SessionManager
	Router   http.Handler

	LoginLimiter *middleware.RateLimiter
}

// NewServer wires the repository, CSRF issuer, chat sockets and routes.
func NewServer(opts ServerOptions) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.LoginRate <= 0 {
		opts.LoginRate = DefaultLoginRate
	}

	s := &Server{
		Repo:     NewMemoryRepository(),
		CSRF:     middleware.NewCSRF(opts.SecureCookies),
		Sessions: chatws.NewSessionManager(),

		LoginLimiter: middleware.NewRateLimiter(opts.LoginRate, time.Minute),
	}
	h := NewHandler(s.Repo, s.Sessions)
	ws := chatws.NewWebSocketHandler(s.Repo, s.Sessions, opts.Respond)

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	if opts.RequestLogging {
		r.Use(chiMiddleware.Logger)
	}
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(opts.AllowedOrigins))

	// Public routes.
	r.Get("/api/csrf/", s.CSRF.Issue)
	r.Group(func(r chi.Router) {
		r.Use(s.LoginLimiter.Middleware)
		r.Post("/auth/login/", h.Login)
		r.Post("/auth/register/", h.Register)
	})

	// The socket authenticates with its first frame.
	r.Get("/ws/chat/{conversationID}/", ws.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(s.Repo))
		r.Use(s.CSRF.Middleware)

		r.Get("/auth/validate/", h.Validate)
		r.Post("/auth/logout/", h.Logout)

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", h.ListTeams)
			r.Post("/", h.CreateTeam)
			r.Get("/{teamID}/", h.GetTeam)
			r.Put("/{teamID}/", h.UpdateTeam)
			r.Delete("/{teamID}/", h.DeleteTeam)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/teams/{teamID}/", h.ListTeamAgents)
			r.Post("/teams/{teamID}/", h.CreateAgent)
			r.Get("/{agentID}/", h.GetAgent)
			r.Put("/{agentID}/", h.UpdateAgent)
			r.Delete("/{agentID}/", h.DeleteAgent)
			r.Get("/{agentID}/chat-history/", h.ChatHistory)
			r.Get("/{agentID}/knowledge-tags/", h.KnowledgeTags)
			r.Put("/{agentID}/knowledge-tags/", h.SetKnowledgeTags)
		})

		r.Post("/tools/create/", h.CreateTool)
		r.Put("/tools/modify/{toolID}/", h.ModifyTool)

		r.Get("/api-keys/", h.ListAPIKeys)
		r.Post("/api-keys/", h.CreateAPIKey)
		r.Delete("/api-keys/{keyID}/", h.DeleteAPIKey)

		r.Post("/chat/sessions/", h.CreateChatSession)
		r.Post("/chat/sessions/{sessionID}/close/", h.CloseChatSession)
	})

	s.Router = r
	return s
}

// RotateCSRF invalidates every issued CSRF token.
func (s *Server) RotateCSRF() {
	s.CSRF.Rotate()
}
