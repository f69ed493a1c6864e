package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/planora/planora/pkg/middleware"
	"github.com/planora/planora/pkg/observability"
)

// Server composes the REST API: one handler group per resource behind
// a shared middleware chain.
type Server struct {
	router *mux.Router

	authHandlers      *AuthHandlers
	workspaceHandlers *WorkspaceHandlers
	memberHandlers    *MemberHandlers
	projectHandlers   *ProjectHandlers
	taskHandlers      *TaskHandlers
	auditHandlers     *AuditHandlers
}

// Config collects the dependencies of the API server.
type Config struct {
	Auth       *AuthHandlers
	Workspaces WorkspaceService
	Members    MembershipService
	Projects   ProjectService
	Tasks      TaskService
	Audit      AuditQuerier
	Guard      Authorizer

	Authenticator middleware.Authenticator
	// RateLimit is the global rate-limit middleware. When nil the
	// server falls back to the in-memory limiter.
	RateLimit mux.MiddlewareFunc
	Logger    *observability.Logger
	Metrics   *observability.Metrics
}

// NewServer creates the router and registers every route.
func NewServer(cfg Config) *Server {
	s := &Server{
		router:            mux.NewRouter(),
		authHandlers:      cfg.Auth,
		workspaceHandlers: NewWorkspaceHandlers(cfg.Workspaces),
		memberHandlers:    NewMemberHandlers(cfg.Members),
		projectHandlers:   NewProjectHandlers(cfg.Projects),
		taskHandlers:      NewTaskHandlers(cfg.Tasks),
	}
	if cfg.Audit != nil && cfg.Guard != nil {
		s.auditHandlers = NewAuditHandlers(cfg.Audit, cfg.Guard)
	}

	s.router.Use(middleware.RequestID)
	if cfg.Logger != nil {
		s.router.Use(middleware.Recovery(cfg.Logger))
	}
	if cfg.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(cfg.Metrics))
	}
	if cfg.Authenticator != nil {
		s.router.Use(middleware.NewAuthMiddleware(cfg.Authenticator, true).Handler)
	}
	// Rate limiting keys by user when authenticated, so it sits after
	// the auth middleware.
	if cfg.RateLimit != nil {
		s.router.Use(cfg.RateLimit)
	} else {
		s.router.Use(middleware.NewRateLimitMiddleware().Handler)
	}
	if cfg.Logger != nil {
		s.router.Use(middleware.Logging(cfg.Logger))
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/v1").Subrouter()

	if s.authHandlers != nil {
		s.authHandlers.RegisterRoutes(v1)
	}
	s.workspaceHandlers.RegisterRoutes(v1)
	s.memberHandlers.RegisterRoutes(v1)
	s.projectHandlers.RegisterRoutes(v1)
	s.taskHandlers.RegisterRoutes(v1)
	if s.auditHandlers != nil {
		s.auditHandlers.RegisterRoutes(v1)
	}
}

// Router exposes the underlying mux for route registration in tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the full HTTP handler, optionally traced.
func (s *Server) Handler(tracing bool) http.Handler {
	if tracing {
		return otelhttp.NewHandler(s.router, "planora-api")
	}
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
