package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/extforge/extforge/internal/credential"
	"github.com/extforge/extforge/internal/event"
	"github.com/extforge/extforge/internal/identity"
	"github.com/extforge/extforge/internal/logging"
	"github.com/extforge/extforge/internal/project"
	"github.com/extforge/extforge/internal/template"
	"github.com/extforge/extforge/internal/workspace"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		CORSOrigins:  []string{"*"},
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // rounds and SSE have no upper bound
	}
}

// Deps are the services the handlers operate on.
type Deps struct {
	Workspaces  *workspace.Manager
	Projects    *project.Store
	Templates   *template.Catalog
	Credentials *credential.Resolver
	Bus         *event.Bus
}

// Server is the HTTP server.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server

	workspaces  *workspace.Manager
	projects    *project.Store
	templates   *template.Catalog
	credentials *credential.Resolver
	bus         *event.Bus
}

// New creates a new Server instance.
func New(cfg *Config, deps Deps) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		config:      cfg,
		router:      chi.NewRouter(),
		workspaces:  deps.Workspaces,
		projects:    deps.Projects,
		templates:   deps.Templates,
		credentials: deps.Credentials,
		bus:         deps.Bus,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		origins := s.config.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", identity.Header},
			ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s.router.Use(s.identityContext)
}

// identityContext middleware attributes the request to an identity.
func (s *Server) identityContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := identity.FromRequest(r)
		if err != nil {
			logging.Debug().Err(err).Msg("rejected identity")
			writeError(w, http.StatusUnauthorized, ErrCodeInvalidIdentity, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyIdentity, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	logging.Info().Int("port", s.config.Port).Msg("listening")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

type contextKey string

const contextKeyIdentity contextKey = "identity"

// getIdentity returns the caller's identity from context.
func getIdentity(ctx context.Context) identity.Identity {
	if id, ok := ctx.Value(contextKeyIdentity).(identity.Identity); ok {
		return id
	}
	return identity.Anonymous
}

// scopeOf returns the storage scope of the request's caller.
func scopeOf(r *http.Request) string {
	return getIdentity(r.Context()).Scope()
}

// workspaceFor returns the caller's workspace.
func (s *Server) workspaceFor(r *http.Request) *workspace.Workspace {
	return s.workspaces.Get(scopeOf(r))
}
