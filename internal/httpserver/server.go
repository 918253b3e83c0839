package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"accounts/backend/internal/config"
	"accounts/backend/internal/metrics"
	authusecase "accounts/backend/internal/usecase/auth"
	userusecase "accounts/backend/internal/usecase/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Log         *slog.Logger
	AuthService *authusecase.Service
	UserService *userusecase.Service
	Metrics     *metrics.Metrics
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer  *http.Server
	router      chi.Router
	log         *slog.Logger
	authService *authusecase.Service
	userService *userusecase.Service
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	cfg         config.HTTPConfig
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.HTTPConfig, deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	srv := &Server{
		router:      chi.NewRouter(),
		log:         log,
		authService: deps.AuthService,
		userService: deps.UserService,
		metrics:     deps.Metrics,
		gatherer:    deps.Gatherer,
		cfg:         cfg,
	}
	srv.registerRoutes()

	srv.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return srv
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(s.withRequestID, s.withAccessLog, withRecover, withCORS(s.cfg.AllowedOrigins))
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { writeAPIError(w, errNotFound) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) { writeAPIError(w, errMethod) })

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/users", s.handleCreateUser)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/users", s.handleListUsers)
			r.Get("/users/{id}", s.handleGetUser)
			r.Put("/users/{id}", s.handleUpdateUser)
			r.Delete("/users/{id}", s.handleDeleteUser)
		})
	})
}

// Handler exposes the routed handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP on the configured address. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
