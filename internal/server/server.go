package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/lunchwheel/internal/config"
	"github.com/me/lunchwheel/internal/google"
	"github.com/me/lunchwheel/internal/ratelimit"
)

// Server is the lunch wheel proxy API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	google    *google.Client
	limiter   *ratelimit.Limiter
	hostStats func() (hostStats, error)
	now       func() time.Time
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithLimiter sets the rate limiter shared by the proxy routes.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithGoogleClient replaces the client built from the server config.
func WithGoogleClient(c *google.Client) Option {
	return func(s *Server) {
		s.google = c
	}
}

// WithClock replaces time.Now for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a new Server with all routes registered.
// Without WithLimiter a private limiter is created; its sweep is not started.
func New(cfg config.ServerConfig, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		hostStats: readHostStats,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.google == nil {
		s.google = google.NewClient(google.ClientConfig{
			APIKey:        cfg.GoogleAPIKey,
			SigningSecret: cfg.SigningSecret,
			GeocodeURL:    cfg.GeocodeURL,
			PlacesURL:     cfg.PlacesURL,
			Timeout:       cfg.UpstreamTimeout,
		}, logger)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(ratelimit.WithLogger(logger))
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(s.preflightMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	r.Get("/", s.handleDiscovery)

	// The web front end calls /api/*; the bare paths serve other clients.
	r.Group(s.apiRoutes)
	r.Route("/api", s.apiRoutes)
}

func (s *Server) apiRoutes(r chi.Router) {
	r.Get("/test", s.handleTest)
	r.Get("/diagnostic", s.handleDiagnostic)

	// Proxy routes spend Google quota and are rate limited.
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Get("/geocode", s.handleGeocode)
		r.Get("/places", s.handlePlaces)
	})
}
