// Package http provides the HTTP server and routing for the API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contentgraph/api/internal/config"
	"github.com/contentgraph/api/internal/infra/http/middleware"
	"github.com/contentgraph/api/pkg/logger"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	config     *config.Config
	logger     *logger.Logger
	limiter    *middleware.RateLimiter
}

// NewServer creates a new HTTP server with the global middleware stack
// applied. Register routes on Router() before calling Start.
func NewServer(cfg *config.Config, log *logger.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.CleanPath)
	r.Use(chimw.StripSlashes)

	limiter := middleware.NewRateLimiter(cfg.Server)

	// Order matters: recover outermost, then request id so everything
	// after logs with it.
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(limiter.Middleware())
	r.Use(middleware.Decompress())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodySize))
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Authenticate(cfg.Auth, log))

	s := &Server{
		router:  r,
		config:  cfg,
		logger:  log,
		limiter: limiter,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	return s
}

// Router returns the router for registering handlers.
func (s *Server) Router() chi.Router {
	return s.router
}

// MetricsHandler returns the Prometheus scrape handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.config.Server.Addr())

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	s.limiter.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
