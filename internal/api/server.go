// Package api exposes the reconciliation engine and session history over
// HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reconware/pos-reconcile-backend/internal/api/handlers"
	"github.com/reconware/pos-reconcile-backend/internal/api/middleware"
	"github.com/reconware/pos-reconcile-backend/internal/application/reconcile"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	defaults   model.Options
}

// NewServer creates a new API server over the given repository, which serves
// as both the point-of-sale store and the session history.
func NewServer(cfg Config, repo storage.Repository, defaults model.Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		repo:     repo,
		defaults: defaults,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	orchestrator := reconcile.NewOrchestrator(s.repo, s.repo, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		reconcileHandler := handlers.NewReconcileHandler(orchestrator, s.defaults)
		r.Post("/reconcile", reconcileHandler.Create)

		sessionsHandler := handlers.NewSessionsHandler(s.repo)
		r.Get("/sessions", sessionsHandler.List)
		r.Get("/sessions/{id}", sessionsHandler.Get)

		statsHandler := handlers.NewStatsHandler(s.repo)
		r.Get("/stats", statsHandler.Get)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
