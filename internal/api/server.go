// Package api exposes the screening engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opencomm/shrike/internal/domain"
	"github.com/opencomm/shrike/internal/feedback"
	"github.com/opencomm/shrike/internal/pattern"
	"github.com/opencomm/shrike/internal/reputation"
	"github.com/opencomm/shrike/internal/screening"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(
	cfg domain.ServerConfig,
	repo domain.Repository,
	cache domain.Cache,
	eventBus domain.EventBus,
	screener *screening.Screener,
	recorder *feedback.Recorder,
	store *reputation.Store,
	rules *pattern.CustomRules,
	version string,
) *Server {
	handler := NewHandler(repo, cache, eventBus, screener, recorder, store, rules, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Screening
	router.Post("/screen/call", handler.ScreenCall)
	router.Post("/screen/message", handler.ScreenMessage)
	router.Get("/decisions/{id}", handler.GetDecision)

	// Feedback
	router.Post("/feedback", handler.RecordFeedback)

	// Reputation
	router.Get("/reputation/{number}", handler.GetReputation)
	router.Post("/reputation/report", handler.ReportSpam)

	// Blocklist
	router.Get("/blocklist", handler.ListBlocked)
	router.Post("/blocklist", handler.AddBlock)
	router.Delete("/blocklist/{number}", handler.RemoveBlock)

	// Contacts
	router.Post("/contacts", handler.SaveContact)

	// Statistics
	router.Get("/stats", handler.GetStats)

	// Rule management
	router.Get("/rules", handler.ListRules)
	router.Post("/rules", handler.CreateRule)
	router.Post("/rules/reload", handler.ReloadRules)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
