// Package web serves the local workspace API: a JSON snapshot of the
// workspace, change pings over SSE and one endpoint per workspace operation.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/querydesk/internal/config"
	appmw "github.com/JonMunkholm/querydesk/internal/web/middleware"
	"github.com/JonMunkholm/querydesk/internal/workspace"
)

// Server is the HTTP server for the workspace API.
type Server struct {
	ws        *workspace.Orchestrator
	cfg       config.ServerConfig
	maxUpload int64
	router    *chi.Mux
	server    *http.Server
}

// NewServer creates a Server over ws. maxUpload bounds multipart bodies.
func NewServer(ws *workspace.Orchestrator, cfg config.ServerConfig, maxUpload int64) *Server {
	if maxUpload <= 0 {
		maxUpload = workspace.DefaultMaxFileSize
	}
	s := &Server{
		ws:        ws,
		cfg:       cfg,
		maxUpload: maxUpload,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: 0, // Disabled for SSE
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(appmw.Logger)
	s.router.Use(middleware.Recoverer)

	// Security hardening
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/events", s.handleEvents)

		// Tables and selection
		r.Post("/tables/refresh", s.handleRefreshTables)
		r.Delete("/tables/{tableID}", s.handleDeleteTable)
		r.Post("/select/{tableID}", s.handleSelectTable)
		r.Delete("/select", s.handleClearSelection)

		// Queries
		r.Post("/query", s.handleQuery)
		r.Get("/export.csv", s.handleExportCSV)
		r.Delete("/history", s.handleClearHistory)

		r.Post("/upload", s.handleUpload)
		r.Delete("/notifications/{id}", s.handleDismissNotification)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	slog.Info("starting workspace API", "addr", s.cfg.Addr())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json encode error", "error", err)
	}
}
