// Package web exposes the connector building blocks over HTTP for
// non-Go callers: list connections, ping, query, and execute against any
// named profile.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/driftworks/sqlbridge/internal/pool"
)

// Server is the HTTP front end over a connector pool.
type Server struct {
	pool      *pool.Manager
	listen    string
	tokenHash string
	router    *chi.Mux
	srv       *http.Server
}

// NewServer creates a server. When tokenHash is non-empty, every /api
// route requires a bearer token matching the bcrypt hash.
func NewServer(mgr *pool.Manager, listen, tokenHash string) *Server {
	s := &Server{
		pool:      mgr,
		listen:    listen,
		tokenHash: tokenHash,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(Logger)

	s.router.Get("/healthz", s.handleHealthz)

	s.router.Route("/api", func(r chi.Router) {
		if s.tokenHash != "" {
			r.Use(BearerAuth(s.tokenHash))
		}
		r.Get("/connections", s.handleListConnections)
		r.Route("/connections/{name}", func(r chi.Router) {
			r.Get("/ping", s.handlePing)
			r.Post("/query", s.handleQuery)
			r.Post("/execute", s.handleExecute)
		})
	})
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("listen", s.listen).Msg("HTTP server started")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
