// Package api provides HTTP handlers and the main API server logic for
// NorthForm.
//
// It exposes endpoints for decision analysis, conversational onboarding,
// social-source ingestion, and session-scoped profile management. The API
// integrates with the gateway, ingest, and store modules.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Punshui30/NF2/internal/gateway"
	"github.com/Punshui30/NF2/internal/ingest"
	"github.com/Punshui30/NF2/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a functional option for configuring the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server wires the HTTP surface to the service's backing components. The
// gateways may be nil when their provider credential is absent; affected
// endpoints then report a configuration error instead of crashing.
type Server struct {
	addr     string
	analysis *gateway.Gateway
	coach    *gateway.Gateway
	ingestor *ingest.Engine
	profiles store.Store
	srv      *http.Server
}

// NewServer creates an API server around the given components.
func NewServer(analysis, coach *gateway.Gateway, ingestor *ingest.Engine, profiles store.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		addr:     cfg.Addr,
		analysis: analysis,
		coach:    coach,
		ingestor: ingestor,
		profiles: profiles,
	}
}

// Handler builds the route table. Exposed separately from Run so tests can
// drive the full stack through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.analyzeHandler)
	mux.HandleFunc("/ingest", s.ingestHandler)
	mux.HandleFunc("/profile", s.profileHandler)
	mux.HandleFunc("/profile/merge", s.profileMergeHandler)
	mux.HandleFunc("/profile/completeness", s.completenessHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return corsMiddleware(mux)
}

// Run starts the HTTP server and blocks until the context is canceled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API server listening", "addr", s.addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server.Run: shutdown failed", "error", err)
			return err
		}
		slog.Info("Server.Run: API server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
