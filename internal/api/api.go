// Package api provides the HTTP server for LockIn.
//
// It receives the Twilio inbound webhook and exposes read-only admin endpoints
// for health, weekly reports, token balances and registered schedules.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/scoring"
	"github.com/BTreeMap/LockIn/internal/store"
	"github.com/BTreeMap/LockIn/internal/tokens"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// ShutdownTimeout bounds graceful shutdown of in-flight requests.
const ShutdownTimeout = 10 * time.Second

// ScheduleLister lists the registered recurring jobs.
type ScheduleLister interface {
	Entries() []models.ScheduleEntry
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr      string
	Webhook   http.HandlerFunc
	Schedules ScheduleLister
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithTwilioWebhook mounts the transport's webhook handler at POST /webhook/twilio.
func WithTwilioWebhook(h http.HandlerFunc) Option {
	return func(o *Opts) { o.Webhook = h }
}

// WithSchedules exposes the scheduler's entries at GET /schedules.
func WithSchedules(s ScheduleLister) Option {
	return func(o *Opts) { o.Schedules = s }
}

// Server serves the webhook and admin endpoints.
type Server struct {
	addr      string
	st        store.Store
	scoring   *scoring.Engine
	ledger    *tokens.Ledger
	webhook   http.HandlerFunc
	schedules ScheduleLister
}

// NewServer creates a Server reading from st.
func NewServer(st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		addr:      cfg.Addr,
		st:        st,
		scoring:   scoring.NewEngine(st),
		ledger:    tokens.NewLedger(st),
		webhook:   cfg.Webhook,
		schedules: cfg.Schedules,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("POST /webhook/twilio", s.twilioWebhookHandler)
	mux.HandleFunc("GET /users/{id}/weekly", s.weeklyHandler)
	mux.HandleFunc("GET /users/{id}/tokens", s.tokensHandler)
	mux.HandleFunc("GET /schedules", s.schedulesHandler)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown failed: %w", err)
		}
		return nil
	}
}
