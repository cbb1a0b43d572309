// Package httpapi exposes the swap Service over JSON HTTP.
//
// Every route under /api except /api/health requires an
// "Authorization: Bearer <token>" header. Failures are returned as
//
//	{"error":{"code":"CONFLICT","message":"...","retryable":true}}
//
// with the HTTP status chosen from the slot.Code.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/slotswap/internal/swap"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Server hosts the slotswap API.
type Server struct {
	svc      *swap.Service
	verifier TokenVerifier
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithNow sets the time source for calendar DTSTAMP values.
func WithNow(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer builds a Server around svc.
func NewServer(svc *swap.Service, verifier TokenVerifier, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		verifier: verifier,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// RegisterRoutes registers API endpoints on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/events", s.authed(s.handleListEvents))
	mux.HandleFunc("POST /api/events", s.authed(s.handleCreateEvent))
	mux.HandleFunc("GET /api/events/calendar.ics", s.authed(s.handleCalendar))
	mux.HandleFunc("PUT /api/events/{id}", s.authed(s.handleUpdateEvent))
	mux.HandleFunc("DELETE /api/events/{id}", s.authed(s.handleDeleteEvent))

	mux.HandleFunc("GET /api/swappable-slots", s.authed(s.handleSwappable))
	mux.HandleFunc("GET /api/my-swappable-slots", s.authed(s.handleMySwappable))
	mux.HandleFunc("POST /api/swap-request", s.authed(s.handleSwapRequest))
	mux.HandleFunc("GET /api/incoming", s.authed(s.handleIncoming))
	mux.HandleFunc("GET /api/outgoing", s.authed(s.handleOutgoing))
	mux.HandleFunc("POST /api/swap-response/{requestId}", s.authed(s.handleSwapResponse))
}

// ListenAndServe runs an HTTP server on addr until ctx ends, then drains
// in-flight requests for at most shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	s.logger.Info("http api listening", "addr", addr)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
