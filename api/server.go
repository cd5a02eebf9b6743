// Package api provides the HTTP surface for shoplens.
//
// Endpoints:
//
//	POST /api/chat   - run one analytics query (JSON request/response)
//	GET  /health     - liveness probe
//	GET  /ready      - readiness probe
//	GET  /           - embedded chat UI
//
// File structure:
//   - server.go: server setup and lifecycle
//   - middleware.go: HTTP middleware (request id, logging, recovery)
//   - chat.go: chat endpoint and error mapping
//   - health.go: health check endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shoplens/shoplens/internal/agent"
	"github.com/shoplens/shoplens/internal/log"
	"github.com/shoplens/shoplens/internal/web/static"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout prevents Slowloris-style slow header attacks.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout must exceed the agent budget so slow invocations can
	// still write their response.
	WriteTimeout = 150 * time.Second

	// IdleTimeout applies to keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Assistant runs one analytics query. The concrete implementation is
// *agent.Agent; tests substitute mocks, and alternative reasoning
// providers only need to satisfy this interface.
type Assistant interface {
	Run(ctx context.Context, storeURL, query string) (*agent.Result, error)
}

// Server is the HTTP server for the shoplens API and UI.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health *HealthHandler
	chat   *ChatHandler
}

// NewServer creates a server with all routes registered.
func NewServer(assistant Assistant, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:    mux,
		logger: logger,
		health: NewHealthHandler(assistant, logger),
		chat:   NewChatHandler(assistant, logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)

	// The UI is the fallback route; API patterns above are more
	// specific and take precedence.
	mux.Handle("GET /", static.Handler())

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → request id → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware, requestIDMiddleware, loggingMiddleware)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
