package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"promptd/internal/authz"
	"promptd/internal/config"
	"promptd/internal/oauth"
	"promptd/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout is the timeout for writing responses.
	DefaultWriteTimeout = 120 * time.Second
	// DefaultIdleTimeout is the idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second
)

// Server serves promptd's HTTP API.
type Server struct {
	cfg             func() *config.Config
	flow            *oauth.Flow
	tokens          *oauth.TokenStore
	engine          *authz.Engine
	callbackHandler *oauth.Handler
	callbackPath    string

	httpServer *http.Server
}

// NewServer creates a promptd HTTP server. The cfg function returns the
// current configuration snapshot so that config reloads are picked up
// without restarting the server.
func NewServer(cfg func() *config.Config, flow *oauth.Flow, tokens *oauth.TokenStore, engine *authz.Engine, callbackPath string) *Server {
	return &Server{
		cfg:             cfg,
		flow:            flow,
		tokens:          tokens,
		engine:          engine,
		callbackHandler: oauth.NewHandler(flow),
		callbackPath:    callbackPath,
	}
}

// CreateMux builds the HTTP mux with all API routes registered.
func (s *Server) CreateMux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("GET /api/prompts", s.handleListPrompts)
	mux.HandleFunc("GET /api/servers", s.handleListServers)
	mux.HandleFunc("POST /api/authorize/{server}", s.handleAuthorize)
	mux.HandleFunc("DELETE /api/tokens/{server}", s.handleDeleteToken)

	mux.Handle("GET "+s.callbackPath, s.callbackHandler)

	return mux
}

// Start begins serving on the given address and blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.CreateMux(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	logging.Info("HTTP", "Listening on %s", addr)
	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
