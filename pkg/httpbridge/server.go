// Package httpbridge exposes the chat loop over HTTP and WebSocket and
// provides a client for a remote server.
package httpbridge

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/soypete/calchat/pkg/conversation"
)

// DefaultVersion is reported by GET / when no version is set
const DefaultVersion = "1.0.0"

// Chatter answers one user message given the caller's history
type Chatter interface {
	Chat(ctx context.Context, userMessage string, history conversation.History, userEmail string) (string, conversation.History, error)
}

// Server represents the HTTP server
type Server struct {
	chat     Chatter
	version  string
	mux      *http.ServeMux
	upgrader websocket.Upgrader
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithVersion sets the version reported by GET /
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		if version != "" {
			s.version = version
		}
	}
}

// NewServer creates a new HTTP server around chat
func NewServer(chat Chatter, opts ...ServerOption) *Server {
	s := &Server{
		chat:    chat,
		version: DefaultVersion,
		mux:     http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/chat", s.handleChat)
	s.mux.HandleFunc("/reset", s.handleReset)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the routes wrapped in the CORS and metrics middleware
func (s *Server) Handler() http.Handler {
	return withMetrics(withCORS(s.mux))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}
	return nil
}
