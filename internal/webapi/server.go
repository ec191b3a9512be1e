// Package webapi exposes the agent over HTTP: a Server-Sent Events chat
// endpoint, a WebSocket variant, and a health check.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/agent"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/config"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/llm"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/logging"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/version"
)

// ConversationStore persists chat transcripts across requests. Satisfied by
// store.ConversationStore; nil disables persistence.
type ConversationStore interface {
	Ensure(sessionID, userName string) (string, error)
	AppendTurn(sessionID string, msg llm.Message) error
	History(sessionID string) ([]llm.Message, error)
}

// Server is the gmail-agent HTTP + WebSocket API server.
type Server struct {
	cfg           config.Config
	token         string
	log           *logging.Logger
	runner        *agent.Runner
	conversations ConversationStore
	version       string

	startedAt   time.Time
	httpServer  *http.Server
	upgrader    websocket.Upgrader
	authLimiter *authRateLimiter
}

// ServerOption configures the API server.
type ServerOption func(*Server)

// WithConversations sets the transcript store used to persist chats.
func WithConversations(cs ConversationStore) ServerOption {
	return func(s *Server) {
		s.conversations = cs
	}
}

// New creates a new API server.
func New(cfg config.Config, log *logging.Logger, runner *agent.Runner, opts ...ServerOption) *Server {
	s := &Server{
		cfg:         cfg,
		token:       ResolveToken(cfg.Auth),
		log:         log.Sub("webapi"),
		runner:      runner,
		version:     version.Version,
		authLimiter: newAuthRateLimiter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Same-origin or non-browser clients only
				return r.Header.Get("Origin") == ""
			},
		},
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/ws", s.handleChatWS)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Server)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: withMiddleware(mux, s.log),
		// No WriteTimeout: chat responses stream for as long as a run takes.
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.Server.Bind != "loopback" && s.cfg.Server.Bind != "" {
		s.log.Warn().Msg("serving beyond loopback — credentials will be transmitted in cleartext")
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Server.Bind).
		Bool("auth", s.token != "").
		Msg("api server ready")

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// handleHealth reports server liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
