// Package api exposes the chat pipeline over HTTP: two chat endpoints,
// a dependency-aware health surface, and a readiness probe, behind a
// recovery/request-ID/logging/CORS/rate-limit middleware stack.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyfork/bookchat/internal/ratelimit"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	ChatService chatService        // Required
	Limiter     *ratelimit.Limiter // Required
	Database    Pinger             // Session store connectivity, may be nil
	VectorStore Pinger             // Required for /health
	Model       Pinger             // Required for /health
	Pool        *pgxpool.Pool      // Optional: nil disables pool ping in /ready
	CORSOrigins []string           // Allowed origins for CORS
	TrustProxy  bool               // Trust X-Real-IP/X-Forwarded-For headers
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.ChatService == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.Limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if cfg.VectorStore == nil || cfg.Model == nil {
		return nil, errors.New("vector store and model pingers are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{
		service:    cfg.ChatService,
		trustProxy: cfg.TrustProxy,
		logger:     logger,
	}

	database := cfg.Database
	if database == nil {
		database = PingerFunc(func(ctx context.Context) error { return nil })
	}

	hh := &healthHandler{
		database:    database,
		vectorStore: cfg.VectorStore,
		model:       cfg.Model,
		timeout:     5 * time.Second,
		logger:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/chat/context", ch.sendWithContext)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers without consuming budget.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(cfg.Limiter, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack so monitoring never
	// competes with clients for rate limit budget.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", hh.check)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/api/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
