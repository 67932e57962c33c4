package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Dependency names reported by /health.
const (
	depDatabase    = "database"
	depVectorStore = "vector_store"
	depModel       = "model"
)

// Pinger checks one dependency. Implementations must respect ctx.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status       string            `json:"status"` // healthy, degraded, unhealthy
	Dependencies map[string]string `json:"dependencies"`
	Timestamp    time.Time         `json:"timestamp"`
}

type healthHandler struct {
	database    Pinger
	vectorStore Pinger
	model       Pinger
	timeout     time.Duration
	logger      *slog.Logger
}

// check handles GET /health. Dependencies are probed concurrently; the
// slowest probe bounds the response time, capped by the handler timeout.
//
// Status mapping: every core dependency up is healthy (200); vector store
// or model down is unhealthy (503); only the session database down is
// degraded (200), because answering can proceed without session
// bookkeeping.
func (h *healthHandler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	deps := map[string]Pinger{
		depDatabase:    h.database,
		depVectorStore: h.vectorStore,
		depModel:       h.model,
	}

	var mu sync.Mutex
	states := make(map[string]string, len(deps))

	g, ctx := errgroup.WithContext(ctx)
	for name, pinger := range deps {
		g.Go(func() error {
			state := "up"
			if err := pinger.Ping(ctx); err != nil {
				h.logger.Warn("dependency check failed", "dependency", name, "error", err)
				state = "down"
			}
			mu.Lock()
			states[name] = state
			mu.Unlock()
			return nil
		})
	}
	// Probes report through states, never through an error.
	_ = g.Wait()

	status := "healthy"
	httpStatus := http.StatusOK
	switch {
	case states[depVectorStore] == "down" || states[depModel] == "down":
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case states[depDatabase] == "down":
		status = "degraded"
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:       status,
		Dependencies: states,
		Timestamp:    time.Now().UTC(),
	})
}

// readiness reports whether the server can accept traffic at all. It only
// pings the connection pool; deep dependency checks belong to /health.
func readiness(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pool.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}
