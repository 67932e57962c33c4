// Package app assembles the service: configuration, database pool, model
// plumbing, pipeline, limiter, and HTTP server, with teardown in the
// reverse order of construction.
package app

import (
	"log/slog"
	"net/http"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyfork/bookchat/internal/config"
	"github.com/studyfork/bookchat/internal/corpus"
	"github.com/studyfork/bookchat/internal/rag"
	"github.com/studyfork/bookchat/internal/ratelimit"
	"github.com/studyfork/bookchat/internal/session"
)

// App holds the assembled service.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Corpus   *corpus.Store
	Sessions *session.Store
	Limiter  *ratelimit.Limiter
	Pipeline *rag.Pipeline

	// Handler is the fully wired HTTP surface.
	Handler http.Handler
}

// Close releases all resources. Safe to call after a failed Setup.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}

	return nil
}
