package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/studyfork/bookchat/db"
	"github.com/studyfork/bookchat/internal/api"
	"github.com/studyfork/bookchat/internal/config"
	"github.com/studyfork/bookchat/internal/corpus"
	"github.com/studyfork/bookchat/internal/model"
	"github.com/studyfork/bookchat/internal/rag"
	"github.com/studyfork/bookchat/internal/ratelimit"
	"github.com/studyfork/bookchat/internal/session"
)

// Outbound pacing toward the model provider, shared by embedding and
// generation calls. 10 requests/sec sustained, burst of 30.
const (
	outboundRate  = 10
	outboundBurst = 30
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	a.Corpus = corpus.New(pool, logger)
	a.Sessions = session.New(pool)
	a.Limiter = ratelimit.NewLimiter(
		ratelimit.NewPostgresStore(pool),
		ratelimit.Config{
			MaxRequests: cfg.RateLimitRequests,
			Window:      cfg.RateLimitWindow(),
			FailOpen:    cfg.RateLimitFailOpen,
		},
		logger,
	)

	outbound := rate.NewLimiter(outboundRate, outboundBurst)
	generator := model.NewGenerator(g, model.GeneratorConfig{
		ModelName:   cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, outbound)

	a.Pipeline = rag.NewPipeline(
		model.NewEmbedder(embedder, outbound),
		a.Corpus,
		generator,
		a.Sessions,
		rag.Options{
			TopK: cfg.TopK,
			Classifier: rag.Classifier{
				High:   cfg.HighThreshold,
				Medium: cfg.MediumThreshold,
			},
			StageTimeout:    cfg.StageTimeout(),
			GenerateTimeout: cfg.GenerateTimeout(),
			Retry:           rag.DefaultRetryConfig(),
		},
		logger,
	)

	srv, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		ChatService: a.Pipeline,
		Limiter:     a.Limiter,
		Database:    api.PingerFunc(pool.Ping),
		VectorStore: a.Corpus,
		Model:       api.PingerFunc(model.NewHealthChecker().Check),
		Pool:        pool,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	a.Handler = srv.Handler()

	return a, nil
}

// provideDBPool runs migrations, then opens and verifies the pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the Google AI plugin. The plugin
// reads GEMINI_API_KEY from the environment.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai plugin")
	}
	return g, nil
}

// provideEmbedder resolves the configured embedder model.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
}
