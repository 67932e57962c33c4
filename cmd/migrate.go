package cmd

import (
	"fmt"
	"log/slog"

	"github.com/studyfork/bookchat/db"
	"github.com/studyfork/bookchat/internal/config"
)

// runMigrate applies pending database migrations and exits. Useful for
// deployment pipelines that migrate before rolling the server.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	slog.Info("migrations applied",
		"host", cfg.PostgresHost,
		"database", cfg.PostgresDBName,
	)
	return nil
}
