package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier is the database surface PostgresStore needs.
// *pgxpool.Pool satisfies it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists window counters in the rate_limits table so
// limits survive restarts and are shared across instances.
type PostgresStore struct {
	db Querier
}

// NewPostgresStore creates a store on top of db.
func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Increment implements Store with a single upsert. Window expiry and the
// counter bump resolve inside one statement, so two racing requests can
// never both claim the final slot.
func (s *PostgresStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	const query = `
		INSERT INTO rate_limits (client_hash, request_count, window_start)
		VALUES ($1, 1, now())
		ON CONFLICT (client_hash) DO UPDATE SET
			request_count = CASE
				WHEN now() - rate_limits.window_start >= make_interval(secs => $2)
				THEN 1
				ELSE rate_limits.request_count + 1
			END,
			window_start = CASE
				WHEN now() - rate_limits.window_start >= make_interval(secs => $2)
				THEN now()
				ELSE rate_limits.window_start
			END
		RETURNING request_count, window_start`

	var (
		count       int
		windowStart time.Time
	)
	err := s.db.QueryRow(ctx, query, key, window.Seconds()).Scan(&count, &windowStart)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("increment rate limit window: %w", err)
	}

	return count, windowStart, nil
}
