// Package session persists chat sessions. A session is created lazily on
// the first message that references it and tracks how many messages it
// has carried.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a session ID has no row.
var ErrNotFound = errors.New("session not found")

// Session is one conversation thread owned by a single client.
type Session struct {
	ID           uuid.UUID
	ClientHash   string
	CreatedAt    time.Time
	MessageCount int
}

// Querier is the database surface Store needs. *pgxpool.Pool satisfies it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists sessions in PostgreSQL. Safe for concurrent use.
type Store struct {
	db Querier
}

// New creates a Store on top of db.
func New(db Querier) *Store {
	return &Store{db: db}
}

// Touch creates the session if it does not exist and bumps its message
// count, in one statement. Create and increment racing for the same ID
// both land; the count never skips.
func (s *Store) Touch(ctx context.Context, id uuid.UUID, clientHash string) error {
	const query = `
		INSERT INTO sessions (id, client_hash, message_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (id) DO UPDATE SET
			message_count = sessions.message_count + 1
		RETURNING message_count`

	var count int
	if err := s.db.QueryRow(ctx, query, id, clientHash).Scan(&count); err != nil {
		return fmt.Errorf("touch session %s: %w", id, err)
	}
	return nil
}

// Get loads a session by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	const query = `
		SELECT id, client_hash, created_at, message_count
		FROM sessions
		WHERE id = $1`

	var sess Session
	err := s.db.QueryRow(ctx, query, id).Scan(
		&sess.ID, &sess.ClientHash, &sess.CreatedAt, &sess.MessageCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	return &sess, nil
}
