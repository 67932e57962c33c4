package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/studyfork/bookchat/internal/rag"
)

// Chunk is one indexed fragment of textbook content.
type Chunk struct {
	ID          string
	ChapterSlug string
	SectionID   string
	ChunkIndex  int
	Content     string
	Embedding   []float32
}

// Querier is the database surface Store needs. *pgxpool.Pool satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists chunks and answers similarity queries.
// Safe for concurrent use.
type Store struct {
	db     Querier
	logger *slog.Logger
}

// New creates a Store. logger may be nil.
func New(db Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Add upserts chunks along with their embeddings.
func (s *Store) Add(ctx context.Context, chunks ...Chunk) error {
	const query = `
		INSERT INTO chunks (id, chapter_slug, section_id, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			chapter_slug = EXCLUDED.chapter_slug,
			section_id = EXCLUDED.section_id,
			chunk_index = EXCLUDED.chunk_index,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`

	for _, c := range chunks {
		_, err := s.db.Exec(ctx, query,
			c.ID, c.ChapterSlug, c.SectionID, c.ChunkIndex, c.Content,
			pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
		}
	}

	s.logger.Debug("chunks upserted", "count", len(chunks))
	return nil
}

// Search returns the topK most similar chunks as passages, ordered by
// descending similarity. Passages carry the full chunk content and the raw
// score; any display shaping is the caller's concern. chapterSlug narrows
// the search to one chapter when non-empty. Cosine similarity is computed
// as 1 - cosine distance.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, chapterSlug string) ([]rag.Passage, error) {
	query := `
		SELECT chapter_slug, COALESCE(section_id, ''), content, 1 - (embedding <=> $1) AS score
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2`
	args := []any{pgvector.NewVector(vector), topK}

	if chapterSlug != "" {
		query = `
			SELECT chapter_slug, COALESCE(section_id, ''), content, 1 - (embedding <=> $1) AS score
			FROM chunks
			WHERE chapter_slug = $3
			ORDER BY embedding <=> $1
			LIMIT $2`
		args = append(args, chapterSlug)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	passages := make([]rag.Passage, 0, topK)
	for rows.Next() {
		var (
			slug, sectionID, content string
			score                    float64
		)
		if err := rows.Scan(&slug, &sectionID, &content, &score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		passages = append(passages, rag.Passage{
			ChapterSlug:  slug,
			ChapterTitle: ChapterTitle(slug),
			SectionID:    sectionID,
			Content:      content,
			Score:        score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}

	return passages, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Ping verifies the chunks table is reachable. Used by the health surface.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, `SELECT 1 FROM chunks LIMIT 1`).Scan(&one); err != nil {
		// An empty table is healthy; only transport errors count.
		if err == pgx.ErrNoRows {
			return nil
		}
		return fmt.Errorf("ping chunks: %w", err)
	}
	return nil
}
