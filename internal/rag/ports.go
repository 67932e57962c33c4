package rag

import (
	"context"

	"github.com/google/uuid"
)

// Embedder turns text into a fixed-dimension vector. Deterministic for
// identical input; unavailability surfaces as a retrieval-stage failure.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher queries the vector index for the nearest passages to a query
// vector. Results carry full chunk content and raw scores, ordered by
// descending score, at most topK long.
// chapterSlug narrows the candidate set when non-empty. An empty corpus
// yields an empty slice, never an error.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int, chapterSlug string) ([]Passage, error)
}

// Generator produces an answer grounded in the given passages. Invoked only
// for HIGH and MEDIUM confidence; selectedText is empty outside contextual
// mode.
type Generator interface {
	Generate(ctx context.Context, query string, passages []Passage, selectedText string) (string, error)
}

// SessionStore persists conversation sessions. Touch lazily creates the
// session on first observation of an ID and increments its message count.
type SessionStore interface {
	Touch(ctx context.Context, id uuid.UUID, clientHash string) error
}
