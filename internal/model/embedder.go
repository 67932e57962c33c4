// Package model wraps the Genkit Google AI plugin behind the small
// interfaces the pipeline consumes. All outbound model traffic flows
// through here, paced by a shared client-side limiter.
package model

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// VectorDimension must match the vector(768) column in the chunks table.
const VectorDimension int32 = 768

// Embedder converts query text into an embedding vector using a Genkit
// embedder. Safe for concurrent use.
type Embedder struct {
	embedder ai.Embedder
	limiter  *rate.Limiter
}

// NewEmbedder wraps a Genkit embedder. limiter may be nil to disable
// client-side pacing.
func NewEmbedder(embedder ai.Embedder, limiter *rate.Limiter) *Embedder {
	return &Embedder{embedder: embedder, limiter: limiter}
}

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	dim := VectorDimension
	req := &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	}
	resp, err := e.embedder.Embed(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embed query: empty response")
	}

	return resp.Embeddings[0].Embedding, nil
}
