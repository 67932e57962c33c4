package model

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/studyfork/bookchat/internal/rag"
)

// GeneratorConfig configures answer generation.
type GeneratorConfig struct {
	ModelName   string
	Temperature float32
	MaxTokens   int
}

// Generator produces grounded answers from retrieved passages via Genkit.
// Safe for concurrent use.
type Generator struct {
	g       *genkit.Genkit
	cfg     GeneratorConfig
	limiter *rate.Limiter
}

// NewGenerator creates a Generator. limiter may be nil to disable
// client-side pacing.
func NewGenerator(g *genkit.Genkit, cfg GeneratorConfig, limiter *rate.Limiter) *Generator {
	return &Generator{g: g, cfg: cfg, limiter: limiter}
}

// Generate answers query using only the given passages. selectedText, when
// non-empty, is the textbook excerpt the student highlighted.
func (gen *Generator) Generate(ctx context.Context, query string, passages []rag.Passage, selectedText string) (string, error) {
	if gen.limiter != nil {
		if err := gen.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	response, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName("googleai/"+gen.cfg.ModelName),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt(buildPrompt(query, passages, selectedText)),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(gen.cfg.Temperature),
			MaxOutputTokens: int32(gen.cfg.MaxTokens),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	text := response.Text()
	if text == "" {
		return "", fmt.Errorf("generate answer: empty response")
	}

	return text, nil
}
