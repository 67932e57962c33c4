package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Fallback and disclaimer texts. Disclaimer presence is a function of the
// confidence tier and entry mode alone, never of generator output.
const (
	// FallbackAnswer is returned verbatim for LOW confidence. The generator
	// is never invoked in that branch.
	FallbackAnswer = "I couldn't find enough relevant information in the textbook to answer " +
		"your question about this topic. This may be because:\n\n" +
		"1. The topic isn't covered in this textbook\n" +
		"2. The question is phrased differently than the textbook content\n" +
		"3. This is an advanced topic beyond the scope of this course\n\n" +
		"Try rephrasing your question, or ask about specific topics from the " +
		"table of contents: Introduction to Physical AI, Humanoid Robotics, " +
		"ROS 2, Digital Twins, or VLA Systems."

	disclaimerLow              = "This topic may not be covered in the textbook."
	disclaimerMedium           = "Based on limited context from the textbook. The answer may be incomplete."
	disclaimerMediumContextual = "Based on the selected text and limited textbook context."
)

// Options configures a Pipeline.
type Options struct {
	TopK            int
	Classifier      Classifier
	StageTimeout    time.Duration // embedding and retrieval calls
	GenerateTimeout time.Duration // generation calls
	Retry           RetryConfig
}

// Pipeline orchestrates one chat request: rate-checked upstream, then
// embed → search → classify → generate-or-skip → respond. Stateless across
// requests; safe for concurrent use.
type Pipeline struct {
	embedder  Embedder
	searcher  Searcher
	generator Generator
	sessions  SessionStore
	opts      Options
	logger    *slog.Logger
}

// NewPipeline creates a pipeline with the given collaborators.
// logger may be nil (defaults to slog.Default()).
func NewPipeline(embedder Embedder, searcher Searcher, generator Generator, sessions SessionStore, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 10 * time.Second
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 30 * time.Second
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialInterval == 0 {
		opts.Retry = DefaultRetryConfig()
	}

	return &Pipeline{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		sessions:  sessions,
		opts:      opts,
		logger:    logger,
	}
}

// Ask runs the full pipeline for one query and assembles the response
// envelope. Stages execute strictly in order; a failed stage (after bounded
// retries) returns an error wrapping ErrUpstreamUnavailable.
func (p *Pipeline) Ask(ctx context.Context, q Query) (*Response, error) {
	sessionID := q.SessionID
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}

	// Lazy session creation + message count. Bookkeeping only — a session
	// store outage must not take the answer path down with it.
	if err := p.sessions.Touch(ctx, sessionID, q.ClientHash); err != nil {
		p.logger.Warn("session touch failed", "session_id", sessionID, "error", err)
	}

	vector, err := withRetry(ctx, p.logger, p.opts.Retry, p.opts.StageTimeout, "embedding query",
		func(ctx context.Context) ([]float32, error) {
			return p.embedder.Embed(ctx, q.embeddingText())
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	passages, err := withRetry(ctx, p.logger, p.opts.Retry, p.opts.StageTimeout, "vector search",
		func(ctx context.Context) ([]Passage, error) {
			return p.searcher.Search(ctx, vector, p.opts.TopK, q.ChapterSlug)
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	confidence := p.opts.Classifier.Classify(passages)

	p.logger.Debug("query classified",
		"session_id", sessionID,
		"passages", len(passages),
		"confidence", confidence.String(),
		"contextual", q.Contextual(),
	)

	switch confidence {
	case ConfidenceLow:
		// No adequate grounding: fixed fallback, generator skipped.
		return &Response{
			MessageID:  uuid.New(),
			SessionID:  sessionID,
			Answer:     FallbackAnswer,
			Confidence: ConfidenceLow,
			Sources:    []Source{},
			Disclaimer: ptr(disclaimerLow),
		}, nil

	case ConfidenceMedium, ConfidenceHigh:
		answer, err := withRetry(ctx, p.logger, p.opts.Retry, p.opts.GenerateTimeout, "answer generation",
			func(ctx context.Context) (string, error) {
				return p.generator.Generate(ctx, q.Message, passages, q.SelectedText)
			})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}

		return &Response{
			MessageID:  uuid.New(),
			SessionID:  sessionID,
			Answer:     answer,
			Confidence: confidence,
			Sources:    buildSources(passages),
			Disclaimer: disclaimerFor(confidence, q.Contextual()),
		}, nil

	default:
		// Unreachable: Classify returns a closed set of tiers.
		return nil, fmt.Errorf("unknown confidence tier %d", confidence)
	}
}

// embeddingText returns the text embedded for retrieval. In contextual mode
// the query and the selected excerpt are combined into a single
// representation so one vector drives the search.
func (q Query) embeddingText() string {
	if !q.Contextual() {
		return q.Message
	}
	return q.Message + "\n\n" + q.SelectedText
}

// disclaimerFor maps tier and entry mode to the response disclaimer.
func disclaimerFor(c Confidence, contextual bool) *string {
	if c != ConfidenceMedium {
		return nil
	}
	if contextual {
		return ptr(disclaimerMediumContextual)
	}
	return ptr(disclaimerMedium)
}

func ptr(s string) *string {
	return &s
}
