package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vector   []float32
	err      error
	calls    int
	lastText string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	f.lastText = text
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeSearcher struct {
	passages    []Passage
	err         error
	lastTopK    int
	lastChapter string
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, topK int, chapterSlug string) ([]Passage, error) {
	f.lastTopK = topK
	f.lastChapter = chapterSlug
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

type fakeGenerator struct {
	answer       string
	err          error
	calls        int
	lastText     string
	lastPassages []Passage
}

func (f *fakeGenerator) Generate(_ context.Context, query string, passages []Passage, selectedText string) (string, error) {
	f.calls++
	f.lastText = selectedText
	f.lastPassages = passages
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeSessions struct {
	err    error
	lastID uuid.UUID
	calls  int
}

func (f *fakeSessions) Touch(_ context.Context, id uuid.UUID, _ string) error {
	f.calls++
	f.lastID = id
	return f.err
}

func newTestPipeline(e *fakeEmbedder, s *fakeSearcher, g *fakeGenerator, sess *fakeSessions) *Pipeline {
	return NewPipeline(e, s, g, sess, Options{
		TopK:            3,
		Classifier:      Classifier{High: 0.7, Medium: 0.4},
		StageTimeout:    time.Second,
		GenerateTimeout: time.Second,
		Retry:           RetryConfig{MaxRetries: 0, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	}, nil)
}

func TestAsk_HighConfidence(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	searcher := &fakeSearcher{passages: passagesWithTop(0.85)}
	generator := &fakeGenerator{answer: "ROS 2 nodes communicate over topics using a publish/subscribe model."}
	sessions := &fakeSessions{}

	p := newTestPipeline(embedder, searcher, generator, sessions)

	resp, err := p.Ask(context.Background(), Query{Message: "How do ROS 2 nodes communicate?", ClientHash: "abc"})
	require.NoError(t, err)

	assert.Equal(t, ConfidenceHigh, resp.Confidence)
	assert.Equal(t, generator.answer, resp.Answer)
	assert.Len(t, resp.Sources, 2)
	assert.Nil(t, resp.Disclaimer)
	assert.NotEqual(t, uuid.Nil, resp.MessageID)
	assert.NotEqual(t, uuid.Nil, resp.SessionID)
	assert.Equal(t, 1, generator.calls)
}

func TestAsk_GeneratorGroundsOnFullContent(t *testing.T) {
	longContent := strings.Repeat("ROS 2 topics carry typed messages between nodes. ", 20)
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	searcher := &fakeSearcher{passages: []Passage{{
		ChapterSlug:  "ros2-fundamentals",
		ChapterTitle: "ROS 2 Fundamentals",
		SectionID:    "ros2-fundamentals#nodes-and-topics",
		Content:      longContent,
		Score:        0.84379,
	}}}
	generator := &fakeGenerator{answer: "ok"}

	p := newTestPipeline(embedder, searcher, generator, &fakeSessions{})

	resp, err := p.Ask(context.Background(), Query{Message: "What are topics?"})
	require.NoError(t, err)

	// The generator receives what retrieval found, untouched.
	require.Len(t, generator.lastPassages, 1)
	assert.Equal(t, longContent, generator.lastPassages[0].Content)
	assert.Equal(t, 0.84379, generator.lastPassages[0].Score)

	// Only the response envelope carries the display form.
	require.Len(t, resp.Sources, 1)
	assert.Len(t, []rune(resp.Sources[0].Excerpt), 203)
	assert.True(t, strings.HasPrefix(longContent, strings.TrimSuffix(resp.Sources[0].Excerpt, "...")))
	assert.Equal(t, 0.844, resp.Sources[0].Score)
	assert.Equal(t, "Nodes And Topics", resp.Sources[0].SectionTitle)
}

func TestAsk_MediumConfidenceDisclaimer(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	searcher := &fakeSearcher{passages: passagesWithTop(0.5)}
	generator := &fakeGenerator{answer: "partial answer"}

	p := newTestPipeline(embedder, searcher, generator, &fakeSessions{})

	resp, err := p.Ask(context.Background(), Query{Message: "What is a digital twin?"})
	require.NoError(t, err)

	assert.Equal(t, ConfidenceMedium, resp.Confidence)
	require.NotNil(t, resp.Disclaimer)
	assert.Equal(t, disclaimerMedium, *resp.Disclaimer)
	assert.Equal(t, 1, generator.calls)
	assert.NotEmpty(t, resp.Sources)
}

func TestAsk_LowConfidenceSkipsGenerator(t *testing.T) {
	tests := []struct {
		name     string
		passages []Passage
	}{
		{"no passages", nil},
		{"all below medium", passagesWithTop(0.2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &fakeEmbedder{vector: []float32{0.1}}
			searcher := &fakeSearcher{passages: tt.passages}
			generator := &fakeGenerator{answer: "should never be used"}

			p := newTestPipeline(embedder, searcher, generator, &fakeSessions{})

			resp, err := p.Ask(context.Background(), Query{Message: "What is quantum gravity?"})
			require.NoError(t, err)

			assert.Equal(t, ConfidenceLow, resp.Confidence)
			assert.Equal(t, FallbackAnswer, resp.Answer)
			assert.Empty(t, resp.Sources)
			require.NotNil(t, resp.Disclaimer)
			assert.Equal(t, disclaimerLow, *resp.Disclaimer)
			assert.Zero(t, generator.calls, "generator must not run for low confidence")
		})
	}
}

func TestAsk_ContextualMode(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	searcher := &fakeSearcher{passages: passagesWithTop(0.5)}
	generator := &fakeGenerator{answer: "explanation"}

	p := newTestPipeline(embedder, searcher, generator, &fakeSessions{})

	q := Query{
		Message:      "Explain this passage",
		SelectedText: "Nodes communicate over topics using DDS.",
		ChapterSlug:  "ros2-fundamentals",
	}
	resp, err := p.Ask(context.Background(), q)
	require.NoError(t, err)

	// Query and excerpt embed as one combined text; the search is scoped
	// to the selection's chapter.
	assert.Contains(t, embedder.lastText, q.Message)
	assert.Contains(t, embedder.lastText, q.SelectedText)
	assert.Equal(t, "ros2-fundamentals", searcher.lastChapter)
	assert.Equal(t, q.SelectedText, generator.lastText)

	require.NotNil(t, resp.Disclaimer)
	assert.Equal(t, disclaimerMediumContextual, *resp.Disclaimer)
}

func TestAsk_ContextualLowStaysLow(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	searcher := &fakeSearcher{passages: passagesWithTop(0.3)}
	generator := &fakeGenerator{}

	p := newTestPipeline(embedder, searcher, generator, &fakeSessions{})

	resp, err := p.Ask(context.Background(), Query{
		Message:      "Explain this",
		SelectedText: "Some selected passage text.",
	})
	require.NoError(t, err)

	assert.Equal(t, ConfidenceLow, resp.Confidence)
	assert.Zero(t, generator.calls)
}

func TestAsk_SessionHandling(t *testing.T) {
	t.Run("generates id when absent", func(t *testing.T) {
		sessions := &fakeSessions{}
		p := newTestPipeline(
			&fakeEmbedder{vector: []float32{0.1}},
			&fakeSearcher{passages: passagesWithTop(0.8)},
			&fakeGenerator{answer: "ok"},
			sessions,
		)

		resp, err := p.Ask(context.Background(), Query{Message: "hi"})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, resp.SessionID)
		assert.Equal(t, resp.SessionID, sessions.lastID)
	})

	t.Run("reuses provided id", func(t *testing.T) {
		id := uuid.New()
		sessions := &fakeSessions{}
		p := newTestPipeline(
			&fakeEmbedder{vector: []float32{0.1}},
			&fakeSearcher{passages: passagesWithTop(0.8)},
			&fakeGenerator{answer: "ok"},
			sessions,
		)

		resp, err := p.Ask(context.Background(), Query{Message: "hi", SessionID: id})
		require.NoError(t, err)
		assert.Equal(t, id, resp.SessionID)
		assert.Equal(t, id, sessions.lastID)
	})

	t.Run("touch failure does not fail the request", func(t *testing.T) {
		sessions := &fakeSessions{err: errors.New("db down")}
		p := newTestPipeline(
			&fakeEmbedder{vector: []float32{0.1}},
			&fakeSearcher{passages: passagesWithTop(0.8)},
			&fakeGenerator{answer: "ok"},
			sessions,
		)

		resp, err := p.Ask(context.Background(), Query{Message: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Answer)
	})
}

func TestAsk_UpstreamFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		embedder  *fakeEmbedder
		searcher  *fakeSearcher
		generator *fakeGenerator
	}{
		{
			"embedder failure",
			&fakeEmbedder{err: boom},
			&fakeSearcher{passages: passagesWithTop(0.8)},
			&fakeGenerator{answer: "unused"},
		},
		{
			"searcher failure",
			&fakeEmbedder{vector: []float32{0.1}},
			&fakeSearcher{err: boom},
			&fakeGenerator{answer: "unused"},
		},
		{
			"generator failure",
			&fakeEmbedder{vector: []float32{0.1}},
			&fakeSearcher{passages: passagesWithTop(0.8)},
			&fakeGenerator{err: boom},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(tt.embedder, tt.searcher, tt.generator, &fakeSessions{})

			resp, err := p.Ask(context.Background(), Query{Message: "hi"})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUpstreamUnavailable)
			assert.Nil(t, resp)
		})
	}
}

func TestAsk_RetriesTransientErrors(t *testing.T) {
	embedder := &flakyEmbedder{failures: 2, vector: []float32{0.1}}
	searcher := &fakeSearcher{passages: passagesWithTop(0.8)}
	generator := &fakeGenerator{answer: "ok"}

	p := NewPipeline(embedder, searcher, generator, &fakeSessions{}, Options{
		TopK:            3,
		Classifier:      Classifier{High: 0.7, Medium: 0.4},
		StageTimeout:    time.Second,
		GenerateTimeout: time.Second,
		Retry:           RetryConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
	}, nil)

	resp, err := p.Ask(context.Background(), Query{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Answer)
	assert.Equal(t, 3, embedder.calls)
}

func TestAsk_RetriesStageDeadline(t *testing.T) {
	embedder := &flakyEmbedder{failures: 1, failWith: context.DeadlineExceeded, vector: []float32{0.1}}
	searcher := &fakeSearcher{passages: passagesWithTop(0.8)}
	generator := &fakeGenerator{answer: "ok"}

	p := NewPipeline(embedder, searcher, generator, &fakeSessions{}, Options{
		TopK:            3,
		Classifier:      Classifier{High: 0.7, Medium: 0.4},
		StageTimeout:    time.Second,
		GenerateTimeout: time.Second,
		Retry:           RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
	}, nil)

	// An expired per-attempt deadline is transient like any other timeout.
	resp, err := p.Ask(context.Background(), Query{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Answer)
	assert.Equal(t, 2, embedder.calls)
}

type flakyEmbedder struct {
	failures int
	failWith error
	vector   []float32
	calls    int
}

func (f *flakyEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		if f.failWith != nil {
			return nil, f.failWith
		}
		return nil, errors.New("503 service unavailable")
	}
	return f.vector, nil
}
