package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/studyfork/bookchat/internal/rag"
)

// FakeEmbedder produces deterministic vectors derived from a SHA-256 hash
// of the input text. Identical texts always map to identical vectors, so
// similarity-dependent tests are reproducible without a model backend.
type FakeEmbedder struct {
	Dim int // vector dimensionality, defaults to 768
	Err error

	mu    sync.Mutex
	calls int
}

// Embed returns the deterministic vector for text.
func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	dim := f.Dim
	if dim <= 0 {
		dim = 768
	}

	sum := sha256.Sum256([]byte(text))
	vector := make([]float32, dim)
	for i := range vector {
		// Cycle through the digest, reseeding with the index so long
		// vectors do not repeat every 32 bytes.
		word := binary.BigEndian.Uint32(sum[(i*4)%28:])
		vector[i] = float32(word%2000)/1000 - 1 // [-1, 1)
	}
	return vector, nil
}

// Calls reports how many times Embed was invoked.
func (f *FakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeGenerator returns scripted answers in order, then repeats the last
// one. An empty script yields ErrNoScript.
type FakeGenerator struct {
	Answers []string
	Err     error

	mu    sync.Mutex
	calls int
}

// ErrNoScript is returned when a FakeGenerator has no scripted answers.
var ErrNoScript = errors.New("fake generator has no scripted answers")

// Generate returns the next scripted answer.
func (f *FakeGenerator) Generate(_ context.Context, _ string, _ []rag.Passage, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Answers) == 0 {
		return "", ErrNoScript
	}
	idx := min(f.calls-1, len(f.Answers)-1)
	return f.Answers[idx], nil
}

// Calls reports how many times Generate was invoked.
func (f *FakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
