package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowState struct {
	count int
	start time.Time
}

// MemoryStore keeps window counters in process memory. Intended for tests
// and single-instance development runs; production uses PostgresStore.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*windowState
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*windowState),
		now:     time.Now,
	}
}

// Increment implements Store.
func (m *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	state, ok := m.windows[key]
	if !ok || now.Sub(state.start) >= window {
		state = &windowState{start: now}
		m.windows[key] = state
	}
	state.count++

	return state.count, state.start, nil
}
