// Package ratelimit implements fixed-window request limiting keyed by an
// opaque client identifier. Window state lives in a Store so limits hold
// across process restarts and multiple instances.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Store records request counts per client within fixed windows.
type Store interface {
	// Increment atomically bumps the counter for key, resetting it first
	// if the current window has expired. It returns the count after the
	// bump and the start of the window the count belongs to.
	Increment(ctx context.Context, key string, window time.Duration) (count int, windowStart time.Time, err error)
}

// Decision is the outcome of one admission check. A decision is final:
// callers must not retry a denied request within the same window.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the window resets. Zero when Allowed.
	RetryAfter time.Duration
}

// Limiter admits or rejects requests against a fixed-window budget.
// Safe for concurrent use; all state lives in the Store.
type Limiter struct {
	store    Store
	max      int
	window   time.Duration
	failOpen bool
	logger   *slog.Logger
	now      func() time.Time
}

// Config configures a Limiter.
type Config struct {
	MaxRequests int
	Window      time.Duration
	// FailOpen admits requests when the store is unreachable instead of
	// rejecting them. Off by default: an unavailable store denies.
	FailOpen bool
}

// NewLimiter creates a limiter backed by store. logger may be nil.
func NewLimiter(store Store, cfg Config, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		store:    store,
		max:      cfg.MaxRequests,
		window:   cfg.Window,
		failOpen: cfg.FailOpen,
		logger:   logger,
		now:      time.Now,
	}
}

// Admit checks and consumes one request slot for key. The check and the
// increment are a single store operation, so concurrent requests cannot
// both observe the last free slot.
func (l *Limiter) Admit(ctx context.Context, key string) Decision {
	count, windowStart, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		l.logger.Error("rate limit store unavailable",
			"error", err,
			"fail_open", l.failOpen,
		)
		if l.failOpen {
			return Decision{Allowed: true, Remaining: l.max}
		}
		return Decision{RetryAfter: l.window}
	}

	if count > l.max {
		retryAfter := l.window - l.now().Sub(windowStart)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return Decision{RetryAfter: retryAfter}
	}

	return Decision{Allowed: true, Remaining: l.max - count}
}
