package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RetryConfig configures the retry behavior for external service calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for embedding, retrieval,
// and generation calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category.
// Matched case-insensitively against err.Error().
//
// NOTE: string matching is used because the model SDKs do not expose
// typed errors for transient failures. Re-evaluate if that changes.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},     // provider-side rate limiting
	{"500", "502", "503", "504", "unavailable"}, // transient server errors
	// Network errors, including an expired per-attempt deadline. The
	// parent context is checked before this table, so a cancelled or
	// timed-out request still fails fast.
	{"connection reset", "timeout", "temporary", "deadline exceeded"},
}

// retryableError reports whether err is transient and should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, sub := range group {
			if strings.Contains(errStr, sub) {
				return true
			}
		}
	}
	return false
}

// withRetry runs fn with exponential backoff. Each attempt gets its own
// timeout-bounded context; the parent ctx cancels the whole loop. Only the
// orchestrator calls this — components never retry themselves.
func withRetry[T any](ctx context.Context, logger *slog.Logger, cfg RetryConfig, timeout time.Duration, stage string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := cfg.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := fn(attemptCtx)
		cancel()
		if err == nil {
			if attempt > 0 {
				logger.Debug("stage succeeded after retry",
					"stage", stage,
					"attempts", attempt+1,
					"elapsed", time.Since(start),
				)
			}
			return result, nil
		}

		lastErr = err

		// Non-retryable errors and client disconnects fail immediately.
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: %w", stage, ctx.Err())
		}
		if !retryableError(err) {
			return zero, fmt.Errorf("%s: %w", stage, err)
		}

		if attempt == cfg.MaxRetries {
			break
		}

		logger.Debug("retrying stage after error",
			"stage", stage,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s: %w", stage, ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, cfg.MaxInterval)
		}
	}

	return zero, fmt.Errorf("%s after %d retries (elapsed: %v): %w",
		stage, cfg.MaxRetries, time.Since(start), lastErr)
}
