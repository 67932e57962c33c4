// Package testutil provides shared testing utilities for the bookchat
// project: a disposable pgvector-enabled PostgreSQL container and
// deterministic fakes for the model-facing interfaces.
package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that discards all output.
// Use this in tests to reduce noise.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
