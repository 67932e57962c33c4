package rag

import "errors"

// Sentinel errors for pipeline failures. Checked with errors.Is() at the
// transport layer to pick the right HTTP status.
var (
	// ErrUpstreamUnavailable indicates that embedding, retrieval, or
	// generation failed after retries were exhausted. Infrastructure
	// failures surface as errors, never as a low-confidence answer.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)
