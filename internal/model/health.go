package model

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const providerEndpoint = "https://generativelanguage.googleapis.com/"

// HealthChecker probes the model provider for the health surface. It only
// verifies network reachability; it never spends model quota.
type HealthChecker struct {
	client   *http.Client
	endpoint string
}

// NewHealthChecker creates a checker against the Google AI endpoint.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		client:   &http.Client{Timeout: 5 * time.Second},
		endpoint: providerEndpoint,
	}
}

// Check reports whether the provider endpoint answers HTTP at all. Any
// response, including 4xx, proves reachability.
func (h *HealthChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint, nil)
	if err != nil {
		return fmt.Errorf("build provider probe: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe model provider: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("model provider returned %d", resp.StatusCode)
	}
	return nil
}
