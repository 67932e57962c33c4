package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
// Called once at startup; an invalid configuration is fatal.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. API key (required for embedding and generation)
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	// 2. Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 65536 {
		return fmt.Errorf("%w: must be between 1 and 65,536, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// 3. Retrieval configuration
	if c.TopK < 1 || c.TopK > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidTopK, c.TopK)
	}

	// 4. Confidence thresholds. Cosine similarity scores live in [0,1];
	// high must be strictly above medium or classification is ambiguous.
	if c.HighThreshold < 0 || c.HighThreshold > 1 {
		return fmt.Errorf("%w: confidence_high_threshold must be in [0,1], got %.3f",
			ErrInvalidThresholds, c.HighThreshold)
	}
	if c.MediumThreshold < 0 || c.MediumThreshold > 1 {
		return fmt.Errorf("%w: confidence_medium_threshold must be in [0,1], got %.3f",
			ErrInvalidThresholds, c.MediumThreshold)
	}
	if c.HighThreshold <= c.MediumThreshold {
		return fmt.Errorf("%w: confidence_high_threshold (%.3f) must be greater than confidence_medium_threshold (%.3f)",
			ErrInvalidThresholds, c.HighThreshold, c.MediumThreshold)
	}

	// 5. Rate limiting
	if c.RateLimitRequests < 1 {
		return fmt.Errorf("%w: rate_limit_requests must be positive, got %d",
			ErrInvalidRateLimit, c.RateLimitRequests)
	}
	if c.RateLimitWindowSeconds < 1 {
		return fmt.Errorf("%w: rate_limit_window_seconds must be positive, got %d",
			ErrInvalidRateLimit, c.RateLimitWindowSeconds)
	}

	// 6. Timeouts
	if c.StageTimeoutSeconds < 1 {
		return fmt.Errorf("%w: stage_timeout_seconds must be positive, got %d",
			ErrInvalidTimeout, c.StageTimeoutSeconds)
	}
	if c.GenerateTimeoutSeconds < 1 {
		return fmt.Errorf("%w: generate_timeout_seconds must be positive, got %d",
			ErrInvalidTimeout, c.GenerateTimeoutSeconds)
	}

	// 7. PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "bookchat_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"warning", "change postgres_password for production deployments")
	}

	// Modern SSL modes only — 'allow' and 'prefer' are MITM-vulnerable.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
