// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.bookchat/config.yaml or ./config.yaml)
//  3. Default values
//
// Validation is fatal at startup: an invalid threshold ordering or a missing
// required setting must never surface at request time.
//
// Error Handling:
//   - Sentinel errors enable Go-idiomatic checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the generation model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidTopK indicates the retrieval top-k value is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top_k")

	// ErrInvalidThresholds indicates the confidence thresholds are out of
	// range or misordered (high must be strictly greater than medium).
	ErrInvalidThresholds = errors.New("invalid confidence thresholds")

	// ErrInvalidRateLimit indicates the rate limit ceiling or window is invalid.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidTimeout indicates a stage timeout is invalid.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultModelName is the default Gemini generation model.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions via
	// OutputDimensionality; the pgvector schema uses 768 dimensions.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultHighThreshold is the minimum top score for HIGH confidence.
	DefaultHighThreshold = 0.7

	// DefaultMediumThreshold is the minimum top score for MEDIUM confidence.
	DefaultMediumThreshold = 0.4

	// DefaultTopK is the default number of passages retrieved per query.
	DefaultTopK = 3

	// DefaultRateLimitRequests is the per-client request ceiling per window.
	DefaultRateLimitRequests = 100

	// DefaultRateLimitWindowSeconds is the fixed rate-limit window length.
	DefaultRateLimitWindowSeconds = 3600
)

// Config stores application configuration.
type Config struct {
	// Gemini model configuration
	ModelName     string  `mapstructure:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`

	// Retrieval configuration
	TopK            int     `mapstructure:"retrieval_top_k"`
	HighThreshold   float64 `mapstructure:"confidence_high_threshold"`
	MediumThreshold float64 `mapstructure:"confidence_medium_threshold"`

	// Rate limiting (fixed window, per hashed client identity)
	RateLimitRequests      int  `mapstructure:"rate_limit_requests"`
	RateLimitWindowSeconds int  `mapstructure:"rate_limit_window_seconds"`
	RateLimitFailOpen      bool `mapstructure:"rate_limit_fail_open"`

	// Per-stage timeouts for external calls
	StageTimeoutSeconds    int `mapstructure:"stage_timeout_seconds"`
	GenerateTimeoutSeconds int `mapstructure:"generate_timeout_seconds"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// HTTP server configuration
	ListenAddr  string   `mapstructure:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".bookchat")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine — defaults plus env cover everything.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for all configuration keys.
func setDefaults() {
	// Gemini defaults
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("temperature", 0.3)
	viper.SetDefault("max_tokens", 1000)

	// Retrieval defaults
	viper.SetDefault("retrieval_top_k", DefaultTopK)
	viper.SetDefault("confidence_high_threshold", DefaultHighThreshold)
	viper.SetDefault("confidence_medium_threshold", DefaultMediumThreshold)

	// Rate limit defaults
	viper.SetDefault("rate_limit_requests", DefaultRateLimitRequests)
	viper.SetDefault("rate_limit_window_seconds", DefaultRateLimitWindowSeconds)
	viper.SetDefault("rate_limit_fail_open", false)

	// Timeout defaults
	viper.SetDefault("stage_timeout_seconds", 10)
	viper.SetDefault("generate_timeout_seconds", 30)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "bookchat")
	viper.SetDefault("postgres_password", "bookchat_dev_password")
	viper.SetDefault("postgres_db_name", "bookchat")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// HTTP defaults
	viper.SetDefault("listen_addr", "127.0.0.1:8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("trust_proxy", false)
}

// bindEnvVariables binds selected keys to environment variables.
func bindEnvVariables() {
	// Hardcoded strings cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "BOOKCHAT_MODEL_NAME")
	mustBind("embedder_model", "BOOKCHAT_EMBEDDER_MODEL")
	mustBind("retrieval_top_k", "BOOKCHAT_RETRIEVAL_TOP_K")
	mustBind("confidence_high_threshold", "BOOKCHAT_CONFIDENCE_HIGH_THRESHOLD")
	mustBind("confidence_medium_threshold", "BOOKCHAT_CONFIDENCE_MEDIUM_THRESHOLD")
	mustBind("rate_limit_requests", "BOOKCHAT_RATE_LIMIT_REQUESTS")
	mustBind("rate_limit_window_seconds", "BOOKCHAT_RATE_LIMIT_WINDOW_SECONDS")
	mustBind("rate_limit_fail_open", "BOOKCHAT_RATE_LIMIT_FAIL_OPEN")
	mustBind("postgres_host", "BOOKCHAT_POSTGRES_HOST")
	mustBind("postgres_port", "BOOKCHAT_POSTGRES_PORT")
	mustBind("postgres_user", "BOOKCHAT_POSTGRES_USER")
	mustBind("postgres_password", "BOOKCHAT_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "BOOKCHAT_POSTGRES_DB_NAME")
	mustBind("postgres_ssl_mode", "BOOKCHAT_POSTGRES_SSL_MODE")
	mustBind("listen_addr", "BOOKCHAT_LISTEN_ADDR")
	mustBind("cors_origins", "BOOKCHAT_CORS_ORIGINS")
	mustBind("trust_proxy", "BOOKCHAT_TRUST_PROXY")

	// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper.
	// Validate() checks its presence.
}

// RateLimitWindow returns the rate-limit window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// StageTimeout returns the timeout applied to embedding and retrieval calls.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.StageTimeoutSeconds) * time.Second
}

// GenerateTimeout returns the timeout applied to generation calls.
func (c *Config) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSeconds) * time.Second
}

// PostgresURL returns the connection string in postgres:// URL format,
// as expected by golang-migrate and pgxpool.ParseConfig.
func (c *Config) PostgresURL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     c.PostgresDBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.PostgresSSLMode),
	}
	return u.String()
}
