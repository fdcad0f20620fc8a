// Package config loads and validates the pipeline configuration from a
// TOML file, with environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Defaults for processing settings.
const (
	DefaultChunkSize        = 400
	DefaultChunkOverlap     = 50
	DefaultBatchSize        = 100
	DefaultPollInterval     = 300 * time.Second
	DefaultMaxRetries       = 3
	DefaultDriveCallsPerSec = 10.0
	DefaultListingCacheTTL  = 2 * time.Minute
)

// Defaults for the embedding provider's rate windows (OpenAI tier 1).
const (
	DefaultEmbedRequestsPerMinute = 3000
	DefaultEmbedTokensPerMinute   = 1_000_000
)

// Defaults for the budget limiter.
const (
	DefaultMaxRequestsPerMinute = 100
	DefaultMaxRequestsPerHour   = 3000
	DefaultMaxRequestsPerDay    = 100000
	DefaultMaxDailyCostUSD      = 10.00
	DefaultCostPerEmbedding     = 0.000002
	DefaultCostPerCompletion    = 0.01
)

// DriveConfig configures the remote listing and fetch client.
type DriveConfig struct {
	// FolderID is the scope: the folder subtree being monitored.
	FolderID string `toml:"folder_id" validate:"required"`

	// CredentialsFile points at the Google service account JSON key.
	CredentialsFile string `toml:"credentials_file"`

	// CallsPerSecond caps the Drive API request rate.
	CallsPerSecond float64 `toml:"calls_per_second" validate:"gt=0"`

	// CacheTTL is the listing cache lifetime.
	CacheTTL time.Duration `toml:"cache_ttl" validate:"gte=0"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// APIKey authenticates against the provider. Overridable via
	// OPENAI_API_KEY.
	APIKey string `toml:"api_key"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint for compatible APIs.
	BaseURL string `toml:"base_url"`

	// RequestsPerMinute paces embedding API calls.
	RequestsPerMinute int `toml:"requests_per_minute" validate:"gt=0"`

	// TokensPerMinute caps estimated token throughput to the provider.
	TokensPerMinute int `toml:"tokens_per_minute" validate:"gt=0"`
}

// BudgetConfig configures the cost/request ceilings.
type BudgetConfig struct {
	Enabled              bool    `toml:"enabled"`
	MaxRequestsPerMinute int     `toml:"max_requests_per_minute" validate:"gt=0"`
	MaxRequestsPerHour   int     `toml:"max_requests_per_hour" validate:"gt=0"`
	MaxRequestsPerDay    int     `toml:"max_requests_per_day" validate:"gt=0"`
	MaxDailyCostUSD      float64 `toml:"max_daily_cost_usd" validate:"gt=0"`
	CostPerEmbedding     float64 `toml:"cost_per_embedding" validate:"gte=0"`
	CostPerCompletion    float64 `toml:"cost_per_completion" validate:"gte=0"`
}

// ProcessingConfig configures chunking and batching.
type ProcessingConfig struct {
	ChunkSize    int           `toml:"chunk_size" validate:"gt=0"`
	ChunkOverlap int           `toml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	BatchSize    int           `toml:"batch_size" validate:"gt=0"`
	PollInterval time.Duration `toml:"poll_interval" validate:"gt=0"`
	MaxRetries   int           `toml:"max_retries" validate:"gte=1"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `toml:"format" validate:"omitempty,oneof=console json"`
}

// Config is the root configuration.
type Config struct {
	// DataDir holds the sqlite database and the persisted tracker and
	// usage files. Defaults to ~/.drivesync/data.
	DataDir string `toml:"data_dir"`

	Drive      DriveConfig      `toml:"drive"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Budget     BudgetConfig     `toml:"budget"`
	Processing ProcessingConfig `toml:"processing"`
	Log        LogConfig        `toml:"log"`
}

// Default returns a configuration with all defaults applied. The Drive
// folder ID has no default and must come from the file or a flag.
func Default() *Config {
	return &Config{
		Drive: DriveConfig{
			CallsPerSecond: DefaultDriveCallsPerSec,
			CacheTTL:       DefaultListingCacheTTL,
		},
		Embedding: EmbeddingConfig{
			Model:             "text-embedding-3-small",
			RequestsPerMinute: DefaultEmbedRequestsPerMinute,
			TokensPerMinute:   DefaultEmbedTokensPerMinute,
		},
		Budget: BudgetConfig{
			Enabled:              true,
			MaxRequestsPerMinute: DefaultMaxRequestsPerMinute,
			MaxRequestsPerHour:   DefaultMaxRequestsPerHour,
			MaxRequestsPerDay:    DefaultMaxRequestsPerDay,
			MaxDailyCostUSD:      DefaultMaxDailyCostUSD,
			CostPerEmbedding:     DefaultCostPerEmbedding,
			CostPerCompletion:    DefaultCostPerCompletion,
		},
		Processing: ProcessingConfig{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
			BatchSize:    DefaultBatchSize,
			PollInterval: DefaultPollInterval,
			MaxRetries:   DefaultMaxRetries,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Read parses configuration from path, layering the file over defaults
// and the environment over the file, without validating. A missing file
// is not an error; defaults apply. Callers that overlay flag values on
// top must call Validate afterwards.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to defaults.
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Load reads and validates configuration from path.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays secret-bearing settings from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && c.Drive.CredentialsFile == "" {
		c.Drive.CredentialsFile = v
	}
	if v := os.Getenv("DRIVE_FOLDER_ID"); v != "" && c.Drive.FolderID == "" {
		c.Drive.FolderID = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
