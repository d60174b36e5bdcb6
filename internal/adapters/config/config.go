package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/selivandex/forex-analyzer/pkg/models"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config represents application configuration
type Config struct {
	HTTP     HTTPConfig     `envconfig:"HTTP"`
	Feed     FeedConfig     `envconfig:"FEED"`
	AI       AIConfig       `envconfig:"AI"`
	Cache    CacheConfig    `envconfig:"CACHE"`
	Settings SettingsConfig `envconfig:"SETTINGS"`
	Storage  StorageConfig  `envconfig:"STORAGE"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Database DatabaseConfig `envconfig:"DATABASE"`
	Logging  LoggingConfig  `envconfig:"LOGGING"`
}

// HTTPConfig represents dashboard server configuration
type HTTPConfig struct {
	Port            string        `envconfig:"HTTP_PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// FeedConfig represents news feed configuration
type FeedConfig struct {
	URL        string        `envconfig:"FEED_URL" default:"https://www.forexlive.com/feed/news"`
	UserAgent  string        `envconfig:"FEED_USER_AGENT" default:"forex-analyzer/1.0"`
	Timeout    time.Duration `envconfig:"FEED_TIMEOUT" default:"30s"`
	RetryDelay time.Duration `envconfig:"FEED_RETRY_DELAY" default:"1s"`
	Retries    int           `envconfig:"FEED_RETRIES" default:"2"`
}

// AIConfig represents completion API configuration
type AIConfig struct {
	BaseURL       string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	PricePerToken string        `envconfig:"AI_PRICE_PER_TOKEN" default:"0.00001"`
	Timeout       time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
	MaxNews       int           `envconfig:"AI_MAX_NEWS" default:"0"`        // 0 = whole feed
	ContentMaxLen int           `envconfig:"AI_CONTENT_MAX_LEN" default:"0"` // 0 = untruncated
}

// TokenPrice parses the per-token price
func (c AIConfig) TokenPrice() (decimal.Decimal, error) {
	return decimal.NewFromString(c.PricePerToken)
}

// CacheConfig represents analysis cache configuration
type CacheConfig struct {
	Key       string        `envconfig:"CACHE_KEY" default:"forex_analyzer_cache"`
	Freshness time.Duration `envconfig:"CACHE_FRESHNESS" default:"5m"`
}

// SettingsConfig represents persisted settings key and first-run defaults
type SettingsConfig struct {
	Key             string        `envconfig:"SETTINGS_KEY" default:"forex_analyzer_settings"`
	OpenAIKey       string        `envconfig:"SETTINGS_OPENAI_KEY" required:"false"`
	Model           string        `envconfig:"SETTINGS_MODEL" default:"gpt-4o-mini"`
	RefreshInterval time.Duration `envconfig:"SETTINGS_REFRESH_INTERVAL" default:"5m"`
	ShowCost        bool          `envconfig:"SETTINGS_SHOW_COST" default:"true"`
}

// Defaults converts first-run defaults to settings
func (c SettingsConfig) Defaults() models.Settings {
	return models.Settings{
		OpenAIKey:         c.OpenAIKey,
		Model:             c.Model,
		RefreshInterval:   c.RefreshInterval.Milliseconds(),
		ShowCostEstimates: c.ShowCost,
	}
}

// StorageConfig selects where cache and settings are persisted
type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" default:"file"`
	Dir     string `envconfig:"STORAGE_DIR" default:"data"`
}

// RedisConfig represents Redis connection parameters
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" required:"false"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// DatabaseConfig represents database connection parameters
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"forex_analyzer"`
	User     string `envconfig:"DB_USER" required:"false"`
	Password string `envconfig:"DB_PASSWORD" required:"false"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Process environment variables
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed URL is required")
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed timeout must be positive")
	}
	if c.Feed.Retries < 0 {
		return fmt.Errorf("feed retries must not be negative")
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	price, err := c.AI.TokenPrice()
	if err != nil {
		return fmt.Errorf("invalid AI token price %q: %w", c.AI.PricePerToken, err)
	}
	if price.IsNegative() {
		return fmt.Errorf("AI token price must not be negative")
	}
	if c.AI.MaxNews < 0 || c.AI.ContentMaxLen < 0 {
		return fmt.Errorf("AI news limits must not be negative")
	}

	if c.Cache.Freshness <= 0 {
		return fmt.Errorf("cache freshness window must be positive")
	}
	if c.Cache.Key == "" || c.Settings.Key == "" {
		return fmt.Errorf("cache and settings keys are required")
	}
	if c.Cache.Key == c.Settings.Key {
		return fmt.Errorf("cache and settings keys must differ")
	}

	if err := c.Settings.Defaults().Validate(); err != nil {
		return fmt.Errorf("invalid default settings: %w", err)
	}

	switch c.Storage.Backend {
	case StorageMemory, StorageRedis:
	case StorageFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage dir is required for file backend")
		}
	case StoragePostgres:
		if c.Database.User == "" || c.Database.Password == "" {
			return fmt.Errorf("DB_USER and DB_PASSWORD are required for postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Addr returns Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
