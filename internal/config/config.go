package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"nflpickem/ingestion/internal/cache"
	"nflpickem/ingestion/internal/repository"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Database
	DatabaseURL      string `envconfig:"DATABASE_URL" default:""`
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"pickem"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"pickem"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP
	HTTPPort    int `envconfig:"HTTP_PORT" default:"8080"`
	MetricsPort int `envconfig:"METRICS_PORT" default:"9090"`

	// Shared secrets for trigger and webhook endpoints
	CronSecret    string `envconfig:"CRON_SECRET" default:""`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET" default:""`

	// Feeds
	ScheduleFeedURL   string        `envconfig:"SCHEDULE_FEED_URL" default:"https://raw.githubusercontent.com/nflverse/nfldata/master/data/games.csv"`
	ScoreFeedURL      string        `envconfig:"SCORE_FEED_URL" default:"https://raw.githubusercontent.com/nflverse/nfldata/master/data/games.csv"`
	ESPNScoreboardURL string        `envconfig:"ESPN_SCOREBOARD_URL" default:"https://site.api.espn.com/apis/site/v2/sports/football/nfl/scoreboard"`
	ScheduleSeason    int           `envconfig:"SCHEDULE_SEASON" default:"0"`
	FeedTimeout       time.Duration `envconfig:"FEED_TIMEOUT" default:"30s"`
	FeedMaxRetries    int           `envconfig:"FEED_MAX_RETRIES" default:"0"`
	FeedCacheTTL      time.Duration `envconfig:"FEED_CACHE_TTL" default:"0s"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	ScheduleImportCron string `envconfig:"SCHEDULE_IMPORT_CRON" default:"0 6 * * *"`
	ScoreSyncCron      string `envconfig:"SCORE_SYNC_CRON" default:"*/15 * * * *"`

	// API Rate Limiting
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	CORSAllowOrigins  []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`

	// Tiebreaker run lock
	LockTTL time.Duration `envconfig:"LOCK_TTL" default:"2m"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.DatabaseHost == "" {
		return fmt.Errorf("DATABASE_URL or DATABASE_HOST is required")
	}

	if c.IsProduction() {
		if c.CronSecret == "" {
			return fmt.Errorf("CRON_SECRET is required in production")
		}
		if c.WebhookSecret == "" {
			return fmt.Errorf("WEBHOOK_SECRET is required in production")
		}
	}

	if c.FeedTimeout <= 0 {
		return fmt.Errorf("FEED_TIMEOUT must be positive")
	}
	if c.FeedMaxRetries < 0 {
		return fmt.Errorf("FEED_MAX_RETRIES must not be negative")
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.ScheduleSeason < 0 {
		return fmt.Errorf("SCHEDULE_SEASON must not be negative")
	}

	return nil
}

// DefaultSeason returns SCHEDULE_SEASON, or the current UTC year when unset
func (c *Config) DefaultSeason() int {
	if c.ScheduleSeason > 0 {
		return c.ScheduleSeason
	}
	return time.Now().UTC().Year()
}

// RepositoryConfig returns the database settings for repository.NewDatabase
func (c *Config) RepositoryConfig() repository.Config {
	return repository.Config{
		URL:      c.DatabaseURL,
		Host:     c.DatabaseHost,
		Port:     strconv.Itoa(c.DatabasePort),
		User:     c.DatabaseUser,
		Password: c.DatabasePassword,
		Database: c.DatabaseName,
		SSLMode:  c.DatabaseSSLMode,
	}
}

// CacheConfig returns the Redis settings for cache.NewRedisCache
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Host:     c.RedisHost,
		Port:     strconv.Itoa(c.RedisPort),
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// HTTPWriteTimeout bounds a triggered ingestion response. A request may wait
// out another holder's lock before running its own feed fetch and retries.
func (c *Config) HTTPWriteTimeout() time.Duration {
	attempts := time.Duration(c.FeedMaxRetries + 1)
	return c.LockTTL + attempts*c.FeedTimeout + 30*time.Second
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
