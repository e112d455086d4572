package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hn-recommender/scheduler"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "./config.yaml"

// Config holds all application configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr" validate:"required"`
	DBPath     string `yaml:"db_path" validate:"required"`
	LogLevel   string `yaml:"log_level" validate:"oneof=debug info warn error"`
	Timezone   string `yaml:"timezone" validate:"required"`

	// Feed
	FeedLimit        int    `yaml:"feed_limit" validate:"min=1,max=500"`
	Hydrate          bool   `yaml:"hydrate"`
	CacheTTLSecs     int    `yaml:"cache_ttl_secs" validate:"min=1"`
	RefreshCron      string `yaml:"refresh_cron" validate:"required"`
	FetchTimeoutSec  int    `yaml:"fetch_timeout_secs" validate:"min=1"`
	FetchConcurrency int    `yaml:"fetch_concurrency" validate:"min=1,max=64"`

	// Hacker News circuit breaker
	BreakerFailures    uint32 `yaml:"breaker_failures" validate:"min=1"`
	BreakerTimeoutSecs int    `yaml:"breaker_timeout_secs" validate:"min=1"`

	// Scraper
	ScrapeRatePerSec float64 `yaml:"scrape_rate_per_sec" validate:"gte=0"`
	ScrapeBurst      int     `yaml:"scrape_burst" validate:"gte=0"`
	ScrapeCacheSize  int     `yaml:"scrape_cache_size" validate:"min=1"`

	// Model
	EmbeddingDim   int    `yaml:"embedding_dim" validate:"min=1"`
	HiddenLayers   []int  `yaml:"hidden_layers" validate:"required,min=1,dive,min=1"`
	MinTableRows   int    `yaml:"min_table_rows" validate:"min=1"`
	ModelSeed      uint64 `yaml:"model_seed"`
	NormalizeDense bool   `yaml:"normalize_dense"`

	// API
	DefaultTopN         int `yaml:"default_top_n" validate:"min=1,ltefield=MaxTopN"`
	MaxTopN             int `yaml:"max_top_n" validate:"min=1,max=50"`
	RateLimitRequests   int `yaml:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindowSecs int `yaml:"rate_limit_window_secs" validate:"min=1"`
}

// Defaults returns a Config with all default values set.
func Defaults() Config {
	return Config{
		ListenAddr:          ":5000",
		DBPath:              "./hn-recommender.db",
		LogLevel:            "info",
		Timezone:            "UTC",
		FeedLimit:           50,
		Hydrate:             true,
		CacheTTLSecs:        900,
		RefreshCron:         "@every 15m",
		FetchTimeoutSec:     10,
		FetchConcurrency:    8,
		BreakerFailures:     5,
		BreakerTimeoutSecs:  30,
		ScrapeRatePerSec:    5,
		ScrapeBurst:         5,
		ScrapeCacheSize:     100,
		EmbeddingDim:        64,
		HiddenLayers:        []int{256, 128, 64},
		MinTableRows:        100,
		ModelSeed:           42,
		NormalizeDense:      true,
		DefaultTopN:         5,
		MaxTopN:             50,
		RateLimitRequests:   120,
		RateLimitWindowSecs: 60,
	}
}

// Load reads an optional .env file and a YAML config file and returns a validated Config.
// HN_RECOMMENDER_CONFIG overrides path. A missing file is tolerated only at DefaultPath.
// HN_RECOMMENDER_DB, HN_RECOMMENDER_ADDR and HN_RECOMMENDER_LOG_LEVEL override the file.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	if envPath := os.Getenv("HN_RECOMMENDER_CONFIG"); envPath != "" {
		path = envPath
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
		// Run on defaults and environment only.
	default:
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if envDB := os.Getenv("HN_RECOMMENDER_DB"); envDB != "" {
		cfg.DBPath = envDB
	}
	if envAddr := os.Getenv("HN_RECOMMENDER_ADDR"); envAddr != "" {
		cfg.ListenAddr = envAddr
	}
	if envLevel := os.Getenv("HN_RECOMMENDER_LOG_LEVEL"); envLevel != "" {
		cfg.LogLevel = envLevel
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that required fields are present and values are valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	if err := scheduler.ValidateSpec(c.RefreshCron); err != nil {
		return fmt.Errorf("invalid refresh_cron: %w", err)
	}

	return nil
}

// CacheTTL returns the feed snapshot lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// FetchTimeout returns the per-request timeout for outbound HTTP calls.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// BreakerTimeout returns how long the Hacker News breaker stays open.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutSecs) * time.Second
}

// RateLimitWindow returns the API rate limit window.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSecs) * time.Second
}
