// Package config loads harvester configuration from an optional YAML file and
// HARVESTER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/steam-review-harvester/pkg/harvest"
	"github.com/Sternrassler/steam-review-harvester/pkg/logging"
	"github.com/Sternrassler/steam-review-harvester/pkg/review"
	"github.com/Sternrassler/steam-review-harvester/pkg/steam"
	"github.com/spf13/viper"
)

// EnvConfigFile names the variable holding an explicit config file path.
const EnvConfigFile = "HARVESTER_CONFIG"

// Config holds the full harvester configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Steam   SteamConfig   `yaml:"steam" mapstructure:"steam"`
	Harvest HarvestConfig `yaml:"harvest" mapstructure:"harvest"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// SourceConfig locates the app ID list.
type SourceConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StoreConfig locates the review output.
type StoreConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// SteamConfig configures requests to the store API.
type SteamConfig struct {
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	Language          string        `yaml:"language" mapstructure:"language"`
	Filter            string        `yaml:"filter" mapstructure:"filter"`
	ReviewType        string        `yaml:"review_type" mapstructure:"review_type"`
	PurchaseType      string        `yaml:"purchase_type" mapstructure:"purchase_type"`
	NumPerPage        int           `yaml:"num_per_page" mapstructure:"num_per_page"`
}

// HarvestConfig configures the worker pool and fetch retries.
type HarvestConfig struct {
	Workers        int           `yaml:"workers" mapstructure:"workers"`
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
}

// RedisConfig enables the shared cooldown and the progress ledger.
// An empty Addr disables both.
type RedisConfig struct {
	Addr        string        `yaml:"addr" mapstructure:"addr"`
	Password    string        `yaml:"password" mapstructure:"password"`
	DB          int           `yaml:"db" mapstructure:"db"`
	ProgressTTL time.Duration `yaml:"progress_ttl" mapstructure:"progress_ttl"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

// MetricsConfig enables the /metrics endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	if path := os.Getenv(EnvConfigFile); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("harvester")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	steamDefaults := steam.DefaultConfig()
	retryDefaults := harvest.DefaultRetryConfig()
	v.SetDefault("source.path", "appid.txt")
	v.SetDefault("store.dir", "data")
	v.SetDefault("steam.base_url", steamDefaults.BaseURL)
	v.SetDefault("steam.user_agent", steamDefaults.UserAgent)
	v.SetDefault("steam.timeout", steamDefaults.Timeout)
	v.SetDefault("steam.requests_per_second", steamDefaults.RequestsPerSecond)
	v.SetDefault("steam.burst", steamDefaults.Burst)
	v.SetDefault("steam.language", steamDefaults.Params.Language)
	v.SetDefault("steam.filter", steamDefaults.Params.Filter)
	v.SetDefault("steam.review_type", steamDefaults.Params.ReviewType)
	v.SetDefault("steam.purchase_type", steamDefaults.Params.PurchaseType)
	v.SetDefault("steam.num_per_page", steamDefaults.Params.NumPerPage)
	v.SetDefault("harvest.workers", 4)
	v.SetDefault("harvest.max_attempts", retryDefaults.MaxAttempts)
	v.SetDefault("harvest.initial_backoff", retryDefaults.InitialBackoff)
	v.SetDefault("harvest.max_backoff", retryDefaults.MaxBackoff)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.progress_ttl", 7*24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("metrics.addr", "")

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var (
	// "all" sorts by helpfulness, which cursor paging cannot walk reliably.
	validFilters       = []string{"recent", "updated"}
	validReviewTypes   = []string{"all", "positive", "negative"}
	validPurchaseTypes = []string{"all", "non_steam_purchase", "steam"}
)

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	if c.Source.Path == "" {
		errs = append(errs, errors.New("source.path must be set"))
	}
	if c.Store.Dir == "" {
		errs = append(errs, errors.New("store.dir must be set"))
	}
	if c.Steam.NumPerPage < 1 || c.Steam.NumPerPage > review.MaxPageSize {
		errs = append(errs, fmt.Errorf("steam.num_per_page must be between 1 and %d, got %d", review.MaxPageSize, c.Steam.NumPerPage))
	}
	if c.Steam.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("steam.timeout must be positive, got %s", c.Steam.Timeout))
	}
	if c.Steam.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("steam.requests_per_second must not be negative, got %v", c.Steam.RequestsPerSecond))
	}
	if !oneOf(c.Steam.Filter, validFilters) {
		errs = append(errs, fmt.Errorf("steam.filter must be one of %v, got %q", validFilters, c.Steam.Filter))
	}
	if !oneOf(c.Steam.ReviewType, validReviewTypes) {
		errs = append(errs, fmt.Errorf("steam.review_type must be one of %v, got %q", validReviewTypes, c.Steam.ReviewType))
	}
	if !oneOf(c.Steam.PurchaseType, validPurchaseTypes) {
		errs = append(errs, fmt.Errorf("steam.purchase_type must be one of %v, got %q", validPurchaseTypes, c.Steam.PurchaseType))
	}
	if c.Harvest.Workers < 1 {
		errs = append(errs, fmt.Errorf("harvest.workers must be at least 1, got %d", c.Harvest.Workers))
	}
	if c.Harvest.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("harvest.max_attempts must be at least 1, got %d", c.Harvest.MaxAttempts))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// SteamClient returns the steam client configuration.
func (c *Config) SteamClient() steam.Config {
	return steam.Config{
		BaseURL:           strings.TrimRight(c.Steam.BaseURL, "/"),
		UserAgent:         c.Steam.UserAgent,
		Timeout:           c.Steam.Timeout,
		RequestsPerSecond: c.Steam.RequestsPerSecond,
		Burst:             c.Steam.Burst,
		Params: review.QueryParams{
			Language:     c.Steam.Language,
			Filter:       c.Steam.Filter,
			ReviewType:   c.Steam.ReviewType,
			PurchaseType: c.Steam.PurchaseType,
			NumPerPage:   c.Steam.NumPerPage,
		},
	}
}

// Retry returns the harvest retry configuration.
func (c *Config) Retry() harvest.RetryConfig {
	retry := harvest.DefaultRetryConfig()
	retry.MaxAttempts = c.Harvest.MaxAttempts
	retry.InitialBackoff = c.Harvest.InitialBackoff
	retry.MaxBackoff = c.Harvest.MaxBackoff
	return retry
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}
