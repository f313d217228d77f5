// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Source   SourceConfig   `mapstructure:"source"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	Nav      NavConfig      `mapstructure:"nav"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SourceConfig configures the upstream wiki.
type SourceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ResolverConfig governs redirect resolution.
type ResolverConfig struct {
	CacheCapacity int `mapstructure:"cache_capacity"`
	TimeoutMs     int `mapstructure:"timeout_ms"`
}

// FetcherConfig governs content fetching and retry.
type FetcherConfig struct {
	CacheCapacity int   `mapstructure:"cache_capacity"`
	RetryDelaysMs []int `mapstructure:"retry_delays_ms"`
}

// NavConfig controls the navigation controller.
type NavConfig struct {
	DebounceMs int `mapstructure:"debounce_ms"`
}

// DBConfig controls access to the relational database. An empty DSN
// selects the in-memory store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for completion notifications. An empty
// project selects the in-memory publisher.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// StorageConfig sets the bucket for snapshot archives. An empty bucket
// selects the in-memory blob store.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WIKIBINGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("source.base_url", "https://en.wikipedia.org")
	v.SetDefault("source.user_agent", "wikibingo/1.0")
	v.SetDefault("source.timeout_seconds", 15)
	v.SetDefault("resolver.cache_capacity", 200)
	v.SetDefault("resolver.timeout_ms", 5000)
	v.SetDefault("fetcher.cache_capacity", 100)
	v.SetDefault("fetcher.retry_delays_ms", []int{0, 1000, 2000})
	v.SetDefault("nav.debounce_ms", 100)
	v.SetDefault("db.table", "game_snapshots")
	v.SetDefault("pubsub.topic_name", "wikibingo-completions")
	v.SetDefault("storage.prefix", "wins")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	if c.Resolver.CacheCapacity <= 0 {
		return fmt.Errorf("resolver.cache_capacity must be > 0")
	}
	if c.Resolver.TimeoutMs <= 0 {
		return fmt.Errorf("resolver.timeout_ms must be > 0")
	}
	if c.Fetcher.CacheCapacity <= 0 {
		return fmt.Errorf("fetcher.cache_capacity must be > 0")
	}
	if len(c.Fetcher.RetryDelaysMs) == 0 {
		return fmt.Errorf("fetcher.retry_delays_ms must not be empty")
	}
	if c.Nav.DebounceMs <= 0 {
		return fmt.Errorf("nav.debounce_ms must be > 0")
	}
	if c.PubSub.ProjectID != "" && c.PubSub.TopicName == "" {
		return fmt.Errorf("pubsub.topic_name must be set when pubsub.project_id is set")
	}
	return nil
}

// SourceTimeout returns the wiki client timeout as a duration.
func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// ResolverTimeout returns the redirect-resolution ceiling as a duration.
func (c Config) ResolverTimeout() time.Duration {
	return time.Duration(c.Resolver.TimeoutMs) * time.Millisecond
}

// RetryDelays returns the fetch retry schedule as durations.
func (c Config) RetryDelays() []time.Duration {
	out := make([]time.Duration, len(c.Fetcher.RetryDelaysMs))
	for i, ms := range c.Fetcher.RetryDelaysMs {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
}

// Debounce returns the navigation debounce window as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.Nav.DebounceMs) * time.Millisecond
}

// NavigateTimeout bounds one navigate request. A single navigation can run
// the full retry schedule against both content endpoints twice (the clicked
// target and one replacement), with a redirect resolution before each
// cycle, so the route timeout is derived from those knobs rather than
// pinned to a constant.
func (c Config) NavigateTimeout() time.Duration {
	var backoff time.Duration
	for _, d := range c.RetryDelays() {
		backoff += d
	}
	attempts := time.Duration(len(c.Fetcher.RetryDelaysMs))
	endpointCycle := attempts*c.SourceTimeout() + backoff
	perTarget := 2*endpointCycle + c.ResolverTimeout()
	return 2*perTarget + 5*time.Second
}
