// Package config loads and validates scraper service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to the relational database. An empty DSN runs
// the service against the in-memory store (development mode).
type DBConfig struct {
	DSN              string `mapstructure:"dsn"`
	MaxConns         int32  `mapstructure:"max_conns"`
	MinConns         int32  `mapstructure:"min_conns"`
	ConnLifetimeMins int    `mapstructure:"conn_lifetime_minutes"`
}

// BatchConfig governs the sequential all-supplier run.
type BatchConfig struct {
	// CooldownSeconds is the pause between supplier runs. This is
	// deliberate pacing to avoid tripping anti-scraping defenses, not a
	// performance knob.
	CooldownSeconds   int    `mapstructure:"cooldown_seconds"`
	RunTimeoutSeconds int    `mapstructure:"run_timeout_seconds"`
	Mode              string `mapstructure:"mode"`
	IntervalMinutes   int    `mapstructure:"interval_minutes"`
}

// ScraperConfig applies to every supplier session.
type ScraperConfig struct {
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	DelayMs        int     `mapstructure:"delay_ms"`
	RandomDelayMs  int     `mapstructure:"random_delay_ms"`
	Parallelism    int     `mapstructure:"parallelism"`
	DomainRPS      float64 `mapstructure:"domain_rps"`
}

// StorageConfig sets the snapshot archive for pages that failed to parse.
// An empty bucket disables snapshots.
type StorageConfig struct {
	SnapshotBucket string `mapstructure:"snapshot_bucket"`
	SnapshotPrefix string `mapstructure:"snapshot_prefix"`
	ContentType    string `mapstructure:"content_type"`
}

// PubSubConfig holds metadata for run-completion notifications. An empty
// topic disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
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
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.conn_lifetime_minutes", 30)
	v.SetDefault("batch.cooldown_seconds", 5)
	v.SetDefault("batch.run_timeout_seconds", 600)
	v.SetDefault("batch.mode", "full_catalog")
	v.SetDefault("batch.interval_minutes", 0)
	v.SetDefault("scraper.user_agent", "sparkmate-dealbot/1.0")
	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault("scraper.delay_ms", 500)
	v.SetDefault("scraper.random_delay_ms", 500)
	v.SetDefault("scraper.parallelism", 2)
	v.SetDefault("scraper.domain_rps", 2)
	v.SetDefault("storage.snapshot_prefix", "snapshots")
	v.SetDefault("storage.content_type", "text/html; charset=utf-8")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Batch.CooldownSeconds < 0 {
		return fmt.Errorf("batch.cooldown_seconds must be >= 0")
	}
	if c.Batch.RunTimeoutSeconds <= 0 {
		return fmt.Errorf("batch.run_timeout_seconds must be > 0")
	}
	if c.Batch.Mode != "full_catalog" && c.Batch.Mode != "deals_only" {
		return fmt.Errorf("batch.mode must be full_catalog or deals_only")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Scraper.Parallelism <= 0 {
		return fmt.Errorf("scraper.parallelism must be > 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// Cooldown returns the inter-supplier pause as a duration.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.Batch.CooldownSeconds) * time.Second
}

// RunTimeout returns the per-supplier run budget as a duration.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Batch.RunTimeoutSeconds) * time.Second
}

// BatchInterval returns how often the scheduler drives a batch run; zero
// means the scheduler is disabled and batches run only via the API.
func (c Config) BatchInterval() time.Duration {
	return time.Duration(c.Batch.IntervalMinutes) * time.Minute
}

// ScrapeTimeout returns the per-request scrape timeout as a duration.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}
