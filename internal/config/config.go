// Package config holds the medgraph configuration and its viper-backed loader.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

const (
	defaultDatabasePort    = 5432
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5 * time.Minute

	defaultUserAgent     = "MedGraphBot/1.0 (+https://github.com/jonesrussell/north-cloud)"
	defaultRetries       = 3
	defaultBackoff       = 1 * time.Second
	defaultTimeout       = 10 * time.Second
	defaultPageDelay     = 1 * time.Second
	defaultMaxPages      = 20
	defaultMaxBodyBytes  = 50 * 1024 * 1024
	defaultRefreshDays   = 30
	defaultParallelism   = 1
	defaultCountryPause  = 2 * time.Second
	defaultDedupThresh   = 90
	defaultRedisAddress  = "localhost:6379"
	defaultRedisStream   = "medgraph:runs"
	defaultScheduleCron  = "0 3 * * *"
	maxSimilarityPercent = 100
)

// Conflict modes for persisting an institution that already exists.
const (
	ConflictIgnore  = "ignore"
	ConflictRefresh = "refresh"
)

// Deduplication strategies.
const (
	DedupPairwise = "pairwise"
	DedupBlocked  = "blocked"
)

// Config is the root configuration, built once and passed to constructors.
type Config struct {
	Debug    bool           `mapstructure:"debug"`
	Logging  logger.Config  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Dedup    DedupConfig    `mapstructure:"dedup"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// FetcherConfig controls HTTP retrieval.
type FetcherConfig struct {
	UserAgent string `mapstructure:"user_agent"`
	// Retries is the total number of attempts per URL.
	Retries int `mapstructure:"retries"`
	// Backoff is the sleep after the first failed attempt; it doubles each retry.
	Backoff      time.Duration `mapstructure:"backoff"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PageDelay    time.Duration `mapstructure:"page_delay"`
	MaxPages     int           `mapstructure:"max_pages"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// PipelineConfig controls country runs.
type PipelineConfig struct {
	RefreshDays  int           `mapstructure:"refresh_days"`
	Force        bool          `mapstructure:"force"`
	Parallelism  int           `mapstructure:"parallelism"`
	CountryPause time.Duration `mapstructure:"country_pause"`
	ConflictMode string        `mapstructure:"conflict_mode"`
}

type DedupConfig struct {
	Threshold int    `mapstructure:"threshold"`
	Strategy  string `mapstructure:"strategy"`
}

// RedisConfig holds the optional run-event stream settings.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type ScheduleConfig struct {
	Cron      string   `mapstructure:"cron"`
	Countries []string `mapstructure:"countries"`
}

// SetDefaults registers defaults on v so environment variables and config
// files can override every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("logging.level", logger.DefaultLevel)
	v.SetDefault("logging.format", logger.DefaultFormat)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", defaultDatabasePort)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "medgraph")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", defaultConnMaxLifetime)

	v.SetDefault("fetcher.user_agent", defaultUserAgent)
	v.SetDefault("fetcher.retries", defaultRetries)
	v.SetDefault("fetcher.backoff", defaultBackoff)
	v.SetDefault("fetcher.timeout", defaultTimeout)
	v.SetDefault("fetcher.page_delay", defaultPageDelay)
	v.SetDefault("fetcher.max_pages", defaultMaxPages)
	v.SetDefault("fetcher.max_body_bytes", defaultMaxBodyBytes)

	v.SetDefault("pipeline.refresh_days", defaultRefreshDays)
	v.SetDefault("pipeline.force", false)
	v.SetDefault("pipeline.parallelism", defaultParallelism)
	v.SetDefault("pipeline.country_pause", defaultCountryPause)
	v.SetDefault("pipeline.conflict_mode", ConflictIgnore)

	v.SetDefault("dedup.threshold", defaultDedupThresh)
	v.SetDefault("dedup.strategy", DedupPairwise)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", defaultRedisAddress)
	v.SetDefault("redis.stream", defaultRedisStream)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("schedule.cron", defaultScheduleCron)
	v.SetDefault("schedule.countries", []string{})
}

// Load decodes v into a Config, fills zero values and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// applyDefaults covers configs decoded from a viper instance without SetDefaults.
func (c *Config) applyDefaults() {
	if c.Fetcher.UserAgent == "" {
		c.Fetcher.UserAgent = defaultUserAgent
	}
	if c.Fetcher.Retries == 0 {
		c.Fetcher.Retries = defaultRetries
	}
	if c.Fetcher.Timeout == 0 {
		c.Fetcher.Timeout = defaultTimeout
	}
	if c.Fetcher.MaxPages == 0 {
		c.Fetcher.MaxPages = defaultMaxPages
	}
	if c.Fetcher.MaxBodyBytes == 0 {
		c.Fetcher.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.Pipeline.RefreshDays == 0 {
		c.Pipeline.RefreshDays = defaultRefreshDays
	}
	if c.Pipeline.Parallelism == 0 {
		c.Pipeline.Parallelism = defaultParallelism
	}
	if c.Pipeline.ConflictMode == "" {
		c.Pipeline.ConflictMode = ConflictIgnore
	}
	if c.Dedup.Threshold == 0 {
		c.Dedup.Threshold = defaultDedupThresh
	}
	if c.Dedup.Strategy == "" {
		c.Dedup.Strategy = DedupPairwise
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = defaultRedisStream
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = defaultScheduleCron
	}
	if c.Debug {
		c.Logging.Level = "debug"
		c.Logging.Development = true
	}
}

func (c *Config) normalize() {
	c.Pipeline.ConflictMode = strings.ToLower(strings.TrimSpace(c.Pipeline.ConflictMode))
	c.Dedup.Strategy = strings.ToLower(strings.TrimSpace(c.Dedup.Strategy))
	for i, country := range c.Schedule.Countries {
		c.Schedule.Countries[i] = strings.ToUpper(strings.TrimSpace(country))
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Fetcher.Retries < 1 {
		return errors.New("fetcher.retries must be at least 1")
	}
	if c.Fetcher.Backoff < 0 || c.Fetcher.PageDelay < 0 {
		return errors.New("fetcher.backoff and fetcher.page_delay must not be negative")
	}
	if c.Fetcher.Timeout <= 0 {
		return errors.New("fetcher.timeout must be positive")
	}
	if c.Pipeline.RefreshDays < 0 {
		return errors.New("pipeline.refresh_days must not be negative")
	}
	if c.Pipeline.Parallelism < 1 {
		return errors.New("pipeline.parallelism must be at least 1")
	}
	switch c.Pipeline.ConflictMode {
	case ConflictIgnore, ConflictRefresh:
	default:
		return fmt.Errorf("pipeline.conflict_mode %q must be %q or %q",
			c.Pipeline.ConflictMode, ConflictIgnore, ConflictRefresh)
	}
	if c.Dedup.Threshold < 0 || c.Dedup.Threshold > maxSimilarityPercent {
		return errors.New("dedup.threshold must be between 0 and 100")
	}
	switch c.Dedup.Strategy {
	case DedupPairwise, DedupBlocked:
	default:
		return fmt.Errorf("dedup.strategy %q must be %q or %q", c.Dedup.Strategy, DedupPairwise, DedupBlocked)
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.New("redis.address is required when redis.enabled is true")
	}
	return nil
}
