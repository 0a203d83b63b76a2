package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Marketplace MarketplaceConfig
	Sync        SyncConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for the batch lock
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// MarketplaceConfig holds marketplace API client settings
type MarketplaceConfig struct {
	BaseURL              string
	ClientID             string
	APIKey               string
	TimeoutSeconds       int
	// PrimaryLanguageTag and SecondaryLanguageTag map the internal language
	// enumeration onto the marketplace's own language codes
	PrimaryLanguageTag   string
	SecondaryLanguageTag string
	// RequestsPerSecond and Burst configure the shared per-resource-class
	// rate limiter of the client
	RequestsPerSecond float64
	Burst             int
}

// TreeResyncPolicy controls when a non-forced full-tree sync actually runs
type TreeResyncPolicy string

const (
	// TreeResyncSkipIfCached skips a full (root) sync whenever the cache
	// already holds categories. Taxonomy changes are rare; refreshes are
	// triggered explicitly with force.
	TreeResyncSkipIfCached TreeResyncPolicy = "skip_if_cached"
	// TreeResyncAlways re-syncs the tree on every run
	TreeResyncAlways TreeResyncPolicy = "always"
)

// SyncConfig holds catalog synchronization policy settings
type SyncConfig struct {
	// FreshnessWindow is how long cached attributes/dictionary values are
	// considered fresh and exempt from re-fetching
	FreshnessWindow time.Duration
	// DictionaryPageSize is the page size for dictionary value pagination,
	// capped by the marketplace API
	DictionaryPageSize int
	// MaxReportedErrors bounds the per-item error list in batch reports
	MaxReportedErrors int
	// TreeResync selects the full-tree re-sync policy
	TreeResync TreeResyncPolicy
	// LockTTL is the expiration of the batch mutual-exclusion lock
	LockTTL time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CP_ prefix (e.g., CP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Marketplace: MarketplaceConfig{
			BaseURL:              v.GetString("marketplace.base_url"),
			ClientID:             v.GetString("marketplace.client_id"),
			APIKey:               v.GetString("marketplace.api_key"),
			TimeoutSeconds:       v.GetInt("marketplace.timeout_seconds"),
			PrimaryLanguageTag:   v.GetString("marketplace.primary_language_tag"),
			SecondaryLanguageTag: v.GetString("marketplace.secondary_language_tag"),
			RequestsPerSecond:    v.GetFloat64("marketplace.requests_per_second"),
			Burst:                v.GetInt("marketplace.burst"),
		},
		Sync: SyncConfig{
			FreshnessWindow:    v.GetDuration("sync.freshness_window"),
			DictionaryPageSize: v.GetInt("sync.dictionary_page_size"),
			MaxReportedErrors:  v.GetInt("sync.max_reported_errors"),
			TreeResync:         TreeResyncPolicy(v.GetString("sync.tree_resync")),
			LockTTL:            v.GetDuration("sync.lock_ttl"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "channelport-syncd"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "channelport"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Marketplace.TimeoutSeconds == 0 {
		cfg.Marketplace.TimeoutSeconds = 30
	}
	if cfg.Marketplace.PrimaryLanguageTag == "" {
		cfg.Marketplace.PrimaryLanguageTag = "DEFAULT"
	}
	if cfg.Marketplace.SecondaryLanguageTag == "" {
		cfg.Marketplace.SecondaryLanguageTag = "EN"
	}
	if cfg.Marketplace.RequestsPerSecond == 0 {
		cfg.Marketplace.RequestsPerSecond = 2
	}
	if cfg.Marketplace.Burst == 0 {
		cfg.Marketplace.Burst = 4
	}
	if cfg.Sync.FreshnessWindow == 0 {
		cfg.Sync.FreshnessWindow = 8 * 24 * time.Hour
	}
	if cfg.Sync.DictionaryPageSize == 0 {
		cfg.Sync.DictionaryPageSize = 2000
	}
	if cfg.Sync.MaxReportedErrors == 0 {
		cfg.Sync.MaxReportedErrors = 20
	}
	if cfg.Sync.TreeResync == "" {
		cfg.Sync.TreeResync = TreeResyncSkipIfCached
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = 6 * time.Hour
	}
}

// validate checks configuration consistency
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Sync.TreeResync != TreeResyncSkipIfCached && c.Sync.TreeResync != TreeResyncAlways {
		return fmt.Errorf("sync.tree_resync must be %q or %q, got %q",
			TreeResyncSkipIfCached, TreeResyncAlways, c.Sync.TreeResync)
	}
	if c.Sync.FreshnessWindow < time.Hour {
		return fmt.Errorf("sync.freshness_window must be at least one hour")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Marketplace.ClientID == "" || c.Marketplace.APIKey == "" {
			return fmt.Errorf("marketplace.client_id and marketplace.api_key are required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
