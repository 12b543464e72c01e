// Package config defines the top-level configuration for the mirror bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MIRROR_* environment variables.
type Config struct {
	Wallets  WalletsConfig  `toml:"wallets"`
	Feed     FeedConfig     `toml:"feed"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Risk     RiskConfig     `toml:"risk"`
	Archive  ArchiveConfig  `toml:"archive"`
	S3       S3Config       `toml:"s3"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletsConfig names the wallets being copied and the operator's own wallet.
type WalletsConfig struct {
	// Tracked is the list of wallet addresses whose trades are mirrored.
	Tracked []string `toml:"tracked"`
	// Operator is the operator's proxy wallet, synced into the position
	// ledger for monitoring and for the executor's risk checks.
	Operator string `toml:"operator"`
}

// FeedConfig holds Polymarket Data API parameters and the polling policy.
type FeedConfig struct {
	DataAPIHost string `toml:"data_api_host"`
	// Interval between full polling passes over all tracked wallets.
	Interval duration `toml:"interval"`
	// CutoffTimestamp is the unix time below which trade activity is ignored
	// entirely (never persisted).
	CutoffTimestamp int64 `toml:"cutoff_timestamp"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters and the copy-signal stream.
type RedisConfig struct {
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	SignalStream string `toml:"signal_stream"`
	StreamMaxLen int    `toml:"stream_max_len"`
}

// RiskConfig holds the operator's per-market caps. A zero value means the
// limit is not set and imposes no constraint.
type RiskConfig struct {
	MaxPositionPerMarketUSD     float64 `toml:"max_position_per_market_usd"`
	MaxPositionPerMarketPercent float64 `toml:"max_position_per_market_percent"`
	MinMarketDurationDays       float64 `toml:"min_market_duration_days"`
	MaxMarketDurationDays       float64 `toml:"max_market_duration_days"`
}

// ArchiveConfig controls cold-storage archival of aged trade records.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	Interval      duration `toml:"interval"`
	RetentionDays int      `toml:"retention_days"`
}

// S3Config holds S3-compatible object storage parameters for the archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "60s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "60s" or "5m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			DataAPIHost: "https://data-api.polymarket.com",
			Interval:    duration{60 * time.Second},
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "mirrorbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     20,
			MaxRetries:   3,
			SignalStream: "mirror:signals",
			StreamMaxLen: 10000,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Interval:      duration{24 * time.Hour},
			RetentionDays: 90,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "mirrorbot-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			Events: []string{"startup", "shutdown", "new_trade", "error"},
		},
		Mode:     "mirror",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"mirror":  true,
	"observe": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found. A non-nil result is fatal
// at startup: the poll loop never starts on a bad configuration.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: mirror, observe)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallets — at least one tracked address is required, all must be hex.
	if len(c.Wallets.Tracked) == 0 {
		errs = append(errs, "wallets: tracked must list at least one address")
	}
	for _, addr := range c.Wallets.Tracked {
		if !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Sprintf("wallets: tracked address %q is not a valid hex address", addr))
		}
	}
	if c.Wallets.Operator != "" && !common.IsHexAddress(c.Wallets.Operator) {
		errs = append(errs, fmt.Sprintf("wallets: operator address %q is not a valid hex address", c.Wallets.Operator))
	}

	// Feed
	if c.Feed.DataAPIHost == "" {
		errs = append(errs, "feed: data_api_host must not be empty")
	}
	if c.Feed.Interval.Duration <= 0 {
		errs = append(errs, "feed: interval must be > 0")
	}
	if c.Feed.CutoffTimestamp < 0 {
		errs = append(errs, "feed: cutoff_timestamp must not be negative")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis — only required in mirror mode, where signals are published.
	if strings.ToLower(c.Mode) == "mirror" {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty in mirror mode")
		}
		if c.Redis.SignalStream == "" {
			errs = append(errs, "redis: signal_stream must not be empty in mirror mode")
		}
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Risk — zero means unset; negative values are always invalid.
	if c.Risk.MaxPositionPerMarketUSD < 0 {
		errs = append(errs, "risk: max_position_per_market_usd must not be negative")
	}
	if c.Risk.MaxPositionPerMarketPercent < 0 || c.Risk.MaxPositionPerMarketPercent > 100 {
		errs = append(errs, fmt.Sprintf("risk: max_position_per_market_percent must be 0-100, got %g", c.Risk.MaxPositionPerMarketPercent))
	}
	if c.Risk.MinMarketDurationDays < 0 {
		errs = append(errs, "risk: min_market_duration_days must not be negative")
	}
	if c.Risk.MaxMarketDurationDays < 0 {
		errs = append(errs, "risk: max_market_duration_days must not be negative")
	}
	if c.Risk.MinMarketDurationDays > 0 && c.Risk.MaxMarketDurationDays > 0 &&
		c.Risk.MinMarketDurationDays > c.Risk.MaxMarketDurationDays {
		errs = append(errs, "risk: min_market_duration_days must not exceed max_market_duration_days")
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0 when enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1 when enabled")
		}
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
