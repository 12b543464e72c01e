package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MIRROR_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MIRROR_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallets ──
	setStringSlice(&cfg.Wallets.Tracked, "MIRROR_WALLETS_TRACKED")
	setStr(&cfg.Wallets.Operator, "MIRROR_WALLETS_OPERATOR")

	// ── Feed ──
	setStr(&cfg.Feed.DataAPIHost, "MIRROR_FEED_DATA_API_HOST")
	setDuration(&cfg.Feed.Interval, "MIRROR_FEED_INTERVAL")
	setInt64(&cfg.Feed.CutoffTimestamp, "MIRROR_FEED_CUTOFF_TIMESTAMP")

	// ── Database ──
	setStr(&cfg.Database.DSN, "MIRROR_DATABASE_DSN")
	setStr(&cfg.Database.Host, "MIRROR_DATABASE_HOST")
	setInt(&cfg.Database.Port, "MIRROR_DATABASE_PORT")
	setStr(&cfg.Database.Database, "MIRROR_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "MIRROR_DATABASE_USER")
	setStr(&cfg.Database.Password, "MIRROR_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "MIRROR_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "MIRROR_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "MIRROR_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "MIRROR_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MIRROR_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MIRROR_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MIRROR_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MIRROR_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MIRROR_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MIRROR_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.SignalStream, "MIRROR_REDIS_SIGNAL_STREAM")
	setInt(&cfg.Redis.StreamMaxLen, "MIRROR_REDIS_STREAM_MAX_LEN")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxPositionPerMarketUSD, "MIRROR_RISK_MAX_POSITION_PER_MARKET_USD")
	setFloat64(&cfg.Risk.MaxPositionPerMarketPercent, "MIRROR_RISK_MAX_POSITION_PER_MARKET_PERCENT")
	setFloat64(&cfg.Risk.MinMarketDurationDays, "MIRROR_RISK_MIN_MARKET_DURATION_DAYS")
	setFloat64(&cfg.Risk.MaxMarketDurationDays, "MIRROR_RISK_MAX_MARKET_DURATION_DAYS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "MIRROR_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "MIRROR_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.RetentionDays, "MIRROR_ARCHIVE_RETENTION_DAYS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MIRROR_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MIRROR_S3_REGION")
	setStr(&cfg.S3.Bucket, "MIRROR_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MIRROR_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MIRROR_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MIRROR_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MIRROR_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MIRROR_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MIRROR_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MIRROR_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MIRROR_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MIRROR_MODE")
	setStr(&cfg.LogLevel, "MIRROR_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
