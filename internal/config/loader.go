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
// built-in defaults, applies BULLIOND_* environment variable overrides, and
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

// applyEnvOverrides reads well-known BULLIOND_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setStr(&cfg.Feed.Symbol, "BULLIOND_FEED_SYMBOL")
	setStr(&cfg.Feed.SourceURL, "BULLIOND_FEED_SOURCE_URL")
	setStr(&cfg.Feed.RateSelector, "BULLIOND_FEED_RATE_SELECTOR")
	setDuration(&cfg.Feed.ScrapeTimeout, "BULLIOND_FEED_SCRAPE_TIMEOUT")
	setDuration(&cfg.Feed.CacheTTL, "BULLIOND_FEED_CACHE_TTL")

	// ── Gateway ──
	setStr(&cfg.Gateway.BaseURL, "BULLIOND_GATEWAY_BASE_URL")
	setDuration(&cfg.Gateway.Timeout, "BULLIOND_GATEWAY_TIMEOUT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "BULLIOND_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BULLIOND_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BULLIOND_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BULLIOND_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BULLIOND_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BULLIOND_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BULLIOND_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BULLIOND_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BULLIOND_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BULLIOND_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BULLIOND_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BULLIOND_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BULLIOND_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BULLIOND_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BULLIOND_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BULLIOND_REDIS_TLS_ENABLED")

	// ── Tracker ──
	setDuration(&cfg.Tracker.PollInterval, "BULLIOND_TRACKER_POLL_INTERVAL")
	setFloat64(&cfg.Tracker.ProfitTarget, "BULLIOND_TRACKER_PROFIT_TARGET")
	setFloat64(&cfg.Tracker.LossLimit, "BULLIOND_TRACKER_LOSS_LIMIT")
	setBool(&cfg.Tracker.AutoOpen, "BULLIOND_TRACKER_AUTO_OPEN")
	setDuration(&cfg.Tracker.NotificationTTL, "BULLIOND_TRACKER_NOTIFICATION_TTL")
	setInt(&cfg.Tracker.NotificationCap, "BULLIOND_TRACKER_NOTIFICATION_CAP")

	// ── Server ──
	setInt(&cfg.Server.Port, "BULLIOND_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BULLIOND_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BULLIOND_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BULLIOND_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BULLIOND_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BULLIOND_NOTIFY_EVENTS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "BULLIOND_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "BULLIOND_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "BULLIOND_ARCHIVE_INTERVAL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "BULLIOND_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BULLIOND_S3_REGION")
	setStr(&cfg.S3.Bucket, "BULLIOND_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BULLIOND_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BULLIOND_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BULLIOND_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BULLIOND_S3_FORCE_PATH_STYLE")

	// ── News ──
	setStr(&cfg.News.APIKey, "BULLIOND_NEWS_API_KEY")
	setStr(&cfg.News.APIKey, "NEWS_API_KEY") // compatibility alias
	setStr(&cfg.News.BaseURL, "BULLIOND_NEWS_BASE_URL")
	setStr(&cfg.News.Query, "BULLIOND_NEWS_QUERY")
	setInt(&cfg.News.Limit, "BULLIOND_NEWS_LIMIT")

	// ── Top-level ──
	setStr(&cfg.Mode, "BULLIOND_MODE")
	setStr(&cfg.LogLevel, "BULLIOND_LOG_LEVEL")
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
