// Package config defines the top-level configuration for bulliond and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BULLIOND_* environment variables.
type Config struct {
	Feed     FeedConfig     `toml:"feed"`
	Gateway  GatewayConfig  `toml:"gateway"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Tracker  TrackerConfig  `toml:"tracker"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Archive  ArchiveConfig  `toml:"archive"`
	S3       S3Config       `toml:"s3"`
	News     NewsConfig     `toml:"news"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// FeedConfig holds the dealer-site price source parameters used by the server.
type FeedConfig struct {
	Symbol        string   `toml:"symbol"`
	SourceURL     string   `toml:"source_url"`
	RateSelector  string   `toml:"rate_selector"`
	ScrapeTimeout duration `toml:"scrape_timeout"`
	CacheTTL      duration `toml:"cache_ttl"`
}

// GatewayConfig holds the order-gateway API endpoint the tracker talks to.
type GatewayConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// TrackerConfig holds the position tracker and price poll parameters.
type TrackerConfig struct {
	PollInterval duration `toml:"poll_interval"`
	// ProfitTarget and LossLimit are absolute currency amounts relative to
	// the entry price.
	ProfitTarget float64 `toml:"profit_target"`
	LossLimit    float64 `toml:"loss_limit"`
	// AutoOpen opens a position at the first valid price after startup
	// (headless track mode). When false, positions are opened through the
	// control API.
	AutoOpen        bool     `toml:"auto_open"`
	NotificationTTL duration `toml:"notification_ttl"`
	NotificationCap int      `toml:"notification_cap"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// ArchiveConfig holds cold-storage archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NewsConfig holds the NewsAPI parameters for the headlines endpoint.
type NewsConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Query   string `toml:"query"`
	Limit   int    `toml:"limit"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "10s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "10s" or "5m".
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
			Symbol:        "silver",
			SourceURL:     "http://www.shankarsilvermart.in/",
			RateSelector:  "div#divProduct td.product-rate div.mn-rate-cover span.bgm.e",
			ScrapeTimeout: duration{30 * time.Second},
			CacheTTL:      duration{10 * time.Second},
		},
		Gateway: GatewayConfig{
			BaseURL: "http://127.0.0.1:5000",
			Timeout: duration{10 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "bulliond",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Tracker: TrackerConfig{
			PollInterval:    duration{10 * time.Second},
			ProfitTarget:    500,
			LossLimit:       300,
			AutoOpen:        false,
			NotificationTTL: duration{4 * time.Second},
			NotificationCap: 3,
		},
		Server: ServerConfig{
			Port:        5000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"success", "error"},
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "bulliond-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		News: NewsConfig{
			BaseURL: "https://newsapi.org/v2/everything",
			Query:   "silver OR gold OR bullion OR commodities OR trading",
			Limit:   10,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"track":  true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, track, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	runsServer := mode == "server" || mode == "full"
	runsTracker := mode == "track" || mode == "full"

	if runsServer {
		if c.Feed.SourceURL == "" {
			errs = append(errs, "feed: source_url must not be empty")
		}
		if c.Feed.RateSelector == "" {
			errs = append(errs, "feed: rate_selector must not be empty")
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if runsTracker {
		if c.Gateway.BaseURL == "" && mode != "full" {
			errs = append(errs, "gateway: base_url must not be empty in track mode")
		}
		if c.Tracker.PollInterval.Duration <= 0 {
			errs = append(errs, "tracker: poll_interval must be positive")
		}
		if c.Tracker.ProfitTarget <= 0 {
			errs = append(errs, "tracker: profit_target must be > 0")
		}
		if c.Tracker.LossLimit <= 0 {
			errs = append(errs, "tracker: loss_limit must be > 0")
		}
		if c.Tracker.NotificationTTL.Duration <= 0 {
			errs = append(errs, "tracker: notification_ttl must be positive")
		}
		if c.Tracker.NotificationCap < 1 {
			errs = append(errs, "tracker: notification_cap must be >= 1")
		}
	}

	if c.Archive.Enabled {
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
