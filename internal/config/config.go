// Package config defines the top-level configuration for the up/down bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by UPDOWN_* environment variables.
type Config struct {
	Wallet      WalletConfig      `toml:"wallet"`
	Polymarket  PolymarketConfig  `toml:"polymarket"`
	Gateway     GatewayConfig     `toml:"gateway"`
	Credentials CredentialsConfig `toml:"credentials"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Session     SessionConfig     `toml:"session"`
	Strategy    StrategyConfig    `toml:"strategy"`
	Snipe       SnipeConfig       `toml:"snipe"`
	Notify      NotifyConfig      `toml:"notify"`
	LogLevel    string            `toml:"log_level"`
}

// WalletConfig identifies the funding wallet on the exchange side. The bot
// never signs with it; the gateway holds custody.
type WalletConfig struct {
	Address string `toml:"address"`
}

// PolymarketConfig holds the read-side API endpoints.
type PolymarketConfig struct {
	ClobHost   string   `toml:"clob_host"`
	GammaHost  string   `toml:"gamma_host"`
	WsHost     string   `toml:"ws_host"`
	APITimeout duration `toml:"api_timeout"`
}

// GatewayConfig holds the order gateway endpoint. All order submission goes
// through the gateway, authenticated with HMAC API credentials.
type GatewayConfig struct {
	BaseURL string `toml:"base_url"`
}

// CredentialsConfig holds HMAC API credentials, either inline or as a path
// to a password-encrypted credentials file.
type CredentialsConfig struct {
	APIKey        string `toml:"api_key"`
	APISecret     string `toml:"api_secret"`
	APIPassphrase string `toml:"api_passphrase"`
	EncryptedPath string `toml:"encrypted_path"`
	Password      string `toml:"password"`
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

// S3Config holds S3-compatible object storage parameters for session
// archives. Archiving is optional; leave Enabled false to skip it.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SessionConfig holds market selection and session pacing parameters.
type SessionConfig struct {
	Asset          string   `toml:"asset"`
	MarketDuration duration `toml:"market_duration"`

	LookBack  int `toml:"look_back"`
	LookAhead int `toml:"look_ahead"`

	SnipeThreshold    duration `toml:"snipe_threshold"`
	PollInterval      duration `toml:"poll_interval"`
	SnipePollInterval duration `toml:"snipe_poll_interval"`
	SearchBackoff     duration `toml:"search_backoff"`
	WarmupDelay       duration `toml:"warmup_delay"`
	WarmupWindow      duration `toml:"warmup_window"`

	HistoryCap             int     `toml:"history_cap"`
	MaxDailyLoss           float64 `toml:"max_daily_loss"`
	MaxConsecutiveFailures int     `toml:"max_consecutive_failures"`

	// FallbackFirstAffirmative controls outcome classification when both
	// labels parse ambiguously: true treats the first outcome as the
	// affirmative side.
	FallbackFirstAffirmative bool `toml:"fallback_first_affirmative"`

	DryRun bool `toml:"dry_run"`
}

// StrategyConfig selects and tunes the accumulation strategy.
type StrategyConfig struct {
	// Name selects the accumulator: "pairwise" or "meanrev".
	Name string `toml:"name"`

	TargetPairCost  float64 `toml:"target_pair_cost"`
	OrderSize       float64 `toml:"order_size"`
	MinOrderSize    float64 `toml:"min_order_size"`
	MaxOrderSize    float64 `toml:"max_order_size"`
	MaxPerSide      float64 `toml:"max_per_side"`
	MaxPricePerSide float64 `toml:"max_price_per_side"`
	MaxImbalance    float64 `toml:"max_imbalance"`

	CheapThreshold  float64 `toml:"cheap_threshold"`
	MinSamples      int     `toml:"min_samples"`
	BootstrapBelow  float64 `toml:"bootstrap_below"`
	OverweightRatio float64 `toml:"overweight_ratio"`
	StrictImbalance float64 `toml:"strict_imbalance"`
	StrictBelowMean float64 `toml:"strict_below_mean"`

	// PriceTolerance aborts an order when the live price has drifted from
	// the decision price by more than this fraction.
	PriceTolerance float64 `toml:"price_tolerance"`

	// MaxCacheAge bounds how stale a cached quote may be before the oracle
	// rejects it.
	MaxCacheAge duration `toml:"max_cache_age"`
}

// SnipeConfig tunes the near-settlement snipe buy.
type SnipeConfig struct {
	MinPrice float64 `toml:"min_price"`
	MaxPrice float64 `toml:"max_price"`
	Size     float64 `toml:"size"`
	Premium  float64 `toml:"premium"`

	// TieSide is bought when both sides sit at exactly 0.50: "yes" or "no".
	TieSide string `toml:"tie_side"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
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
		Polymarket: PolymarketConfig{
			ClobHost:   "https://clob.polymarket.com",
			GammaHost:  "https://gamma-api.polymarket.com",
			WsHost:     "wss://ws-subscriptions-clob.polymarket.com",
			APITimeout: duration{15 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "updownbot-data",
			ForcePathStyle: true,
		},
		Session: SessionConfig{
			Asset:                    "btc",
			MarketDuration:           duration{15 * time.Minute},
			LookBack:                 1,
			LookAhead:                2,
			SnipeThreshold:           duration{60 * time.Second},
			PollInterval:             duration{5 * time.Second},
			SnipePollInterval:        duration{time.Second},
			SearchBackoff:            duration{10 * time.Second},
			WarmupDelay:              duration{15 * time.Second},
			WarmupWindow:             duration{100 * time.Second},
			HistoryCap:               100,
			MaxDailyLoss:             50.0,
			MaxConsecutiveFailures:   10,
			FallbackFirstAffirmative: true,
			DryRun:                   true,
		},
		Strategy: StrategyConfig{
			Name:            "pairwise",
			TargetPairCost:  0.98,
			OrderSize:       0.75,
			MinOrderSize:    0.50,
			MaxOrderSize:    1.00,
			MaxPerSide:      5.0,
			MaxPricePerSide: 0.60,
			MaxImbalance:    0.20,
			CheapThreshold:  0.05,
			MinSamples:      10,
			BootstrapBelow:  0.50,
			OverweightRatio: 1.5,
			StrictImbalance: 0.40,
			StrictBelowMean: 0.10,
			PriceTolerance:  0.15,
			MaxCacheAge:     duration{2 * time.Minute},
		},
		Snipe: SnipeConfig{
			MinPrice: 0.90,
			MaxPrice: 0.99,
			Size:     5.0,
			Premium:  0.005,
			TieSide:  "yes",
		},
		Notify: NotifyConfig{
			Events: []string{"session_start", "trade", "snipe", "summary", "error"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validStrategies enumerates the accepted values for StrategyConfig.Name.
var validStrategies = map[string]bool{
	"pairwise": true,
	"meanrev":  true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet is required for live trading, optional in dry-run.
	if !c.Session.DryRun {
		if c.Wallet.Address == "" {
			errs = append(errs, "wallet: address must be set when dry_run is disabled")
		} else if !common.IsHexAddress(c.Wallet.Address) {
			errs = append(errs, fmt.Sprintf("wallet: %q is not a valid hex address", c.Wallet.Address))
		}
		if c.Gateway.BaseURL == "" {
			errs = append(errs, "gateway: base_url must be set when dry_run is disabled")
		}
		if c.Credentials.APIKey == "" && c.Credentials.EncryptedPath == "" {
			errs = append(errs, "credentials: either api_key or encrypted_path must be set when dry_run is disabled")
		}
		if c.Credentials.EncryptedPath != "" && c.Credentials.Password == "" {
			errs = append(errs, "credentials: password is required when encrypted_path is set")
		}
	}

	// Polymarket endpoints
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.APITimeout.Duration <= 0 {
		errs = append(errs, "polymarket: api_timeout must be positive")
	}

	// Postgres
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

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Session
	if c.Session.Asset == "" {
		errs = append(errs, "session: asset must not be empty")
	}
	if c.Session.MarketDuration.Duration <= 0 {
		errs = append(errs, "session: market_duration must be positive")
	}
	if c.Session.SnipeThreshold.Duration <= 0 {
		errs = append(errs, "session: snipe_threshold must be positive")
	}
	if c.Session.SnipeThreshold.Duration >= c.Session.MarketDuration.Duration {
		errs = append(errs, "session: snipe_threshold must be shorter than market_duration")
	}
	if c.Session.PollInterval.Duration <= 0 {
		errs = append(errs, "session: poll_interval must be positive")
	}
	if c.Session.LookBack < 0 || c.Session.LookAhead < 0 {
		errs = append(errs, "session: look_back and look_ahead must be >= 0")
	}
	if c.Session.HistoryCap < 1 {
		errs = append(errs, "session: history_cap must be >= 1")
	}
	if c.Session.MaxDailyLoss < 0 {
		errs = append(errs, "session: max_daily_loss must be >= 0 (zero disables)")
	}

	// Strategy
	if !validStrategies[strings.ToLower(c.Strategy.Name)] {
		errs = append(errs, fmt.Sprintf("strategy: unknown name %q (valid: pairwise, meanrev)", c.Strategy.Name))
	}
	if c.Strategy.TargetPairCost <= 0 || c.Strategy.TargetPairCost > 2 {
		errs = append(errs, fmt.Sprintf("strategy: target_pair_cost must be in (0, 2], got %g", c.Strategy.TargetPairCost))
	}
	if c.Strategy.OrderSize <= 0 {
		errs = append(errs, "strategy: order_size must be > 0")
	}
	if c.Strategy.MinOrderSize <= 0 || c.Strategy.MinOrderSize > c.Strategy.MaxOrderSize {
		errs = append(errs, "strategy: require 0 < min_order_size <= max_order_size")
	}
	if c.Strategy.MaxPerSide <= 0 {
		errs = append(errs, "strategy: max_per_side must be > 0")
	}
	if c.Strategy.MaxPricePerSide <= 0 || c.Strategy.MaxPricePerSide >= 1 {
		errs = append(errs, "strategy: max_price_per_side must be in (0, 1)")
	}
	if c.Strategy.PriceTolerance <= 0 {
		errs = append(errs, "strategy: price_tolerance must be > 0")
	}
	if c.Strategy.MinSamples < 1 {
		errs = append(errs, "strategy: min_samples must be >= 1")
	}
	if c.Strategy.OverweightRatio <= 1 {
		errs = append(errs, "strategy: overweight_ratio must be > 1")
	}

	// Snipe
	if c.Snipe.MinPrice <= 0 || c.Snipe.MaxPrice >= 1 || c.Snipe.MinPrice >= c.Snipe.MaxPrice {
		errs = append(errs, fmt.Sprintf("snipe: require 0 < min_price < max_price < 1, got [%g, %g]", c.Snipe.MinPrice, c.Snipe.MaxPrice))
	}
	if c.Snipe.Size <= 0 {
		errs = append(errs, "snipe: size must be > 0")
	}
	if c.Snipe.Premium < 0 {
		errs = append(errs, "snipe: premium must be >= 0")
	}
	if ts := strings.ToLower(c.Snipe.TieSide); ts != "yes" && ts != "no" {
		errs = append(errs, fmt.Sprintf("snipe: tie_side must be \"yes\" or \"no\", got %q", c.Snipe.TieSide))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
