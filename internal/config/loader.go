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
// built-in defaults, applies UPDOWN_* environment variable overrides, and
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

// LoadDefaults returns the built-in defaults with UPDOWN_* environment
// overrides applied, for running without a config file.
func LoadDefaults() *Config {
	cfg := Defaults()
	_ = godotenv.Load()
	applyEnvOverrides(&cfg)
	return &cfg
}

// applyEnvOverrides reads well-known UPDOWN_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.Address, "UPDOWN_WALLET_ADDRESS")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "UPDOWN_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "UPDOWN_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsHost, "UPDOWN_POLYMARKET_WS_HOST")
	setDuration(&cfg.Polymarket.APITimeout, "UPDOWN_POLYMARKET_API_TIMEOUT")

	// ── Gateway ──
	setStr(&cfg.Gateway.BaseURL, "UPDOWN_GATEWAY_BASE_URL")

	// ── Credentials ──
	setStr(&cfg.Credentials.APIKey, "UPDOWN_CREDENTIALS_API_KEY")
	setStr(&cfg.Credentials.APISecret, "UPDOWN_CREDENTIALS_API_SECRET")
	setStr(&cfg.Credentials.APIPassphrase, "UPDOWN_CREDENTIALS_API_PASSPHRASE")
	setStr(&cfg.Credentials.EncryptedPath, "UPDOWN_CREDENTIALS_ENCRYPTED_PATH")
	setStr(&cfg.Credentials.Password, "UPDOWN_CREDENTIALS_PASSWORD")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "UPDOWN_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "UPDOWN_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "UPDOWN_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "UPDOWN_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "UPDOWN_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "UPDOWN_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "UPDOWN_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "UPDOWN_POSTGRES_POOL_MAX_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "UPDOWN_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "UPDOWN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "UPDOWN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "UPDOWN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "UPDOWN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "UPDOWN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "UPDOWN_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "UPDOWN_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "UPDOWN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "UPDOWN_S3_REGION")
	setStr(&cfg.S3.Bucket, "UPDOWN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "UPDOWN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "UPDOWN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "UPDOWN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "UPDOWN_S3_FORCE_PATH_STYLE")

	// ── Session ──
	setStr(&cfg.Session.Asset, "UPDOWN_SESSION_ASSET")
	setDuration(&cfg.Session.MarketDuration, "UPDOWN_SESSION_MARKET_DURATION")
	setInt(&cfg.Session.LookBack, "UPDOWN_SESSION_LOOK_BACK")
	setInt(&cfg.Session.LookAhead, "UPDOWN_SESSION_LOOK_AHEAD")
	setDuration(&cfg.Session.SnipeThreshold, "UPDOWN_SESSION_SNIPE_THRESHOLD")
	setDuration(&cfg.Session.PollInterval, "UPDOWN_SESSION_POLL_INTERVAL")
	setDuration(&cfg.Session.SnipePollInterval, "UPDOWN_SESSION_SNIPE_POLL_INTERVAL")
	setDuration(&cfg.Session.SearchBackoff, "UPDOWN_SESSION_SEARCH_BACKOFF")
	setDuration(&cfg.Session.WarmupDelay, "UPDOWN_SESSION_WARMUP_DELAY")
	setDuration(&cfg.Session.WarmupWindow, "UPDOWN_SESSION_WARMUP_WINDOW")
	setInt(&cfg.Session.HistoryCap, "UPDOWN_SESSION_HISTORY_CAP")
	setFloat64(&cfg.Session.MaxDailyLoss, "UPDOWN_SESSION_MAX_DAILY_LOSS")
	setInt(&cfg.Session.MaxConsecutiveFailures, "UPDOWN_SESSION_MAX_CONSECUTIVE_FAILURES")
	setBool(&cfg.Session.FallbackFirstAffirmative, "UPDOWN_SESSION_FALLBACK_FIRST_AFFIRMATIVE")
	setBool(&cfg.Session.DryRun, "UPDOWN_SESSION_DRY_RUN")

	// ── Strategy ──
	setStr(&cfg.Strategy.Name, "UPDOWN_STRATEGY_NAME")
	setFloat64(&cfg.Strategy.TargetPairCost, "UPDOWN_STRATEGY_TARGET_PAIR_COST")
	setFloat64(&cfg.Strategy.OrderSize, "UPDOWN_STRATEGY_ORDER_SIZE")
	setFloat64(&cfg.Strategy.MinOrderSize, "UPDOWN_STRATEGY_MIN_ORDER_SIZE")
	setFloat64(&cfg.Strategy.MaxOrderSize, "UPDOWN_STRATEGY_MAX_ORDER_SIZE")
	setFloat64(&cfg.Strategy.MaxPerSide, "UPDOWN_STRATEGY_MAX_PER_SIDE")
	setFloat64(&cfg.Strategy.MaxPricePerSide, "UPDOWN_STRATEGY_MAX_PRICE_PER_SIDE")
	setFloat64(&cfg.Strategy.MaxImbalance, "UPDOWN_STRATEGY_MAX_IMBALANCE")
	setFloat64(&cfg.Strategy.CheapThreshold, "UPDOWN_STRATEGY_CHEAP_THRESHOLD")
	setInt(&cfg.Strategy.MinSamples, "UPDOWN_STRATEGY_MIN_SAMPLES")
	setFloat64(&cfg.Strategy.BootstrapBelow, "UPDOWN_STRATEGY_BOOTSTRAP_BELOW")
	setFloat64(&cfg.Strategy.OverweightRatio, "UPDOWN_STRATEGY_OVERWEIGHT_RATIO")
	setFloat64(&cfg.Strategy.StrictImbalance, "UPDOWN_STRATEGY_STRICT_IMBALANCE")
	setFloat64(&cfg.Strategy.StrictBelowMean, "UPDOWN_STRATEGY_STRICT_BELOW_MEAN")
	setFloat64(&cfg.Strategy.PriceTolerance, "UPDOWN_STRATEGY_PRICE_TOLERANCE")
	setDuration(&cfg.Strategy.MaxCacheAge, "UPDOWN_STRATEGY_MAX_CACHE_AGE")

	// ── Snipe ──
	setFloat64(&cfg.Snipe.MinPrice, "UPDOWN_SNIPE_MIN_PRICE")
	setFloat64(&cfg.Snipe.MaxPrice, "UPDOWN_SNIPE_MAX_PRICE")
	setFloat64(&cfg.Snipe.Size, "UPDOWN_SNIPE_SIZE")
	setFloat64(&cfg.Snipe.Premium, "UPDOWN_SNIPE_PREMIUM")
	setStr(&cfg.Snipe.TieSide, "UPDOWN_SNIPE_TIE_SIDE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "UPDOWN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "UPDOWN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "UPDOWN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "UPDOWN_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "UPDOWN_LOG_LEVEL")
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
