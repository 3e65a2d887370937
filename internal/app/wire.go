package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/alanyoungcy/updownbot/internal/blob/s3"
	"github.com/alanyoungcy/updownbot/internal/cache/redis"
	"github.com/alanyoungcy/updownbot/internal/config"
	"github.com/alanyoungcy/updownbot/internal/crypto"
	"github.com/alanyoungcy/updownbot/internal/domain"
	"github.com/alanyoungcy/updownbot/internal/engine"
	"github.com/alanyoungcy/updownbot/internal/executor"
	"github.com/alanyoungcy/updownbot/internal/notify"
	"github.com/alanyoungcy/updownbot/internal/oracle"
	"github.com/alanyoungcy/updownbot/internal/platform/polymarket"
	"github.com/alanyoungcy/updownbot/internal/report"
	"github.com/alanyoungcy/updownbot/internal/resolver"
	"github.com/alanyoungcy/updownbot/internal/store/postgres"
	"github.com/alanyoungcy/updownbot/internal/strategy"
)

// Dependencies bundles everything the session loop needs to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	TradeStore   domain.TradeStore
	SessionStore domain.SessionStore
	PriceCache   domain.PriceCache
	Archiver     domain.Archiver

	Notifier     *notify.Notifier
	Feed         *polymarket.WSClient
	Orchestrator *engine.Orchestrator
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	tradeStore := postgres.NewTradeStore(pool)
	deps.TradeStore = tradeStore
	deps.SessionStore = postgres.NewSessionStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)

	// --- S3 session archive (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewSessionArchiver(s3blob.NewWriter(s3Client), tradeStore)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Market data clients ---
	timeout := cfg.Polymarket.APITimeout.Duration
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost, timeout)
	clob := polymarket.NewClobClient(cfg.Polymarket.ClobHost, timeout)

	// Push feed keeps the cache tier warm with streamed prices. It is
	// best-effort: without it the oracle still has its book and spot tiers,
	// only the cache fallback goes cold.
	if cfg.Polymarket.WsHost != "" {
		feed := polymarket.NewWSClient(cfg.Polymarket.WsHost)
		cache := deps.PriceCache
		feed.OnLastTrade(func(tokenID string, price float64, ts time.Time) {
			if err := cache.SetPrice(context.WithoutCancel(ctx), tokenID, price, ts); err != nil {
				logger.Warn("cache update failed",
					slog.String("token_id", tokenID),
					slog.String("error", err.Error()))
			}
		})
		feed.OnBookUpdate(func(snap domain.OrderbookSnapshot) {
			if snap.BestAsk <= 0 {
				return
			}
			ts := snap.Timestamp
			if ts.IsZero() {
				ts = time.Now().UTC()
			}
			if err := cache.SetPrice(context.WithoutCancel(ctx), snap.TokenID, snap.BestAsk, ts); err != nil {
				logger.Warn("cache update failed",
					slog.String("token_id", snap.TokenID),
					slog.String("error", err.Error()))
			}
		})
		if err := feed.Connect(ctx); err != nil {
			logger.Warn("push feed unavailable, continuing without cache warming",
				slog.String("error", err.Error()))
		} else {
			closers = append(closers, func() { _ = feed.Close() })
			deps.Feed = feed
		}
	}

	// --- Order path ---
	var placer executor.OrderPlacer
	if !cfg.Session.DryRun {
		auth, err := crypto.LoadCredentials(crypto.CredentialsConfig{
			Key:           cfg.Credentials.APIKey,
			Secret:        cfg.Credentials.APISecret,
			Passphrase:    cfg.Credentials.APIPassphrase,
			EncryptedPath: cfg.Credentials.EncryptedPath,
			Password:      cfg.Credentials.Password,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: credentials: %w", err)
		}
		placer = polymarket.NewGatewayClient(cfg.Gateway.BaseURL, cfg.Wallet.Address, &auth, timeout)
	}

	px := oracle.New(clob, clob, deps.PriceCache, cfg.Strategy.MaxCacheAge.Duration, logger)
	exec := executor.New(placer, px, cfg.Session.DryRun, cfg.Strategy.PriceTolerance, logger)

	// --- Strategy selection ---
	stratCfg := strategy.Config{
		TargetPairCost:  cfg.Strategy.TargetPairCost,
		OrderSize:       cfg.Strategy.OrderSize,
		MinOrderSize:    cfg.Strategy.MinOrderSize,
		MaxOrderSize:    cfg.Strategy.MaxOrderSize,
		MaxPerSide:      cfg.Strategy.MaxPerSide,
		MaxPricePerSide: cfg.Strategy.MaxPricePerSide,
		MaxImbalance:    cfg.Strategy.MaxImbalance,
		CheapThreshold:  cfg.Strategy.CheapThreshold,
		MinSamples:      cfg.Strategy.MinSamples,
		BootstrapBelow:  cfg.Strategy.BootstrapBelow,
		OverweightRatio: cfg.Strategy.OverweightRatio,
		StrictImbalance: cfg.Strategy.StrictImbalance,
		StrictBelowMean: cfg.Strategy.StrictBelowMean,
	}
	var strat strategy.Accumulator
	switch strings.ToLower(cfg.Strategy.Name) {
	case "meanrev":
		strat = strategy.NewMeanReversion(stratCfg)
	default:
		strat = strategy.NewPairwise(stratCfg)
	}

	// --- Engines ---
	acc := engine.NewAccumulation(strat, stratCfg, exec, tradeStore, deps.Notifier, logger)

	tieSide := domain.SideYes
	if strings.ToLower(cfg.Snipe.TieSide) == "no" {
		tieSide = domain.SideNo
	}
	snipe := engine.NewSnipe(engine.SnipeConfig{
		MinPrice: cfg.Snipe.MinPrice,
		MaxPrice: cfg.Snipe.MaxPrice,
		Size:     cfg.Snipe.Size,
		Premium:  cfg.Snipe.Premium,
		TieSide:  tieSide,
	}, exec, tradeStore, deps.Notifier, logger)

	res := resolver.New(gamma, cfg.Session.FallbackFirstAffirmative, logger)
	reporter := report.New(deps.Notifier, deps.SessionStore, deps.Archiver, logger)

	sessCfg := engine.SessionConfig{
		Asset:                  cfg.Session.Asset,
		Duration:               cfg.Session.MarketDuration.Duration,
		LookBack:               cfg.Session.LookBack,
		LookAhead:              cfg.Session.LookAhead,
		SnipeThreshold:         cfg.Session.SnipeThreshold.Duration,
		PollInterval:           cfg.Session.PollInterval.Duration,
		SnipePollInterval:      cfg.Session.SnipePollInterval.Duration,
		SearchBackoff:          cfg.Session.SearchBackoff.Duration,
		WarmupDelay:            cfg.Session.WarmupDelay.Duration,
		WarmupWindow:           cfg.Session.WarmupWindow.Duration,
		HistoryCap:             cfg.Session.HistoryCap,
		MaxDailyLoss:           cfg.Session.MaxDailyLoss,
		MaxConsecutiveFailures: cfg.Session.MaxConsecutiveFailures,
		DryRun:                 cfg.Session.DryRun,
	}

	var feed engine.Feed
	if deps.Feed != nil {
		feed = deps.Feed
	}
	deps.Orchestrator = engine.NewOrchestrator(
		sessCfg, res, px, acc, snipe, reporter, deps.Notifier, feed, logger,
	)

	return deps, cleanup, nil
}
