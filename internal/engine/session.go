package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/updownbot/internal/domain"
	"github.com/alanyoungcy/updownbot/internal/marketclock"
	"github.com/alanyoungcy/updownbot/internal/notify"
	"github.com/alanyoungcy/updownbot/internal/report"
)

// MarketResolver resolves a candidate slot into a validated market.
type MarketResolver interface {
	Resolve(ctx context.Context, asset string, duration time.Duration, slot time.Time) (domain.Market, error)
}

// PriceSource produces a consistent price pair for a market's outcomes.
type PriceSource interface {
	QuotePair(ctx context.Context, market domain.Market) (domain.PricePair, error)
}

// Feed is the optional push feed keeping the price cache warm for the
// market's outcome tokens.
type Feed interface {
	Subscribe(ctx context.Context, tokenIDs []string) error
	Unsubscribe(ctx context.Context, tokenIDs []string) error
}

// SessionConfig carries the orchestrator tunables.
type SessionConfig struct {
	Asset    string
	Duration time.Duration

	// LookBack and LookAhead bound the slot candidates probed per search.
	LookBack  int
	LookAhead int

	// SnipeThreshold is the remaining time at which control passes from
	// accumulation to the snipe engine.
	SnipeThreshold time.Duration

	// PollInterval paces normal decision cycles; SnipePollInterval paces
	// cycles during the final seconds where staleness matters more.
	PollInterval      time.Duration
	SnipePollInterval time.Duration

	// SearchBackoff is slept when no candidate slot resolves.
	SearchBackoff time.Duration

	// WarmupDelay is slept once before the first order when the market was
	// caught within WarmupWindow of its own start, giving upstream books
	// time to populate.
	WarmupDelay  time.Duration
	WarmupWindow time.Duration

	// HistoryCap bounds each side's rolling price history.
	HistoryCap int

	// MaxDailyLoss stops trading for the day once cumulative realized loss
	// reaches it. Zero disables the check.
	MaxDailyLoss float64

	// MaxConsecutiveFailures ends the session when this many decision
	// cycles in a row could not obtain prices.
	MaxConsecutiveFailures int

	DryRun bool
}

// Orchestrator is the top-level loop: acquire a market, trade it through its
// window, finalize, repeat. One instance trades one market at a time.
type Orchestrator struct {
	cfg      SessionConfig
	resolver MarketResolver
	prices   PriceSource
	acc      *AccumulationEngine
	snipe    *SnipeEngine
	reporter *report.Reporter
	notifier *notify.Notifier
	feed     Feed
	logger   *slog.Logger

	// lossDay and dayLoss track cumulative realized loss per UTC day.
	lossDay string
	dayLoss float64
}

// NewOrchestrator wires the orchestrator. notifier and feed may be nil.
func NewOrchestrator(
	cfg SessionConfig,
	resolver MarketResolver,
	prices PriceSource,
	acc *AccumulationEngine,
	snipe *SnipeEngine,
	reporter *report.Reporter,
	notifier *notify.Notifier,
	feed Feed,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		resolver: resolver,
		prices:   prices,
		acc:      acc,
		snipe:    snipe,
		reporter: reporter,
		notifier: notifier,
		feed:     feed,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// Run executes the session loop until the context is canceled or a fatal
// condition (daily loss ceiling, persistent price failure) ends it. A
// cancellation mid-market finishes the in-flight cycle and finalizes before
// returning.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("session loop started",
		slog.String("asset", o.cfg.Asset),
		slog.Duration("duration", o.cfg.Duration),
		slog.Bool("dry_run", o.cfg.DryRun))

	traded := 0
	defer func() {
		o.logger.Info("session loop stopped",
			slog.Int("markets_traded", traded),
			slog.Float64("day_loss", o.dayLoss))
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		market, ok := o.search(ctx)
		if !ok {
			return nil // context canceled during search
		}

		rec, tradeErr := o.trade(ctx, market)
		traded++
		o.finalize(ctx, rec)

		if tradeErr != nil {
			return tradeErr
		}
		if err := o.recordLoss(ctx, rec.Summary); err != nil {
			return err
		}
	}
}

// finalizeTimeout bounds post-session persistence and notification so a
// shutdown cannot hang on a dead downstream.
const finalizeTimeout = 10 * time.Second

// finalize reports the finished session. The record must survive shutdown,
// so the canceled loop context is not allowed to abort persistence.
func (o *Orchestrator) finalize(ctx context.Context, rec *domain.SessionRecord) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	o.reporter.Finalize(fctx, rec)
}

// search probes candidate slots until one resolves to a market that has not
// settled. Returns false only on context cancellation.
func (o *Orchestrator) search(ctx context.Context) (domain.Market, bool) {
	for {
		if ctx.Err() != nil {
			return domain.Market{}, false
		}

		now := time.Now().UTC()
		for _, slot := range marketclock.CandidateSlots(now, o.cfg.Duration, o.cfg.LookBack, o.cfg.LookAhead) {
			market, err := o.resolver.Resolve(ctx, o.cfg.Asset, o.cfg.Duration, slot)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrNotFound):
					// Expected for most candidates.
				case errors.Is(err, domain.ErrMarketClosed):
					// Expected for the look-back candidate.
				case errors.Is(err, domain.ErrMalformedMarket):
					o.logger.Warn("skipping malformed market",
						slog.Int64("slot", slot.Unix()),
						slog.String("error", err.Error()))
				default:
					o.logger.Warn("resolve failed",
						slog.Int64("slot", slot.Unix()),
						slog.String("error", err.Error()))
				}
				continue
			}

			status, _ := marketclock.StatusFor(time.Now().UTC(), market.WindowStart, market.Duration(), o.cfg.SnipeThreshold)
			if status == domain.MarketStatusSettled {
				continue
			}

			o.logger.Info("market acquired",
				slog.String("slug", market.Slug),
				slog.String("status", string(status)),
				slog.Time("window_end", market.WindowEnd))
			return market, true
		}

		o.logger.Debug("no candidate resolved, backing off",
			slog.Duration("backoff", o.cfg.SearchBackoff))
		sleepCtx(ctx, o.cfg.SearchBackoff)
	}
}

// trade runs the decision loop for one market window and returns the
// finished session record. A non-nil error means the session loop must stop;
// the record is still valid and must be finalized.
func (o *Orchestrator) trade(ctx context.Context, market domain.Market) (*domain.SessionRecord, error) {
	started := time.Now().UTC()

	o.acc.SetMarket(market, o.cfg.HistoryCap)
	o.snipe.Arm(market)

	if o.notifier != nil {
		_ = o.notifier.Notify(ctx, notify.EventSessionStart,
			fmt.Sprintf("Trading %s", market.Slug),
			fmt.Sprintf("%s\nwindow ends %s", market.Question, market.WindowEnd.Format("15:04:05")))
	}

	if o.feed != nil {
		ids := market.TokenIDs()
		if err := o.feed.Subscribe(ctx, ids[:]); err != nil {
			o.logger.Warn("feed subscribe failed", slog.String("error", err.Error()))
		} else {
			defer func() {
				if err := o.feed.Unsubscribe(context.WithoutCancel(ctx), ids[:]); err != nil {
					o.logger.Debug("feed unsubscribe failed", slog.String("error", err.Error()))
				}
			}()
		}
	}

	warmed := false
	snipeMode := false
	failures := 0

	for {
		now := time.Now().UTC()
		status, remaining := marketclock.StatusFor(now, market.WindowStart, market.Duration(), o.cfg.SnipeThreshold)

		switch status {
		case domain.MarketStatusPretrade:
			wait := o.cfg.PollInterval
			if remaining < wait {
				wait = remaining
			}
			sleepCtx(ctx, wait)

		case domain.MarketStatusTradeable:
			if !warmed {
				warmed = true
				elapsed := market.Duration() - remaining
				if elapsed < o.cfg.WarmupWindow {
					o.logger.Info("warming up before first order",
						slog.Duration("delay", o.cfg.WarmupDelay))
					sleepCtx(ctx, o.cfg.WarmupDelay)
					continue
				}
			}

			pair, err := o.prices.QuotePair(ctx, market)
			if err != nil {
				failures++
				o.logger.Warn("no usable prices, skipping cycle",
					slog.Int("consecutive_failures", failures),
					slog.String("error", err.Error()))
			} else {
				failures = 0
				o.acc.Cycle(ctx, pair)
			}
			sleepCtx(ctx, o.cfg.PollInterval)

		case domain.MarketStatusSnipeOnly:
			if !snipeMode {
				snipeMode = true
				o.logger.Info("entering snipe window, accumulation stopped",
					slog.Duration("remaining", remaining))
			}

			pair, err := o.prices.QuotePair(ctx, market)
			if err != nil {
				failures++
				o.logger.Warn("no usable prices, skipping snipe cycle",
					slog.Int("consecutive_failures", failures),
					slog.String("error", err.Error()))
			} else {
				failures = 0
				o.snipe.Cycle(ctx, pair, o.acc.Position())
			}
			sleepCtx(ctx, o.cfg.SnipePollInterval)

		case domain.MarketStatusSettled:
			return o.finish(market, started), nil
		}

		// Persistent price failure is fatal: without prices the bot cannot
		// trade this market or the next one, and re-acquiring the same
		// unsettled market would just spin.
		if o.cfg.MaxConsecutiveFailures > 0 && failures >= o.cfg.MaxConsecutiveFailures {
			o.logger.Error("price sources failing persistently, ending session",
				slog.Int("failures", failures))
			if o.notifier != nil {
				_ = o.notifier.Notify(ctx, notify.EventError, "Price sources down",
					fmt.Sprintf("%d consecutive cycles without usable prices on %s", failures, market.Slug))
			}
			return o.finish(market, started),
				fmt.Errorf("orchestrator: %w: %d consecutive cycles without prices", domain.ErrUnavailable, failures)
		}

		// The in-flight cycle above ran to completion; only now honor a
		// shutdown signal.
		if ctx.Err() != nil {
			o.logger.Info("shutdown requested, finalizing current market")
			return o.finish(market, started), nil
		}
	}
}

// finish assembles the session record from the engine's final position.
func (o *Orchestrator) finish(market domain.Market, started time.Time) *domain.SessionRecord {
	pos := o.acc.Position()
	summary := pos.Summary()

	sniped := false
	for _, t := range pos.Trades {
		if t.Snipe {
			sniped = true
			break
		}
	}

	return &domain.SessionRecord{
		MarketSlug: market.Slug,
		Asset:      o.cfg.Asset,
		StartedAt:  started,
		EndedAt:    time.Now().UTC(),
		Summary:    &summary,
		Sniped:     sniped,
		DryRun:     o.cfg.DryRun,
	}
}

// recordLoss accumulates realized loss per UTC day and stops the session
// once the configured ceiling is hit.
func (o *Orchestrator) recordLoss(ctx context.Context, summary *domain.PositionSummary) error {
	if o.cfg.MaxDailyLoss <= 0 {
		return nil
	}

	day := time.Now().UTC().Format("2006-01-02")
	if day != o.lossDay {
		o.lossDay = day
		o.dayLoss = 0
	}
	if summary.PotentialProfit < 0 {
		o.dayLoss += -summary.PotentialProfit
	}

	if o.dayLoss >= o.cfg.MaxDailyLoss {
		msg := fmt.Sprintf("daily loss $%.2f reached ceiling $%.2f", o.dayLoss, o.cfg.MaxDailyLoss)
		o.logger.Error("stopping for the day", slog.Float64("loss", o.dayLoss))
		if o.notifier != nil {
			_ = o.notifier.Notify(ctx, notify.EventError, "Daily loss limit", msg)
		}
		return fmt.Errorf("orchestrator: %s", msg)
	}
	return nil
}

// sleepCtx sleeps for d or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
