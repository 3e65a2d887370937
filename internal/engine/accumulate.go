// Package engine contains the per-market decision engines and the session
// orchestrator that drives them.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/updownbot/internal/domain"
	"github.com/alanyoungcy/updownbot/internal/executor"
	"github.com/alanyoungcy/updownbot/internal/notify"
	"github.com/alanyoungcy/updownbot/internal/strategy"
)

// AccumulationState is the engine's phase within one market window.
type AccumulationState string

const (
	AccumulationIdle         AccumulationState = "idle"
	AccumulationAccumulating AccumulationState = "accumulating"
	AccumulationExhausted    AccumulationState = "exhausted"
)

// AccumulationEngine drives steady-state buying while the market is
// tradeable. It owns the Position for the market's lifetime; nothing else
// mutates it.
type AccumulationEngine struct {
	strat    strategy.Accumulator
	cfg      strategy.Config
	exec     *executor.Executor
	trades   domain.TradeStore
	notifier *notify.Notifier
	logger   *slog.Logger

	market domain.Market
	pos    *domain.Position
	hist   *strategy.History
	state  AccumulationState
}

// NewAccumulation creates the engine. trades and notifier may be nil to skip
// persistence and operator alerts.
func NewAccumulation(strat strategy.Accumulator, cfg strategy.Config, exec *executor.Executor, trades domain.TradeStore, notifier *notify.Notifier, logger *slog.Logger) *AccumulationEngine {
	return &AccumulationEngine{
		strat:    strat,
		cfg:      cfg,
		exec:     exec,
		trades:   trades,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "accumulation")),
		state:    AccumulationIdle,
	}
}

// SetMarket binds the engine to a fresh market, discarding all prior state.
func (e *AccumulationEngine) SetMarket(m domain.Market, historyCap int) {
	e.market = m
	e.pos = domain.NewPosition(m.Slug)
	e.hist = strategy.NewHistory(historyCap)
	e.state = AccumulationIdle
}

// Position returns the engine's position. Shared with the snipe engine and
// the finalizer for the same market window.
func (e *AccumulationEngine) Position() *domain.Position { return e.pos }

// State returns the current engine phase.
func (e *AccumulationEngine) State() AccumulationState { return e.state }

// Cycle runs one decision pass against a fully-collected price pair. Order
// failures leave the position unchanged; the next cycle re-evaluates from
// fresh prices.
func (e *AccumulationEngine) Cycle(ctx context.Context, pair domain.PricePair) {
	e.hist.Record(domain.SideYes, pair.Yes.Price)
	e.hist.Record(domain.SideNo, pair.No.Price)

	if e.state == AccumulationIdle {
		e.state = AccumulationAccumulating
		e.logger.Info("accumulation started",
			slog.String("market", e.market.Slug),
			slog.String("strategy", e.strat.Name()))
	}
	if e.state == AccumulationExhausted {
		return
	}

	intents := e.strat.Decide(pair, e.pos, e.hist)
	if len(intents) == 0 {
		e.logger.Debug("no buys this cycle",
			slog.String("market", e.market.Slug),
			slog.Float64("yes_price", pair.Yes.Price),
			slog.Float64("no_price", pair.No.Price),
			slog.Float64("pair_cost", pair.PairCost()))
	}

	for _, intent := range intents {
		req := e.exec.BuildRequest(e.market, intent.Side, intent.Price, intent.Notional, intent.Reason, false)

		trade, err := e.exec.Execute(ctx, req)
		if err != nil {
			e.logger.Warn("accumulation buy skipped",
				slog.String("market", e.market.Slug),
				slog.String("side", string(intent.Side)),
				slog.Float64("price", intent.Price),
				slog.String("reason", intent.Reason),
				slog.String("error", err.Error()))
			continue
		}

		e.pos.Apply(trade)
		e.persist(ctx, trade)
		e.notifyFill(ctx, trade)
	}

	if e.cfg.Exhausted(e.pos) {
		e.state = AccumulationExhausted
		e.logger.Info("both sides at spend cap, accumulation exhausted",
			slog.String("market", e.market.Slug),
			slog.Float64("yes_spent", e.pos.YesSpent),
			slog.Float64("no_spent", e.pos.NoSpent))
	}
}

func (e *AccumulationEngine) notifyFill(ctx context.Context, trade domain.Trade) {
	if e.notifier == nil {
		return
	}
	title := fmt.Sprintf("Bought %s", trade.Label)
	msg := fmt.Sprintf("%s: %.2f shares at %.4f ($%.2f)",
		trade.MarketSlug, trade.Shares, trade.Price, trade.Cost)
	if err := e.notifier.Notify(ctx, notify.EventTrade, title, msg); err != nil {
		e.logger.Warn("trade notification failed", slog.String("error", err.Error()))
	}
}

// persist writes the trade; persistence failure never blocks trading.
func (e *AccumulationEngine) persist(ctx context.Context, trade domain.Trade) {
	if e.trades == nil {
		return
	}
	if err := e.trades.SaveTrade(ctx, &trade); err != nil {
		e.logger.Warn("save trade failed",
			slog.String("trade_id", trade.ID),
			slog.String("error", err.Error()))
	}
}
