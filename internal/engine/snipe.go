package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/updownbot/internal/domain"
	"github.com/alanyoungcy/updownbot/internal/executor"
	"github.com/alanyoungcy/updownbot/internal/notify"
)

// SnipeState is the snipe engine's phase within one market window.
type SnipeState string

const (
	SnipeArmed     SnipeState = "armed"
	SnipeAttempted SnipeState = "attempted"
	SnipeDone      SnipeState = "done"
)

// SnipeConfig carries the snipe tunables.
type SnipeConfig struct {
	// MinPrice and MaxPrice bound the presumed winner's observed price.
	// Below the band the data is suspicious or stale; above it there is no
	// margin left to capture.
	MinPrice float64
	MaxPrice float64

	// Size is the fixed USD notional of the snipe buy.
	Size float64

	// Premium is added to the observed price to bias toward immediate fill,
	// as a fraction (0.005 means 0.5%).
	Premium float64

	// TieSide is bought when both sides sit at exactly 0.50.
	TieSide domain.Side
}

// SnipeEngine makes at most one decisive buy of the presumed winner while
// the market is in its final seconds. Retrying a failed snipe with fresh
// capital this close to settlement is deliberately not done: one attempt per
// market, successful or not.
type SnipeEngine struct {
	cfg      SnipeConfig
	exec     *executor.Executor
	trades   domain.TradeStore
	notifier *notify.Notifier
	logger   *slog.Logger

	market domain.Market
	state  SnipeState
}

// NewSnipe creates the engine. trades and notifier may be nil to skip
// persistence and operator alerts.
func NewSnipe(cfg SnipeConfig, exec *executor.Executor, trades domain.TradeStore, notifier *notify.Notifier, logger *slog.Logger) *SnipeEngine {
	return &SnipeEngine{
		cfg:      cfg,
		exec:     exec,
		trades:   trades,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "snipe")),
		state:    SnipeDone,
	}
}

// Arm readies the engine for a fresh market.
func (s *SnipeEngine) Arm(m domain.Market) {
	s.market = m
	s.state = SnipeArmed
}

// State returns the current engine phase.
func (s *SnipeEngine) State() SnipeState { return s.state }

// Cycle evaluates one snipe opportunity. The attempt is burned the moment an
// order submission starts, whatever its outcome.
func (s *SnipeEngine) Cycle(ctx context.Context, pair domain.PricePair, pos *domain.Position) {
	if s.state != SnipeArmed {
		return
	}

	side, price, ok := s.presumedWinner(pair)
	if !ok {
		s.logger.Debug("no snipe candidate this cycle",
			slog.String("market", s.market.Slug),
			slog.Float64("yes_price", pair.Yes.Price),
			slog.Float64("no_price", pair.No.Price))
		return
	}

	if price < s.cfg.MinPrice {
		s.logger.Warn("winner price below snipe band, treating as stale data",
			slog.String("market", s.market.Slug),
			slog.String("side", string(side)),
			slog.Float64("price", price),
			slog.Float64("min", s.cfg.MinPrice))
		return
	}
	if price > s.cfg.MaxPrice {
		s.logger.Info("winner price above snipe band, margin too thin",
			slog.String("market", s.market.Slug),
			slog.String("side", string(side)),
			slog.Float64("price", price),
			slog.Float64("max", s.cfg.MaxPrice))
		return
	}

	// Pay a small premium for execution certainty this close to settlement.
	submitPrice := price * (1 + s.cfg.Premium)
	if submitPrice > 0.99 {
		submitPrice = 0.99
	}

	reason := fmt.Sprintf("snipe: winner at %.4f, submitting at %.4f", price, submitPrice)
	req := s.exec.BuildRequest(s.market, side, submitPrice, s.cfg.Size, reason, true)

	s.state = SnipeAttempted
	trade, err := s.exec.Execute(ctx, req)
	s.state = SnipeDone

	if err != nil {
		s.logger.Warn("snipe attempt failed, not retrying",
			slog.String("market", s.market.Slug),
			slog.String("side", string(side)),
			slog.Float64("price", submitPrice),
			slog.String("error", err.Error()))
		s.notify(ctx, fmt.Sprintf("Snipe failed: %s", s.market.Slug),
			fmt.Sprintf("%s at %.4f: %v", side, submitPrice, err))
		return
	}

	pos.Apply(trade)
	s.persist(ctx, trade)
	s.notify(ctx, fmt.Sprintf("Snipe filled: %s", s.market.Slug),
		fmt.Sprintf("%s: %.2f shares at %.4f ($%.2f)", side, trade.Shares, trade.Price, trade.Cost))

	s.logger.Info("snipe filled",
		slog.String("market", s.market.Slug),
		slog.String("side", string(side)),
		slog.Float64("price", trade.Price),
		slog.Float64("shares", trade.Shares),
		slog.Float64("cost", trade.Cost))
}

func (s *SnipeEngine) notify(ctx context.Context, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, notify.EventSnipe, title, message); err != nil {
		s.logger.Warn("snipe notification failed", slog.String("error", err.Error()))
	}
}

// presumedWinner picks the side whose price exceeds 0.5. An exact 0.50/0.50
// tie falls back to the configured side.
func (s *SnipeEngine) presumedWinner(pair domain.PricePair) (domain.Side, float64, bool) {
	switch {
	case pair.Yes.Price > 0.5:
		return domain.SideYes, pair.Yes.Price, true
	case pair.No.Price > 0.5:
		return domain.SideNo, pair.No.Price, true
	case pair.Yes.Price == 0.5 && pair.No.Price == 0.5:
		return s.cfg.TieSide, 0.5, true
	default:
		return "", 0, false
	}
}

func (s *SnipeEngine) persist(ctx context.Context, trade domain.Trade) {
	if s.trades == nil {
		return
	}
	if err := s.trades.SaveTrade(ctx, &trade); err != nil {
		s.logger.Warn("save trade failed",
			slog.String("trade_id", trade.ID),
			slog.String("error", err.Error()))
	}
}
