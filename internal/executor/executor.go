// Package executor turns buy intents into submitted orders, with a
// pre-submission price re-check and a dry-run simulation path.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

// OrderPlacer submits a buy to the exchange. Implemented by the trade
// gateway client.
type OrderPlacer interface {
	PostOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)
}

// Quoter returns a fresh single-token quote for the pre-submission re-check.
type Quoter interface {
	Quote(ctx context.Context, tokenID string) (domain.PriceQuote, error)
}

// Executor is the single order-submission path for both engines. A failed or
// aborted submission leaves position state untouched; the caller re-evaluates
// from fresh prices on the next cycle.
type Executor struct {
	placer OrderPlacer
	quoter Quoter
	logger *slog.Logger

	// dryRun simulates fills locally instead of submitting.
	dryRun bool

	// priceTolerance aborts submission when the live price has moved more
	// than this fraction from the decision-time price.
	priceTolerance float64
}

// New creates an Executor. priceTolerance <= 0 defaults to 0.15.
func New(placer OrderPlacer, quoter Quoter, dryRun bool, priceTolerance float64, logger *slog.Logger) *Executor {
	if priceTolerance <= 0 {
		priceTolerance = 0.15
	}
	return &Executor{
		placer:         placer,
		quoter:         quoter,
		dryRun:         dryRun,
		priceTolerance: priceTolerance,
		logger:         logger.With(slog.String("component", "executor")),
	}
}

// DryRun reports whether the executor simulates fills.
func (e *Executor) DryRun() bool { return e.dryRun }

// BuildRequest stamps a buy intent into a submittable order request.
func (e *Executor) BuildRequest(market domain.Market, side domain.Side, price, notional float64, reason string, snipe bool) domain.OrderRequest {
	outcome := market.Outcome(side)
	return domain.OrderRequest{
		ID:         uuid.NewString(),
		MarketSlug: market.Slug,
		TokenID:    outcome.TokenID,
		Outcome:    side,
		Label:      outcome.Label,
		Price:      price,
		Notional:   notional,
		Reason:     reason,
		Snipe:      snipe,
		CreatedAt:  time.Now().UTC(),
	}
}

// Execute re-checks the live price, then submits (or simulates) the order.
// On success it returns the resulting trade for the caller to apply to its
// position; on any failure the position must not change.
func (e *Executor) Execute(ctx context.Context, req domain.OrderRequest) (domain.Trade, error) {
	live, err := e.quoter.Quote(ctx, req.TokenID)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("executor: pre-submit quote: %w", err)
	}

	// Prices can move between decision and submission. Abort rather than
	// fill at materially different terms.
	if drift := math.Abs(live.Price-req.Price) / req.Price; drift > e.priceTolerance {
		return domain.Trade{}, fmt.Errorf("executor: %w: price moved %.1f%% (decision %.4f, live %.4f)",
			domain.ErrStalePrice, drift*100, req.Price, live.Price)
	}

	if e.dryRun {
		return e.simulate(req, live), nil
	}

	result, err := e.placer.PostOrder(ctx, req)
	if err != nil {
		e.logger.Warn("order submission failed",
			slog.String("order_id", req.ID),
			slog.String("market", req.MarketSlug),
			slog.String("side", string(req.Outcome)),
			slog.String("error", err.Error()))
		return domain.Trade{}, fmt.Errorf("executor: submit: %w", err)
	}

	fillPrice := result.FilledPrice
	if fillPrice <= 0 {
		fillPrice = req.Price
	}

	trade := domain.Trade{
		ID:         req.ID,
		MarketSlug: req.MarketSlug,
		TokenID:    req.TokenID,
		Outcome:    req.Outcome,
		Label:      req.Label,
		Price:      fillPrice,
		Shares:     req.Notional / fillPrice,
		Cost:       req.Notional,
		Snipe:      req.Snipe,
		OrderID:    result.OrderID,
		Timestamp:  time.Now().UTC(),
	}

	e.logger.Info("order filled",
		slog.String("order_id", result.OrderID),
		slog.String("market", req.MarketSlug),
		slog.String("side", string(req.Outcome)),
		slog.Float64("price", fillPrice),
		slog.Float64("shares", trade.Shares),
		slog.Float64("cost", trade.Cost))

	return trade, nil
}

// simulate records a fill at the live price without touching the exchange.
func (e *Executor) simulate(req domain.OrderRequest, live domain.PriceQuote) domain.Trade {
	trade := domain.Trade{
		ID:         req.ID,
		MarketSlug: req.MarketSlug,
		TokenID:    req.TokenID,
		Outcome:    req.Outcome,
		Label:      req.Label,
		Price:      live.Price,
		Shares:     req.Notional / live.Price,
		Cost:       req.Notional,
		Snipe:      req.Snipe,
		Simulated:  true,
		Timestamp:  time.Now().UTC(),
	}

	e.logger.Info("dry run fill",
		slog.String("order_id", req.ID),
		slog.String("market", req.MarketSlug),
		slog.String("side", string(req.Outcome)),
		slog.Float64("price", live.Price),
		slog.Float64("shares", trade.Shares),
		slog.Float64("cost", trade.Cost))

	return trade
}
