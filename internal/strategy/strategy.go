// Package strategy holds the accumulation decision rules. Strategies are
// pure: they read prices, position, and history, and emit buy intents. All
// I/O (order submission, persistence) happens in the engines.
package strategy

import "github.com/alanyoungcy/updownbot/internal/domain"

// BuyIntent is a strategy's request to spend a fixed USD amount on one side
// at the decision-time price.
type BuyIntent struct {
	Side     domain.Side
	Price    float64
	Notional float64
	Reason   string
}

// Accumulator decides steady-state buys while a market is tradeable. A
// single implementation is selected at startup from configuration.
type Accumulator interface {
	Name() string
	Decide(pair domain.PricePair, pos *domain.Position, hist *History) []BuyIntent
}

// Config carries the tunables shared by both accumulation strategies.
type Config struct {
	// TargetPairCost gates the pairwise strategy: no buys when the two
	// sides together cost at least this much.
	TargetPairCost float64

	// OrderSize is the USD notional per buy, clamped to the remaining
	// per-side budget and skipped entirely below MinOrderSize.
	OrderSize    float64
	MinOrderSize float64
	MaxOrderSize float64

	// MaxPerSide caps cumulative USD spend per side.
	MaxPerSide float64

	// MaxPricePerSide is the per-side price ceiling.
	MaxPricePerSide float64

	// MaxImbalance is the pairwise strategy's share-imbalance guard. Above
	// it only the underweight side may buy.
	MaxImbalance float64

	// CheapThreshold is the mean-reversion discount required below the
	// rolling mean, as a fraction (0.05 means 5% below).
	CheapThreshold float64

	// MinSamples is the history size required before the mean-reversion
	// rule activates; until then BootstrapBelow applies.
	MinSamples     int
	BootstrapBelow float64

	// OverweightRatio blocks a side once its shares exceed this multiple of
	// the other side's.
	OverweightRatio float64

	// StrictImbalance and StrictBelowMean tighten the mean-reversion rule:
	// past StrictImbalance, a buy on the overweight side needs a discount of
	// at least StrictBelowMean.
	StrictImbalance float64
	StrictBelowMean float64
}

// sizeFor clamps the configured order size to the remaining per-side budget.
// Returns 0 when the remainder is below the minimum worth submitting.
func (c Config) sizeFor(spent float64) float64 {
	remaining := c.MaxPerSide - spent
	if remaining <= 0 {
		return 0
	}
	size := c.OrderSize
	if c.MaxOrderSize > 0 && size > c.MaxOrderSize {
		size = c.MaxOrderSize
	}
	if size > remaining {
		size = remaining
	}
	if size < c.MinOrderSize {
		return 0
	}
	return size
}

// Exhausted reports whether both sides have reached their spend cap, at
// which point the accumulation engine stops evaluating entirely.
func (c Config) Exhausted(pos *domain.Position) bool {
	return c.MaxPerSide-pos.Spent(domain.SideYes) < c.MinOrderSize &&
		c.MaxPerSide-pos.Spent(domain.SideNo) < c.MinOrderSize
}
