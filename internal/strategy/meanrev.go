package strategy

import (
	"fmt"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

// MeanReversion evaluates each side against its own rolling price mean,
// fully independently of the other side's price. A side is bought when it is
// unusually cheap relative to its recent history. Until enough samples exist
// a simpler bootstrap rule applies.
type MeanReversion struct {
	cfg Config
}

// NewMeanReversion creates the asymmetric mean-reversion strategy.
func NewMeanReversion(cfg Config) *MeanReversion {
	return &MeanReversion{cfg: cfg}
}

// Name implements Accumulator.
func (s *MeanReversion) Name() string { return "meanrev" }

// Decide implements Accumulator.
func (s *MeanReversion) Decide(pair domain.PricePair, pos *domain.Position, hist *History) []BuyIntent {
	var intents []BuyIntent
	for _, side := range []domain.Side{domain.SideYes, domain.SideNo} {
		price := pair.Quote(side).Price
		if price > s.cfg.MaxPricePerSide {
			continue
		}

		size := s.cfg.sizeFor(pos.Spent(side))
		if size == 0 {
			continue
		}

		// A side holding well over its counterpart's shares stops buying
		// until the other side catches up.
		other := pos.Shares(side.Opposite())
		if other > 0 && pos.Shares(side) > s.cfg.OverweightRatio*other {
			continue
		}

		reason, ok := s.cheap(side, price, pos, hist)
		if !ok {
			continue
		}

		intents = append(intents, BuyIntent{
			Side:     side,
			Price:    price,
			Notional: size,
			Reason:   reason,
		})
	}
	return intents
}

// cheap reports whether the side's price qualifies as unusually cheap and
// the human-readable reason when it does.
func (s *MeanReversion) cheap(side domain.Side, price float64, pos *domain.Position, hist *History) (string, bool) {
	if hist.Count(side) < s.cfg.MinSamples {
		if price < s.cfg.BootstrapBelow {
			return fmt.Sprintf("bootstrap: price %.4f below %.2f", price, s.cfg.BootstrapBelow), true
		}
		return "", false
	}

	mean := hist.Mean(side)
	discount := s.cfg.CheapThreshold
	// A heavily imbalanced position demands a deeper discount before adding
	// to it at all.
	if pos.Imbalance() > s.cfg.StrictImbalance {
		discount = s.cfg.StrictBelowMean
	}

	threshold := mean * (1 - discount)
	if price < threshold {
		return fmt.Sprintf("price %.4f below mean %.4f by %.0f%%", price, mean, discount*100), true
	}
	return "", false
}
