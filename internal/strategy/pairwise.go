package strategy

import (
	"fmt"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

// Pairwise buys both sides whenever they together cost less than the target
// pair cost. Every matched share pair settles to exactly $1, so accumulating
// below target locks in profit regardless of which side wins. The imbalance
// guard keeps the two share counts close enough that most shares stay
// matched.
type Pairwise struct {
	cfg Config
}

// NewPairwise creates the symmetric pair strategy.
func NewPairwise(cfg Config) *Pairwise {
	return &Pairwise{cfg: cfg}
}

// Name implements Accumulator.
func (s *Pairwise) Name() string { return "pairwise" }

// Decide implements Accumulator.
func (s *Pairwise) Decide(pair domain.PricePair, pos *domain.Position, _ *History) []BuyIntent {
	pairCost := pair.PairCost()
	if pairCost >= s.cfg.TargetPairCost {
		return nil
	}

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

		// Past the imbalance guard only the underweight side may buy, even
		// when the overweight side's price looks attractive.
		if pos.Imbalance() > s.cfg.MaxImbalance && pos.Overweight() == side {
			continue
		}

		intents = append(intents, BuyIntent{
			Side:     side,
			Price:    price,
			Notional: size,
			Reason:   fmt.Sprintf("pair cost %.4f below target %.4f", pairCost, s.cfg.TargetPairCost),
		})
	}
	return intents
}
