package strategy

import (
	"testing"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

func historyWithMean(sides map[domain.Side]float64, count int) *History {
	h := NewHistory(100)
	for side, mean := range sides {
		for i := 0; i < count; i++ {
			h.Record(side, mean)
		}
	}
	return h
}

func TestMeanRevBuysCheapSideOnly(t *testing.T) {
	s := NewMeanReversion(testConfig())
	pos := domain.NewPosition("m")
	hist := historyWithMean(map[domain.Side]float64{
		domain.SideYes: 0.50,
		domain.SideNo:  0.50,
	}, 10)

	// Yes at 0.47 < 0.50*0.95 = 0.475 is cheap; no at 0.49 is not.
	intents := s.Decide(pairAt(0.47, 0.49), pos, hist)
	if len(intents) != 1 {
		t.Fatalf("got %d intents, want 1", len(intents))
	}
	if intents[0].Side != domain.SideYes {
		t.Fatalf("side = %s, want yes", intents[0].Side)
	}
}

func TestMeanRevBootstrapBeforeMinSamples(t *testing.T) {
	s := NewMeanReversion(testConfig())
	pos := domain.NewPosition("m")
	hist := NewHistory(100)

	// Below 0.50 buys outright before history fills up.
	intents := s.Decide(pairAt(0.45, 0.55), pos, hist)
	if len(intents) != 1 || intents[0].Side != domain.SideYes {
		t.Fatalf("intents = %+v, want bootstrap yes buy", intents)
	}

	// At exactly 0.50 the bootstrap rule does not trigger.
	if intents := s.Decide(pairAt(0.50, 0.55), pos, hist); len(intents) != 0 {
		t.Fatalf("got %d intents at 0.50, want 0", len(intents))
	}
}

func TestMeanRevOverweightRatioBlocks(t *testing.T) {
	s := NewMeanReversion(testConfig())
	pos := domain.NewPosition("m")
	// Yes holds 16 shares vs 10 no: above the 1.5x ratio.
	pos.Apply(domain.Trade{Outcome: domain.SideYes, Cost: 3.0, Shares: 16})
	pos.Apply(domain.Trade{Outcome: domain.SideNo, Cost: 3.0, Shares: 10})
	hist := historyWithMean(map[domain.Side]float64{
		domain.SideYes: 0.50,
		domain.SideNo:  0.60,
	}, 10)

	intents := s.Decide(pairAt(0.40, 0.59), pos, hist)
	for _, in := range intents {
		if in.Side == domain.SideYes {
			t.Fatalf("overweight yes side still bought: %+v", in)
		}
	}
}

func TestMeanRevStricterDiscountWhenImbalanced(t *testing.T) {
	s := NewMeanReversion(testConfig())
	pos := domain.NewPosition("m")
	// Imbalance 4.1/9.9 ≈ 0.41 > 0.40. Yes is also past the 1.5x ratio, so
	// only the underweight no side can buy, and only at the deep discount.
	pos.Apply(domain.Trade{Outcome: domain.SideYes, Cost: 2.0, Shares: 7})
	pos.Apply(domain.Trade{Outcome: domain.SideNo, Cost: 2.0, Shares: 2.9})
	hist := historyWithMean(map[domain.Side]float64{
		domain.SideYes: 0.50,
		domain.SideNo:  0.50,
	}, 10)

	// 0.47 passes the normal 5% rule but not the stricter 10% (needs <0.45).
	intents := s.Decide(pairAt(0.60, 0.47), pos, hist)
	if len(intents) != 0 {
		t.Fatalf("got %d intents, want 0 under strict rule", len(intents))
	}

	// 0.44 clears the stricter threshold.
	intents = s.Decide(pairAt(0.60, 0.44), pos, hist)
	if len(intents) != 1 || intents[0].Side != domain.SideNo {
		t.Fatalf("intents = %+v, want no-side buy at deep discount", intents)
	}
}

func TestHistoryBoundedWindow(t *testing.T) {
	h := NewHistory(3)
	for _, p := range []float64{0.10, 0.20, 0.30, 0.40} {
		h.Record(domain.SideYes, p)
	}
	if h.Count(domain.SideYes) != 3 {
		t.Fatalf("count = %d, want 3", h.Count(domain.SideYes))
	}
	// Oldest (0.10) evicted: mean of 0.20, 0.30, 0.40.
	want := 0.30
	if got := h.Mean(domain.SideYes); got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("mean = %v, want %v", got, want)
	}
}
