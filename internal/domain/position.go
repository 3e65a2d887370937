package domain

import "time"

// Trade is one executed (or dry-run simulated) buy recorded against a
// position. Shares equal Cost/Price at insertion time and are never adjusted
// retroactively.
type Trade struct {
	ID         string
	MarketSlug string
	TokenID    string
	Outcome    Side
	Label      string // outcome label at trade time, e.g. "Up"
	Price      float64
	Shares     float64
	Cost       float64 // USD spent
	Snipe      bool
	Simulated  bool
	OrderID    string // exchange order id, empty when simulated
	Timestamp  time.Time
}

// Position is the per-market accumulation state. It is owned exclusively by
// the active engine for the market's lifetime and discarded at market end.
type Position struct {
	MarketSlug string
	YesSpent   float64
	NoSpent    float64
	YesShares  float64
	NoShares   float64
	Trades     []Trade
}

// NewPosition creates an empty position for the given market.
func NewPosition(slug string) *Position {
	return &Position{MarketSlug: slug}
}

// Apply records a filled trade and updates the per-side totals.
func (p *Position) Apply(t Trade) {
	switch t.Outcome {
	case SideYes:
		p.YesSpent += t.Cost
		p.YesShares += t.Shares
	case SideNo:
		p.NoSpent += t.Cost
		p.NoShares += t.Shares
	}
	p.Trades = append(p.Trades, t)
}

// Spent returns the USD spent on the given side.
func (p *Position) Spent(side Side) float64 {
	if side == SideYes {
		return p.YesSpent
	}
	return p.NoSpent
}

// Shares returns the share count held on the given side.
func (p *Position) Shares(side Side) float64 {
	if side == SideYes {
		return p.YesShares
	}
	return p.NoShares
}

// Imbalance returns the normalized share imbalance between the two sides:
// 0 means perfectly balanced, 1 means entirely one-sided.
func (p *Position) Imbalance() float64 {
	total := p.YesShares + p.NoShares
	if total == 0 {
		return 0
	}
	diff := p.YesShares - p.NoShares
	if diff < 0 {
		diff = -diff
	}
	return diff / total
}

// Overweight returns the side holding more shares, or "" when equal.
func (p *Position) Overweight() Side {
	switch {
	case p.YesShares > p.NoShares:
		return SideYes
	case p.NoShares > p.YesShares:
		return SideNo
	default:
		return ""
	}
}

// Summary computes the end-of-market settlement view of the position.
func (p *Position) Summary() PositionSummary {
	s := PositionSummary{
		MarketSlug: p.MarketSlug,
		YesSpent:   p.YesSpent,
		NoSpent:    p.NoSpent,
		TotalSpent: p.YesSpent + p.NoSpent,
		YesShares:  p.YesShares,
		NoShares:   p.NoShares,
		TradeCount: len(p.Trades),
		Imbalance:  p.Imbalance(),
	}
	s.MinShares = p.YesShares
	if p.NoShares < s.MinShares {
		s.MinShares = p.NoShares
	}
	// Each matched share pair settles to exactly $1.
	s.GuaranteedValue = s.MinShares * 1.0
	s.PotentialProfit = s.GuaranteedValue - s.TotalSpent
	if s.TotalSpent > 0 {
		s.ProfitMargin = s.PotentialProfit / s.TotalSpent
	}
	return s
}

// PositionSummary is the finalized, reportable view of a position, computed
// once when a market settles.
type PositionSummary struct {
	MarketSlug      string
	YesSpent        float64
	NoSpent         float64
	TotalSpent      float64
	YesShares       float64
	NoShares        float64
	MinShares       float64
	GuaranteedValue float64
	PotentialProfit float64
	ProfitMargin    float64
	Imbalance       float64
	TradeCount      int
}
