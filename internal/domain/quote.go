package domain

import "time"

// QuoteSource identifies which upstream tier produced a price quote. Lower
// tiers are more representative of the actual fill price.
type QuoteSource string

const (
	QuoteSourceBook  QuoteSource = "book"  // order-book best ask
	QuoteSourcePrice QuoteSource = "price" // CLOB /price endpoint
	QuoteSourceCache QuoteSource = "cache" // cached last-resort price
)

// PriceQuote is a single reconciled price observation for one outcome token.
// Quotes are ephemeral: produced fresh each decision cycle, never persisted.
type PriceQuote struct {
	TokenID    string
	Price      float64 // in (0,1) exclusive
	Source     QuoteSource
	ObservedAt time.Time
}

// PricePair bundles one quote per outcome for a single decision cycle. Both
// quotes come from the same source tier so the two sides are comparable.
type PricePair struct {
	Yes PriceQuote
	No  PriceQuote
}

// Quote returns the quote for the given side.
func (p PricePair) Quote(side Side) PriceQuote {
	if side == SideYes {
		return p.Yes
	}
	return p.No
}

// PairCost is the combined cost of buying one share of each outcome. Below
// $1 implies a theoretical arbitrage if both sides can be accumulated.
func (p PricePair) PairCost() float64 {
	return p.Yes.Price + p.No.Price
}

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is a full snapshot of bids and asks for an outcome token.
type OrderbookSnapshot struct {
	TokenID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	BestBid   float64
	BestAsk   float64
	Timestamp time.Time
}
