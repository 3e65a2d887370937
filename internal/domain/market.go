package domain

import "time"

// MarketStatus is the phase of a market window, always derived from the
// current wall-clock time against the window bounds, never stored.
type MarketStatus string

const (
	MarketStatusPretrade  MarketStatus = "pretrade"
	MarketStatusTradeable MarketStatus = "tradeable"
	MarketStatusSnipeOnly MarketStatus = "snipe_only"
	MarketStatusSettled   MarketStatus = "settled"
)

// Side identifies one of the two complementary outcomes of a binary market.
type Side string

const (
	SideYes Side = "yes" // affirmative outcome ("Yes"/"Up"/"Higher")
	SideNo  Side = "no"  // negative outcome ("No"/"Down"/"Lower")
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Outcome is one tradeable side of a binary market. Each outcome token
// settles to $1 if it wins and $0 otherwise.
type Outcome struct {
	TokenID     string
	Label       string // e.g. "Up", "Down", "Yes", "No"
	Affirmative bool
}

// Market describes one scheduled recurring market instance. It is immutable
// once resolved: status and time remaining are recomputed from the window
// bounds on every cycle rather than cached here.
type Market struct {
	Slug        string // deterministic scheduling key, e.g. "btc-updown-15m-1756400400"
	ConditionID string // 32-byte hex condition identifier
	Question    string
	Outcomes    [2]Outcome // exactly one outcome is affirmative
	WindowStart time.Time
	WindowEnd   time.Time
}

// Duration returns the length of the trading window.
func (m Market) Duration() time.Duration {
	return m.WindowEnd.Sub(m.WindowStart)
}

// Yes returns the affirmative outcome.
func (m Market) Yes() Outcome {
	if m.Outcomes[0].Affirmative {
		return m.Outcomes[0]
	}
	return m.Outcomes[1]
}

// No returns the negative outcome.
func (m Market) No() Outcome {
	if m.Outcomes[0].Affirmative {
		return m.Outcomes[1]
	}
	return m.Outcomes[0]
}

// Outcome returns the outcome for the given side.
func (m Market) Outcome(side Side) Outcome {
	if side == SideYes {
		return m.Yes()
	}
	return m.No()
}

// TokenIDs returns both outcome token ids, affirmative first.
func (m Market) TokenIDs() [2]string {
	return [2]string{m.Yes().TokenID, m.No().TokenID}
}
