package domain

import (
	"context"
	"time"
)

// TradeStore persists executed trades.
type TradeStore interface {
	SaveTrade(ctx context.Context, trade *Trade) error
	GetTradesByMarket(ctx context.Context, marketSlug string) ([]*Trade, error)
	GetTradesSince(ctx context.Context, since time.Time) ([]*Trade, error)
}

// SessionRecord is a finished trading session, one market window from
// discovery to settlement.
type SessionRecord struct {
	ID         string
	MarketSlug string
	Asset      string
	StartedAt  time.Time
	EndedAt    time.Time
	Summary    *PositionSummary
	Sniped     bool
	DryRun     bool
}

// SessionStore persists per-market session outcomes.
type SessionStore interface {
	SaveSession(ctx context.Context, rec *SessionRecord) error
	GetSessionsSince(ctx context.Context, since time.Time) ([]*SessionRecord, error)
}
