package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest observed price per outcome
// token. It is fed by the push feed and batch metadata prices, and serves as
// the oracle's last-resort quote tier.
type PriceCache interface {
	SetPrice(ctx context.Context, tokenID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, tokenID string) (float64, time.Time, error)
	GetPrices(ctx context.Context, tokenIDs []string) (map[string]float64, error)
}
