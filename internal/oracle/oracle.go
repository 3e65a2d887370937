// Package oracle reconciles prices for a market's two outcome tokens across
// several upstream sources of decreasing quality.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

const (
	// minPlausible and maxPlausible bound acceptable per-token prices.
	// Outside this range the market is certainly settled or the data broken.
	minPlausible = 0.01
	maxPlausible = 0.99

	// minPairSum and maxPairSum bound the combined price of both outcomes.
	// A binary pair far from $1 total means corrupted data, not opportunity.
	minPairSum = 0.80
	maxPairSum = 1.20
)

// BookSource fetches an order book snapshot for one token.
type BookSource interface {
	GetBook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error)
}

// SpotSource fetches the backend's instantaneous buy price for one token.
type SpotSource interface {
	GetBuyPrice(ctx context.Context, tokenID string) (float64, error)
}

// Oracle produces one trustworthy price pair per decision cycle. Sources are
// tried in priority order: order-book best ask, then the backend spot price,
// then the cached last-trade price. Both sides of a pair always come from
// the same tier so strategies can compare them against each other.
type Oracle struct {
	book   BookSource
	spot   SpotSource
	cache  domain.PriceCache
	logger *slog.Logger

	// maxCacheAge bounds how stale a cached quote may be before it is
	// rejected rather than served.
	maxCacheAge time.Duration
}

// New creates an Oracle. cache may be nil, in which case the last-resort
// tier is skipped.
func New(book BookSource, spot SpotSource, cache domain.PriceCache, maxCacheAge time.Duration, logger *slog.Logger) *Oracle {
	if maxCacheAge <= 0 {
		maxCacheAge = 2 * time.Minute
	}
	return &Oracle{
		book:        book,
		spot:        spot,
		cache:       cache,
		maxCacheAge: maxCacheAge,
		logger:      logger.With(slog.String("component", "oracle")),
	}
}

// QuotePair returns a consistent price pair for the market's two outcomes.
// Returns domain.ErrUnavailable when no tier can produce a plausible pair;
// the caller must skip the decision cycle rather than substitute defaults.
func (o *Oracle) QuotePair(ctx context.Context, market domain.Market) (domain.PricePair, error) {
	yesID := market.Yes().TokenID
	noID := market.No().TokenID

	type tier struct {
		source domain.QuoteSource
		fetch  func(ctx context.Context, tokenID string) (float64, time.Time, error)
	}

	tiers := []tier{
		{domain.QuoteSourceBook, o.fetchBookAsk},
		{domain.QuoteSourcePrice, o.fetchSpot},
	}
	if o.cache != nil {
		tiers = append(tiers, tier{domain.QuoteSourceCache, o.fetchCached})
	}

	for _, t := range tiers {
		pair, err := o.fetchPair(ctx, t.source, t.fetch, yesID, noID)
		if err != nil {
			if ctx.Err() != nil {
				return domain.PricePair{}, fmt.Errorf("oracle: %w", ctx.Err())
			}
			o.logger.Debug("price tier failed",
				slog.String("source", string(t.source)),
				slog.String("market", market.Slug),
				slog.String("error", err.Error()))
			continue
		}
		return pair, nil
	}

	return domain.PricePair{}, fmt.Errorf("oracle: %w: no source produced a plausible pair for %s",
		domain.ErrUnavailable, market.Slug)
}

// fetchPair fetches both sides concurrently from a single tier and validates
// the result as a pair. A failure on either side fails the whole tier so the
// two quotes never come from different sources.
func (o *Oracle) fetchPair(
	ctx context.Context,
	source domain.QuoteSource,
	fetch func(ctx context.Context, tokenID string) (float64, time.Time, error),
	yesID, noID string,
) (domain.PricePair, error) {
	var yes, no domain.PriceQuote

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		price, ts, err := fetch(gctx, yesID)
		if err != nil {
			return fmt.Errorf("yes side: %w", err)
		}
		yes = domain.PriceQuote{TokenID: yesID, Price: price, Source: source, ObservedAt: ts}
		return nil
	})
	g.Go(func() error {
		price, ts, err := fetch(gctx, noID)
		if err != nil {
			return fmt.Errorf("no side: %w", err)
		}
		no = domain.PriceQuote{TokenID: noID, Price: price, Source: source, ObservedAt: ts}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.PricePair{}, err
	}

	pair := domain.PricePair{Yes: yes, No: no}
	if err := validatePair(pair); err != nil {
		return domain.PricePair{}, err
	}
	return pair, nil
}

// fetchBookAsk returns the order book best ask, the price most representative
// of an actual immediate fill.
func (o *Oracle) fetchBookAsk(ctx context.Context, tokenID string) (float64, time.Time, error) {
	snap, err := o.book.GetBook(ctx, tokenID)
	if err != nil {
		return 0, time.Time{}, err
	}
	if snap.BestAsk <= 0 {
		return 0, time.Time{}, fmt.Errorf("%w: empty ask side", domain.ErrUnavailable)
	}
	ts := snap.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return snap.BestAsk, ts, nil
}

// fetchSpot returns the backend's best-effort current buy price.
func (o *Oracle) fetchSpot(ctx context.Context, tokenID string) (float64, time.Time, error) {
	price, err := o.spot.GetBuyPrice(ctx, tokenID)
	if err != nil {
		return 0, time.Time{}, err
	}
	return price, time.Now().UTC(), nil
}

// fetchCached returns the cached last-trade price if it is fresh enough.
func (o *Oracle) fetchCached(ctx context.Context, tokenID string) (float64, time.Time, error) {
	price, ts, err := o.cache.GetPrice(ctx, tokenID)
	if err != nil {
		return 0, time.Time{}, err
	}
	if time.Since(ts) > o.maxCacheAge {
		return 0, time.Time{}, fmt.Errorf("%w: cached quote from %s", domain.ErrStalePrice, ts.Format(time.RFC3339))
	}
	return price, ts, nil
}

// validatePair applies the plausibility filter to both quotes and to their
// sum.
func validatePair(pair domain.PricePair) error {
	for _, q := range []domain.PriceQuote{pair.Yes, pair.No} {
		if q.Price <= minPlausible || q.Price >= maxPlausible {
			return fmt.Errorf("%w: price %.4f for token %s", domain.ErrImplausible, q.Price, q.TokenID)
		}
	}
	if sum := pair.PairCost(); sum < minPairSum || sum > maxPairSum {
		return fmt.Errorf("%w: pair sum %.4f", domain.ErrImplausible, sum)
	}
	return nil
}

// Quote returns a single-token quote using the same tier priority. Used by
// the executor for its pre-submission price re-check, where only the side
// being bought matters.
func (o *Oracle) Quote(ctx context.Context, tokenID string) (domain.PriceQuote, error) {
	type tier struct {
		source domain.QuoteSource
		fetch  func(ctx context.Context, tokenID string) (float64, time.Time, error)
	}
	tiers := []tier{
		{domain.QuoteSourceBook, o.fetchBookAsk},
		{domain.QuoteSourcePrice, o.fetchSpot},
	}
	if o.cache != nil {
		tiers = append(tiers, tier{domain.QuoteSourceCache, o.fetchCached})
	}

	var lastErr error
	for _, t := range tiers {
		price, ts, err := t.fetch(ctx, tokenID)
		if err != nil {
			if ctx.Err() != nil {
				return domain.PriceQuote{}, fmt.Errorf("oracle: %w", ctx.Err())
			}
			lastErr = err
			continue
		}
		if price <= minPlausible || price >= maxPlausible {
			lastErr = fmt.Errorf("%w: price %.4f", domain.ErrImplausible, price)
			continue
		}
		return domain.PriceQuote{TokenID: tokenID, Price: price, Source: t.source, ObservedAt: ts}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no sources configured")
	}
	return domain.PriceQuote{}, fmt.Errorf("oracle: %w: token %s: %v", domain.ErrUnavailable, tokenID, lastErr)
}
