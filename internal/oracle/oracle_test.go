package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

type fakeBook struct {
	asks map[string]float64
	err  error
}

func (f *fakeBook) GetBook(_ context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	if f.err != nil {
		return domain.OrderbookSnapshot{}, f.err
	}
	ask, ok := f.asks[tokenID]
	if !ok {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}
	return domain.OrderbookSnapshot{
		TokenID:   tokenID,
		BestAsk:   ask,
		Timestamp: time.Now().UTC(),
	}, nil
}

type fakeSpot struct {
	prices map[string]float64
	err    error
}

func (f *fakeSpot) GetBuyPrice(_ context.Context, tokenID string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	p, ok := f.prices[tokenID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p, nil
}

type fakeCache struct {
	prices map[string]float64
	when   time.Time
}

func (f *fakeCache) SetPrice(_ context.Context, tokenID string, price float64, ts time.Time) error {
	f.prices[tokenID] = price
	f.when = ts
	return nil
}

func (f *fakeCache) GetPrice(_ context.Context, tokenID string) (float64, time.Time, error) {
	p, ok := f.prices[tokenID]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p, f.when, nil
}

func (f *fakeCache) GetPrices(_ context.Context, tokenIDs []string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, id := range tokenIDs {
		if p, ok := f.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMarket() domain.Market {
	return domain.Market{
		Slug: "btc-updown-15m-1756400400",
		Outcomes: [2]domain.Outcome{
			{TokenID: "yes-token", Label: "Up", Affirmative: true},
			{TokenID: "no-token", Label: "Down"},
		},
	}
}

func TestQuotePairPrefersBook(t *testing.T) {
	book := &fakeBook{asks: map[string]float64{"yes-token": 0.55, "no-token": 0.47}}
	spot := &fakeSpot{prices: map[string]float64{"yes-token": 0.60, "no-token": 0.40}}

	o := New(book, spot, nil, 0, discard())
	pair, err := o.QuotePair(context.Background(), testMarket())
	if err != nil {
		t.Fatalf("QuotePair: %v", err)
	}

	if pair.Yes.Source != domain.QuoteSourceBook || pair.No.Source != domain.QuoteSourceBook {
		t.Errorf("sources = %v/%v, want book/book", pair.Yes.Source, pair.No.Source)
	}
	if pair.Yes.Price != 0.55 || pair.No.Price != 0.47 {
		t.Errorf("prices = %v/%v", pair.Yes.Price, pair.No.Price)
	}
}

func TestQuotePairFallsBackToSpotTogether(t *testing.T) {
	// Book has only one side; the tier must fail as a whole rather than mix
	// a book quote with a spot quote.
	book := &fakeBook{asks: map[string]float64{"yes-token": 0.55}}
	spot := &fakeSpot{prices: map[string]float64{"yes-token": 0.56, "no-token": 0.46}}

	o := New(book, spot, nil, 0, discard())
	pair, err := o.QuotePair(context.Background(), testMarket())
	if err != nil {
		t.Fatalf("QuotePair: %v", err)
	}

	if pair.Yes.Source != domain.QuoteSourcePrice || pair.No.Source != domain.QuoteSourcePrice {
		t.Errorf("sources = %v/%v, want price/price", pair.Yes.Source, pair.No.Source)
	}
}

func TestQuotePairRejectsImplausible(t *testing.T) {
	cases := []struct {
		name string
		yes  float64
		no   float64
	}{
		{"settled yes", 0.995, 0.005},
		{"zero", 0, 0.5},
		{"pair sum too high", 0.80, 0.75},
		{"pair sum too low", 0.30, 0.30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			book := &fakeBook{asks: map[string]float64{"yes-token": tc.yes, "no-token": tc.no}}
			spot := &fakeSpot{err: errors.New("down")}

			o := New(book, spot, nil, 0, discard())
			_, err := o.QuotePair(context.Background(), testMarket())
			if !errors.Is(err, domain.ErrUnavailable) {
				t.Fatalf("err = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestQuotePairUsesCacheLast(t *testing.T) {
	book := &fakeBook{err: errors.New("book down")}
	spot := &fakeSpot{err: errors.New("spot down")}
	cache := &fakeCache{
		prices: map[string]float64{"yes-token": 0.52, "no-token": 0.49},
		when:   time.Now().UTC(),
	}

	o := New(book, spot, cache, time.Minute, discard())
	pair, err := o.QuotePair(context.Background(), testMarket())
	if err != nil {
		t.Fatalf("QuotePair: %v", err)
	}
	if pair.Yes.Source != domain.QuoteSourceCache {
		t.Errorf("source = %v, want cache", pair.Yes.Source)
	}
}

func TestQuotePairRejectsStaleCache(t *testing.T) {
	book := &fakeBook{err: errors.New("book down")}
	spot := &fakeSpot{err: errors.New("spot down")}
	cache := &fakeCache{
		prices: map[string]float64{"yes-token": 0.52, "no-token": 0.49},
		when:   time.Now().UTC().Add(-10 * time.Minute),
	}

	o := New(book, spot, cache, time.Minute, discard())
	_, err := o.QuotePair(context.Background(), testMarket())
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestQuoteSingleToken(t *testing.T) {
	book := &fakeBook{err: errors.New("book down")}
	spot := &fakeSpot{prices: map[string]float64{"yes-token": 0.61}}

	o := New(book, spot, nil, 0, discard())
	q, err := o.Quote(context.Background(), "yes-token")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Price != 0.61 || q.Source != domain.QuoteSourcePrice {
		t.Errorf("quote = %+v", q)
	}
}

func TestQuoteAllSourcesDown(t *testing.T) {
	o := New(&fakeBook{err: errors.New("down")}, &fakeSpot{err: errors.New("down")}, nil, 0, discard())
	_, err := o.Quote(context.Background(), "yes-token")
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
