package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/updownbot/internal/domain"
	"github.com/alanyoungcy/updownbot/internal/platform/polymarket"
)

type fakeSource struct {
	markets map[string]polymarket.MarketMetadata
}

func (f *fakeSource) GetMarketBySlug(_ context.Context, slug string) (polymarket.MarketMetadata, error) {
	md, ok := f.markets[slug]
	if !ok {
		return polymarket.MarketMetadata{}, domain.ErrNotFound
	}
	return md, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildSlug(t *testing.T) {
	slot := time.Unix(1756400400, 0).UTC()
	got := BuildSlug("BTC", 15*time.Minute, slot)
	want := "btc-updown-15m-1756400400"
	if got != want {
		t.Fatalf("BuildSlug = %q, want %q", got, want)
	}
}

func TestResolveClassifiesOutcomes(t *testing.T) {
	slot := time.Unix(1756400400, 0).UTC()
	slug := BuildSlug("btc", 15*time.Minute, slot)

	src := &fakeSource{markets: map[string]polymarket.MarketMetadata{
		slug: {
			Slug:            slug,
			Question:        "Bitcoin Up or Down?",
			ConditionID:     "0x109f7c0dcb332bcf53c8d8f71d07314d9bba35e82c0d2b0972ca2e24de6f7ae2",
			OutcomeLabels:   []string{"Down", "Up"},
			TokenIDs:        []string{"111", "222"},
			AcceptingOrders: true,
			StartTime:       slot,
			EndTime:         slot.Add(15 * time.Minute),
		},
	}}

	r := New(src, true, discard())
	market, err := r.Resolve(context.Background(), "btc", 15*time.Minute, slot)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if market.Yes().TokenID != "222" {
		t.Errorf("affirmative token = %q, want 222", market.Yes().TokenID)
	}
	if market.No().TokenID != "111" {
		t.Errorf("negative token = %q, want 111", market.No().TokenID)
	}
	if market.Duration() != 15*time.Minute {
		t.Errorf("duration = %v", market.Duration())
	}
}

func TestResolveNotFound(t *testing.T) {
	r := New(&fakeSource{markets: map[string]polymarket.MarketMetadata{}}, true, discard())
	_, err := r.Resolve(context.Background(), "btc", 15*time.Minute, time.Unix(900, 0))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveRejectsMalformed(t *testing.T) {
	slot := time.Unix(1756400400, 0).UTC()
	slug := BuildSlug("eth", 15*time.Minute, slot)

	cases := []struct {
		name string
		md   polymarket.MarketMetadata
	}{
		{"one outcome", polymarket.MarketMetadata{
			OutcomeLabels: []string{"Up"},
			TokenIDs:      []string{"1"},
		}},
		{"empty token id", polymarket.MarketMetadata{
			OutcomeLabels: []string{"Up", "Down"},
			TokenIDs:      []string{"1", ""},
		}},
		{"unrecognized labels", polymarket.MarketMetadata{
			OutcomeLabels: []string{"Alpha", "Beta"},
			TokenIDs:      []string{"1", "2"},
		}},
		{"truncated condition id", polymarket.MarketMetadata{
			ConditionID:   "0xdead",
			OutcomeLabels: []string{"Up", "Down"},
			TokenIDs:      []string{"1", "2"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{markets: map[string]polymarket.MarketMetadata{slug: tc.md}}
			r := New(src, true, discard())
			_, err := r.Resolve(context.Background(), "eth", 15*time.Minute, slot)
			if !errors.Is(err, domain.ErrMalformedMarket) {
				t.Fatalf("err = %v, want ErrMalformedMarket", err)
			}
		})
	}
}

func TestResolveAmbiguousUsesFallback(t *testing.T) {
	slot := time.Unix(1756400400, 0).UTC()
	slug := BuildSlug("btc", 15*time.Minute, slot)
	md := polymarket.MarketMetadata{
		OutcomeLabels:   []string{"Yes", "Yes"},
		TokenIDs:        []string{"1", "2"},
		AcceptingOrders: true,
	}

	src := &fakeSource{markets: map[string]polymarket.MarketMetadata{slug: md}}

	first := New(src, true, discard())
	market, err := first.Resolve(context.Background(), "btc", 15*time.Minute, slot)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if market.Yes().TokenID != "1" {
		t.Errorf("first-affirmative fallback: yes token = %q, want 1", market.Yes().TokenID)
	}

	second := New(src, false, discard())
	market, err = second.Resolve(context.Background(), "btc", 15*time.Minute, slot)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if market.Yes().TokenID != "2" {
		t.Errorf("second-affirmative fallback: yes token = %q, want 2", market.Yes().TokenID)
	}
}

func TestResolveRejectsClosedMarket(t *testing.T) {
	slot := time.Unix(1756400400, 0).UTC()
	slug := BuildSlug("btc", 15*time.Minute, slot)
	md := polymarket.MarketMetadata{
		OutcomeLabels:   []string{"Up", "Down"},
		TokenIDs:        []string{"1", "2"},
		AcceptingOrders: true,
		Closed:          true,
		StartTime:       slot,
		EndTime:         slot.Add(15 * time.Minute),
	}

	src := &fakeSource{markets: map[string]polymarket.MarketMetadata{slug: md}}
	r := New(src, true, discard())

	_, err := r.Resolve(context.Background(), "btc", 15*time.Minute, slot)
	if !errors.Is(err, domain.ErrMarketClosed) {
		t.Fatalf("err = %v, want ErrMarketClosed", err)
	}
}

func TestResolveAcceptingOrdersGate(t *testing.T) {
	slot := time.Unix(1756400400, 0).UTC()
	slug := BuildSlug("btc", 15*time.Minute, slot)
	md := polymarket.MarketMetadata{
		OutcomeLabels: []string{"Up", "Down"},
		TokenIDs:      []string{"1", "2"},
		StartTime:     slot,
		EndTime:       slot.Add(15 * time.Minute),
	}
	src := &fakeSource{markets: map[string]polymarket.MarketMetadata{slug: md}}

	// Window already open: the venue would reject every order.
	r := New(src, true, discard())
	r.now = func() time.Time { return slot.Add(time.Minute) }
	_, err := r.Resolve(context.Background(), "btc", 15*time.Minute, slot)
	if !errors.Is(err, domain.ErrMarketClosed) {
		t.Fatalf("err = %v, want ErrMarketClosed for open window", err)
	}

	// Window not open yet: acceptingOrders=false is normal for a future
	// market and must not block acquisition.
	r = New(src, true, discard())
	r.now = func() time.Time { return slot.Add(-time.Minute) }
	market, err := r.Resolve(context.Background(), "btc", 15*time.Minute, slot)
	if err != nil {
		t.Fatalf("Resolve before window: %v", err)
	}
	if market.Slug != slug {
		t.Errorf("slug = %q, want %q", market.Slug, slug)
	}
}
