package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

type fakePlacer struct {
	result domain.OrderResult
	err    error
	calls  int
}

func (f *fakePlacer) PostOrder(_ context.Context, _ domain.OrderRequest) (domain.OrderResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeQuoter struct {
	price float64
	err   error
}

func (f *fakeQuoter) Quote(_ context.Context, tokenID string) (domain.PriceQuote, error) {
	if f.err != nil {
		return domain.PriceQuote{}, f.err
	}
	return domain.PriceQuote{
		TokenID:    tokenID,
		Price:      f.price,
		Source:     domain.QuoteSourceBook,
		ObservedAt: time.Now().UTC(),
	}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func request(price float64) domain.OrderRequest {
	return domain.OrderRequest{
		ID:         "test-order",
		MarketSlug: "btc-updown-15m-1756400400",
		TokenID:    "tok",
		Outcome:    domain.SideYes,
		Label:      "Up",
		Price:      price,
		Notional:   0.75,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestExecuteSubmitsWithinTolerance(t *testing.T) {
	placer := &fakePlacer{result: domain.OrderResult{
		Success:     true,
		OrderID:     "ex-1",
		Status:      domain.OrderStatusMatched,
		FilledPrice: 0.52,
	}}
	e := New(placer, &fakeQuoter{price: 0.52}, false, 0.15, discard())

	trade, err := e.Execute(context.Background(), request(0.50))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if placer.calls != 1 {
		t.Fatalf("placer calls = %d, want 1", placer.calls)
	}
	if trade.OrderID != "ex-1" || trade.Price != 0.52 {
		t.Errorf("trade = %+v", trade)
	}
	if math.Abs(trade.Shares-0.75/0.52) > 1e-9 {
		t.Errorf("shares = %v, want %v", trade.Shares, 0.75/0.52)
	}
}

func TestExecuteAbortsOnPriceDrift(t *testing.T) {
	placer := &fakePlacer{}
	// Decision at 0.50, live at 0.60: 20% drift exceeds the 15% tolerance.
	e := New(placer, &fakeQuoter{price: 0.60}, false, 0.15, discard())

	_, err := e.Execute(context.Background(), request(0.50))
	if !errors.Is(err, domain.ErrStalePrice) {
		t.Fatalf("err = %v, want ErrStalePrice", err)
	}
	if placer.calls != 0 {
		t.Fatalf("order submitted despite drift")
	}
}

func TestExecuteAbortsWhenQuoteUnavailable(t *testing.T) {
	placer := &fakePlacer{}
	e := New(placer, &fakeQuoter{err: domain.ErrUnavailable}, false, 0.15, discard())

	_, err := e.Execute(context.Background(), request(0.50))
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if placer.calls != 0 {
		t.Fatalf("order submitted without a quote")
	}
}

func TestExecuteDryRunNeverSubmits(t *testing.T) {
	placer := &fakePlacer{}
	e := New(placer, &fakeQuoter{price: 0.51}, true, 0.15, discard())

	trade, err := e.Execute(context.Background(), request(0.50))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if placer.calls != 0 {
		t.Fatalf("dry run still submitted an order")
	}
	if !trade.Simulated {
		t.Error("trade not flagged simulated")
	}
	if trade.Price != 0.51 {
		t.Errorf("simulated fill price = %v, want live 0.51", trade.Price)
	}
}

func TestExecuteSubmissionFailureReturnsError(t *testing.T) {
	placer := &fakePlacer{err: domain.ErrRejected}
	e := New(placer, &fakeQuoter{price: 0.50}, false, 0.15, discard())

	_, err := e.Execute(context.Background(), request(0.50))
	if !errors.Is(err, domain.ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestBuildRequestTargetsCorrectToken(t *testing.T) {
	market := domain.Market{
		Slug: "btc-updown-15m-1756400400",
		Outcomes: [2]domain.Outcome{
			{TokenID: "yes-tok", Label: "Up", Affirmative: true},
			{TokenID: "no-tok", Label: "Down"},
		},
	}
	e := New(&fakePlacer{}, &fakeQuoter{price: 0.5}, true, 0.15, discard())

	req := e.BuildRequest(market, domain.SideNo, 0.45, 0.75, "test", false)
	if req.TokenID != "no-tok" || req.Label != "Down" {
		t.Errorf("req = %+v", req)
	}
	if req.ID == "" {
		t.Error("missing client order id")
	}
	if math.Abs(req.Shares()-0.75/0.45) > 1e-9 {
		t.Errorf("shares = %v", req.Shares())
	}
}
