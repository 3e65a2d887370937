package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/updownbot/internal/domain"
	"github.com/alanyoungcy/updownbot/internal/executor"
	"github.com/alanyoungcy/updownbot/internal/report"
	"github.com/alanyoungcy/updownbot/internal/strategy"
)

type fakeResolver struct {
	mu     sync.Mutex
	market domain.Market
	repeat bool
	served bool
}

func (f *fakeResolver) Resolve(_ context.Context, _ string, _ time.Duration, _ time.Time) (domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.served && !f.repeat {
		return domain.Market{}, domain.ErrNotFound
	}
	f.served = true
	return f.market, nil
}

type fakePrices struct {
	pair domain.PricePair
	err  error
}

func (f *fakePrices) QuotePair(_ context.Context, _ domain.Market) (domain.PricePair, error) {
	if f.err != nil {
		return domain.PricePair{}, f.err
	}
	return f.pair, nil
}

type memSessionStore struct {
	mu      sync.Mutex
	recs    []*domain.SessionRecord
	ctxErrs []error
}

func (m *memSessionStore) SaveSession(ctx context.Context, rec *domain.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return nil
}

func (m *memSessionStore) GetSessionsSince(_ context.Context, _ time.Time) ([]*domain.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recs, nil
}

func (m *memSessionStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

// shortWindowMarket returns a market whose window settles shortly, so a full
// session fits inside a unit test.
func shortWindowMarket(window time.Duration) domain.Market {
	now := time.Now().UTC()
	m := snipeMarket()
	m.WindowStart = now.Add(-window / 2)
	m.WindowEnd = now.Add(window / 2)
	return m
}

func sessionConfig() SessionConfig {
	return SessionConfig{
		Asset:             "btc",
		Duration:          time.Second,
		LookBack:          1,
		LookAhead:         2,
		SnipeThreshold:    100 * time.Millisecond,
		PollInterval:      20 * time.Millisecond,
		SnipePollInterval: 10 * time.Millisecond,
		SearchBackoff:     20 * time.Millisecond,
		WarmupDelay:       0,
		WarmupWindow:      0,
		HistoryCap:        100,
		DryRun:            false,
	}
}

func newTestOrchestrator(resolver MarketResolver, prices PriceSource, placer *capturePlacer, sessions domain.SessionStore) *Orchestrator {
	quoter := &staticQuoter{prices: map[string]float64{"yes-tok": 0.40, "no-tok": 0.45}}
	exec := executor.New(placer, quoter, false, 0.15, discard())

	acc := NewAccumulation(strategy.NewPairwise(accConfig()), accConfig(), exec, nil, nil, discard())
	snipe := NewSnipe(snipeConfig(), exec, nil, nil, discard())
	reporter := report.New(nil, sessions, nil, discard())

	return NewOrchestrator(sessionConfig(), resolver, prices, acc, snipe, reporter, nil, nil, discard())
}

func TestSessionTradesThroughWindowAndFinalizes(t *testing.T) {
	resolver := &fakeResolver{market: shortWindowMarket(600 * time.Millisecond)}
	prices := &fakePrices{pair: snipePair(0.40, 0.45)}
	placer := &capturePlacer{result: domain.OrderResult{Success: true, Status: domain.OrderStatusMatched}}
	sessions := &memSessionStore{}

	o := newTestOrchestrator(resolver, prices, placer, sessions)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(placer.reqs) == 0 {
		t.Error("no accumulation orders submitted during tradeable window")
	}
	if sessions.count() != 1 {
		t.Fatalf("finalized %d sessions, want 1", sessions.count())
	}
	rec := sessions.recs[0]
	if rec.Summary.TradeCount != len(placer.reqs) {
		t.Errorf("summary trades = %d, submitted = %d", rec.Summary.TradeCount, len(placer.reqs))
	}
}

func TestSessionNeverTradesWithoutPrices(t *testing.T) {
	resolver := &fakeResolver{market: shortWindowMarket(400 * time.Millisecond)}
	prices := &fakePrices{err: domain.ErrUnavailable}
	placer := &capturePlacer{}
	sessions := &memSessionStore{}

	o := newTestOrchestrator(resolver, prices, placer, sessions)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Every cycle was skipped; not a single order may exist.
	if len(placer.reqs) != 0 {
		t.Fatalf("submitted %d orders despite unavailable prices", len(placer.reqs))
	}
	if sessions.count() != 1 {
		t.Fatalf("finalized %d sessions, want 1", sessions.count())
	}
	if sessions.recs[0].Summary.TotalSpent != 0 {
		t.Errorf("spent %v with no prices", sessions.recs[0].Summary.TotalSpent)
	}
}

func TestSessionShutdownFinalizesCurrentMarket(t *testing.T) {
	// A long window that cannot settle within the test: only cancellation
	// ends it, and it must still produce a finalized record.
	resolver := &fakeResolver{market: shortWindowMarket(time.Hour)}
	prices := &fakePrices{pair: snipePair(0.40, 0.45)}
	placer := &capturePlacer{result: domain.OrderResult{Success: true, Status: domain.OrderStatusMatched}}
	sessions := &memSessionStore{}

	o := newTestOrchestrator(resolver, prices, placer, sessions)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()
	if err := o.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sessions.count() != 1 {
		t.Fatalf("finalized %d sessions on shutdown, want 1", sessions.count())
	}
	// The loop context is canceled by now; the record must still have been
	// saved with a live context or shutdown would lose it.
	if sessions.ctxErrs[0] != nil {
		t.Errorf("session saved with dead context: %v", sessions.ctxErrs[0])
	}
}

func TestSessionPersistentPriceFailureIsFatal(t *testing.T) {
	// The market never settles and the resolver would happily serve it
	// again: only the fatal error may stop the loop from re-acquiring it.
	resolver := &fakeResolver{market: shortWindowMarket(time.Hour), repeat: true}
	prices := &fakePrices{err: domain.ErrUnavailable}
	placer := &capturePlacer{}
	sessions := &memSessionStore{}

	o := newTestOrchestrator(resolver, prices, placer, sessions)
	o.cfg.MaxConsecutiveFailures = 2

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := o.Run(ctx)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("Run = %v, want ErrUnavailable", err)
	}
	if sessions.count() != 1 {
		t.Fatalf("finalized %d sessions, want exactly 1 before stopping", sessions.count())
	}
}

func TestSessionDailyLossCeilingStopsLoop(t *testing.T) {
	resolver := &fakeResolver{market: shortWindowMarket(300 * time.Millisecond)}
	// One-sided fills only: yes is cheap, no is over the price ceiling, so
	// the session ends with unmatched shares and a realized loss.
	prices := &fakePrices{pair: snipePair(0.36, 0.61)}
	placer := &capturePlacer{result: domain.OrderResult{Success: true, Status: domain.OrderStatusMatched}}
	sessions := &memSessionStore{}

	o := newTestOrchestrator(resolver, prices, placer, sessions)
	o.cfg.MaxDailyLoss = 0.01

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := o.Run(ctx)
	if err == nil {
		t.Fatal("Run returned nil, want daily loss error")
	}
	if sessions.count() != 1 {
		t.Fatalf("finalized %d sessions, want 1 before stopping", sessions.count())
	}
}
