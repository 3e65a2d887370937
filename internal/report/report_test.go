package report

import (
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

func TestFormatSummarySurfacesLoss(t *testing.T) {
	pos := domain.NewPosition("btc-updown-15m-1756400400")
	pos.Apply(domain.Trade{Outcome: domain.SideYes, Cost: 4.25, Shares: 10})
	pos.Apply(domain.Trade{Outcome: domain.SideNo, Cost: 4.25, Shares: 8})
	summary := pos.Summary()

	// min(10, 8) * $1 = $8 guaranteed against $8.50 spent: a $0.50 loss.
	if summary.GuaranteedValue != 8.0 {
		t.Fatalf("guaranteed = %v, want 8.0", summary.GuaranteedValue)
	}
	if summary.PotentialProfit != -0.5 {
		t.Fatalf("profit = %v, want -0.5", summary.PotentialProfit)
	}

	rec := &domain.SessionRecord{
		MarketSlug: pos.MarketSlug,
		StartedAt:  time.Unix(1756400400, 0).UTC(),
		EndedAt:    time.Unix(1756401300, 0).UTC(),
		Summary:    &summary,
	}

	out := FormatSummary(rec)
	if !strings.Contains(out, "LOSS") {
		t.Errorf("loss not surfaced plainly:\n%s", out)
	}
	if !strings.Contains(out, "$-0.50") {
		t.Errorf("loss amount missing:\n%s", out)
	}
}

func TestFormatSummaryMarksDryRunAndSnipe(t *testing.T) {
	pos := domain.NewPosition("eth-updown-15m-1756400400")
	pos.Apply(domain.Trade{Outcome: domain.SideYes, Cost: 0.75, Shares: 1.5, Snipe: true})
	summary := pos.Summary()

	rec := &domain.SessionRecord{
		MarketSlug: pos.MarketSlug,
		Summary:    &summary,
		Sniped:     true,
		DryRun:     true,
	}

	out := FormatSummary(rec)
	if !strings.Contains(out, "snipe") {
		t.Errorf("snipe marker missing:\n%s", out)
	}
	if !strings.Contains(out, "dry run") {
		t.Errorf("dry run marker missing:\n%s", out)
	}
}
