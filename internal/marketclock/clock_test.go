package marketclock

import (
	"testing"
	"time"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

const window = 15 * time.Minute

func TestCurrentSlotExactBoundary(t *testing.T) {
	now := time.Unix(1756400400, 0).UTC() // multiple of 900
	slot := CurrentSlot(now, window)
	if !slot.Equal(now) {
		t.Fatalf("slot = %v, want %v", slot, now)
	}

	status, remaining := StatusFor(now, slot, window, 60*time.Second)
	if status != domain.MarketStatusTradeable {
		t.Fatalf("status = %v, want tradeable", status)
	}
	if remaining != window {
		t.Fatalf("remaining = %v, want %v", remaining, window)
	}
}

func TestCurrentSlotIdempotent(t *testing.T) {
	for _, off := range []time.Duration{0, time.Second, 7 * time.Minute, 899 * time.Second} {
		now := time.Unix(1756400400, 0).UTC().Add(off)
		slot := CurrentSlot(now, window)
		if again := CurrentSlot(slot, window); !again.Equal(slot) {
			t.Fatalf("CurrentSlot not idempotent: %v -> %v", slot, again)
		}
		elapsed := now.Sub(slot)
		if elapsed < 0 || elapsed >= window {
			t.Fatalf("now %v not inside slot %v (elapsed %v)", now, slot, elapsed)
		}
	}
}

func TestCandidateSlotsOrder(t *testing.T) {
	now := time.Unix(1756400400, 0).UTC().Add(3 * time.Minute)
	slots := CandidateSlots(now, window, 1, 2)
	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(slots))
	}
	cur := CurrentSlot(now, window)
	want := []time.Time{
		cur.Add(-window),
		cur,
		cur.Add(window),
		cur.Add(2 * window),
	}
	for i, s := range slots {
		if !s.Equal(want[i]) {
			t.Errorf("slots[%d] = %v, want %v", i, s, want[i])
		}
	}
}

func TestStatusForBoundaries(t *testing.T) {
	start := time.Unix(1756400400, 0).UTC()
	thresh := 60 * time.Second

	cases := []struct {
		name      string
		now       time.Time
		status    domain.MarketStatus
		remaining time.Duration
	}{
		{"before start", start.Add(-30 * time.Second), domain.MarketStatusPretrade, 30 * time.Second},
		{"mid window", start.Add(5 * time.Minute), domain.MarketStatusTradeable, 10 * time.Minute},
		{"exactly at snipe threshold", start.Add(window - thresh), domain.MarketStatusSnipeOnly, thresh},
		{"inside snipe window", start.Add(window - 10*time.Second), domain.MarketStatusSnipeOnly, 10 * time.Second},
		{"exactly at end", start.Add(window), domain.MarketStatusSettled, 0},
		{"after end", start.Add(window + time.Minute), domain.MarketStatusSettled, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, remaining := StatusFor(tc.now, start, window, thresh)
			if status != tc.status {
				t.Errorf("status = %v, want %v", status, tc.status)
			}
			if remaining != tc.remaining {
				t.Errorf("remaining = %v, want %v", remaining, tc.remaining)
			}
		})
	}
}

func TestStatusMonotonic(t *testing.T) {
	start := time.Unix(1756400400, 0).UTC()
	rank := map[domain.MarketStatus]int{
		domain.MarketStatusPretrade:  0,
		domain.MarketStatusTradeable: 1,
		domain.MarketStatusSnipeOnly: 2,
		domain.MarketStatusSettled:   3,
	}

	prev := -1
	for now := start.Add(-2 * time.Minute); now.Before(start.Add(window + 2*time.Minute)); now = now.Add(time.Second) {
		status, _ := StatusFor(now, start, window, 60*time.Second)
		if rank[status] < prev {
			t.Fatalf("status went backward at %v: %v", now, status)
		}
		prev = rank[status]
	}
}
