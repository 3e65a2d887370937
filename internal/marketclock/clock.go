// Package marketclock maps wall-clock time onto the recurring market
// schedule. Everything here is pure arithmetic so the orchestrator can
// re-derive status on every cycle instead of trusting anything cached.
package marketclock

import (
	"time"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

// CurrentSlot floors now to the nearest multiple of duration, giving the
// canonical start time of the market window containing now.
func CurrentSlot(now time.Time, duration time.Duration) time.Time {
	d := int64(duration.Seconds())
	if d <= 0 {
		return now.UTC()
	}
	slot := (now.Unix() / d) * d
	return time.Unix(slot, 0).UTC()
}

// CandidateSlots returns neighboring slot start times worth probing, oldest
// first. A market can still be settling at exactly now, and metadata for the
// next window often exists slightly before it opens, so we look one slot back
// and a couple ahead by default.
func CandidateSlots(now time.Time, duration time.Duration, lookBack, lookAhead int) []time.Time {
	cur := CurrentSlot(now, duration)
	slots := make([]time.Time, 0, lookBack+lookAhead+1)
	for k := lookBack; k >= 1; k-- {
		slots = append(slots, cur.Add(-time.Duration(k)*duration))
	}
	slots = append(slots, cur)
	for k := 1; k <= lookAhead; k++ {
		slots = append(slots, cur.Add(time.Duration(k)*duration))
	}
	return slots
}

// StatusFor derives the trading status of a window starting at windowStart
// with the given duration, and the seconds remaining in that status.
// Boundaries resolve toward the stricter state: exactly snipeThreshold
// remaining is SNIPE_ONLY, and exactly at window end is SETTLED.
func StatusFor(now, windowStart time.Time, duration, snipeThreshold time.Duration) (domain.MarketStatus, time.Duration) {
	windowEnd := windowStart.Add(duration)
	switch {
	case now.Before(windowStart):
		return domain.MarketStatusPretrade, windowStart.Sub(now)
	case !now.Before(windowEnd):
		return domain.MarketStatusSettled, 0
	case windowEnd.Sub(now) <= snipeThreshold:
		return domain.MarketStatusSnipeOnly, windowEnd.Sub(now)
	default:
		return domain.MarketStatusTradeable, windowEnd.Sub(now)
	}
}
