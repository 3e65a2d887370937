package strategy

import "github.com/alanyoungcy/updownbot/internal/domain"

// History keeps a bounded window of recent price observations per side. The
// accumulation engine records one observation per decision cycle; strategies
// only read. Not safe for concurrent use, by the same token as Position.
type History struct {
	cap     int
	samples map[domain.Side][]float64
}

// NewHistory creates a History holding at most capacity samples per side.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{
		cap:     capacity,
		samples: make(map[domain.Side][]float64, 2),
	}
}

// Record appends a price observation, evicting the oldest when full.
func (h *History) Record(side domain.Side, price float64) {
	s := h.samples[side]
	if len(s) == h.cap {
		copy(s, s[1:])
		s = s[:h.cap-1]
	}
	h.samples[side] = append(s, price)
}

// Count returns the number of recorded samples for the side.
func (h *History) Count(side domain.Side) int {
	return len(h.samples[side])
}

// Mean returns the arithmetic mean of the side's samples, or 0 when empty.
func (h *History) Mean(side domain.Side) float64 {
	s := h.samples[side]
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, p := range s {
		sum += p
	}
	return sum / float64(len(s))
}
