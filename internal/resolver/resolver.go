// Package resolver turns candidate slot timestamps into validated markets.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/updownbot/internal/domain"
	"github.com/alanyoungcy/updownbot/internal/platform/polymarket"
)

// MetadataSource looks up market metadata by slug.
type MetadataSource interface {
	GetMarketBySlug(ctx context.Context, slug string) (polymarket.MarketMetadata, error)
}

// affirmativeWords and negativeWords classify outcome labels. Labels outside
// both vocabularies mean the market is not a recognizable binary up/down
// market and must be rejected, not guessed at.
var (
	affirmativeWords = []string{"up", "yes", "higher", "above"}
	negativeWords    = []string{"down", "no", "lower", "below"}
)

// Resolver resolves deterministic market slugs against the metadata API and
// validates the result is a structurally sane binary market.
type Resolver struct {
	source MetadataSource
	logger *slog.Logger
	now    func() time.Time

	// fallbackFirstAffirmative controls what happens when both labels carry
	// recognized vocabulary but the pair is contradictory (e.g. two
	// affirmative labels). When true the first listed outcome is treated as
	// affirmative, matching the venue's usual ordering.
	fallbackFirstAffirmative bool
}

// New creates a Resolver backed by the given metadata source.
func New(source MetadataSource, fallbackFirstAffirmative bool, logger *slog.Logger) *Resolver {
	return &Resolver{
		source:                   source,
		fallbackFirstAffirmative: fallbackFirstAffirmative,
		logger:                   logger.With(slog.String("component", "resolver")),
		now:                      func() time.Time { return time.Now().UTC() },
	}
}

// BuildSlug constructs the deterministic market slug for an asset, window
// duration, and slot start time, e.g. "btc-updown-15m-1756400400".
func BuildSlug(asset string, duration time.Duration, slot time.Time) string {
	return fmt.Sprintf("%s-updown-%dm-%d",
		strings.ToLower(asset), int(duration.Minutes()), slot.Unix())
}

// Resolve looks up the market for the given slot and validates it. Returns
// domain.ErrNotFound when the market does not exist (caller tries the next
// candidate slot) and domain.ErrMalformedMarket when it exists but is
// structurally broken, so the two cases stay distinguishable in logs.
func (r *Resolver) Resolve(ctx context.Context, asset string, duration time.Duration, slot time.Time) (domain.Market, error) {
	slug := BuildSlug(asset, duration, slot)

	md, err := r.source.GetMarketBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Market{}, fmt.Errorf("resolver: %w: slug=%s", domain.ErrNotFound, slug)
		}
		return domain.Market{}, fmt.Errorf("resolver: lookup %s: %w", slug, err)
	}

	market, err := r.validate(slug, slot, duration, md)
	if err != nil {
		return domain.Market{}, err
	}

	r.logger.Debug("resolved market",
		slog.String("slug", slug),
		slog.String("question", market.Question),
		slog.Time("window_start", market.WindowStart),
		slog.Time("window_end", market.WindowEnd))

	return market, nil
}

// validate checks structural sanity and classifies the two outcomes.
func (r *Resolver) validate(slug string, slot time.Time, duration time.Duration, md polymarket.MarketMetadata) (domain.Market, error) {
	if len(md.OutcomeLabels) != 2 || len(md.TokenIDs) != 2 {
		return domain.Market{}, fmt.Errorf("resolver: %w: slug=%s outcomes=%d tokens=%d",
			domain.ErrMalformedMarket, slug, len(md.OutcomeLabels), len(md.TokenIDs))
	}
	if md.TokenIDs[0] == "" || md.TokenIDs[1] == "" {
		return domain.Market{}, fmt.Errorf("resolver: %w: slug=%s: empty token id",
			domain.ErrMalformedMarket, slug)
	}
	// Condition ids are keccak hashes; anything else means the metadata row
	// is not a real CTF market.
	if md.ConditionID != "" {
		if b := common.FromHex(md.ConditionID); len(b) != common.HashLength {
			return domain.Market{}, fmt.Errorf("resolver: %w: slug=%s: bad condition id %q",
				domain.ErrMalformedMarket, slug, md.ConditionID)
		}
	}

	affirmative, err := r.classify(md.OutcomeLabels)
	if err != nil {
		return domain.Market{}, fmt.Errorf("resolver: %w: slug=%s: %v",
			domain.ErrMalformedMarket, slug, err)
	}

	windowStart := md.StartTime
	windowEnd := md.EndTime
	if windowStart.IsZero() {
		windowStart = slot
	}
	if windowEnd.IsZero() {
		windowEnd = windowStart.Add(duration)
	}

	if md.Closed {
		return domain.Market{}, fmt.Errorf("resolver: %w: slug=%s: settled upstream",
			domain.ErrMarketClosed, slug)
	}
	// A future market legitimately reports acceptingOrders=false until its
	// window opens. Once the window has started the flag means the venue
	// will reject every order we send.
	if !md.AcceptingOrders && !r.now().Before(windowStart) {
		return domain.Market{}, fmt.Errorf("resolver: %w: slug=%s: not accepting orders",
			domain.ErrMarketClosed, slug)
	}

	market := domain.Market{
		Slug:        slug,
		ConditionID: md.ConditionID,
		Question:    md.Question,
		WindowStart: windowStart.UTC(),
		WindowEnd:   windowEnd.UTC(),
	}
	for i := 0; i < 2; i++ {
		market.Outcomes[i] = domain.Outcome{
			TokenID:     md.TokenIDs[i],
			Label:       md.OutcomeLabels[i],
			Affirmative: i == affirmative,
		}
	}

	return market, nil
}

// classify returns the index of the affirmative outcome, or an error when
// neither label carries recognizable vocabulary.
func (r *Resolver) classify(labels []string) (int, error) {
	aff := [2]bool{}
	neg := [2]bool{}
	for i, label := range labels {
		aff[i] = matchesAny(label, affirmativeWords)
		neg[i] = matchesAny(label, negativeWords)
	}

	switch {
	case aff[0] && neg[1] && !neg[0]:
		return 0, nil
	case aff[1] && neg[0] && !neg[1]:
		return 1, nil
	case !aff[0] && !neg[0] || !aff[1] && !neg[1]:
		return 0, fmt.Errorf("unrecognized outcome labels %q/%q", labels[0], labels[1])
	default:
		// Both labels recognized but contradictory. Metadata ordering is not
		// guaranteed, so fall back to a configured convention.
		r.logger.Warn("ambiguous outcome labels, using configured fallback",
			slog.String("label_0", labels[0]),
			slog.String("label_1", labels[1]),
			slog.Bool("first_affirmative", r.fallbackFirstAffirmative))
		if r.fallbackFirstAffirmative {
			return 0, nil
		}
		return 1, nil
	}
}

// matchesAny reports whether the label contains any of the given words as a
// whole token, case-insensitively.
func matchesAny(label string, words []string) bool {
	lower := strings.ToLower(label)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}
