// Package report finalizes a finished market session: format the position
// summary, alert the operator, and persist the record.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/alanyoungcy/updownbot/internal/domain"
	"github.com/alanyoungcy/updownbot/internal/notify"
)

// Reporter fans a finished session out to the operator channel, the session
// store, and the archive. Every collaborator is optional; failures are
// logged and never block the next session.
type Reporter struct {
	notifier *notify.Notifier
	sessions domain.SessionStore
	archiver domain.Archiver
	logger   *slog.Logger
}

// New creates a Reporter. Any collaborator may be nil.
func New(notifier *notify.Notifier, sessions domain.SessionStore, archiver domain.Archiver, logger *slog.Logger) *Reporter {
	return &Reporter{
		notifier: notifier,
		sessions: sessions,
		archiver: archiver,
		logger:   logger.With(slog.String("component", "report")),
	}
}

// Finalize records one finished session. The summary is logged in full even
// when every downstream collaborator is disabled: a loss must be visible,
// not buried.
func (r *Reporter) Finalize(ctx context.Context, rec *domain.SessionRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	s := rec.Summary
	r.logger.Info("session finalized",
		slog.String("market", rec.MarketSlug),
		slog.Float64("total_spent", s.TotalSpent),
		slog.Float64("yes_shares", s.YesShares),
		slog.Float64("no_shares", s.NoShares),
		slog.Float64("guaranteed_value", s.GuaranteedValue),
		slog.Float64("potential_profit", s.PotentialProfit),
		slog.Float64("profit_margin", s.ProfitMargin),
		slog.Int("trades", s.TradeCount),
		slog.Bool("sniped", rec.Sniped),
		slog.Bool("dry_run", rec.DryRun))

	if r.notifier != nil {
		title := fmt.Sprintf("Session finished: %s", rec.MarketSlug)
		if err := r.notifier.Notify(ctx, notify.EventSummary, title, FormatSummary(rec)); err != nil {
			r.logger.Warn("summary notification failed", slog.String("error", err.Error()))
		}
	}

	if r.sessions != nil {
		if err := r.sessions.SaveSession(ctx, rec); err != nil {
			r.logger.Warn("save session failed",
				slog.String("session_id", rec.ID),
				slog.String("error", err.Error()))
		}
	}

	if r.archiver != nil {
		if err := r.archiver.ArchiveSession(ctx, rec); err != nil {
			r.logger.Warn("archive session failed",
				slog.String("session_id", rec.ID),
				slog.String("error", err.Error()))
		}
	}
}

// FormatSummary renders a session record as a human-readable report.
func FormatSummary(rec *domain.SessionRecord) string {
	s := rec.Summary
	var b strings.Builder

	fmt.Fprintf(&b, "Market: %s\n", rec.MarketSlug)
	fmt.Fprintf(&b, "Window: %s -> %s\n",
		rec.StartedAt.Format("15:04:05"), rec.EndedAt.Format("15:04:05"))
	fmt.Fprintf(&b, "Trades: %d", s.TradeCount)
	if rec.Sniped {
		b.WriteString(" (incl. snipe)")
	}
	if rec.DryRun {
		b.WriteString(" [dry run]")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Spent: $%.2f (yes $%.2f / no $%.2f)\n", s.TotalSpent, s.YesSpent, s.NoSpent)
	fmt.Fprintf(&b, "Shares: yes %.2f / no %.2f (imbalance %.0f%%)\n", s.YesShares, s.NoShares, s.Imbalance*100)
	fmt.Fprintf(&b, "Guaranteed at settlement: $%.2f\n", s.GuaranteedValue)

	word := "profit"
	if s.PotentialProfit < 0 {
		word = "LOSS"
	}
	fmt.Fprintf(&b, "Potential %s: $%.2f (%.1f%%)", word, s.PotentialProfit, s.ProfitMargin*100)

	return b.String()
}
