package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

// SessionStore implements domain.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a SessionStore backed by the given connection pool.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// SaveSession inserts a finished session record.
func (s *SessionStore) SaveSession(ctx context.Context, rec *domain.SessionRecord) error {
	const query = `
		INSERT INTO sessions (
			id, market_slug, asset, started_at, ended_at,
			yes_spent, no_spent, yes_shares, no_shares,
			guaranteed_value, potential_profit, trade_count, sniped, dry_run
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14
		) ON CONFLICT (id) DO NOTHING`

	sum := rec.Summary
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.MarketSlug, rec.Asset, rec.StartedAt, rec.EndedAt,
		sum.YesSpent, sum.NoSpent, sum.YesShares, sum.NoShares,
		sum.GuaranteedValue, sum.PotentialProfit, sum.TradeCount, rec.Sniped, rec.DryRun,
	)
	if err != nil {
		return fmt.Errorf("postgres: save session %s: %w", rec.ID, err)
	}
	return nil
}

// GetSessionsSince returns sessions started at or after since, oldest first.
func (s *SessionStore) GetSessionsSince(ctx context.Context, since time.Time) ([]*domain.SessionRecord, error) {
	const query = `
		SELECT id, market_slug, asset, started_at, ended_at,
			yes_spent, no_spent, yes_shares, no_shares,
			guaranteed_value, potential_profit, trade_count, sniped, dry_run
		FROM sessions WHERE started_at >= $1 ORDER BY started_at ASC`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: sessions since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var recs []*domain.SessionRecord
	for rows.Next() {
		var rec domain.SessionRecord
		var sum domain.PositionSummary
		if err := rows.Scan(
			&rec.ID, &rec.MarketSlug, &rec.Asset, &rec.StartedAt, &rec.EndedAt,
			&sum.YesSpent, &sum.NoSpent, &sum.YesShares, &sum.NoShares,
			&sum.GuaranteedValue, &sum.PotentialProfit, &sum.TradeCount, &rec.Sniped, &rec.DryRun,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan session: %w", err)
		}
		sum.MarketSlug = rec.MarketSlug
		sum.TotalSpent = sum.YesSpent + sum.NoSpent
		sum.MinShares = sum.GuaranteedValue
		if sum.TotalSpent > 0 {
			sum.ProfitMargin = sum.PotentialProfit / sum.TotalSpent
		}
		if total := sum.YesShares + sum.NoShares; total > 0 {
			sum.Imbalance = (sum.YesShares - sum.NoShares) / total
			if sum.Imbalance < 0 {
				sum.Imbalance = -sum.Imbalance
			}
		}
		rec.Summary = &sum
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate sessions: %w", err)
	}
	return recs, nil
}
