package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, market_slug, token_id, outcome, label,
	price, shares, cost, snipe, simulated, order_id, ts`

func scanTradeRows(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(
			&t.ID, &t.MarketSlug, &t.TokenID, &t.Outcome, &t.Label,
			&t.Price, &t.Shares, &t.Cost, &t.Snipe, &t.Simulated,
			&t.OrderID, &t.Timestamp,
		); err != nil {
			return nil, err
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

// SaveTrade inserts a single trade. Duplicate ids are silently skipped so a
// retried persist never double-counts a fill.
func (s *TradeStore) SaveTrade(ctx context.Context, t *domain.Trade) error {
	const query = `
		INSERT INTO trades (
			id, market_slug, token_id, outcome, label,
			price, shares, cost, snipe, simulated, order_id, ts
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12
		) ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.MarketSlug, t.TokenID, string(t.Outcome), t.Label,
		t.Price, t.Shares, t.Cost, t.Snipe, t.Simulated, t.OrderID, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: save trade %s: %w", t.ID, err)
	}
	return nil
}

// GetTradesByMarket returns all trades for a market, oldest first.
func (s *TradeStore) GetTradesByMarket(ctx context.Context, marketSlug string) ([]*domain.Trade, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM trades WHERE market_slug = $1 ORDER BY ts ASC", tradeSelectCols)

	rows, err := s.pool.Query(ctx, query, marketSlug)
	if err != nil {
		return nil, fmt.Errorf("postgres: trades by market %s: %w", marketSlug, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// GetTradesSince returns all trades with a timestamp at or after since.
func (s *TradeStore) GetTradesSince(ctx context.Context, since time.Time) ([]*domain.Trade, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM trades WHERE ts >= $1 ORDER BY ts ASC", tradeSelectCols)

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: trades since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}
