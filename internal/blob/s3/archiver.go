package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

// SessionTradeSource provides read access to a session's trades for archival.
// The archiver only needs the per-market query, not the full trade store.
type SessionTradeSource interface {
	GetTradesByMarket(ctx context.Context, marketSlug string) ([]*domain.Trade, error)
}

// SessionArchiver implements domain.Archiver by serializing a finished
// session together with its trades and uploading the document to object
// storage. Archives are write-once; the primary store remains the source of
// truth for queries.
type SessionArchiver struct {
	writer domain.BlobWriter
	trades SessionTradeSource
}

// NewSessionArchiver creates a SessionArchiver. trades may be nil, in which
// case archives contain the session record and summary only.
func NewSessionArchiver(writer domain.BlobWriter, trades SessionTradeSource) *SessionArchiver {
	return &SessionArchiver{
		writer: writer,
		trades: trades,
	}
}

// sessionArchive is the uploaded document layout.
type sessionArchive struct {
	Session *domain.SessionRecord `json:"session"`
	Trades  []*domain.Trade       `json:"trades,omitempty"`
}

// ArchiveSession uploads the session and its trades as a single JSON object
// at sessions/YYYY-MM-DD/{slug}.json, partitioned by the session start day.
func (a *SessionArchiver) ArchiveSession(ctx context.Context, rec *domain.SessionRecord) error {
	doc := sessionArchive{Session: rec}

	if a.trades != nil {
		trades, err := a.trades.GetTradesByMarket(ctx, rec.MarketSlug)
		if err != nil {
			return fmt.Errorf("s3blob: archive session %s trades: %w", rec.MarketSlug, err)
		}
		doc.Trades = trades
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("s3blob: archive session %s marshal: %w", rec.MarketSlug, err)
	}

	key := sessionKey(rec)
	if err := a.writer.Put(ctx, key, "application/json", buf.Bytes()); err != nil {
		return fmt.Errorf("s3blob: archive session %s upload: %w", rec.MarketSlug, err)
	}
	return nil
}

// sessionKey builds the object key for a session archive.
//
//	sessions/2026-08-28/btc-updown-15m-1756400400.json
func sessionKey(rec *domain.SessionRecord) string {
	return fmt.Sprintf("sessions/%s/%s.json", rec.StartedAt.UTC().Format("2006-01-02"), rec.MarketSlug)
}

// Compile-time interface check.
var _ domain.Archiver = (*SessionArchiver)(nil)
