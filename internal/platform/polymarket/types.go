package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/updownbot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "acceptingOrders" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Gamma metadata API.
// Outcomes and ClobTokenIDs arrive JSON-encoded inside strings.
type APIMarket struct {
	ID              string   `json:"id"`
	Question        string   `json:"question"`
	ConditionID     string   `json:"conditionId"`
	Slug            string   `json:"slug"`
	Outcomes        string   `json:"outcomes"`     // e.g. "[\"Up\",\"Down\"]"
	ClobTokenIDs    string   `json:"clobTokenIds"` // e.g. "[\"123\",\"456\"]"
	AcceptingOrders flexBool `json:"acceptingOrders"`
	Active          flexBool `json:"active"`
	Closed          bool     `json:"closed"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	OutcomePrices   string   `json:"outcomePrices"` // e.g. "[\"0.52\",\"0.48\"]"
}

// MarketMetadata is the parsed form of an APIMarket, before outcome
// classification. The resolver turns it into a domain.Market.
type MarketMetadata struct {
	Slug            string
	Question        string
	ConditionID     string
	OutcomeLabels   []string
	TokenIDs        []string
	OutcomePrices   []float64
	AcceptingOrders bool
	Closed          bool
	StartTime       time.Time
	EndTime         time.Time
}

// ToMetadata parses the string-encoded outcome arrays and timestamps.
func (m *APIMarket) ToMetadata() MarketMetadata {
	md := MarketMetadata{
		Slug:            m.Slug,
		Question:        m.Question,
		ConditionID:     m.ConditionID,
		AcceptingOrders: bool(m.AcceptingOrders),
		Closed:          m.Closed,
	}

	if m.Outcomes != "" {
		_ = json.Unmarshal([]byte(m.Outcomes), &md.OutcomeLabels)
	}
	if m.ClobTokenIDs != "" {
		_ = json.Unmarshal([]byte(m.ClobTokenIDs), &md.TokenIDs)
	}
	if m.OutcomePrices != "" {
		var raw []string
		if err := json.Unmarshal([]byte(m.OutcomePrices), &raw); err == nil {
			for _, s := range raw {
				p, _ := strconv.ParseFloat(s, 64)
				md.OutcomePrices = append(md.OutcomePrices, p)
			}
		}
	}
	if t, err := time.Parse(time.RFC3339, m.StartDate); err == nil {
		md.StartTime = t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
		md.EndTime = t.UTC()
	}

	return md
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBook is an orderbook snapshot from the CLOB /book endpoint.
type APIBook struct {
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Bids      []APIPriceLevel `json:"bids"`
	Asks      []APIPriceLevel `json:"asks"`
	Timestamp string          `json:"timestamp"`
	Hash      string          `json:"hash"`
}

// APIPriceLevel is a single bid/ask level, prices and sizes as strings.
type APIPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// APIPrice is the response of the CLOB /price endpoint.
type APIPrice struct {
	Price string `json:"price"`
}

// APIOrderResult is the trade gateway's response to an order submission.
type APIOrderResult struct {
	Success  bool    `json:"success"`
	ErrorMsg string  `json:"errorMsg,omitempty"`
	OrderID  string  `json:"orderID,omitempty"`
	Status   string  `json:"status,omitempty"`
	AvgPrice float64 `json:"avgPrice,omitempty"`
}

// ToDomainOrderResult converts an APIOrderResult to a domain.OrderResult.
func (r *APIOrderResult) ToDomainOrderResult() domain.OrderResult {
	result := domain.OrderResult{
		Success:     r.Success,
		OrderID:     r.OrderID,
		Message:     r.ErrorMsg,
		FilledPrice: r.AvgPrice,
	}

	switch r.Status {
	case "matched", "filled":
		result.Status = domain.OrderStatusMatched
	case "live", "open", "delayed":
		result.Status = domain.OrderStatusPending
	default:
		if r.Success {
			result.Status = domain.OrderStatusPending
		} else {
			result.Status = domain.OrderStatusRejected
		}
	}

	return result
}

// ToDomainSnapshot converts an APIBook to a domain.OrderbookSnapshot,
// computing best bid and best ask along the way.
func (b *APIBook) ToDomainSnapshot() domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{
		TokenID: b.AssetID,
	}

	for _, lvl := range b.Bids {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: p, Size: s})
		if p > snap.BestBid {
			snap.BestBid = p
		}
	}
	for _, lvl := range b.Asks {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: p, Size: s})
		if snap.BestAsk == 0 || p < snap.BestAsk {
			snap.BestAsk = p
		}
	}

	if ts, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil {
		// The feed sends milliseconds since epoch.
		snap.Timestamp = time.UnixMilli(ts).UTC()
	} else if t, err := time.Parse(time.RFC3339, b.Timestamp); err == nil {
		snap.Timestamp = t.UTC()
	} else {
		snap.Timestamp = time.Now().UTC()
	}

	return snap
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// BookMessage is a full orderbook snapshot delivered over the market feed.
type BookMessage struct {
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Bids      []APIPriceLevel `json:"bids"`
	Asks      []APIPriceLevel `json:"asks"`
	Timestamp string          `json:"timestamp"`
	Hash      string          `json:"hash"`
}

// LastTradeMessage carries the most recent trade price for an asset.
type LastTradeMessage struct {
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

// WSCommand is the JSON payload sent to the feed to subscribe/unsubscribe.
type WSCommand struct {
	Type    string   `json:"type"` // "subscribe" or "unsubscribe"
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
}

// BookToDomainSnapshot converts a BookMessage to a domain.OrderbookSnapshot.
func BookToDomainSnapshot(b *BookMessage) domain.OrderbookSnapshot {
	api := APIBook{
		AssetID:   b.AssetID,
		Market:    b.Market,
		Bids:      b.Bids,
		Asks:      b.Asks,
		Timestamp: b.Timestamp,
	}
	return api.ToDomainSnapshot()
}
