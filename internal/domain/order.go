package domain

import "time"

// OrderStatus tracks the order lifecycle as reported by the trade gateway.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusMatched   OrderStatus = "matched"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusSimulated OrderStatus = "simulated"
)

// OrderRequest is a buy intent produced by a decision engine. Share count is
// derived from the decision-time price; the executor re-checks the live price
// before submission and aborts if it has moved beyond tolerance.
type OrderRequest struct {
	ID         string // client order id
	MarketSlug string
	TokenID    string
	Outcome    Side
	Label      string
	Price      float64 // decision-time price
	Notional   float64 // USD to spend
	Reason     string
	Snipe      bool
	CreatedAt  time.Time
}

// Shares returns the share count implied by the decision-time price.
func (r OrderRequest) Shares() float64 {
	if r.Price <= 0 {
		return 0
	}
	return r.Notional / r.Price
}

// OrderResult is the trade gateway's response to an order submission.
type OrderResult struct {
	Success     bool
	OrderID     string
	Status      OrderStatus
	Message     string
	FilledPrice float64
	Simulated   bool
}
