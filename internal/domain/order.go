package domain

import "time"

// Order represents a resting quote the market maker has placed (or intends
// to place) through the trade executor. Completed orders are dropped from
// engine state and never re-queried.
type Order struct {
	ID        string
	Market    string
	AssetID   string
	Side      string // "BUY", "SELL"
	Price     string
	Size      string
	Status    string // "LIVE", "MATCHED", "CANCELLED"
	CreatedAt time.Time
}

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OutcomeYes = "YES"
	OutcomeNo  = "NO"

	OrderStatusLive      = "LIVE"
	OrderStatusMatched   = "MATCHED"
	OrderStatusCancelled = "CANCELLED"
)

// IsOpen checks if the order is still resting on the book.
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusLive
}
