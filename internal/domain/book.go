package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderBookEntry is a single resting price level. Price and Size stay
// decimal-string encoded as they arrive on the wire; convert with
// ParsePrice only when doing arithmetic, never for identity checks.
type OrderBookEntry struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderBook is a snapshot of resting liquidity for one outcome token.
// Bids are sorted best (highest) first, asks best (lowest) first.
// Empty sides are valid and mean no liquidity.
type OrderBook struct {
	Market    string           `json:"market"`
	AssetID   string           `json:"asset_id"`
	Bids      []OrderBookEntry `json:"bids"`
	Asks      []OrderBookEntry `json:"asks"`
	Timestamp time.Time        `json:"timestamp"`
}

// BestBid returns the highest resting bid price.
// ok is false when the bid side is empty or the level is unparseable.
func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	if len(b.Bids) == 0 {
		return decimal.Zero, false
	}
	return ParsePrice(b.Bids[0].Price)
}

// BestAsk returns the lowest resting ask price.
func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	if len(b.Asks) == 0 {
		return decimal.Zero, false
	}
	return ParsePrice(b.Asks[0].Price)
}

// ParsePrice converts a wire decimal string to a Decimal.
func ParsePrice(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
