package maker

import (
	"predict_go/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	one  = decimal.NewFromInt(1)
	two  = decimal.NewFromInt(2)
	tick = decimal.NewFromFloat(0.001)
)

// Quotes is a bid/ask pair formatted to 4 decimal places.
type Quotes struct {
	Bid string
	Ask string
}

// CalculateQuotes derives target quotes from an order book and a configured
// spread. Returns nil when either side of the book is empty: no basis for a
// mid price. The final bid is the lesser of the spread-derived candidate and
// one tick below best bid; the final ask is the greater of the candidate and
// one tick above best ask. Quotes always sit strictly outside the best of
// book on both sides, layering liquidity at the edges without ever crossing
// the spread.
func CalculateQuotes(book domain.OrderBook, spread decimal.Decimal) *Quotes {
	bestBid, ok := book.BestBid()
	if !ok {
		return nil
	}
	bestAsk, ok := book.BestAsk()
	if !ok {
		return nil
	}

	mid := bestBid.Add(bestAsk).Div(two)
	half := spread.Div(two)

	bid := mid.Mul(one.Sub(half))
	ask := mid.Mul(one.Add(half))

	if outside := bestBid.Sub(tick); bid.GreaterThan(outside) {
		bid = outside
	}
	if outside := bestAsk.Add(tick); ask.LessThan(outside) {
		ask = outside
	}

	return &Quotes{Bid: bid.StringFixed(4), Ask: ask.StringFixed(4)}
}
