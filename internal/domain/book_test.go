package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBestBidAndAsk(t *testing.T) {
	book := OrderBook{
		Bids: []OrderBookEntry{{Price: "0.42", Size: "10"}, {Price: "0.40", Size: "5"}},
		Asks: []OrderBookEntry{{Price: "0.44", Size: "10"}, {Price: "0.46", Size: "5"}},
	}

	bid, ok := book.BestBid()
	if !ok || !bid.Equal(decimal.RequireFromString("0.42")) {
		t.Errorf("best bid: got %s ok=%v", bid, ok)
	}
	ask, ok := book.BestAsk()
	if !ok || !ask.Equal(decimal.RequireFromString("0.44")) {
		t.Errorf("best ask: got %s ok=%v", ask, ok)
	}
}

func TestBestPricesOnDegenerateBooks(t *testing.T) {
	empty := OrderBook{}
	if _, ok := empty.BestBid(); ok {
		t.Error("empty bid side must report ok=false")
	}
	if _, ok := empty.BestAsk(); ok {
		t.Error("empty ask side must report ok=false")
	}

	bad := OrderBook{Bids: []OrderBookEntry{{Price: "not-a-number"}}}
	if _, ok := bad.BestBid(); ok {
		t.Error("unparseable level must report ok=false")
	}
}

func TestOrderIsOpen(t *testing.T) {
	o := Order{Status: OrderStatusLive}
	if !o.IsOpen() {
		t.Error("live order should be open")
	}
	for _, s := range []string{OrderStatusMatched, OrderStatusCancelled, ""} {
		o.Status = s
		if o.IsOpen() {
			t.Errorf("status %q should not be open", s)
		}
	}
}
