package execution

import (
	"context"
	"testing"

	"predict_go/internal/domain"

	"github.com/shopspring/decimal"
)

func order(id, side, price, size string) domain.Order {
	return domain.Order{
		ID:      id,
		Market:  "m1",
		AssetID: "a1",
		Side:    side,
		Price:   price,
		Size:    size,
	}
}

func TestPlaceAndCancel(t *testing.T) {
	p := NewPaperExecutor(decimal.NewFromInt(100))
	ctx := context.Background()

	if err := p.PlaceOrder(ctx, order("o1", domain.SideBuy, "0.40", "10")); err != nil {
		t.Fatalf("place: %v", err)
	}
	open := p.OpenOrders()
	if len(open) != 1 || open[0].Status != domain.OrderStatusLive {
		t.Fatalf("open orders: %+v", open)
	}

	if err := p.CancelOrder(ctx, "o1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(p.OpenOrders()) != 0 {
		t.Error("order still open after cancel")
	}
	if err := p.CancelOrder(ctx, "o1"); err == nil {
		t.Error("expected error cancelling an already-cancelled order")
	}
	if err := p.CancelOrder(ctx, "never-placed"); err == nil {
		t.Error("expected error cancelling unknown order")
	}
}

func TestPlaceRejectsBadInput(t *testing.T) {
	p := NewPaperExecutor(decimal.NewFromInt(100))
	ctx := context.Background()

	if err := p.PlaceOrder(ctx, order("o1", domain.SideBuy, "garbage", "10")); err == nil {
		t.Error("expected error for unparseable price")
	}
	if err := p.PlaceOrder(ctx, order("o2", domain.SideBuy, "0.40", "")); err == nil {
		t.Error("expected error for unparseable size")
	}
	// 0.40 * 300 = 120 > 100 cash.
	if err := p.PlaceOrder(ctx, order("o3", domain.SideBuy, "0.40", "300")); err == nil {
		t.Error("expected rejection when cash cannot cover the buy")
	}
	// SELL orders do not touch cash.
	if err := p.PlaceOrder(ctx, order("o4", domain.SideSell, "0.40", "300")); err != nil {
		t.Errorf("sell should not be cash-checked: %v", err)
	}
}

func TestMatchMovesCashAndFiresHook(t *testing.T) {
	p := NewPaperExecutor(decimal.NewFromInt(100))
	ctx := context.Background()

	var filled []domain.Order
	p.OnFill(func(o domain.Order) { filled = append(filled, o) })

	p.PlaceOrder(ctx, order("buy", domain.SideBuy, "0.40", "10"))
	p.PlaceOrder(ctx, order("sell", domain.SideSell, "0.50", "10"))

	if err := p.MatchOrder("buy"); err != nil {
		t.Fatalf("match buy: %v", err)
	}
	if !p.Cash().Equal(decimal.NewFromInt(96)) {
		t.Errorf("cash after buy fill: %s", p.Cash())
	}

	if err := p.MatchOrder("sell"); err != nil {
		t.Fatalf("match sell: %v", err)
	}
	if !p.Cash().Equal(decimal.NewFromInt(101)) {
		t.Errorf("cash after sell fill: %s", p.Cash())
	}

	if err := p.MatchOrder("buy"); err == nil {
		t.Error("expected error matching an already-filled order")
	}

	fills := p.Fills()
	if len(fills) != 2 || fills[0].OrderID != "buy" || fills[1].OrderID != "sell" {
		t.Errorf("fills: %+v", fills)
	}
	if len(filled) != 2 || filled[0].Status != domain.OrderStatusMatched {
		t.Errorf("hook fills: %+v", filled)
	}
	if len(p.OpenOrders()) != 0 {
		t.Error("matched orders must not stay open")
	}
}
