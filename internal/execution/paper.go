package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"predict_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Fill records a simulated execution.
type Fill struct {
	OrderID string
	AssetID string
	Side    string
	Price   decimal.Decimal
	Size    decimal.Decimal
	Time    time.Time
}

// PaperExecutor simulates order placement and cancellation against a
// virtual cash balance. It lets the market maker's cancel-then-requote
// cycle run end to end without a venue connection; the real execution
// transport lives outside this module.
type PaperExecutor struct {
	mu     sync.Mutex
	cash   decimal.Decimal
	orders map[string]*domain.Order
	fills  []Fill
	onFill func(domain.Order)
}

// NewPaperExecutor creates a paper executor with the given starting cash.
func NewPaperExecutor(initialCash decimal.Decimal) *PaperExecutor {
	return &PaperExecutor{
		cash:   initialCash,
		orders: make(map[string]*domain.Order),
	}
}

// OnFill registers a hook invoked with the matched order when MatchOrder
// simulates a fill.
func (p *PaperExecutor) OnFill(h func(domain.Order)) {
	p.mu.Lock()
	p.onFill = h
	p.mu.Unlock()
}

// PlaceOrder rests the order. BUY orders reserve cash; a buy the balance
// cannot cover is rejected.
func (p *PaperExecutor) PlaceOrder(ctx context.Context, order domain.Order) error {
	price, err := decimal.NewFromString(order.Price)
	if err != nil {
		return fmt.Errorf("bad order price %q: %w", order.Price, err)
	}
	size, err := decimal.NewFromString(order.Size)
	if err != nil {
		return fmt.Errorf("bad order size %q: %w", order.Size, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if order.Side == domain.SideBuy {
		cost := price.Mul(size)
		if p.cash.LessThan(cost) {
			return fmt.Errorf("insufficient cash: need %s, have %s", cost, p.cash)
		}
	}

	stored := order
	stored.Status = domain.OrderStatusLive
	p.orders[order.ID] = &stored

	slog.Info("paper order placed",
		slog.String("id", order.ID),
		slog.String("asset_id", order.AssetID),
		slog.String("side", order.Side),
		slog.String("price", order.Price),
		slog.String("size", order.Size))
	return nil
}

// CancelOrder cancels a resting order by ID.
func (p *PaperExecutor) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	if !order.IsOpen() {
		return fmt.Errorf("cannot cancel %s order: %s", order.Status, orderID)
	}

	order.Status = domain.OrderStatusCancelled
	delete(p.orders, orderID)
	slog.Info("paper order cancelled", slog.String("id", orderID))
	return nil
}

// MatchOrder simulates a full fill of a resting order: cash moves, the
// order is dropped, and the fill hook fires.
func (p *PaperExecutor) MatchOrder(orderID string) error {
	p.mu.Lock()
	order, ok := p.orders[orderID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("order not found: %s", orderID)
	}

	price, _ := decimal.NewFromString(order.Price)
	size, _ := decimal.NewFromString(order.Size)
	notional := price.Mul(size)
	if order.Side == domain.SideBuy {
		p.cash = p.cash.Sub(notional)
	} else {
		p.cash = p.cash.Add(notional)
	}

	order.Status = domain.OrderStatusMatched
	matched := *order
	delete(p.orders, orderID)
	p.fills = append(p.fills, Fill{
		OrderID: order.ID,
		AssetID: order.AssetID,
		Side:    order.Side,
		Price:   price,
		Size:    size,
		Time:    time.Now(),
	})
	hook := p.onFill
	p.mu.Unlock()

	slog.Info("paper order matched", slog.String("id", orderID))
	if hook != nil {
		hook(matched)
	}
	return nil
}

// OpenOrders returns copies of all resting orders.
func (p *PaperExecutor) OpenOrders() []domain.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Order, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, *o)
	}
	return out
}

// Fills returns all simulated fills so far.
func (p *PaperExecutor) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Fill, len(p.fills))
	copy(out, p.fills)
	return out
}

// Cash returns the current virtual cash balance.
func (p *PaperExecutor) Cash() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}
