package domain

import "context"

// OrderBookHandler receives order-book snapshots for subscribed assets.
type OrderBookHandler func(book OrderBook)

// PriceHandler receives raw decimal-string price updates for subscribed assets.
type PriceHandler func(assetID, price string)

// SignalHandler receives trade signals emitted by an engine.
type SignalHandler func(signal TradeSignal)

// OpportunityHandler receives arbitrage opportunities as they are detected.
type OpportunityHandler func(opp ArbitrageOpportunity)

// MarketStream defines the streaming market-data connection the engines
// consume. Subscriptions registered while disconnected are latent and are
// replayed on the next successful connect.
type MarketStream interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	SubscribeOrderBook(assetIDs []string, handler OrderBookHandler) error
	SubscribePrice(assetIDs []string, handler PriceHandler) error
	Unsubscribe(assetIDs []string) error
}

// TradeExecutor is the abstract order-execution capability. The core only
// needs its existence; the transport behind it lives outside this module.
type TradeExecutor interface {
	PlaceOrder(ctx context.Context, order Order) error
	CancelOrder(ctx context.Context, orderID string) error
}
