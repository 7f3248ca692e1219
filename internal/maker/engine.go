package maker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"predict_go/internal/domain"
	"predict_go/internal/infra"
	"predict_go/internal/state"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config holds market-maker settings.
type Config struct {
	Spread      decimal.Decimal // quoted gap around mid, e.g. 0.02
	OrderSize   string
	MaxPosition decimal.Decimal
	// MinLiquidity is carried from venue configuration for parity with the
	// trading API layer; the quoting rules do not consult it.
	MinLiquidity    decimal.Decimal
	RefreshInterval time.Duration
}

// DefaultConfig returns the standard market-maker settings.
func DefaultConfig() Config {
	return Config{
		Spread:          decimal.NewFromFloat(0.02),
		OrderSize:       "10",
		MaxPosition:     decimal.NewFromInt(100),
		MinLiquidity:    decimal.NewFromInt(1000),
		RefreshInterval: 30 * time.Second,
	}
}

// assetState is the per-asset quoting state. Owned exclusively by the
// engine; other components see it only through emitted signals.
type assetState struct {
	assetID    string
	market     string
	currentBid *domain.Order
	currentAsk *domain.Order
	position   decimal.Decimal
	running    bool
	cancel     context.CancelFunc
}

// Engine maintains one quoting loop per asset under management. Order-book
// updates drive signal generation immediately; a periodic refresh timer
// independently cancels and requotes so stale quotes don't linger in a
// quiet market.
type Engine struct {
	cfg      Config
	stream   domain.MarketStream
	store    *state.Store
	executor domain.TradeExecutor
	canTrade func() bool
	metrics  *infra.Metrics

	sigMu    sync.RWMutex
	onSignal domain.SignalHandler

	mu     sync.Mutex
	assets map[string]*assetState
}

// NewEngine creates a market-maker engine. canTrade gates Start: it should
// report whether trading credentials are available. executor and metrics
// may be nil.
func NewEngine(cfg Config, stream domain.MarketStream, store *state.Store, executor domain.TradeExecutor, canTrade func() bool, metrics *infra.Metrics) *Engine {
	return &Engine{
		cfg:      cfg,
		stream:   stream,
		store:    store,
		executor: executor,
		canTrade: canTrade,
		metrics:  metrics,
		assets:   make(map[string]*assetState),
	}
}

// OnSignal registers the sink invoked for every emitted trade signal.
func (e *Engine) OnSignal(h domain.SignalHandler) {
	e.sigMu.Lock()
	e.onSignal = h
	e.sigMu.Unlock()
}

// Start begins quoting an asset. Fails when trading credentials are absent;
// a no-op when the asset is already under management. Registers the
// order-book subscription and starts the periodic refresh loop.
func (e *Engine) Start(ctx context.Context, assetID, marketID string) error {
	if e.canTrade == nil || !e.canTrade() {
		return domain.ErrTradingDisabled
	}

	e.mu.Lock()
	if _, ok := e.assets[assetID]; ok {
		e.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	e.assets[assetID] = &assetState{
		assetID: assetID,
		market:  marketID,
		running: true,
		cancel:  cancel,
	}
	e.mu.Unlock()

	if err := e.stream.SubscribeOrderBook([]string{assetID}, e.onBook); err != nil {
		// Latent subscription: replayed on the next successful connect.
		slog.Warn("order book subscribe deferred",
			slog.String("asset_id", assetID), slog.Any("error", err))
	}

	go e.refreshLoop(loopCtx, assetID)

	slog.Info("market maker started",
		slog.String("asset_id", assetID), slog.String("market", marketID))
	return nil
}

// Stop cancels the refresh loop and any outstanding quotes, unsubscribes
// the asset, and drops its state. Stopping an unmanaged asset is a no-op.
func (e *Engine) Stop(assetID string) {
	e.mu.Lock()
	st, ok := e.assets[assetID]
	if !ok {
		e.mu.Unlock()
		return
	}
	st.running = false
	cancel := st.cancel
	bid, ask := st.currentBid, st.currentAsk
	delete(e.assets, assetID)
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.cancelOrders(context.Background(), bid, ask)

	if err := e.stream.Unsubscribe([]string{assetID}); err != nil {
		slog.Warn("unsubscribe failed", slog.String("asset_id", assetID), slog.Any("error", err))
	}
	slog.Info("market maker stopped", slog.String("asset_id", assetID))
}

// StopAll stops every managed asset. Each asset is stopped independently;
// one failure never aborts the batch.
func (e *Engine) StopAll() {
	for _, id := range e.ManagedAssets() {
		e.Stop(id)
	}
}

// ManagedAssets returns the asset IDs currently under management.
func (e *Engine) ManagedAssets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.assets))
	for id := range e.assets {
		ids = append(ids, id)
	}
	return ids
}

// IsRunning reports whether the asset is under management.
func (e *Engine) IsRunning(assetID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.assets[assetID]
	return ok && st.running
}

// Position returns the engine's signed position for an asset.
func (e *Engine) Position(assetID string) (decimal.Decimal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.assets[assetID]
	if !ok {
		return decimal.Zero, false
	}
	return st.position, true
}

// SetPosition injects the current signed position from an external source
// (fill feed, portfolio service). Unknown assets are a no-op.
func (e *Engine) SetPosition(assetID string, position decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.assets[assetID]; ok {
		st.position = position
	}
}

// ApplyFill adjusts position from a fill event and drops the matched quote.
// Late fills for assets no longer managed are discarded.
func (e *Engine) ApplyFill(fill domain.Order) {
	size, err := decimal.NewFromString(fill.Size)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.assets[fill.AssetID]
	if !ok {
		return
	}
	if fill.Side == domain.SideBuy {
		st.position = st.position.Add(size)
	} else {
		st.position = st.position.Sub(size)
	}
	if st.currentBid != nil && st.currentBid.ID == fill.ID {
		st.currentBid = nil
	}
	if st.currentAsk != nil && st.currentAsk.ID == fill.ID {
		st.currentAsk = nil
	}
}

// GenerateSignals computes the refresh-triggered trade signals for an
// asset's order book. Empty when the asset is not managed or not running,
// or when quotes cannot be computed. The BUY and SELL position guards are
// independent: both signals may be emitted at once, representing two
// independent resting quotes.
func (e *Engine) GenerateSignals(assetID string, book domain.OrderBook) []domain.TradeSignal {
	e.mu.Lock()
	st, ok := e.assets[assetID]
	if !ok || !st.running {
		e.mu.Unlock()
		return nil
	}
	position := st.position
	market := st.market
	e.mu.Unlock()

	quotes := CalculateQuotes(book, e.cfg.Spread)
	if quotes == nil {
		return nil
	}

	var signals []domain.TradeSignal
	if position.LessThan(e.cfg.MaxPosition) {
		signals = append(signals, domain.TradeSignal{
			Market:  market,
			AssetID: assetID,
			Action:  domain.SideBuy,
			Side:    domain.OutcomeYes,
			Price:   quotes.Bid,
			Size:    e.cfg.OrderSize,
			Reason:  "market making bid",
		})
	}
	if position.GreaterThan(e.cfg.MaxPosition.Neg()) {
		signals = append(signals, domain.TradeSignal{
			Market:  market,
			AssetID: assetID,
			Action:  domain.SideSell,
			Side:    domain.OutcomeYes,
			Price:   quotes.Ask,
			Size:    e.cfg.OrderSize,
			Reason:  "market making ask",
		})
	}
	return signals
}

// onBook is the streaming callback: store the snapshot, then requote
// immediately. No debouncing.
func (e *Engine) onBook(book domain.OrderBook) {
	if e.store != nil {
		e.store.ApplyBook(book)
	}
	e.evaluate(context.Background(), book.AssetID, book)
}

func (e *Engine) evaluate(ctx context.Context, assetID string, book domain.OrderBook) {
	signals := e.GenerateSignals(assetID, book)
	if len(signals) == 0 {
		return
	}
	e.placeQuotes(ctx, assetID, signals)
	for _, s := range signals {
		e.emit(s)
	}
}

// placeQuotes records the new resting orders and hands them to the
// executor. Quotes being replaced are cancelled first so no order is left
// resting once it stops being the current bid or ask. Each order's failure
// is independent.
func (e *Engine) placeQuotes(ctx context.Context, assetID string, signals []domain.TradeSignal) {
	e.mu.Lock()
	st, ok := e.assets[assetID]
	if !ok || !st.running {
		e.mu.Unlock()
		return
	}
	var replaced []*domain.Order
	orders := make([]domain.Order, 0, len(signals))
	for _, s := range signals {
		order := domain.Order{
			ID:        uuid.NewString(),
			Market:    s.Market,
			AssetID:   assetID,
			Side:      s.Action,
			Price:     s.Price,
			Size:      s.Size,
			Status:    domain.OrderStatusLive,
			CreatedAt: time.Now(),
		}
		if s.Action == domain.SideBuy {
			if st.currentBid != nil {
				replaced = append(replaced, st.currentBid)
			}
			st.currentBid = &order
		} else {
			if st.currentAsk != nil {
				replaced = append(replaced, st.currentAsk)
			}
			st.currentAsk = &order
		}
		orders = append(orders, order)
	}
	e.mu.Unlock()

	e.cancelOrders(ctx, replaced...)

	if e.executor == nil {
		return
	}
	for _, o := range orders {
		if err := e.executor.PlaceOrder(ctx, o); err != nil {
			slog.Warn("order placement failed",
				slog.String("order_id", o.ID), slog.Any("error", err))
		}
	}
}

// refreshLoop cancels and requotes on a fixed interval even when no new
// book data has arrived.
func (e *Engine) refreshLoop(ctx context.Context, assetID string) {
	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.refresh(ctx, assetID)
		}
	}
}

func (e *Engine) refresh(ctx context.Context, assetID string) {
	e.mu.Lock()
	st, ok := e.assets[assetID]
	if !ok || !st.running {
		e.mu.Unlock()
		return
	}
	bid, ask := st.currentBid, st.currentAsk
	st.currentBid, st.currentAsk = nil, nil
	e.mu.Unlock()

	e.cancelOrders(ctx, bid, ask)

	if e.store == nil {
		return
	}
	book, ok2 := e.store.Book(assetID)
	if !ok2 {
		return
	}
	e.evaluate(ctx, assetID, book)
}

func (e *Engine) cancelOrders(ctx context.Context, orders ...*domain.Order) {
	if e.executor == nil {
		return
	}
	for _, o := range orders {
		if o == nil {
			continue
		}
		if err := e.executor.CancelOrder(ctx, o.ID); err != nil {
			slog.Warn("order cancel failed",
				slog.String("order_id", o.ID), slog.Any("error", err))
		}
	}
}

func (e *Engine) emit(s domain.TradeSignal) {
	if e.metrics != nil {
		e.metrics.RecordSignal()
	}
	e.sigMu.RLock()
	h := e.onSignal
	e.sigMu.RUnlock()
	if h != nil {
		h(s)
	}
}
