package arb

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"predict_go/internal/domain"
	"predict_go/internal/infra"
	"predict_go/internal/state"

	"github.com/shopspring/decimal"
)

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

// Config holds arbitrage-detection settings.
type Config struct {
	MinSpread   decimal.Decimal // minimum shortfall of yes+no from 1.0
	MaxSlippage decimal.Decimal // assumed execution cost, charged per leg
	OrderSize   decimal.Decimal
}

// DefaultConfig returns the standard arbitrage settings.
func DefaultConfig() Config {
	return Config{
		MinSpread:   decimal.NewFromFloat(0.01),
		MaxSlippage: decimal.NewFromFloat(0.005),
		OrderSize:   decimal.NewFromInt(50),
	}
}

// MarketPair identifies one market and its two complementary outcome tokens.
type MarketPair struct {
	MarketID   string
	YesAssetID string
	NoAssetID  string
}

// MarketState tracks the last seen leg prices for a monitored market.
// Zero prices mean unknown/unseen and are never treated as valid quotes.
type MarketState struct {
	MarketID   string
	YesAssetID string
	NoAssetID  string
	YesPrice   decimal.Decimal
	NoPrice    decimal.Decimal
	LastUpdate time.Time
}

// Engine scans monitored markets for complementary-outcome mispricing:
// when YES+NO prices fall short of 1.0 by more than the threshold, buying
// both legs locks in the shortfall. The inverse case (total above 1.0) is
// deliberately not signaled; selling both legs needs inventory the engine
// does not track.
type Engine struct {
	cfg     Config
	stream  domain.MarketStream
	store   *state.Store
	metrics *infra.Metrics

	oppMu sync.RWMutex
	onOpp domain.OpportunityHandler

	mu      sync.RWMutex
	running bool
	markets map[string]*MarketState
}

// NewEngine creates an arbitrage engine. store and metrics may be nil.
func NewEngine(cfg Config, stream domain.MarketStream, store *state.Store, metrics *infra.Metrics) *Engine {
	return &Engine{
		cfg:     cfg,
		stream:  stream,
		store:   store,
		metrics: metrics,
		markets: make(map[string]*MarketState),
	}
}

// OnOpportunity registers the sink invoked for each detected opportunity.
func (e *Engine) OnOpportunity(h domain.OpportunityHandler) {
	e.oppMu.Lock()
	e.onOpp = h
	e.oppMu.Unlock()
}

// Start begins monitoring the given markets. Idempotent: a no-op while
// already running. Establishes the streaming connection if needed, then
// subscribes to price updates for every known leg asset.
func (e *Engine) Start(ctx context.Context, pairs []MarketPair) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	assetIDs := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		if p.MarketID == "" {
			continue
		}
		e.markets[p.MarketID] = &MarketState{
			MarketID:   p.MarketID,
			YesAssetID: p.YesAssetID,
			NoAssetID:  p.NoAssetID,
		}
		if p.YesAssetID != "" {
			assetIDs = append(assetIDs, p.YesAssetID)
		}
		if p.NoAssetID != "" {
			assetIDs = append(assetIDs, p.NoAssetID)
		}
	}
	count := len(e.markets)
	e.mu.Unlock()

	if !e.stream.IsConnected() {
		if err := e.stream.Connect(ctx); err != nil {
			// Connection retries continue in the background; subscriptions
			// below stay latent until it comes up.
			slog.Warn("stream connect failed, subscriptions latent", slog.Any("error", err))
		}
	}

	if len(assetIDs) > 0 {
		if err := e.stream.SubscribePrice(assetIDs, e.onPrice); err != nil {
			slog.Warn("price subscribe deferred", slog.Any("error", err))
		}
	}

	slog.Info("arbitrage engine started", slog.Int("markets", count))
	return nil
}

// Stop unsubscribes every tracked leg and clears all tracking state.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	assetIDs := make([]string, 0, len(e.markets)*2)
	for _, st := range e.markets {
		if st.YesAssetID != "" {
			assetIDs = append(assetIDs, st.YesAssetID)
		}
		if st.NoAssetID != "" {
			assetIDs = append(assetIDs, st.NoAssetID)
		}
	}
	e.markets = make(map[string]*MarketState)
	e.mu.Unlock()

	if len(assetIDs) > 0 {
		if err := e.stream.Unsubscribe(assetIDs); err != nil {
			slog.Warn("unsubscribe failed", slog.Any("error", err))
		}
	}
	slog.Info("arbitrage engine stopped")
}

// IsRunning reports whether the engine is monitoring markets.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Markets returns a snapshot of every tracked market state.
func (e *Engine) Markets() []MarketState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]MarketState, 0, len(e.markets))
	for _, st := range e.markets {
		out = append(out, *st)
	}
	return out
}

// CheckYesNoArbitrage evaluates one market's legs. Returns nil when either
// price is still unknown, when the spread is at or below the threshold, or
// when expected profit after per-leg slippage is not positive. Otherwise
// the opportunity carries one BUY signal per leg at its current price.
func (e *Engine) CheckYesNoArbitrage(st MarketState) *domain.ArbitrageOpportunity {
	if st.YesPrice.IsZero() || st.NoPrice.IsZero() {
		return nil
	}

	total := st.YesPrice.Add(st.NoPrice)
	spread := one.Sub(total)
	if spread.LessThanOrEqual(e.cfg.MinSpread) {
		return nil
	}

	// Slippage is charged once per leg, two legs.
	profit := spread.Mul(e.cfg.OrderSize).Sub(e.cfg.MaxSlippage.Mul(two))
	if !profit.IsPositive() {
		return nil
	}

	size := e.cfg.OrderSize.String()
	return &domain.ArbitrageOpportunity{
		Markets:        []string{st.MarketID},
		Spread:         spread,
		ExpectedProfit: profit,
		Signals: []domain.TradeSignal{
			{
				Market:  st.MarketID,
				AssetID: st.YesAssetID,
				Action:  domain.SideBuy,
				Side:    domain.OutcomeYes,
				Price:   st.YesPrice.String(),
				Size:    size,
				Reason:  "yes/no sum below 1.0",
			},
			{
				Market:  st.MarketID,
				AssetID: st.NoAssetID,
				Action:  domain.SideBuy,
				Side:    domain.OutcomeNo,
				Price:   st.NoPrice.String(),
				Size:    size,
				Reason:  "yes/no sum below 1.0",
			},
		},
	}
}

// ScanForOpportunities evaluates every tracked market. Pure read: safe to
// call at any time, including while stopped.
func (e *Engine) ScanForOpportunities() []domain.ArbitrageOpportunity {
	var opps []domain.ArbitrageOpportunity
	for _, st := range e.Markets() {
		if opp := e.CheckYesNoArbitrage(st); opp != nil {
			opps = append(opps, *opp)
		}
	}
	return opps
}

// UpdatePrices is the direct state-injection path for non-streaming price
// sources. Both legs update at once, then the market is re-checked.
// Unknown markets are a silent no-op.
func (e *Engine) UpdatePrices(marketID string, yesPrice, noPrice decimal.Decimal) {
	e.mu.Lock()
	st, ok := e.markets[marketID]
	if !ok {
		e.mu.Unlock()
		return
	}
	st.YesPrice = yesPrice
	st.NoPrice = noPrice
	st.LastUpdate = time.Now()
	snapshot := *st
	running := e.running
	e.mu.Unlock()

	if !running {
		return
	}
	if opp := e.CheckYesNoArbitrage(snapshot); opp != nil {
		e.emit(*opp)
	}
}

// onPrice is the streaming callback. The update routes to whichever
// tracked market owns the asset (first match against either leg), then
// that market alone is re-checked. Late updates for untracked assets are
// discarded without error.
func (e *Engine) onPrice(assetID, price string) {
	d, ok := domain.ParsePrice(price)
	if !ok {
		slog.Warn("dropping unparseable price",
			slog.String("asset_id", assetID), slog.String("price", price))
		return
	}

	if e.store != nil {
		e.store.ApplyPrice(assetID, price)
	}

	e.mu.Lock()
	var snapshot MarketState
	matched := false
	for _, st := range e.markets {
		if st.YesAssetID == assetID {
			st.YesPrice = d
		} else if st.NoAssetID == assetID {
			st.NoPrice = d
		} else {
			continue
		}
		st.LastUpdate = time.Now()
		snapshot = *st
		matched = true
		break
	}
	running := e.running
	e.mu.Unlock()

	if !matched || !running {
		return
	}
	if opp := e.CheckYesNoArbitrage(snapshot); opp != nil {
		e.emit(*opp)
	}
}

func (e *Engine) emit(opp domain.ArbitrageOpportunity) {
	if e.metrics != nil {
		e.metrics.RecordOpportunity()
	}
	slog.Info("arbitrage opportunity",
		slog.Any("markets", opp.Markets),
		slog.String("spread", opp.Spread.String()),
		slog.String("expected_profit", opp.ExpectedProfit.String()))
	e.oppMu.RLock()
	h := e.onOpp
	e.oppMu.RUnlock()
	if h != nil {
		h(opp)
	}
}
