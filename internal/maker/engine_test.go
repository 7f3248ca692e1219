package maker

import (
	"context"
	"sync"
	"testing"
	"time"

	"predict_go/internal/domain"
	"predict_go/internal/state"

	"github.com/shopspring/decimal"
)

// fakeStream implements domain.MarketStream and records calls.
type fakeStream struct {
	mu           sync.Mutex
	connected    bool
	bookHandlers map[string][]domain.OrderBookHandler
	subscribes   int
	unsubscribed []string
}

func newFakeStream() *fakeStream {
	return &fakeStream{connected: true, bookHandlers: make(map[string][]domain.OrderBookHandler)}
}

func (f *fakeStream) Connect(ctx context.Context) error { f.connected = true; return nil }
func (f *fakeStream) Disconnect()                       { f.connected = false }
func (f *fakeStream) IsConnected() bool                 { return f.connected }

func (f *fakeStream) SubscribeOrderBook(assetIDs []string, h domain.OrderBookHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	for _, id := range assetIDs {
		f.bookHandlers[id] = append(f.bookHandlers[id], h)
	}
	return nil
}

func (f *fakeStream) SubscribePrice(assetIDs []string, h domain.PriceHandler) error { return nil }

func (f *fakeStream) Unsubscribe(assetIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, assetIDs...)
	for _, id := range assetIDs {
		delete(f.bookHandlers, id)
	}
	return nil
}

func (f *fakeStream) pushBook(b domain.OrderBook) {
	f.mu.Lock()
	hs := append([]domain.OrderBookHandler(nil), f.bookHandlers[b.AssetID]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(b)
	}
}

// fakeExecutor records placed and cancelled order IDs.
type fakeExecutor struct {
	mu        sync.Mutex
	placed    []domain.Order
	cancelled []string
}

func (f *fakeExecutor) PlaceOrder(ctx context.Context, o domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, o)
	return nil
}

func (f *fakeExecutor) CancelOrder(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeExecutor) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.placed), len(f.cancelled)
}

func canTrade() bool  { return true }
func noTrading() bool { return false }

func newTestEngine(stream *fakeStream, exec *fakeExecutor) *Engine {
	return NewEngine(DefaultConfig(), stream, state.NewStore(), exec, canTrade, nil)
}

func TestStartRequiresCredentials(t *testing.T) {
	e := NewEngine(DefaultConfig(), newFakeStream(), state.NewStore(), nil, noTrading, nil)
	if err := e.Start(context.Background(), "a1", "m1"); err != domain.ErrTradingDisabled {
		t.Fatalf("expected ErrTradingDisabled, got %v", err)
	}
	if len(e.ManagedAssets()) != 0 {
		t.Error("no state should be created on precondition failure")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	fs := newFakeStream()
	e := newTestEngine(fs, nil)
	defer e.StopAll()

	if err := e.Start(context.Background(), "a1", "m1"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := e.Start(context.Background(), "a1", "m1"); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if got := len(e.ManagedAssets()); got != 1 {
		t.Errorf("expected exactly 1 managed asset, got %d", got)
	}
	if fs.subscribes != 1 {
		t.Errorf("expected exactly 1 subscribe, got %d", fs.subscribes)
	}
}

func TestGenerateSignals(t *testing.T) {
	fs := newFakeStream()
	e := newTestEngine(fs, nil)
	defer e.StopAll()

	if err := e.Start(context.Background(), "a1", "m1"); err != nil {
		t.Fatal(err)
	}
	goodBook := book([]string{"0.40"}, []string{"0.44"})
	goodBook.AssetID = "a1"

	t.Run("Unmanaged Asset", func(t *testing.T) {
		if got := e.GenerateSignals("unknown", goodBook); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("Flat Position Emits Both Sides", func(t *testing.T) {
		signals := e.GenerateSignals("a1", goodBook)
		if len(signals) != 2 {
			t.Fatalf("expected 2 signals, got %d", len(signals))
		}
		if signals[0].Action != domain.SideBuy || signals[0].Price != "0.3990" {
			t.Errorf("bad buy signal: %+v", signals[0])
		}
		if signals[1].Action != domain.SideSell || signals[1].Price != "0.4410" {
			t.Errorf("bad sell signal: %+v", signals[1])
		}
	})

	t.Run("Long At Limit Suppresses Buy", func(t *testing.T) {
		e.SetPosition("a1", decimal.NewFromInt(100))
		signals := e.GenerateSignals("a1", goodBook)
		if len(signals) != 1 || signals[0].Action != domain.SideSell {
			t.Errorf("expected single SELL, got %v", signals)
		}
	})

	t.Run("Short At Limit Suppresses Sell", func(t *testing.T) {
		e.SetPosition("a1", decimal.NewFromInt(-100))
		signals := e.GenerateSignals("a1", goodBook)
		if len(signals) != 1 || signals[0].Action != domain.SideBuy {
			t.Errorf("expected single BUY, got %v", signals)
		}
	})

	t.Run("Empty Book Emits Nothing", func(t *testing.T) {
		e.SetPosition("a1", decimal.Zero)
		empty := domain.OrderBook{AssetID: "a1"}
		if got := e.GenerateSignals("a1", empty); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})
}

func TestBookUpdateDrivesSignals(t *testing.T) {
	fs := newFakeStream()
	exec := &fakeExecutor{}
	e := newTestEngine(fs, exec)
	defer e.StopAll()

	var mu sync.Mutex
	var emitted []domain.TradeSignal
	e.OnSignal(func(s domain.TradeSignal) {
		mu.Lock()
		emitted = append(emitted, s)
		mu.Unlock()
	})

	if err := e.Start(context.Background(), "a1", "m1"); err != nil {
		t.Fatal(err)
	}

	b := book([]string{"0.40"}, []string{"0.44"})
	b.AssetID = "a1"
	fs.pushBook(b)

	mu.Lock()
	defer mu.Unlock()
	if len(emitted) != 2 {
		t.Fatalf("expected 2 emitted signals, got %d", len(emitted))
	}
	placed, _ := exec.counts()
	if placed != 2 {
		t.Errorf("expected 2 placed orders, got %d", placed)
	}
}

func TestRequoteCancelsReplacedOrders(t *testing.T) {
	fs := newFakeStream()
	exec := &fakeExecutor{}
	e := newTestEngine(fs, exec)

	if err := e.Start(context.Background(), "a1", "m1"); err != nil {
		t.Fatal(err)
	}

	b := book([]string{"0.40"}, []string{"0.44"})
	b.AssetID = "a1"
	fs.pushBook(b)

	b2 := book([]string{"0.41"}, []string{"0.45"})
	b2.AssetID = "a1"
	fs.pushBook(b2)

	exec.mu.Lock()
	firstPair := []string{exec.placed[0].ID, exec.placed[1].ID}
	cancelled := append([]string(nil), exec.cancelled...)
	exec.mu.Unlock()
	if len(cancelled) != 2 {
		t.Fatalf("expected the replaced pair cancelled, got %d cancels", len(cancelled))
	}
	for _, id := range firstPair {
		found := false
		for _, c := range cancelled {
			if c == id {
				found = true
			}
		}
		if !found {
			t.Errorf("replaced order %s never cancelled", id)
		}
	}

	e.Stop("a1")

	// Every placed order must end its life cancelled; none may rest forever.
	placed, cancels := exec.counts()
	if placed != 4 || cancels != 4 {
		t.Errorf("expected placed=4 cancelled=4, got placed=%d cancelled=%d", placed, cancels)
	}
}

func TestStopCancelsOutstandingOrders(t *testing.T) {
	fs := newFakeStream()
	exec := &fakeExecutor{}
	e := newTestEngine(fs, exec)

	if err := e.Start(context.Background(), "a1", "m1"); err != nil {
		t.Fatal(err)
	}
	b := book([]string{"0.40"}, []string{"0.44"})
	b.AssetID = "a1"
	fs.pushBook(b)

	e.Stop("a1")

	_, cancelled := exec.counts()
	if cancelled != 2 {
		t.Errorf("expected 2 cancels on stop, got %d", cancelled)
	}
	if len(fs.unsubscribed) != 1 || fs.unsubscribed[0] != "a1" {
		t.Errorf("expected unsubscribe of a1, got %v", fs.unsubscribed)
	}
	if e.IsRunning("a1") {
		t.Error("asset still running after stop")
	}

	// Stopping an unmanaged asset is a no-op.
	e.Stop("a1")
	e.Stop("never-managed")
}

func TestRefreshLoopRequotesQuietMarket(t *testing.T) {
	fs := newFakeStream()
	exec := &fakeExecutor{}
	cfg := DefaultConfig()
	cfg.RefreshInterval = 20 * time.Millisecond

	e := NewEngine(cfg, fs, state.NewStore(), exec, canTrade, nil)
	defer e.StopAll()

	if err := e.Start(context.Background(), "a1", "m1"); err != nil {
		t.Fatal(err)
	}
	b := book([]string{"0.40"}, []string{"0.44"})
	b.AssetID = "a1"
	fs.pushBook(b) // places initial quotes and seeds the state store

	time.Sleep(70 * time.Millisecond)

	placed, cancelled := exec.counts()
	if cancelled < 2 {
		t.Errorf("expected refresh cancels without new book data, got %d", cancelled)
	}
	if placed < 4 {
		t.Errorf("expected requotes after refresh, got %d placements", placed)
	}
}

func TestApplyFill(t *testing.T) {
	fs := newFakeStream()
	e := newTestEngine(fs, nil)
	defer e.StopAll()

	if err := e.Start(context.Background(), "a1", "m1"); err != nil {
		t.Fatal(err)
	}

	e.ApplyFill(domain.Order{ID: "o1", AssetID: "a1", Side: domain.SideBuy, Size: "10"})
	if pos, _ := e.Position("a1"); !pos.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected position 10, got %s", pos)
	}
	e.ApplyFill(domain.Order{ID: "o2", AssetID: "a1", Side: domain.SideSell, Size: "4"})
	if pos, _ := e.Position("a1"); !pos.Equal(decimal.NewFromInt(6)) {
		t.Errorf("expected position 6, got %s", pos)
	}

	// Fills for unmanaged assets are discarded.
	e.ApplyFill(domain.Order{ID: "o3", AssetID: "ghost", Side: domain.SideBuy, Size: "1"})
	if _, ok := e.Position("ghost"); ok {
		t.Error("fill for unmanaged asset should not create state")
	}
}
