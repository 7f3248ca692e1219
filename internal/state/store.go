package state

import (
	"sort"
	"sync"
	"time"

	"predict_go/internal/domain"

	"github.com/shopspring/decimal"
)

// AssetState is the current view of a single outcome token: last traded
// price, last order-book snapshot, and when either was last refreshed.
// A zero Price means the asset has not been seen yet, never a valid quote.
type AssetState struct {
	AssetID    string           `json:"asset_id"`
	Market     string           `json:"market"`
	Price      decimal.Decimal  `json:"price"`
	Book       *domain.OrderBook `json:"book,omitempty"`
	LastUpdate time.Time        `json:"last_update"`
}

// Store is the shared in-memory market state. It is written by callbacks
// driven from the streaming client and read by the strategy engines.
// Read-modify-write sequences are atomic per asset under a single lock.
type Store struct {
	mu     sync.RWMutex
	assets map[string]*AssetState
}

// NewStore creates an empty market state store.
func NewStore() *Store {
	return &Store{assets: make(map[string]*AssetState)}
}

// ApplyBook replaces the stored order book for the asset in the snapshot.
func (s *Store) ApplyBook(book domain.OrderBook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensure(book.AssetID)
	if book.Market != "" {
		st.Market = book.Market
	}
	copied := book
	st.Book = &copied
	st.LastUpdate = time.Now()
}

// ApplyPrice parses a wire decimal string and stores it as the asset's
// current price. Unparseable prices are rejected.
func (s *Store) ApplyPrice(assetID, price string) error {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensure(assetID)
	st.Price = d
	st.LastUpdate = time.Now()
	return nil
}

// Get returns a copy of the asset's state.
func (s *Store) Get(assetID string) (AssetState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.assets[assetID]
	if !ok {
		return AssetState{}, false
	}
	return *st, true
}

// Book returns the last order-book snapshot for the asset.
func (s *Store) Book(assetID string) (domain.OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.assets[assetID]
	if !ok || st.Book == nil {
		return domain.OrderBook{}, false
	}
	return *st.Book, true
}

// Price returns the asset's current price. ok is false when the asset is
// unknown or no price has arrived yet.
func (s *Store) Price(assetID string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.assets[assetID]
	if !ok || st.Price.IsZero() {
		return decimal.Zero, false
	}
	return st.Price, true
}

// All returns every asset's state sorted by asset ID for consistent ordering.
func (s *Store) All() []AssetState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]AssetState, 0, len(s.assets))
	for _, st := range s.assets {
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AssetID < result[j].AssetID
	})
	return result
}

// ensure must be called with the write lock held.
func (s *Store) ensure(assetID string) *AssetState {
	st, ok := s.assets[assetID]
	if !ok {
		st = &AssetState{AssetID: assetID}
		s.assets[assetID] = st
	}
	return st
}
