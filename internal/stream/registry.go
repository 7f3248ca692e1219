package stream

import (
	"sort"
	"sync"

	"predict_go/internal/domain"
)

// Registry tracks which assets are subscribed to which channels and the
// handlers to invoke for each. Multiple handlers per asset are permitted;
// add and remove are set-like so duplicate calls are harmless.
type Registry struct {
	mu    sync.RWMutex
	book  map[string][]domain.OrderBookHandler
	price map[string][]domain.PriceHandler
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		book:  make(map[string][]domain.OrderBookHandler),
		price: make(map[string][]domain.PriceHandler),
	}
}

// AddBook registers an order-book handler for each asset ID.
func (r *Registry) AddBook(assetIDs []string, handler domain.OrderBookHandler) {
	if handler == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range assetIDs {
		if id == "" {
			continue
		}
		r.book[id] = append(r.book[id], handler)
	}
}

// AddPrice registers a price handler for each asset ID.
func (r *Registry) AddPrice(assetIDs []string, handler domain.PriceHandler) {
	if handler == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range assetIDs {
		if id == "" {
			continue
		}
		r.price[id] = append(r.price[id], handler)
	}
}

// Remove drops every order-book and price handler for the given assets,
// regardless of how many were registered. Unknown assets are a no-op.
func (r *Registry) Remove(assetIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range assetIDs {
		delete(r.book, id)
		delete(r.price, id)
	}
}

// BookHandlers returns a copy of the order-book handlers for an asset.
func (r *Registry) BookHandlers(assetID string) []domain.OrderBookHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := r.book[assetID]
	if len(hs) == 0 {
		return nil
	}
	out := make([]domain.OrderBookHandler, len(hs))
	copy(out, hs)
	return out
}

// PriceHandlers returns a copy of the price handlers for an asset.
func (r *Registry) PriceHandlers(assetID string) []domain.PriceHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := r.price[assetID]
	if len(hs) == 0 {
		return nil
	}
	out := make([]domain.PriceHandler, len(hs))
	copy(out, hs)
	return out
}

// BookAssets returns the sorted asset IDs with order-book subscriptions.
// Used to replay subscriptions after a reconnect.
func (r *Registry) BookAssets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.book)
}

// PriceAssets returns the sorted asset IDs with price subscriptions.
func (r *Registry) PriceAssets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.price)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
