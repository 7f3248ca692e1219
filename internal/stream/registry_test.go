package stream

import (
	"reflect"
	"testing"

	"predict_go/internal/domain"
)

func TestRegistryFanOut(t *testing.T) {
	r := NewRegistry()
	calls := 0
	h := func(domain.OrderBook) { calls++ }

	r.AddBook([]string{"a1", "a2"}, h)
	r.AddBook([]string{"a1"}, h) // second handler on a1

	if got := len(r.BookHandlers("a1")); got != 2 {
		t.Errorf("expected 2 handlers on a1, got %d", got)
	}
	if got := len(r.BookHandlers("a2")); got != 1 {
		t.Errorf("expected 1 handler on a2, got %d", got)
	}
	for _, h := range r.BookHandlers("a1") {
		h(domain.OrderBook{})
	}
	if calls != 2 {
		t.Errorf("expected both handlers invoked, got %d", calls)
	}
}

func TestRegistryRemoveDropsBothChannels(t *testing.T) {
	r := NewRegistry()
	r.AddBook([]string{"a1"}, func(domain.OrderBook) {})
	r.AddPrice([]string{"a1"}, func(string, string) {})
	r.AddPrice([]string{"a2"}, func(string, string) {})

	r.Remove([]string{"a1"})

	if got := r.BookHandlers("a1"); got != nil {
		t.Errorf("book handlers survived remove: %d", len(got))
	}
	if got := r.PriceHandlers("a1"); got != nil {
		t.Errorf("price handlers survived remove: %d", len(got))
	}
	if got := len(r.PriceHandlers("a2")); got != 1 {
		t.Errorf("unrelated asset affected, got %d handlers", got)
	}

	// Removing again, or removing unknowns, is harmless.
	r.Remove([]string{"a1", "never-seen"})
}

func TestRegistryAssetLists(t *testing.T) {
	r := NewRegistry()
	r.AddBook([]string{"b", "a"}, func(domain.OrderBook) {})
	r.AddPrice([]string{"z", "y"}, func(string, string) {})

	if got := r.BookAssets(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("book assets: %v", got)
	}
	if got := r.PriceAssets(); !reflect.DeepEqual(got, []string{"y", "z"}) {
		t.Errorf("price assets: %v", got)
	}
}

func TestRegistryIgnoresNilAndEmpty(t *testing.T) {
	r := NewRegistry()
	r.AddBook([]string{"a1"}, nil)
	r.AddBook([]string{""}, func(domain.OrderBook) {})

	if len(r.BookAssets()) != 0 {
		t.Errorf("nil handler or empty id should not register: %v", r.BookAssets())
	}
}
