package catalog

import (
	"errors"
	"testing"

	"github.com/rasoiyaa/backend-store/internal/pricing"
)

func TestStoreLoadsEmbeddedSeed(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	product, ok := store.Get("masala-murmura")
	if !ok {
		t.Fatal("expected masala-murmura in seed catalog")
	}
	if product.Price != 60 {
		t.Fatalf("expected price 60, got %d", product.Price)
	}
	if product.Availability != InStock {
		t.Fatalf("expected in_stock, got %s", product.Availability)
	}
}

func TestStoreResolve(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	resolved, err := store.Resolve("golden-crunch")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.UnitPrice != 130 {
		t.Fatalf("expected unit price 130, got %d", resolved.UnitPrice)
	}
	_, err = store.Resolve("no-such-snack")
	if !errors.Is(err, pricing.ErrUnknownProduct) {
		t.Fatalf("expected unknown product, got %v", err)
	}
}

func TestStoreListFilters(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	chips := store.List(Filter{Category: "chips"})
	if len(chips) != 2 {
		t.Fatalf("expected 2 chips products, got %d", len(chips))
	}
	preOrder := store.List(Filter{Availability: PreOrder})
	if len(preOrder) != 1 || preOrder[0].ID != "diwali-sweets" {
		t.Fatalf("unexpected pre-order listing: %+v", preOrder)
	}
	byPrice := store.List(Filter{Sort: "price_asc"})
	for i := 1; i < len(byPrice); i++ {
		if byPrice[i-1].Price > byPrice[i].Price {
			t.Fatalf("price_asc sort violated at %d: %+v", i, byPrice)
		}
	}
}

func TestStoreRejectsBadSeed(t *testing.T) {
	if _, err := NewStoreFromJSON([]byte(`[{"id":"x","price":0}]`)); err == nil {
		t.Fatal("expected error for non-positive price")
	}
	if _, err := NewStoreFromJSON([]byte(`[{"id":"x","price":5},{"id":"x","price":6}]`)); err == nil {
		t.Fatal("expected error for duplicate id")
	}
}

func TestStoreRelated(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	related := store.Related("golden-crunch", 3)
	if len(related) != 3 {
		t.Fatalf("expected 3 related, got %d", len(related))
	}
	if related[0].ID != "banana-chips" {
		t.Fatalf("same-category product should come first, got %s", related[0].ID)
	}
}
