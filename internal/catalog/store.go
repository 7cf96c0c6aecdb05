package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rasoiyaa/backend-store/internal/pricing"
)

// Availability describes whether a product can currently be ordered.
type Availability string

const (
	InStock    Availability = "in_stock"
	PreOrder   Availability = "pre_order"
	OutOfStock Availability = "out_of_stock"
)

// Product is a catalog entry. Prices are whole rupees. The catalog is
// read-only reference data; a pricing computation never observes a change
// mid-flight.
type Product struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Price         pricing.Money `json:"price"`
	OriginalPrice pricing.Money `json:"originalPrice,omitempty"`
	Category      string        `json:"category"`
	Description   string        `json:"description,omitempty"`
	Weight        string        `json:"weight,omitempty"`
	Availability  Availability  `json:"availability"`
	Dietary       []string      `json:"dietary,omitempty"`
}

// Orderable reports whether the product accepts new line items.
func (p Product) Orderable() bool {
	return p.Availability == InStock || p.Availability == PreOrder
}

//go:embed products.json
var seedJSON []byte

// Store is an immutable in-memory product catalog. It implements
// pricing.Resolver for the pricing pipeline.
type Store struct {
	byID    map[string]Product
	ordered []Product
}

// NewStore loads the embedded product seed.
func NewStore() (*Store, error) {
	return NewStoreFromJSON(seedJSON)
}

// NewStoreFromJSON builds a catalog from a JSON product list.
func NewStoreFromJSON(data []byte) (*Store, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	store := &Store{byID: make(map[string]Product, len(products)), ordered: products}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog seed contains a product without id")
		}
		if p.Price <= 0 {
			return nil, fmt.Errorf("product %q has non-positive price %d", p.ID, p.Price)
		}
		if _, dup := store.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		store.byID[p.ID] = p
	}
	return store, nil
}

// Resolve implements pricing.Resolver.
func (s *Store) Resolve(productID string) (pricing.Product, error) {
	p, ok := s.byID[productID]
	if !ok {
		return pricing.Product{}, pricing.ErrUnknownProduct
	}
	return pricing.Product{ID: p.ID, Name: p.Name, UnitPrice: p.Price}, nil
}

// Get returns the full product record.
func (s *Store) Get(productID string) (Product, bool) {
	p, ok := s.byID[productID]
	return p, ok
}

// Filter narrows and orders a product listing.
type Filter struct {
	Category     string
	Availability Availability
	Sort         string // "name", "price_asc", "price_desc"
}

// List returns products matching the filter in a stable order.
func (s *Store) List(f Filter) []Product {
	out := make([]Product, 0, len(s.ordered))
	for _, p := range s.ordered {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Availability != "" && p.Availability != f.Availability {
			continue
		}
		out = append(out, p)
	}
	switch f.Sort {
	case "price_asc":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case "price_desc":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case "name":
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	}
	return out
}

// Categories returns the distinct categories in listing order.
func (s *Store) Categories() []string {
	seen := make(map[string]bool, len(s.ordered))
	var out []string
	for _, p := range s.ordered {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

// Related returns up to limit other products sharing the given product's
// category, falling back to the rest of the catalog when the category has
// too few members.
func (s *Store) Related(productID string, limit int) []Product {
	base, ok := s.byID[productID]
	if !ok || limit <= 0 {
		return nil
	}
	var related []Product
	for _, p := range s.ordered {
		if p.ID == base.ID {
			continue
		}
		if p.Category == base.Category {
			related = append(related, p)
		}
	}
	for _, p := range s.ordered {
		if len(related) >= limit {
			break
		}
		if p.ID == base.ID || p.Category == base.Category {
			continue
		}
		related = append(related, p)
	}
	if len(related) > limit {
		related = related[:limit]
	}
	return related
}
