package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store used by tests and the seeder. It mirrors
// the Postgres store's semantics including id-collision retry and the
// compare-and-set status transition.
type MemStore struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{orders: make(map[string]Order)}
}

func (s *MemStore) Create(ctx context.Context, o Order) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < createRetries; attempt++ {
		if o.ID == "" {
			o.ID = NewID()
		}
		if _, exists := s.orders[o.ID]; exists {
			o.ID = ""
			continue
		}
		s.orders[o.ID] = o
		return o, nil
	}
	return Order{}, errors.New("exhausted order id attempts")
}

func (s *MemStore) Get(ctx context.Context, id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *MemStore) GetForContact(ctx context.Context, id, contact string) (Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.Contact != contact {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *MemStore) ListByContact(ctx context.Context, contact string, limit, offset int) ([]Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Order
	for _, o := range s.orders {
		if o.Contact == contact {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if o.Status != from {
		return Order{}, ErrNotCancellable
	}
	o.Status = to
	o.UpdatedAt = at
	s.orders[id] = o
	return o, nil
}

func (s *MemStore) Summary(ctx context.Context) (SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out SalesSummary
	for _, o := range s.orders {
		if o.Status == StatusCancelled {
			out.CancelledOrders++
			continue
		}
		out.Orders++
		out.Revenue += o.Pricing.Total
	}
	if out.Orders > 0 {
		out.AverageOrder = out.Revenue / out.Orders
	}
	return out, nil
}

func (s *MemStore) TopProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	if limit <= 0 {
		limit = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	byProduct := make(map[string]*ProductSales)
	for _, o := range s.orders {
		if o.Status == StatusCancelled {
			continue
		}
		for _, it := range o.Items {
			ps, ok := byProduct[it.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: it.ProductID, Name: it.Name}
				byProduct[it.ProductID] = ps
			}
			ps.Units += int64(it.Qty)
			ps.Revenue += it.UnitPrice * int64(it.Qty)
		}
	}
	out := make([]ProductSales, 0, len(byProduct))
	for _, ps := range byProduct {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Units != out[j].Units {
			return out[i].Units > out[j].Units
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) Recent(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(orders []Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
