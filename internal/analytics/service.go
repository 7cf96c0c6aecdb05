package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rasoiyaa/backend-store/internal/order"
)

// Overview is the admin dashboard snapshot.
type Overview struct {
	Summary      order.SalesSummary   `json:"summary"`
	TopProducts  []order.ProductSales `json:"topProducts"`
	RecentOrders []order.Order        `json:"recentOrders"`
	GeneratedAt  time.Time            `json:"generatedAt"`
}

// Service provides cached dashboard reads over the order store. The cache
// smooths repeated dashboard refreshes; a miss or a Redis outage falls
// through to the store.
type Service struct {
	Orders order.Store
	R      *redis.Client
	TTL    time.Duration
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return time.Minute
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts)+1)
	formatted = append(formatted, "an")
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// Dashboard assembles the overview, serving from cache when fresh.
func (s *Service) Dashboard(ctx context.Context, topLimit, recentLimit int) (Overview, error) {
	if s == nil || s.Orders == nil {
		return Overview{}, fmt.Errorf("analytics service not configured")
	}
	if topLimit <= 0 {
		topLimit = 5
	}
	if recentLimit <= 0 {
		recentLimit = 10
	}
	key := cacheKey("dashboard", topLimit, recentLimit)
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	summary, err := s.Orders.Summary(ctx)
	if err != nil {
		return Overview{}, err
	}
	top, err := s.Orders.TopProducts(ctx, topLimit)
	if err != nil {
		return Overview{}, err
	}
	recent, err := s.Orders.Recent(ctx, recentLimit)
	if err != nil {
		return Overview{}, err
	}
	if top == nil {
		top = []order.ProductSales{}
	}
	if recent == nil {
		recent = []order.Order{}
	}
	out := Overview{
		Summary:      summary,
		TopProducts:  top,
		RecentOrders: recent,
		GeneratedAt:  s.now(),
	}
	s.store(ctx, key, out)
	return out, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (Overview, bool) {
	if s.R == nil {
		return Overview{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return Overview{}, false
	}
	var out Overview
	if err := json.Unmarshal(data, &out); err != nil {
		return Overview{}, false
	}
	return out, true
}

func (s *Service) store(ctx context.Context, key string, out Overview) {
	if s.R == nil {
		return
	}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.ttl()).Err()
}
