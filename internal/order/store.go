package order

import (
	"context"
	"time"

	"github.com/rasoiyaa/backend-store/internal/pricing"
)

// SalesSummary aggregates the order book for the admin dashboard.
type SalesSummary struct {
	Orders          int64         `json:"orders"`
	Revenue         pricing.Money `json:"revenue"`
	AverageOrder    pricing.Money `json:"averageOrder"`
	CancelledOrders int64         `json:"cancelledOrders"`
}

// ProductSales ranks one product by units sold.
type ProductSales struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	Units     int64         `json:"units"`
	Revenue   pricing.Money `json:"revenue"`
}

// Store persists orders. The Postgres implementation is the production one;
// tests use the in-memory variant.
type Store interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	GetForContact(ctx context.Context, id, contact string) (Order, error)
	ListByContact(ctx context.Context, contact string, limit, offset int) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (Order, error)

	Summary(ctx context.Context) (SalesSummary, error)
	TopProducts(ctx context.Context, limit int) ([]ProductSales, error)
	Recent(ctx context.Context, limit int) ([]Order, error)
}
