package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rasoiyaa/backend-store/internal/pricing"
)

func TestNewIDShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := NewID()
		if !ValidID(id) {
			t.Fatalf("generated id %q does not match RAS pattern", id)
		}
	}
	if ValidID("RAS12345") || ValidID("XYZ123456") || ValidID("RAS1234567") {
		t.Fatal("malformed ids should not validate")
	}
}

func TestEstimatedDelivery(t *testing.T) {
	placed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	want := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)
	if got := EstimatedDelivery(placed); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func testOrder(contact string, placedAt time.Time) Order {
	return Order{
		Contact: contact,
		Items: []Item{
			{ProductID: "masala-murmura", Name: "Masala Murmura", UnitPrice: 60, Qty: 2},
		},
		Address: Address{
			Name:    "Asha",
			Email:   contact,
			Phone:   "9876543210",
			Line1:   "12 MG Road",
			City:    "Satna",
			State:   "MP",
			Pincode: "485001",
		},
		Pricing: pricing.Result{
			Subtotal: 120, ShippingFee: 30, Tax: 22, Total: 172,
		},
		Status:            StatusConfirmed,
		CreatedAt:         placedAt,
		UpdatedAt:         placedAt,
		EstimatedDelivery: EstimatedDelivery(placedAt),
	}
}

func TestMemStoreCreateAndFetch(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	placed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	created, err := store.Create(ctx, testOrder("asha@example.com", placed))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !ValidID(created.ID) {
		t.Fatalf("expected generated id, got %q", created.ID)
	}

	if _, err := store.GetForContact(ctx, created.ID, "asha@example.com"); err != nil {
		t.Fatalf("owner fetch: %v", err)
	}
	if _, err := store.GetForContact(ctx, created.ID, "someone@else.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ownership check to fail, got %v", err)
	}
}

func TestMemStoreStatusTransition(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	placed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	created, _ := store.Create(ctx, testOrder("asha@example.com", placed))

	cancelled, err := store.UpdateStatus(ctx, created.ID, StatusConfirmed, StatusCancelled, placed.Add(time.Hour))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if _, err := store.UpdateStatus(ctx, created.ID, StatusConfirmed, StatusCancelled, placed); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("expected not cancellable on repeat, got %v", err)
	}
	if _, err := store.UpdateStatus(ctx, "RAS000000", StatusConfirmed, StatusCancelled, placed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemStoreAnalytics(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	store.Create(ctx, Order{
		Contact: "a@example.com",
		Items:   []Item{{ProductID: "golden-crunch", Name: "Golden Crunch", UnitPrice: 130, Qty: 3}},
		Pricing: pricing.Result{Total: 460},
		Status:  StatusConfirmed, CreatedAt: base,
	})
	store.Create(ctx, Order{
		Contact: "b@example.com",
		Items:   []Item{{ProductID: "banana-chips", Name: "Banana Chips", UnitPrice: 80, Qty: 1}},
		Pricing: pricing.Result{Total: 144},
		Status:  StatusConfirmed, CreatedAt: base.Add(time.Hour),
	})
	store.Create(ctx, Order{
		Contact: "c@example.com",
		Items:   []Item{{ProductID: "banana-chips", Name: "Banana Chips", UnitPrice: 80, Qty: 5}},
		Pricing: pricing.Result{Total: 520},
		Status:  StatusCancelled, CreatedAt: base.Add(2 * time.Hour),
	})

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Orders != 2 || summary.Revenue != 604 || summary.CancelledOrders != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.AverageOrder != 302 {
		t.Fatalf("expected average 302, got %d", summary.AverageOrder)
	}

	top, err := store.TopProducts(ctx, 5)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].ProductID != "golden-crunch" || top[0].Units != 3 {
		t.Fatalf("unexpected top products: %+v", top)
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent orders, got %d", len(recent))
	}
	if recent[0].Contact != "c@example.com" || recent[1].Contact != "b@example.com" {
		t.Fatalf("expected newest first, got %+v", recent)
	}
}

func TestMemStoreListByContactPagination(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.Create(ctx, testOrder("asha@example.com", base.Add(time.Duration(i)*time.Hour)))
	}
	page, err := store.ListByContact(ctx, "asha@example.com", 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(page))
	}
	if !page[0].CreatedAt.After(page[1].CreatedAt) {
		t.Fatalf("expected newest first: %v vs %v", page[0].CreatedAt, page[1].CreatedAt)
	}
}
