package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	validator "github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"

	"github.com/rasoiyaa/backend-store/internal/cart"
	"github.com/rasoiyaa/backend-store/internal/catalog"
	"github.com/rasoiyaa/backend-store/internal/order"
	"github.com/rasoiyaa/backend-store/internal/pricing"
)

func newTestService(t *testing.T) (*Service, *cart.Service, *order.MemStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := catalog.NewStore()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	engine := pricing.Engine{
		Catalog: store,
		Coupons: pricing.NewCouponTable([]pricing.Coupon{
			{Code: "SAVE50", Kind: pricing.CouponFixed, Value: 50, MinOrder: 200},
		}),
		Shipping: pricing.ShippingRule{
			FreeThreshold:   500,
			LocalPostalCode: "485001",
			LocalFee:        30,
			RemoteFee:       60,
			DefaultFee:      50,
		},
		TaxBps:        1800,
		MaxQtyPerItem: 10,
	}
	carts := &cart.Service{R: client, Catalog: store, Engine: engine, TTL: time.Hour}
	orders := order.NewMemStore()
	svc := &Service{
		Carts:    carts,
		Orders:   orders,
		Catalog:  store,
		Engine:   engine,
		Validate: validator.New(),
		Now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	return svc, carts, orders
}

func validInput(cartID string) Input {
	return Input{
		CartID: cartID,
		Address: AddressInput{
			Name:    "Asha Verma",
			Email:   "Asha@Example.com",
			Phone:   "9876543210",
			Line1:   "12 MG Road, near market",
			City:    "Satna",
			State:   "MP",
			Pincode: "485001",
		},
	}
}

func TestPlaceHappyPath(t *testing.T) {
	svc, carts, orders := newTestService(t)
	ctx := context.Background()

	c, _ := carts.Create(ctx, "")
	if _, err := carts.AddItem(ctx, c.ID, "masala-murmura", 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	placed, err := svc.Place(ctx, "", validInput(c.ID))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !order.ValidID(placed.ID) {
		t.Fatalf("expected RAS id, got %q", placed.ID)
	}
	if placed.Contact != "asha@example.com" {
		t.Fatalf("expected lowercased address email as contact, got %q", placed.Contact)
	}
	// 120 subtotal, local pincode fee 30, 18% tax 22.
	if placed.Pricing.Subtotal != 120 || placed.Pricing.ShippingFee != 30 ||
		placed.Pricing.Tax != 22 || placed.Pricing.Total != 172 {
		t.Fatalf("unexpected pricing: %+v", placed.Pricing)
	}
	if placed.Status != order.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", placed.Status)
	}
	want := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	if !placed.EstimatedDelivery.Equal(want) {
		t.Fatalf("expected delivery %v, got %v", want, placed.EstimatedDelivery)
	}

	// Cart is cleared and the order is queryable.
	if _, err := carts.Get(ctx, c.ID); !errors.Is(err, cart.ErrNotFound) {
		t.Fatalf("cart should be cleared, got %v", err)
	}
	if _, err := orders.GetForContact(ctx, placed.ID, "asha@example.com"); err != nil {
		t.Fatalf("stored order: %v", err)
	}
}

func TestPlaceKeepsAuthenticatedContact(t *testing.T) {
	svc, carts, _ := newTestService(t)
	ctx := context.Background()
	c, _ := carts.Create(ctx, "")
	carts.AddItem(ctx, c.ID, "banana-chips", 1)

	placed, err := svc.Place(ctx, "login@example.com", validInput(c.ID))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if placed.Contact != "login@example.com" {
		t.Fatalf("expected session contact, got %q", placed.Contact)
	}
}

func TestPlaceValidation(t *testing.T) {
	svc, carts, _ := newTestService(t)
	ctx := context.Background()
	c, _ := carts.Create(ctx, "")
	carts.AddItem(ctx, c.ID, "banana-chips", 1)

	in := validInput(c.ID)
	in.Address.Email = "not-an-email"
	in.Address.Phone = "12345"
	in.Address.Pincode = "085001" // leading zero

	_, err := svc.Place(ctx, "", in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"email", "phone", "pincode"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("expected field %q in %v", field, verr.Fields)
		}
	}
}

func TestPlaceEmptyCart(t *testing.T) {
	svc, carts, _ := newTestService(t)
	ctx := context.Background()
	c, _ := carts.Create(ctx, "")
	if _, err := svc.Place(ctx, "", validInput(c.ID)); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestPlaceAppliesStoredCoupon(t *testing.T) {
	svc, carts, _ := newTestService(t)
	ctx := context.Background()
	c, _ := carts.Create(ctx, "")
	carts.AddItem(ctx, c.ID, "golden-crunch", 2) // 260
	if _, _, err := carts.ApplyCoupon(ctx, c.ID, "SAVE50"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	placed, err := svc.Place(ctx, "", validInput(c.ID))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if placed.Pricing.Discount != 50 || placed.Pricing.AppliedCoupon != "SAVE50" {
		t.Fatalf("expected SAVE50 applied, got %+v", placed.Pricing)
	}
	if placed.CouponCode != "SAVE50" {
		t.Fatalf("expected coupon recorded, got %q", placed.CouponCode)
	}
}

func TestPlaceDropsInvalidCoupon(t *testing.T) {
	svc, carts, _ := newTestService(t)
	ctx := context.Background()
	c, _ := carts.Create(ctx, "")
	carts.AddItem(ctx, c.ID, "golden-crunch", 2) // 260, SAVE50 applies
	if _, _, err := carts.ApplyCoupon(ctx, c.ID, "SAVE50"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Drop below the 200 threshold after the coupon was applied.
	if _, err := carts.UpdateQty(ctx, c.ID, "golden-crunch", 1); err != nil {
		t.Fatalf("update: %v", err)
	}

	placed, err := svc.Place(ctx, "", validInput(c.ID))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if placed.Pricing.Discount != 0 || placed.CouponCode != "" {
		t.Fatalf("coupon should drop off silently, got %+v", placed)
	}
	// 130 subtotal + local 30 + tax 23.
	if placed.Pricing.Total != 183 {
		t.Fatalf("expected total 183, got %d", placed.Pricing.Total)
	}
}
