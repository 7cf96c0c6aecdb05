package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/rasoiyaa/backend-store/internal/catalog"
	"github.com/rasoiyaa/backend-store/internal/pricing"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
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
			{Code: "WELCOME10", Kind: pricing.CouponPercent, Value: 10, MinOrder: 100},
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
	svc := &Service{
		R:       client,
		Catalog: store,
		Engine:  engine,
		TTL:     time.Hour,
		Now:     func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	return svc, mr
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Create(ctx, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cart.ID == "" || cart.AnonID == "" {
		t.Fatalf("expected generated ids, got %+v", cart)
	}

	loaded, err := svc.Get(ctx, cart.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.ID != cart.ID {
		t.Fatalf("expected cart %s, got %s", cart.ID, loaded.ID)
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddItemValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cart, err := svc.Create(ctx, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AddItem(ctx, cart.ID, "no-such-snack", 1); !errors.Is(err, pricing.ErrUnknownProduct) {
		t.Fatalf("expected unknown product, got %v", err)
	}
	if _, err := svc.AddItem(ctx, cart.ID, "masala-murmura", 0); !errors.Is(err, pricing.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	if _, err := svc.AddItem(ctx, cart.ID, "masala-murmura", 11); !errors.Is(err, pricing.ErrInvalidQuantity) {
		t.Fatalf("expected max quantity rejection, got %v", err)
	}

	updated, err := svc.AddItem(ctx, cart.ID, "masala-murmura", 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(updated.Items) != 1 || updated.Items[0].Qty != 2 {
		t.Fatalf("unexpected items: %+v", updated.Items)
	}
	if updated.Items[0].UnitPrice != 60 {
		t.Fatalf("expected snapshot price 60, got %d", updated.Items[0].UnitPrice)
	}

	// Incrementing past the per-item cap fails without partial application.
	if _, err := svc.AddItem(ctx, cart.ID, "masala-murmura", 9); !errors.Is(err, pricing.ErrInvalidQuantity) {
		t.Fatalf("expected cap rejection, got %v", err)
	}
	loaded, err := svc.Get(ctx, cart.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Items[0].Qty != 2 {
		t.Fatalf("qty should be unchanged after rejection, got %d", loaded.Items[0].Qty)
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cart, _ := svc.Create(ctx, "")
	if _, err := svc.AddItem(ctx, cart.ID, "banana-chips", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	updated, err := svc.UpdateQty(ctx, cart.ID, "banana-chips", 5)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Items[0].Qty != 5 {
		t.Fatalf("expected qty 5, got %d", updated.Items[0].Qty)
	}
	if _, err := svc.UpdateQty(ctx, cart.ID, "banana-chips", 0); !errors.Is(err, pricing.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	if _, err := svc.UpdateQty(ctx, cart.ID, "namak-para", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for absent line, got %v", err)
	}

	removed, err := svc.RemoveItem(ctx, cart.ID, "banana-chips")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(removed.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", removed.Items)
	}
	if _, err := svc.RemoveItem(ctx, cart.ID, "banana-chips"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for second removal, got %v", err)
	}
}

func TestApplyCouponReplacesAndValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cart, _ := svc.Create(ctx, "")
	// 2x golden-crunch = 260, clears both coupon thresholds.
	if _, err := svc.AddItem(ctx, cart.ID, "golden-crunch", 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	withCoupon, quote, err := svc.ApplyCoupon(ctx, cart.ID, "welcome10")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if withCoupon.CouponCode != "WELCOME10" {
		t.Fatalf("expected normalized code, got %q", withCoupon.CouponCode)
	}
	if quote.Discount != 26 {
		t.Fatalf("expected discount 26, got %d", quote.Discount)
	}

	replaced, quote, err := svc.ApplyCoupon(ctx, cart.ID, "SAVE50")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if replaced.CouponCode != "SAVE50" || quote.Discount != 50 {
		t.Fatalf("expected SAVE50 with discount 50, got %q %d", replaced.CouponCode, quote.Discount)
	}

	// A failed application leaves the previous coupon in place.
	if _, _, err := svc.ApplyCoupon(ctx, cart.ID, "NOPE"); !errors.Is(err, pricing.ErrUnknownCoupon) {
		t.Fatalf("expected unknown coupon, got %v", err)
	}
	loaded, _ := svc.Get(ctx, cart.ID)
	if loaded.CouponCode != "SAVE50" {
		t.Fatalf("coupon should survive failed apply, got %q", loaded.CouponCode)
	}

	cleared, err := svc.RemoveCoupon(ctx, cart.ID)
	if err != nil {
		t.Fatalf("remove coupon: %v", err)
	}
	if cleared.CouponCode != "" {
		t.Fatalf("expected cleared coupon, got %q", cleared.CouponCode)
	}
}

func TestQuoteRevalidatesStoredCoupon(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cart, _ := svc.Create(ctx, "")
	if _, err := svc.AddItem(ctx, cart.ID, "golden-crunch", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := svc.ApplyCoupon(ctx, cart.ID, "SAVE50"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Dropping below the 200 threshold keeps the code on the cart but the
	// quote comes back without the discount.
	if _, err := svc.UpdateQty(ctx, cart.ID, "golden-crunch", 1); err != nil {
		t.Fatalf("update: %v", err)
	}
	loaded, _ := svc.Get(ctx, cart.ID)
	result, err := svc.Quote(ctx, loaded, "")
	if !errors.Is(err, pricing.ErrBelowMinimumOrder) {
		t.Fatalf("expected below-minimum error, got %v", err)
	}
	if result.Discount != 0 {
		t.Fatalf("expected zero discount, got %d", result.Discount)
	}
	if result.Subtotal != 130 || result.ShippingFee != 50 {
		t.Fatalf("rest of quote should compute: %+v", result)
	}
}

func TestMergeGuestCart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	guest, _ := svc.Create(ctx, "")
	if _, err := svc.AddItem(ctx, guest.ID, "masala-murmura", 8); err != nil {
		t.Fatalf("add guest: %v", err)
	}
	if _, _, err := svc.ApplyCoupon(ctx, guest.ID, "WELCOME10"); err != nil {
		t.Fatalf("apply guest coupon: %v", err)
	}

	target, err := svc.EnsureForContact(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := svc.AddItem(ctx, target.ID, "masala-murmura", 5); err != nil {
		t.Fatalf("add target: %v", err)
	}

	merged, err := svc.Merge(ctx, guest.ID, "asha@example.com")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged.Items) != 1 || merged.Items[0].Qty != 10 {
		t.Fatalf("expected quantities capped at 10, got %+v", merged.Items)
	}
	if merged.CouponCode != "WELCOME10" {
		t.Fatalf("expected guest coupon carried over, got %q", merged.CouponCode)
	}
	if _, err := svc.Get(ctx, guest.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("guest cart should be gone, got %v", err)
	}

	// Merging resolves the same cart on repeat login.
	again, err := svc.EnsureForContact(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again.ID != merged.ID {
		t.Fatalf("expected stable contact cart, got %s vs %s", again.ID, merged.ID)
	}
}

func TestClear(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.EnsureForContact(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := svc.Clear(ctx, cart.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := svc.Get(ctx, cart.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cart removed, got %v", err)
	}
	// Clearing a missing cart is a no-op.
	if err := svc.Clear(ctx, "missing"); err != nil {
		t.Fatalf("clear missing: %v", err)
	}
}

func TestCartTTLSlides(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	cart, _ := svc.Create(ctx, "")
	mr.FastForward(30 * time.Minute)
	if _, err := svc.AddItem(ctx, cart.ID, "namak-para", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	// The write resets the TTL, so the original deadline has no effect.
	mr.FastForward(45 * time.Minute)
	if _, err := svc.Get(ctx, cart.ID); err != nil {
		t.Fatalf("cart should survive sliding TTL: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := svc.Get(ctx, cart.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cart should expire, got %v", err)
	}
}
