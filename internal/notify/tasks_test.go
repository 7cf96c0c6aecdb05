package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rasoiyaa/backend-store/internal/order"
	"github.com/rasoiyaa/backend-store/internal/pricing"
)

func TestOTPRoundTrip(t *testing.T) {
	task, err := NewOTPEmailTask("asha@example.com", "482913", 5*time.Minute)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if task.Type() != TaskEmailOTP {
		t.Fatalf("unexpected task type %s", task.Type())
	}

	mail := &InMemoryEmail{}
	w := &Worker{Mail: mail, Logger: zerolog.Nop()}
	if err := w.HandleOTP(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mail.Outbox) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mail.Outbox))
	}
	sent := mail.Outbox[0]
	if sent.To != "asha@example.com" {
		t.Fatalf("unexpected recipient %s", sent.To)
	}
	if !strings.Contains(sent.HTML, "482913") {
		t.Fatal("body should contain the code")
	}
	if !strings.Contains(sent.HTML, "5 minutes") {
		t.Fatal("body should state the expiry window")
	}
}

func TestOrderConfirmationRoundTrip(t *testing.T) {
	placed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	o := order.Order{
		ID:      "RAS482913",
		Contact: "asha@example.com",
		Items: []order.Item{
			{ProductID: "masala-murmura", Name: "Masala Murmura", UnitPrice: 60, Qty: 2},
		},
		Address: order.Address{
			Name: "Asha", Email: "asha@example.com", Line1: "12 MG Road",
			City: "Satna", State: "MP", Pincode: "485001",
		},
		Pricing: pricing.Result{
			Subtotal: 120, ShippingFee: 30, Tax: 22, Discount: 0, Total: 172,
		},
		Status:            order.StatusConfirmed,
		CreatedAt:         placed,
		EstimatedDelivery: order.EstimatedDelivery(placed),
	}

	task, err := NewOrderEmailTask(o)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	mail := &InMemoryEmail{}
	w := &Worker{Mail: mail, Logger: zerolog.Nop()}
	if err := w.HandleOrderConfirmation(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mail.Outbox) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mail.Outbox))
	}
	sent := mail.Outbox[0]
	if !strings.Contains(sent.Subject, "RAS482913") {
		t.Fatalf("subject should carry the order id: %s", sent.Subject)
	}
	for _, fragment := range []string{"₹172", "₹120", "₹30", "₹22", "Masala Murmura", "485001"} {
		if !strings.Contains(sent.HTML, fragment) {
			t.Fatalf("body missing %q", fragment)
		}
	}
	if strings.Contains(sent.HTML, "Discount") {
		t.Fatal("no discount row expected for zero discount")
	}
}

func TestOrderConfirmationShowsCoupon(t *testing.T) {
	o := order.Order{
		ID:      "RAS100001",
		Contact: "asha@example.com",
		Address: order.Address{Name: "Asha", Email: "asha@example.com"},
		Pricing: pricing.Result{
			Subtotal: 250, ShippingFee: 50, Tax: 45, Discount: 25,
			Total: 320, AppliedCoupon: "WELCOME10",
		},
	}
	body := OrderConfirmationBody(o)
	if !strings.Contains(body, "WELCOME10") || !strings.Contains(body, "-₹25") {
		t.Fatalf("body should show the coupon discount: %s", body)
	}
}
