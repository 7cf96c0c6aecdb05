package pricing

import (
	"errors"
	"testing"
)

func testShipping() ShippingRule {
	return ShippingRule{
		FreeThreshold:   500,
		LocalPostalCode: "485001",
		LocalFee:        30,
		RemoteFee:       60,
		DefaultFee:      50,
	}
}

func TestShippingFreeThresholdIsStrict(t *testing.T) {
	rule := testShipping()
	// Exactly at the threshold still pays shipping.
	if fee := rule.Fee(500, ""); fee != 50 {
		t.Fatalf("subtotal 500 should use the non-free branch, got %d", fee)
	}
	if fee := rule.Fee(501, ""); fee != 0 {
		t.Fatalf("subtotal 501 should ship free, got %d", fee)
	}
	if fee := rule.Fee(501, "485001"); fee != 0 {
		t.Fatalf("free shipping must override the local code, got %d", fee)
	}
}

func TestShippingFallbackOrder(t *testing.T) {
	rule := testShipping()
	cases := []struct {
		name   string
		postal string
		want   Money
	}{
		{"local code", "485001", 30},
		{"remote well-formed", "110001", 60},
		{"no code", "", 50},
		{"leading zero", "085001", 50},
		{"too short", "4850", 50},
		{"letters", "48500A", 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if fee := rule.Fee(200, tc.postal); fee != tc.want {
				t.Fatalf("Fee(200, %q) = %d, want %d", tc.postal, fee, tc.want)
			}
		})
	}
}

func TestValidatePostalCode(t *testing.T) {
	if err := ValidatePostalCode("485001"); err != nil {
		t.Fatalf("valid code rejected: %v", err)
	}
	for _, code := range []string{"", "abc", "048500", "12345", "1234567"} {
		if err := ValidatePostalCode(code); !errors.Is(err, ErrMalformedPostalCode) {
			t.Fatalf("code %q: expected malformed error, got %v", code, err)
		}
	}
}
