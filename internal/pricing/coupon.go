package pricing

import "strings"

// CouponKind distinguishes percentage from fixed-amount discounts.
type CouponKind string

const (
	CouponPercent CouponKind = "percent"
	CouponFixed   CouponKind = "fixed"
)

// Coupon is a static discount rule looked up by code. Value is a percentage
// in [0,100] for percent coupons and a rupee amount for fixed coupons.
type Coupon struct {
	Code     string     `json:"code"`
	Kind     CouponKind `json:"kind"`
	Value    Money      `json:"value"`
	MinOrder Money      `json:"minOrder"`
}

// CouponTable holds the configured coupons keyed by uppercase code.
type CouponTable map[string]Coupon

// NewCouponTable indexes the given coupons by normalised code.
func NewCouponTable(coupons []Coupon) CouponTable {
	table := make(CouponTable, len(coupons))
	for _, c := range coupons {
		c.Code = NormalizeCouponCode(c.Code)
		table[c.Code] = c
	}
	return table
}

// NormalizeCouponCode trims and uppercases a code before lookup.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Apply validates the code against the subtotal and computes the nominal
// discount. The discount is not yet capped against the payable total;
// Assemble owns that clamp.
func (t CouponTable) Apply(code string, subtotal Money) (Money, Coupon, error) {
	normalized := NormalizeCouponCode(code)
	coupon, ok := t[normalized]
	if !ok {
		return 0, Coupon{}, ErrUnknownCoupon
	}
	if subtotal < coupon.MinOrder {
		return 0, Coupon{}, &BelowMinimumOrderError{Code: coupon.Code, Minimum: coupon.MinOrder}
	}
	var discount Money
	switch coupon.Kind {
	case CouponPercent:
		value := coupon.Value
		if value < 0 {
			value = 0
		}
		if value > 100 {
			value = 100
		}
		discount = (subtotal*value + 50) / 100
	default:
		discount = coupon.Value
	}
	if discount < 0 {
		discount = 0
	}
	return discount, coupon, nil
}
