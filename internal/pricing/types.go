package pricing

import (
	"errors"
	"fmt"
)

// Money represents a monetary value in whole rupees.
type Money = int64

// Product is the subset of catalog data the pricing pipeline needs.
type Product struct {
	ID        string
	Name      string
	UnitPrice Money
}

// Resolver looks up unit prices for line items.
type Resolver interface {
	Resolve(productID string) (Product, error)
}

// LineItem pairs a product with the quantity in the cart.
type LineItem struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// Result carries the assembled pricing components for one quote. A new
// Result is produced on every computation; callers must not mutate it.
type Result struct {
	Subtotal      Money  `json:"subtotal"`
	ShippingFee   Money  `json:"shippingFee"`
	Tax           Money  `json:"tax"`
	Discount      Money  `json:"discount"`
	Total         Money  `json:"total"`
	AppliedCoupon string `json:"appliedCoupon,omitempty"`
}

var (
	// ErrUnknownProduct is returned when a line item references a product
	// absent from the catalog. The whole aggregation fails; no partial
	// subtotal is produced.
	ErrUnknownProduct = errors.New("pricing: unknown product")
	// ErrInvalidQuantity is returned for quantities outside [1, max per item].
	ErrInvalidQuantity = errors.New("pricing: invalid quantity")
	// ErrUnknownCoupon is returned when a coupon code matches no configured coupon.
	ErrUnknownCoupon = errors.New("pricing: unknown coupon")
	// ErrBelowMinimumOrder is the sentinel matched by errors.Is for coupons
	// whose minimum order threshold is not met.
	ErrBelowMinimumOrder = errors.New("pricing: below minimum order")
	// ErrMalformedPostalCode is returned by ValidatePostalCode. The shipping
	// rule itself treats a malformed code as absent rather than failing.
	ErrMalformedPostalCode = errors.New("pricing: malformed postal code")
)

// BelowMinimumOrderError reports the threshold that was not met so callers
// can render it to the buyer.
type BelowMinimumOrderError struct {
	Code    string
	Minimum Money
}

func (e *BelowMinimumOrderError) Error() string {
	return fmt.Sprintf("coupon %s requires a minimum order of %d", e.Code, e.Minimum)
}

// Unwrap lets errors.Is(err, ErrBelowMinimumOrder) succeed.
func (e *BelowMinimumOrderError) Unwrap() error { return ErrBelowMinimumOrder }
