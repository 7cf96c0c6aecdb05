package pricing

import "fmt"

const defaultMaxQtyPerItem = 10

// Engine runs the pricing pipeline: aggregate line items, derive shipping,
// tax and coupon discount, and assemble the payable total. It is pure over
// its inputs and safe for concurrent use; identical inputs always produce
// identical results, so cart, checkout and order confirmation never diverge.
type Engine struct {
	Catalog       Resolver
	Coupons       CouponTable
	Shipping      ShippingRule
	TaxBps        int
	MaxQtyPerItem int
}

func (e Engine) maxQty() int {
	if e.MaxQtyPerItem <= 0 {
		return defaultMaxQtyPerItem
	}
	return e.MaxQtyPerItem
}

// Aggregate sums unit price times quantity across line items using integer
// arithmetic. An empty cart yields subtotal 0. Any unresolvable product or
// out-of-bounds quantity fails the whole aggregation.
func (e Engine) Aggregate(items []LineItem) (Money, error) {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 || it.Qty > e.maxQty() {
			return 0, fmt.Errorf("%w: %q qty %d", ErrInvalidQuantity, it.ProductID, it.Qty)
		}
		product, err := e.Catalog.Resolve(it.ProductID)
		if err != nil {
			return 0, fmt.Errorf("resolve %q: %w", it.ProductID, err)
		}
		subtotal += product.UnitPrice * Money(it.Qty)
	}
	return subtotal, nil
}

// Tax applies the configured rate in basis points, rounding half-up to the
// nearest rupee. This is the only tax computation in the codebase.
func Tax(subtotal Money, taxBps int) Money {
	if subtotal <= 0 || taxBps <= 0 {
		return 0
	}
	return (subtotal*Money(taxBps) + 5000) / 10000
}

// Assemble combines the components into a Result. The total is clamped at
// zero; when the clamp fires, the reported discount is the amount actually
// absorbed rather than the coupon's nominal value, so callers never display
// a discount larger than the order cost.
func Assemble(subtotal, shippingFee, tax, discount Money) Result {
	if discount < 0 {
		discount = 0
	}
	raw := subtotal + shippingFee + tax
	if discount > raw {
		discount = raw
	}
	return Result{
		Subtotal:    subtotal,
		ShippingFee: shippingFee,
		Tax:         tax,
		Discount:    discount,
		Total:       raw - discount,
	}
}

// Quote runs the full pipeline. Unknown products and invalid quantities fail
// the quote outright. A coupon failure is softer: the returned Result is
// still fully computed with zero discount, and the coupon error is returned
// alongside it for the caller to display.
func (e Engine) Quote(items []LineItem, postalCode, couponCode string) (Result, error) {
	subtotal, err := e.Aggregate(items)
	if err != nil {
		return Result{}, err
	}
	shippingFee := e.Shipping.Fee(subtotal, postalCode)
	tax := Tax(subtotal, e.TaxBps)

	if couponCode == "" {
		return Assemble(subtotal, shippingFee, tax, 0), nil
	}
	discount, coupon, couponErr := e.Coupons.Apply(couponCode, subtotal)
	if couponErr != nil {
		return Assemble(subtotal, shippingFee, tax, 0), couponErr
	}
	result := Assemble(subtotal, shippingFee, tax, discount)
	result.AppliedCoupon = coupon.Code
	return result, nil
}
