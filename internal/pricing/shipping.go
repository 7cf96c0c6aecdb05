package pricing

import (
	"regexp"
	"strings"
)

// Indian PIN codes: six digits, first digit nonzero.
var postalPattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// ShippingRule derives the shipping fee from the subtotal and destination
// postal code. The zero value charges nothing; construct it from config.
type ShippingRule struct {
	FreeThreshold   Money
	LocalPostalCode string
	LocalFee        Money
	RemoteFee       Money
	DefaultFee      Money
}

// Fee evaluates the graduated fallback: free shipping above the threshold
// always wins, then local, then any well-formed remote code, then the
// default for absent or malformed codes. The order is load-bearing:
// reordering changes behaviour at boundary subtotals.
func (r ShippingRule) Fee(subtotal Money, postalCode string) Money {
	if subtotal > r.FreeThreshold {
		return 0
	}
	code := strings.TrimSpace(postalCode)
	switch {
	case code != "" && code == r.LocalPostalCode:
		return r.LocalFee
	case postalPattern.MatchString(code):
		return r.RemoteFee
	default:
		return r.DefaultFee
	}
}

// ValidatePostalCode reports whether the code is a well-formed PIN code.
// Shipping quoting never fails on a malformed code, but checkout address
// validation wants the distinction.
func ValidatePostalCode(code string) error {
	if !postalPattern.MatchString(strings.TrimSpace(code)) {
		return ErrMalformedPostalCode
	}
	return nil
}
