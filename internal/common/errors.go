package common

import (
	"errors"
	"net/http"

	"github.com/rasoiyaa/backend-store/internal/pricing"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// FromPricingError translates pricing pipeline failures into AppErrors with
// stable codes. Handlers on every page use this mapping so the buyer sees
// the same message for the same failure regardless of where it surfaced.
func FromPricingError(err error) *AppError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, pricing.ErrUnknownProduct):
		return NewAppError("UNKNOWN_PRODUCT", "product not found in catalog", http.StatusUnprocessableEntity, err)
	case errors.Is(err, pricing.ErrInvalidQuantity):
		return NewAppError("INVALID_QUANTITY", "quantity must be between 1 and the per-item maximum", http.StatusUnprocessableEntity, err)
	case errors.Is(err, pricing.ErrUnknownCoupon):
		return NewAppError("UNKNOWN_COUPON", "invalid coupon code", http.StatusUnprocessableEntity, err)
	case errors.Is(err, pricing.ErrBelowMinimumOrder):
		appErr := NewAppError("BELOW_MINIMUM_ORDER", err.Error(), http.StatusUnprocessableEntity, err)
		var minErr *pricing.BelowMinimumOrderError
		if errors.As(err, &minErr) {
			appErr.Details = map[string]any{"minimumOrder": minErr.Minimum}
		}
		return appErr
	case errors.Is(err, pricing.ErrMalformedPostalCode):
		return NewAppError("MALFORMED_POSTAL_CODE", "postal code must be six digits", http.StatusUnprocessableEntity, err)
	default:
		return NewAppError("INTERNAL", "pricing failed", http.StatusInternalServerError, err)
	}
}

// WriteError renders any error through the canonical JSON error shape,
// honouring AppError codes when present.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
