package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rasoiyaa/backend-store/internal/common"
	"github.com/rasoiyaa/backend-store/internal/obs"
	"github.com/rasoiyaa/backend-store/internal/pricing"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

type cartView struct {
	Cart  Cart            `json:"cart"`
	Quote *pricing.Result `json:"quote,omitempty"`
}

// view prices the cart for display. A coupon that no longer validates is
// reported inside the payload instead of failing the whole response.
func (h *Handler) view(r *http.Request, cart Cart, postalCode string) (map[string]any, error) {
	quote, err := h.Svc.Quote(r.Context(), cart, postalCode)
	payload := map[string]any{
		"cart":  cart,
		"quote": quote,
	}
	if err != nil {
		appErr := common.FromPricingError(err)
		if errors.Is(err, pricing.ErrUnknownProduct) || errors.Is(err, pricing.ErrInvalidQuantity) {
			return nil, appErr
		}
		payload["couponError"] = common.ErrorBody{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
	}
	return payload, nil
}

// Create creates a guest cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AnonID string `json:"anonId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)
	cart, err := h.Svc.Create(r.Context(), strings.TrimSpace(payload.AnonID))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, cartView{Cart: cart})
}

// Get returns cart contents with a provisional pricing quote (no postal
// code, so shipping falls back to the default fee).
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	payload, err := h.view(r, cart, "")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, payload)
}

// AddItem inserts or increments a line item.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string `json:"productId"`
		Qty       int    `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	if payload.Qty == 0 {
		payload.Qty = 1
	}
	cart, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(payload.ProductID), payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.view(r, cart, "")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// UpdateItem sets a line item quantity.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	cart, err := h.Svc.UpdateQty(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"), payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.view(r, cart, "")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// RemoveItem deletes a line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.view(r, cart, "")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// ApplyCoupon validates and attaches a coupon code to the cart.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	code := pricing.NormalizeCouponCode(payload.Code)
	cart, quote, err := h.Svc.ApplyCoupon(r.Context(), chi.URLParam(r, "id"), payload.Code)
	if err != nil {
		obs.CountCouponApplied(code, "rejected")
		h.writeError(w, err)
		return
	}
	obs.CountCouponApplied(code, "ok")
	common.JSONData(w, http.StatusOK, cartView{Cart: cart, Quote: &quote})
}

// RemoveCoupon clears the applied coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	cart, err := h.Svc.RemoveCoupon(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.view(r, cart, "")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// Quote prices the cart with an optional destination pincode, as shown on
// the checkout page before the order is placed.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Pincode string `json:"pincode"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)
	cart, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.view(r, cart, strings.TrimSpace(payload.Pincode))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// Merge moves a guest cart into the authenticated buyer's cart.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	contact, ok := common.Contact(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return
	}
	var payload struct {
		GuestCartID string `json:"guestCartId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	cart, err := h.Svc.Merge(r.Context(), strings.TrimSpace(payload.GuestCartID), contact)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.view(r, cart, "")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart or item not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrUnavailable):
		common.JSONError(w, http.StatusConflict, "PRODUCT_UNAVAILABLE", "product cannot be ordered right now", nil)
	case errors.Is(err, pricing.ErrUnknownProduct),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrUnknownCoupon),
		errors.Is(err, pricing.ErrBelowMinimumOrder):
		common.WriteError(w, common.FromPricingError(err))
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart operation failed", nil)
	}
}
