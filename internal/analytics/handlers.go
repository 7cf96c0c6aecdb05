package analytics

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rasoiyaa/backend-store/internal/common"
	"github.com/rasoiyaa/backend-store/internal/pricing"
)

// Handler serves the admin dashboard. Routes are mounted behind the admin
// middleware; handlers assume the caller is authorised.
type Handler struct {
	Svc     *Service
	Coupons pricing.CouponTable
}

func queryInt(r *http.Request, name string, fallback, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	if max > 0 && parsed > max {
		return max
	}
	return parsed
}

// Dashboard returns the sales overview, top products, and recent orders.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	top := queryInt(r, "top", 5, 25)
	recent := queryInt(r, "recent", 10, 50)
	overview, err := h.Svc.Dashboard(r.Context(), top, recent)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to build dashboard", nil)
		return
	}
	common.JSONData(w, http.StatusOK, overview)
}

// CouponPreview evaluates a coupon against a hypothetical subtotal so admins
// can sanity-check configured rules.
func (h *Handler) CouponPreview(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code     string        `json:"code"`
		Subtotal pricing.Money `json:"subtotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	if payload.Subtotal < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "subtotal must not be negative", nil)
		return
	}
	discount, coupon, err := h.Coupons.Apply(payload.Code, payload.Subtotal)
	if err != nil {
		if errors.Is(err, pricing.ErrUnknownCoupon) || errors.Is(err, pricing.ErrBelowMinimumOrder) {
			common.WriteError(w, common.FromPricingError(err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon preview failed", nil)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"coupon":   coupon,
		"discount": discount,
	})
}
