package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rasoiyaa/backend-store/internal/cart"
	"github.com/rasoiyaa/backend-store/internal/common"
	"github.com/rasoiyaa/backend-store/internal/obs"
	"github.com/rasoiyaa/backend-store/internal/pricing"
)

// Handler exposes checkout over HTTP.
type Handler struct {
	Svc *Service
}

// Place handles POST /checkout. Guests check out with the address email as
// their contact; logged-in buyers get the order attached to their account.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	contact, _ := common.Contact(r.Context())
	placed, err := h.Svc.Place(r.Context(), contact, in)
	if err != nil {
		obs.CountOrderPlaced("error", 0)
		h.writeError(w, err)
		return
	}
	obs.CountOrderPlaced("ok", float64(placed.Pricing.Total))
	common.JSONData(w, http.StatusCreated, placed)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "checkout input is invalid", verr.Fields)
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no items", nil)
	case errors.Is(err, cart.ErrUnavailable):
		common.JSONError(w, http.StatusConflict, "PRODUCT_UNAVAILABLE", "a product in the cart cannot be ordered right now", nil)
	case errors.Is(err, pricing.ErrUnknownProduct),
		errors.Is(err, pricing.ErrInvalidQuantity):
		common.WriteError(w, common.FromPricingError(err))
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
	}
}
