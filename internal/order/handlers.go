package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rasoiyaa/backend-store/internal/common"
)

// Handler serves the buyer's order history. All routes require an
// authenticated contact in the request context.
type Handler struct {
	Store Store
	Now   func() time.Time
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// List returns the buyer's orders, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	contact, ok := common.Contact(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return
	}
	limit := 20
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	orders, err := h.Store.ListByContact(r.Context(), contact, limit, offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	common.JSONData(w, http.StatusOK, orders)
}

// Get returns one of the buyer's orders by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	contact, ok := common.Contact(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if !ValidID(id) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	o, err := h.Store.GetForContact(r.Context(), id, contact)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, o)
}

// Cancel cancels a confirmed order. Orders that have shipped stay as they
// are and the buyer gets a conflict.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	contact, ok := common.Contact(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if !ValidID(id) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	if _, err := h.Store.GetForContact(r.Context(), id, contact); err != nil {
		h.writeError(w, err)
		return
	}
	o, err := h.Store.UpdateStatus(r.Context(), id, StatusConfirmed, StatusCancelled, h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, o)
}

type trackView struct {
	OrderID           string      `json:"orderId"`
	Status            Status      `json:"status"`
	EstimatedDelivery time.Time   `json:"estimatedDelivery"`
	Timeline          []TrackStep `json:"timeline"`
}

// Track returns the fulfilment timeline for one of the buyer's orders.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	contact, ok := common.Contact(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if !ValidID(id) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	o, err := h.Store.GetForContact(r.Context(), id, contact)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, trackView{
		OrderID:           o.ID,
		Status:            o.Status,
		EstimatedDelivery: o.EstimatedDelivery,
		Timeline:          o.Timeline(),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrNotCancellable):
		common.JSONError(w, http.StatusConflict, "NOT_CANCELLABLE", "order can no longer be cancelled", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order operation failed", nil)
	}
}

// AdminHandler serves fulfilment operations for store staff.
type AdminHandler struct {
	Store Store
	Now   func() time.Time
}

func (h *AdminHandler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

type statusPatch struct {
	Status Status `json:"status"`
}

// PatchStatus advances an order along the fulfilment flow, confirmed to
// shipped to delivered. Skipping a step or moving backwards is rejected.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !ValidID(id) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	var body statusPatch
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}
	from, ok := FulfilmentFrom(body.Status)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "status must be shipped or delivered", nil)
		return
	}
	o, err := h.Store.UpdateStatus(r.Context(), id, from, body.Status, h.now())
	switch {
	case err == nil:
		common.JSONData(w, http.StatusOK, o)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrNotCancellable):
		common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION", "order is not in the required status", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order operation failed", nil)
	}
}
