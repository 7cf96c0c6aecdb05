package catalog

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rasoiyaa/backend-store/internal/common"
)

const defaultRelatedLimit = 4

// Handler wires the catalog store to HTTP.
type Handler struct {
	Store *Store
	Cache *Cache
}

// Products lists the catalog with optional category/availability filters and
// sorting. Listings are cached per filter combination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	filter := Filter{
		Category:     strings.TrimSpace(r.URL.Query().Get("category")),
		Availability: Availability(strings.TrimSpace(r.URL.Query().Get("availability"))),
		Sort:         strings.TrimSpace(r.URL.Query().Get("sort")),
	}
	switch filter.Availability {
	case "", InStock, PreOrder, OutOfStock:
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown availability filter", nil)
		return
	}

	cacheKey := fmt.Sprintf("catalog:list:%s:%s:%s", filter.Category, filter.Availability, filter.Sort)
	var cached []Product
	if ok, err := h.Cache.GetJSON(r.Context(), cacheKey, &cached); err == nil && ok {
		common.JSONData(w, http.StatusOK, cached)
		return
	}

	products := h.Store.List(filter)
	_ = h.Cache.SetJSON(r.Context(), cacheKey, products)
	common.JSONData(w, http.StatusOK, products)
}

// ProductDetail returns a single product by id.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	product, ok := h.Store.Get(id)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
		return
	}
	common.JSONData(w, http.StatusOK, product)
}

// Related returns products in the same category as the given product.
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := h.Store.Get(id); !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
		return
	}
	limit := defaultRelatedLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	common.JSONData(w, http.StatusOK, h.Store.Related(id, limit))
}

// Categories lists the distinct product categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	common.JSONData(w, http.StatusOK, h.Store.Categories())
}
