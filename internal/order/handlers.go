package order

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-mayorista/internal/access"
	"github.com/noah-isme/backend-mayorista/internal/common"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// Handler exposes the order book over HTTP.
type Handler struct {
	Book Book
}

// List handles GET /api/v1/orders. Roles without see-all rights are limited to
// their own orders regardless of the seller filter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Book == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order book not configured", nil)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	role, _ := access.RoleFrom(r.Context())
	if !access.CanSeeAllOrders(role) {
		userID, ok := common.UserID(r.Context())
		if !ok || userID == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "user identity required", nil)
			return
		}
		filter.SellerID = userID
	}
	orders, err := h.Book.List(r.Context(), filter)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	page := common.ParsePagination(r, defaultPerPage, maxPerPage)
	start, end := page.Window(len(orders))
	w.Header().Set("X-Total-Count", strconv.Itoa(page.TotalItems))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       orders[start:end],
		"pagination": page,
	})
}

// Get handles GET /api/v1/orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Book == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order book not configured", nil)
		return
	}
	o, err := h.Book.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	role, _ := access.RoleFrom(r.Context())
	if !access.CanSeeAllOrders(role) {
		userID, _ := common.UserID(r.Context())
		if userID == "" || o.SellerID != userID {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Query:    strings.TrimSpace(q.Get("q")),
		SellerID: strings.TrimSpace(q.Get("seller")),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			return f, common.BadRequest("status", "unknown order status", nil)
		}
		f.Status = status
	}
	for _, bound := range []struct {
		field string
		dst   *string
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := strings.TrimSpace(q.Get(bound.field))
		if raw == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, raw); err != nil {
			return f, common.BadRequest(bound.field, bound.field+" must be a YYYY-MM-DD date", err)
		}
		*bound.dst = raw
	}
	return f, nil
}
