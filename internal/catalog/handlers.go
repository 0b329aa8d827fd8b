package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-mayorista/internal/common"
)

// Handler serves the read-only catalog: products priced for a client,
// categories, client search and price list previews.
type Handler struct {
	svc *Service
}

// NewHandler wraps svc. A nil svc answers every route with a 500.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type listing struct {
	Data       any                `json:"data"`
	PriceList  *PriceList         `json:"priceList,omitempty"`
	Pagination *common.Pagination `json:"pagination,omitempty"`
}

var errNoCatalog = common.NewAppError("INTERNAL", "catalog service not configured", http.StatusInternalServerError, nil)

// Products handles GET /api/v1/catalog/products?clientId=&q=&category=&page=&limit=.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		common.WriteError(w, errNoCatalog)
		return
	}
	params, err := h.svc.ParseListParams(r.URL.Query())
	if err != nil {
		writeLookupError(w, err)
		return
	}
	res, err := h.svc.ListProducts(r.Context(), params)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(res.Total, 10))
	common.JSON(w, http.StatusOK, listing{
		Data:       res.Items,
		PriceList:  &res.PriceList,
		Pagination: &common.Pagination{Page: res.Page, PerPage: res.Limit, TotalItems: int(res.Total)},
	})
}

// Categories handles GET /api/v1/catalog/categories.
func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	if h.svc == nil {
		common.WriteError(w, errNoCatalog)
		return
	}
	common.JSON(w, http.StatusOK, listing{Data: h.svc.Categories()})
}

// Clients handles GET /api/v1/clients?q=.
func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		common.WriteError(w, errNoCatalog)
		return
	}
	found := h.svc.SearchClients(r.URL.Query().Get("q"))
	w.Header().Set("X-Total-Count", strconv.Itoa(len(found)))
	common.JSON(w, http.StatusOK, listing{Data: found})
}

// PriceLists handles GET /api/v1/price-lists.
func (h *Handler) PriceLists(w http.ResponseWriter, _ *http.Request) {
	if h.svc == nil {
		common.WriteError(w, errNoCatalog)
		return
	}
	common.JSON(w, http.StatusOK, listing{Data: h.svc.PriceLists()})
}

// Preview handles GET /api/v1/price-lists/{id}/preview?q=.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		common.WriteError(w, errNoCatalog)
		return
	}
	pl, rows, err := h.svc.Preview(chi.URLParam(r, "id"), r.URL.Query().Get("q"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, listing{Data: rows, PriceList: &pl})
}

func writeLookupError(w http.ResponseWriter, err error) {
	for _, missing := range []struct {
		err  error
		what string
	}{
		{ErrClientNotFound, "client not found"},
		{ErrPriceListNotFound, "price list not found"},
		{ErrProductNotFound, "product not found"},
	} {
		if errors.Is(err, missing.err) {
			common.WriteError(w, common.NotFound(missing.what, err))
			return
		}
	}
	common.WriteError(w, err)
}
