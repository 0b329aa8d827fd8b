package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mayorista/internal/catalog"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := catalog.Seed(42)
	require.NoError(t, err)
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: store, Logger: zerolog.Nop(), DefaultLimit: 20, MaxLimit: 100})
	require.NoError(t, err)
	h := catalog.NewHandler(svc)

	r := chi.NewRouter()
	r.Get("/catalog/products", h.Products)
	r.Get("/catalog/categories", h.Categories)
	r.Get("/clients", h.Clients)
	r.Get("/price-lists", h.PriceLists)
	r.Get("/price-lists/{id}/preview", h.Preview)
	return r
}

func TestProductsHandler(t *testing.T) {
	router := newRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/catalog/products?clientId=C001&limit=5", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "100", rr.Header().Get("X-Total-Count"))

	var body struct {
		Data      []catalog.ProductListItem `json:"data"`
		PriceList catalog.PriceList         `json:"priceList"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 5)
	require.Equal(t, "pl-vip", body.PriceList.ID)
	for _, item := range body.Data {
		require.Equal(t, "pl-vip", item.PriceListID)
		require.Equal(t, catalogFinal(item.Price, 20), item.FinalPrice)
	}
}

func catalogFinal(base int64, pct int64) int64 {
	return (base*(100-pct)*2 + 100) / 200
}

func TestProductsHandlerErrors(t *testing.T) {
	router := newRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/catalog/products?clientId=C999", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/catalog/products?limit=abc", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "BAD_REQUEST")
}

func TestClientsHandlerSearches(t *testing.T) {
	router := newRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/clients?q=hotel", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data []catalog.Client `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "C010", body.Data[0].ID)
}

func TestCategoriesAndPriceListsHandlers(t *testing.T) {
	router := newRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/catalog/categories", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var cats struct {
		Data []catalog.Category `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cats))
	require.Len(t, cats.Data, 10)
	require.Equal(t, "Abarrotes", cats.Data[0].Name)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/price-lists", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var lists struct {
		Data []catalog.PriceList `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lists))
	require.Len(t, lists.Data, 4)
}

func TestPreviewHandler(t *testing.T) {
	router := newRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/price-lists/pl-mayorista/preview", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data []catalog.PreviewRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 100)
	for _, row := range body.Data {
		require.Equal(t, row.BasePrice-row.FinalPrice, row.Saving)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/price-lists/pl-ghost/preview", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlersWithoutServiceAnswerInternal(t *testing.T) {
	h := catalog.NewHandler(nil)
	rr := httptest.NewRecorder()
	h.Products(rr, httptest.NewRequest(http.MethodGet, "/catalog/products", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), "catalog service not configured")
}

func TestUnknownClientRendersNotFoundCode(t *testing.T) {
	router := newRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/catalog/products?clientId=C999", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
	require.Equal(t, "client not found", body.Error.Message)
}
