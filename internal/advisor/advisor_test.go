package advisor_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mayorista/internal/advisor"
	"github.com/noah-isme/backend-mayorista/internal/catalog"
	"github.com/noah-isme/backend-mayorista/internal/resilience"
)

func testCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.NewStore([]catalog.Product{{
		ID: "1", SKU: "AB-GRA-001", Name: "Granos Prov Select #1", Category: "Abarrotes",
		SubCategory: "Granos", Brand: "Prov Select", Price: 10_000, MinOrder: 12, Stock: 50,
		Description: "Formato mayorista para distribución.",
	}}, nil, catalog.SeedPriceLists())
	require.NoError(t, err)
	return store
}

type upstream struct {
	srv     *httptest.Server
	prompts chan string
	calls   atomic.Int32
	fail    atomic.Bool
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{prompts: make(chan string, 8)}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		if u.fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/v1beta/models/test-model:generateContent" || r.Header.Get("x-goog-api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			u.prompts <- req.Contents[0].Parts[0].Text
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"  Texto sugerido "}]}}]}`)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) generator() advisor.HTTPGenerator {
	return advisor.HTTPGenerator{
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: advisor.NewHTTPTransport(nil)},
			MaxAttempts: 1,
			Timeout:     time.Second,
		},
		Endpoint: u.srv.URL + "/v1beta/",
		APIKey:   "secret",
		Model:    "test-model",
	}
}

func TestHTTPGeneratorSendsPrompt(t *testing.T) {
	u := newUpstream(t)
	text, err := u.generator().Generate(context.Background(), "hola")
	require.NoError(t, err)
	require.Equal(t, "Texto sugerido", text)
	require.Equal(t, "hola", <-u.prompts)
}

func TestHTTPGeneratorNotConfigured(t *testing.T) {
	_, err := advisor.HTTPGenerator{}.Generate(context.Background(), "hola")
	require.ErrorIs(t, err, advisor.ErrNotConfigured)
}

func TestServiceBuildsPromptsFromCatalog(t *testing.T) {
	u := newUpstream(t)
	svc := &advisor.Service{Generator: u.generator(), Catalog: testCatalog(t), Logger: zerolog.Nop()}
	ctx := context.Background()

	sg, err := svc.ProductDescription(ctx, "1")
	require.NoError(t, err)
	require.False(t, sg.Fallback)
	require.Equal(t, "1", sg.ProductID)
	prompt := <-u.prompts
	require.Contains(t, prompt, "Producto: Granos Prov Select #1")
	require.Contains(t, prompt, "Categoría: Abarrotes")

	_, err = svc.PricingStrategy(ctx, "1")
	require.NoError(t, err)
	prompt = <-u.prompts
	require.Contains(t, prompt, `"Granos Prov Select #1" que cuesta actualmente $10000 por unidad`)
	require.Contains(t, prompt, "12 unidades")

	_, err = svc.SalesTrends(ctx, []advisor.MonthlySales{{Month: "Octubre", Sales: 42000}, {Month: "Noviembre", Sales: 58000, Orders: 31}})
	require.NoError(t, err)
	prompt = <-u.prompts
	require.Contains(t, prompt, `{"month":"Octubre","sales":42000}`)

	_, err = svc.ProductDescription(ctx, "404")
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestServiceFallsBack(t *testing.T) {
	failing := advisor.GeneratorFunc(func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	})
	svc := &advisor.Service{Generator: failing, Catalog: testCatalog(t), Logger: zerolog.Nop()}

	sg, err := svc.PricingStrategy(context.Background(), "1")
	require.NoError(t, err)
	require.True(t, sg.Fallback)
	require.Equal(t, advisor.Fallback(advisor.KindPricing), sg.Text)

	empty := advisor.GeneratorFunc(func(context.Context, string) (string, error) { return "  ", nil })
	svc.Generator = empty
	sg, err = svc.SalesTrends(context.Background(), []advisor.MonthlySales{{Month: "Enero", Sales: 1}})
	require.NoError(t, err)
	require.True(t, sg.Fallback)
	require.Equal(t, "Análisis no disponible en este momento.", sg.Text)

	svc.Generator = nil
	sg, err = svc.ProductDescription(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, "No se pudo generar una descripción.", sg.Text)
}

func TestServiceFallsBackWhenUpstreamDown(t *testing.T) {
	u := newUpstream(t)
	u.fail.Store(true)
	svc := &advisor.Service{Generator: u.generator(), Catalog: testCatalog(t), Logger: zerolog.Nop()}

	sg, err := svc.ProductDescription(context.Background(), "1")
	require.NoError(t, err)
	require.True(t, sg.Fallback)
	require.Equal(t, int32(1), u.calls.Load())
}

func newRouter(svc *advisor.Service) http.Handler {
	h := &advisor.Handler{Svc: svc}
	r := chi.NewRouter()
	r.Post("/advisor/products/{id}/description", h.ProductDescription)
	r.Post("/advisor/products/{id}/pricing", h.PricingStrategy)
	r.Post("/advisor/sales-trends", h.SalesTrends)
	return r
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandlers(t *testing.T) {
	gen := advisor.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		return "ok: " + prompt[:10], nil
	})
	router := newRouter(&advisor.Service{Generator: gen, Catalog: testCatalog(t), Logger: zerolog.Nop()})

	rr := post(router, "/advisor/products/1/description", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data advisor.Suggestion `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, advisor.KindDescription, body.Data.Kind)
	require.False(t, body.Data.Fallback)

	rr = post(router, "/advisor/products/nope/pricing", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = post(router, "/advisor/sales-trends", `[{"month":"Octubre","sales":42000,"orders":12}]`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = post(router, "/advisor/sales-trends", `[]`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = post(router, "/advisor/sales-trends", `[{"month":"","sales":-1}]`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "required")

	rr = post(router, "/advisor/sales-trends", `{not json`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
