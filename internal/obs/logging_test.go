package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mayorista/internal/common"
)

func TestRequestLoggerRecordsCallerAndSection(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := common.WithCaller(req.Context(), common.Caller{UserID: "u-7", Role: "Vendedor"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Use(RequestLogger{Logger: zerolog.New(&buf)}.Middleware)
	r.Post("/api/v1/sessions/{id}/lines", func(w http.ResponseWriter, req *http.Request) {
		SetSection(req.Context(), "new-order")
		w.WriteHeader(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/lines", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "error", entry["level"])
	require.Equal(t, float64(http.StatusInternalServerError), entry["status"])
	require.Equal(t, "/api/v1/sessions/{id}/lines", entry["route"])
	require.Equal(t, "/api/v1/sessions/s1/lines", entry["path"])
	require.Equal(t, "new-order", entry["section"])
	require.Equal(t, "u-7", entry["user_id"])
	require.Equal(t, "Vendedor", entry["role"])
	require.NotContains(t, entry, "trace_id")
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "worker", "json", "chatty")
	logger.Debug().Msg("hidden")
	logger.Info().Msg("order_created_emitted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "order_created_emitted", entry["message"])
	require.Equal(t, "worker", entry["component"])
}
