package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/backend-mayorista/internal/common"
)

func TestAdvisorFixedWindowRejectsAfterRate(t *testing.T) {
	mw, err := FixedWindow(memory.NewStore(), "advisor", "2-M")
	require.NoError(t, err)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/advisor/sales-trends", nil)
		req = req.WithContext(common.WithCaller(req.Context(), common.Caller{UserID: user}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusOK, call("u-1"))
	require.Equal(t, http.StatusOK, call("u-1"))
	require.Equal(t, http.StatusTooManyRequests, call("u-1"))
	require.Equal(t, http.StatusOK, call("u-2"))
}

func TestFixedWindowRejectsBadRate(t *testing.T) {
	_, err := FixedWindow(memory.NewStore(), "advisor", "often")
	require.Error(t, err)
}

func TestByUserKeysOnCallerThenAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	require.Equal(t, "submit:ip:10.0.0.7", ByUser("submit")(req))

	req = req.WithContext(common.WithCaller(req.Context(), common.Caller{UserID: "seller-9"}))
	require.Equal(t, "submit:seller-9", ByUser("submit")(req))
}
