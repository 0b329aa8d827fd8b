package security

import (
	"net/http"
	"strconv"
	"strings"
)

// Headers sets the response headers a JSON-only dashboard API needs.
type Headers struct {
	Enable bool
	// HSTS is sent only on requests that arrived over TLS, directly or via a
	// proxy setting X-Forwarded-Proto.
	EnableHSTS bool
	HSTSMaxAge int
	// NoStorePrefixes marks paths whose responses carry client specific
	// prices and must not be cached by intermediaries.
	NoStorePrefixes []string
}

var staticHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cross-Origin-Resource-Policy", "same-site"},
}

// Middleware applies the headers. A disabled Headers is a pass-through.
func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 31536000
	}
	hsts := "max-age=" + strconv.Itoa(maxAge)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for _, kv := range staticHeaders {
			headers.Set(kv[0], kv[1])
		}
		if h.EnableHSTS && (r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")) {
			headers.Set("Strict-Transport-Security", hsts)
		}
		if h.noStore(r.URL.Path) {
			headers.Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}

func (h Headers) noStore(path string) bool {
	for _, prefix := range h.NoStorePrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
