package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/backend-mayorista/internal/common"
)

var rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mayorista",
	Subsystem: "ratelimit",
	Name:      "rejected_total",
	Help:      "Requests refused by a rate limit, by scope (submit, advisor).",
}, []string{"scope"})

func init() {
	prometheus.MustRegister(rejected)
}

// Config is one limit: at most Max calls per caller in any Window. Scope
// keeps the counters of different routes apart and labels the metrics.
type Config struct {
	Scope  string
	Window time.Duration
	Max    int
}

// Handler enforces a sliding window limit per caller.
type Handler struct {
	Limiter Limiter
	Config  Config
	// OnError is told about store failures. The request is let through.
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	key := ByUser(h.Config.Scope)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := h.Limiter.Allow(r.Context(), key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Config.Max, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
		if !d.Allowed {
			wait := time.Until(d.Reset)
			if h.Limiter.Now != nil {
				wait = d.Reset.Sub(h.Limiter.Now())
			}
			headers.Set("Retry-After", strconv.Itoa(max(int(wait.Seconds()+0.999), 0)))
			tooMany(w, h.Config.Scope)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tooMany(w http.ResponseWriter, scope string) {
	rejected.WithLabelValues(scope).Inc()
	common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", map[string]any{"scope": scope})
}

// ByUser keys requests on the caller's user id within scope. Anonymous
// callers are keyed on their address.
func ByUser(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		if id := common.CallerFrom(r.Context()).UserID; id != "" {
			return scope + ":" + id
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		return scope + ":ip:" + host
	}
}
