package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-mayorista/internal/common"
)

const defaultCheckTimeout = 300 * time.Millisecond

// Dependency is a named backend checked on readiness. A failing Optional
// dependency degrades the report without taking the instance out of
// rotation: sellers keep taking orders while the advisor is down.
type Dependency struct {
	Name     string
	Timeout  time.Duration
	Optional bool
	Ping     func(ctx context.Context) error
}

// RedisDependency pings the session and order store.
func RedisDependency(client redis.UniversalClient, timeout time.Duration) Dependency {
	return Dependency{
		Name:    "redis",
		Timeout: timeout,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// Report is the readiness body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	Dependencies []Dependency
	draining     atomic.Bool
}

// Drain fails readiness from now on so load balancers stop routing new
// sessions here while in-flight submissions finish.
func (h *Handler) Drain() {
	h.draining.Store(true)
}

// Live reports that the process is up.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, Report{Status: "ok"})
}

// Ready pings every dependency concurrently. It answers 503 while draining,
// when nothing is configured, or when a required dependency fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "draining"})
		return
	}
	if len(h.Dependencies) == 0 {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "unavailable"})
		return
	}

	errs := make([]error, len(h.Dependencies))
	var wg sync.WaitGroup
	for i, p := range h.Dependencies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = run(r.Context(), p)
		}()
	}
	wg.Wait()

	report := Report{Status: "ready", Checks: make(map[string]string, len(h.Dependencies))}
	code := http.StatusOK
	for i, p := range h.Dependencies {
		if errs[i] == nil {
			report.Checks[p.Name] = "ok"
			continue
		}
		report.Checks[p.Name] = errs[i].Error()
		if p.Optional {
			if code == http.StatusOK {
				report.Status = "degraded"
			}
			continue
		}
		report.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, report)
}

func run(ctx context.Context, p Dependency) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Ping(ctx)
}
