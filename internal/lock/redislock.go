package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// release deletes the lock only while it still carries our token, so a holder
// whose TTL lapsed cannot free a lock that a newer holder has taken.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var waitSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "mayorista",
	Subsystem: "lock",
	Name:      "wait_seconds",
	Help:      "Time spent waiting to acquire a lock, by key scope (e.g. session).",
	Buckets:   []float64{.001, .005, .025, .1, .5, 1, 5},
}, []string{"scope"})

func init() {
	prometheus.MustRegister(waitSeconds)
}

// Locker is a Redis lock shared by every replica pointing at the same store.
// Keys are namespaced as <Prefix>:lock:<key>.
type Locker struct {
	R            redis.Cmdable
	Prefix       string
	RetryBackoff time.Duration
}

// WithLock runs fn while holding key, waiting for any current holder. The
// lock expires after ttl even if fn is still running, so ttl must cover the
// work done under it. It returns ctx's error, wrapped, if the lock is not
// acquired before ctx ends.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	full := l.key(key)
	token := uuid.NewString()
	start := time.Now()

	for {
		ok, err := l.R.SetNX(ctx, full, token, ttl).Result()
		if err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
	waitSeconds.WithLabelValues(scope(key)).Observe(time.Since(start).Seconds())

	defer func() {
		_ = release.Run(context.WithoutCancel(ctx), l.R, []string{full}, token).Err()
	}()
	return fn(ctx)
}

func (l Locker) key(key string) string {
	if l.Prefix == "" {
		return "lock:" + key
	}
	return l.Prefix + ":lock:" + key
}

func scope(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
