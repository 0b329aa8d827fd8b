package ratelimit

import (
	"fmt"
	"net/http"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRedisStore wires a fixed window limiter store backed by Redis.
func NewRedisStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
}

// FixedWindow enforces a formatted rate such as "20-M" per caller within
// scope. It backs the advisor routes, where a burst at a window edge is
// harmless and the fixed window is cheaper than the sliding one.
func FixedWindow(store limiter.Store, scope, formatted string) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", formatted, err)
	}
	mw := stdlib.NewMiddleware(
		limiter.New(store, rate),
		stdlib.WithKeyGetter(ByUser(scope)),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			tooMany(w, scope)
		}),
	)
	return mw.Handler, nil
}
