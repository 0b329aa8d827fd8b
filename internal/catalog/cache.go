package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores rendered catalog responses in Redis as JSON. A nil Cache or a
// Cache without a client is a valid no-op cache.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewCache constructs a cache helper. Keys are namespaced under prefix.
func NewCache(client redis.Cmdable, ttl time.Duration, prefix string) *Cache {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "catalog"
	}
	return &Cache{client: client, ttl: ttl, prefix: prefix}
}

// Key joins parts under the cache namespace.
func (c *Cache) Key(parts ...string) string {
	prefix := "catalog"
	if c != nil && c.prefix != "" {
		prefix = c.prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL. A
// non-positive TTL disables writes.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
