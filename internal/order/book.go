package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Book records submitted orders.
type Book interface {
	Save(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
}

// Filter narrows order listings. Empty fields match everything; From and To
// are inclusive YYYY-MM-DD bounds.
type Filter struct {
	Query    string
	Status   Status
	SellerID string
	From     string
	To       string
}

// Match reports whether o passes every filter. Query matches the customer
// case-insensitively or the id as a substring.
func (f Filter) Match(o Order) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(o.Customer), q) && !strings.Contains(strings.ToLower(o.ID), q) {
			return false
		}
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.SellerID != "" && o.SellerID != f.SellerID {
		return false
	}
	if f.From != "" && o.Date < f.From {
		return false
	}
	if f.To != "" && o.Date > f.To {
		return false
	}
	return true
}

// RedisBook stores orders as JSON documents with a sorted index by save time.
type RedisBook struct {
	R      redis.Cmdable
	Prefix string
	Now    func() time.Time
}

func (b RedisBook) orderKey(id string) string {
	return b.prefix() + ":order:" + id
}

func (b RedisBook) indexKey() string {
	return b.prefix() + ":orders"
}

func (b RedisBook) prefix() string {
	if b.Prefix == "" {
		return "mayorista"
	}
	return b.Prefix
}

func (b RedisBook) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Save writes o and indexes it. Saving an existing id overwrites the document
// and keeps its original position.
func (b RedisBook) Save(ctx context.Context, o Order) error {
	if b.R == nil {
		return errors.New("order: redis client not configured")
	}
	if o.ID == "" {
		return errors.New("order: id is required")
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	_, err = b.R.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.orderKey(o.ID), raw, 0)
		pipe.ZAddNX(ctx, b.indexKey(), redis.Z{Score: float64(b.now().UnixNano()), Member: o.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save order %s: %w", o.ID, err)
	}
	return nil
}

// Get loads one order.
func (b RedisBook) Get(ctx context.Context, id string) (Order, error) {
	if b.R == nil {
		return Order{}, errors.New("order: redis client not configured")
	}
	raw, err := b.R.Get(ctx, b.orderKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("load order %s: %w", id, err)
	}
	var o Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return Order{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	return o, nil
}

// List returns matching orders, newest first.
func (b RedisBook) List(ctx context.Context, f Filter) ([]Order, error) {
	if b.R == nil {
		return nil, errors.New("order: redis client not configured")
	}
	ids, err := b.R.ZRevRange(ctx, b.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list order ids: %w", err)
	}
	out := make([]Order, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, b.orderKey(id))
	}
	values, err := b.R.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var o Order
		if err := json.Unmarshal([]byte(s), &o); err != nil {
			continue
		}
		if f.Match(o) {
			out = append(out, o)
		}
	}
	return out, nil
}
