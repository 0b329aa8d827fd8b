package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mayorista/internal/queue"
)

const defaultEmittedTTL = 7 * 24 * time.Hour

// Locker serialises work on a key across worker replicas.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// OrderSubmitted turns queued order hand-offs into order.created events. Each
// order is emitted once: redeliveries of a task whose event is already in the
// store are acknowledged without emitting again.
type OrderSubmitted struct {
	Bus        *Bus
	Locker     Locker
	LockTTL    time.Duration
	R          redis.Cmdable
	Prefix     string
	EmittedTTL time.Duration
	Logger     zerolog.Logger
}

func (h OrderSubmitted) emittedKey(orderID string) string {
	key := "events:emitted:" + TopicOrderCreated + ":" + orderID
	if h.Prefix == "" {
		return key
	}
	return h.Prefix + ":" + key
}

// Handle is a queue.Worker handler. The task payload is the committed order
// document.
func (h OrderSubmitted) Handle(ctx context.Context, task queue.Task) error {
	if h.Bus == nil {
		return errors.New("events: bus not configured")
	}
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(task.Payload, &head); err != nil {
		return fmt.Errorf("events: decode order: %w", err)
	}
	if head.ID == "" {
		return errors.New("events: order id missing from payload")
	}
	emit := func(ctx context.Context) error {
		return h.emitOnce(ctx, head.ID, task)
	}
	if h.Locker == nil {
		return emit(ctx)
	}
	return h.Locker.WithLock(ctx, "order-created:"+head.ID, h.LockTTL, emit)
}

func (h OrderSubmitted) emitOnce(ctx context.Context, orderID string, task queue.Task) error {
	if h.R != nil {
		seen, err := h.R.Exists(ctx, h.emittedKey(orderID)).Result()
		if err != nil {
			return fmt.Errorf("events: check emitted %s: %w", orderID, err)
		}
		if seen > 0 {
			h.Logger.Info().Str("order_id", orderID).Int("attempt", task.Attempt).Msg("order_created_already_emitted")
			return nil
		}
	}

	ev, err := h.Bus.Emit(ctx, TopicOrderCreated, orderID, task.Payload)
	if ev.ID == "" {
		return err
	}
	if h.R != nil {
		ttl := h.EmittedTTL
		if ttl <= 0 {
			ttl = defaultEmittedTTL
		}
		if markErr := h.R.Set(ctx, h.emittedKey(orderID), ev.ID, ttl).Err(); markErr != nil {
			h.Logger.Warn().Err(markErr).Str("order_id", orderID).Str("event_id", ev.ID).Msg("order_created_mark_failed")
		}
	}
	if err != nil {
		// the event is stored; only fan-out failed
		h.Logger.Warn().Err(err).Str("order_id", orderID).Str("event_id", ev.ID).Msg("order_created_notify_failed")
	}
	return nil
}
