package events

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStream appends events to a capped Redis stream per topic.
type RedisStream struct {
	R      redis.Cmdable
	Prefix string
	MaxLen int64
}

// Append implements EventStore.
func (s RedisStream) Append(ctx context.Context, ev Event) error {
	if s.R == nil {
		return errors.New("events: redis client not configured")
	}
	maxLen := s.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return s.R.XAdd(ctx, &redis.XAddArgs{
		Stream: s.Key(ev.Topic),
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]any{
			"id":           ev.ID,
			"aggregate_id": ev.AggregateID,
			"payload":      string(ev.Payload),
			"occurred_at":  ev.OccurredAt.Format(time.RFC3339Nano),
		},
	}).Err()
}

// Key returns the stream key for topic.
func (s RedisStream) Key(topic string) string {
	if s.Prefix == "" {
		return "events:" + topic
	}
	return s.Prefix + ":events:" + topic
}

// LogNotifier writes every event to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Logger.Info().
		Str("event_id", ev.ID).
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID).
		Time("occurred_at", ev.OccurredAt).
		Msg("domain_event")
	return nil
}
