package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-mayorista/internal/obs"
)

// Event is a persisted domain event.
type Event struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// EventStore is the durable log events are appended to before fan-out.
type EventStore interface {
	Append(ctx context.Context, ev Event) error
}

// Notifier is a best-effort subscriber. Its failure never undoes the append.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Bus appends order events to the store and then fans them out.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
	Now       func() time.Time
}

var errNoStore = errors.New("events: store not configured")

// Emit appends an event for aggregateID under topic. Notifier failures are
// joined into the returned error alongside the stored event.
func (b *Bus) Emit(ctx context.Context, topic, aggregateID string, payload any) (Event, error) {
	if b == nil || b.Store == nil {
		return Event{}, errNoStore
	}
	ev, err := b.build(topic, aggregateID, payload)
	if err != nil {
		return Event{}, err
	}
	if err := b.Store.Append(ctx, ev); err != nil {
		obs.ObserveOrderEvent(ev.Topic, "store_error")
		return Event{}, fmt.Errorf("events: append %s: %w", ev.Topic, err)
	}
	if err := b.fanOut(ctx, ev); err != nil {
		obs.ObserveOrderEvent(ev.Topic, "notify_error")
		return ev, err
	}
	obs.ObserveOrderEvent(ev.Topic, "ok")
	return ev, nil
}

func (b *Bus) build(topic, aggregateID string, payload any) (Event, error) {
	ev := Event{
		ID:          uuid.NewString(),
		Topic:       strings.TrimSpace(topic),
		AggregateID: strings.TrimSpace(aggregateID),
	}
	if ev.Topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	if ev.AggregateID == "" {
		return Event{}, errors.New("events: aggregate id is required")
	}
	raw, err := rawPayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: %s payload: %w", ev.Topic, err)
	}
	ev.Payload = raw
	if b.Now != nil {
		ev.OccurredAt = b.Now().UTC()
	} else {
		ev.OccurredAt = time.Now().UTC()
	}
	return ev, nil
}

func (b *Bus) fanOut(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range b.Notifiers {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("events: notify %s: %w", ev.Topic, err))
		}
	}
	return errors.Join(errs...)
}

// rawPayload accepts pre-encoded JSON as bytes or a string, or any value
// json.Marshal can encode. Empty input becomes {}.
func rawPayload(payload any) (json.RawMessage, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		raw = []byte(strings.TrimSpace(v))
	default:
		return json.Marshal(v)
	}
	if len(raw) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("not valid json")
	}
	return append(json.RawMessage(nil), raw...), nil
}
