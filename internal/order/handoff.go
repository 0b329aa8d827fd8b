package order

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mayorista/internal/queue"
)

// TaskSubmitted is the queue kind carrying newly committed orders.
const TaskSubmitted = "order-submitted"

// Enqueuer publishes asynchronous tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) error
}

// Handoff records the order in the book and schedules follow-up processing.
// A failed enqueue is logged but does not fail the commit because the order is
// already durable.
type Handoff struct {
	Book        Book
	Queue       Enqueuer
	MaxAttempts int
	Logger      zerolog.Logger
}

// Commit implements Committer.
func (h Handoff) Commit(ctx context.Context, o Order) (Order, error) {
	if h.Book == nil {
		return Order{}, errors.New("order: book not configured")
	}
	if err := h.Book.Save(ctx, o); err != nil {
		return Order{}, err
	}
	if h.Queue == nil {
		return o, nil
	}
	payload, err := json.Marshal(o)
	if err != nil {
		h.Logger.Error().Err(err).Str("order_id", o.ID).Msg("order_task_encode_failed")
		return o, nil
	}
	task := queue.Task{Kind: TaskSubmitted, Payload: payload, IdempotencyKey: o.ID, MaxAttempts: h.MaxAttempts}
	if err := h.Queue.Enqueue(ctx, task); err != nil {
		h.Logger.Warn().Err(err).Str("order_id", o.ID).Msg("order_task_enqueue_failed")
	}
	return o, nil
}
