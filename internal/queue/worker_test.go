package queue_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mayorista/internal/queue"
)

func TestStalledHandoffIsRedeliveredOnce(t *testing.T) {
	client, mr := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := make(chan int, 4)
	log := zerolog.New(io.Discard)
	worker := queue.Worker{
		R:                 client,
		Prefix:            "mayorista",
		Kind:              kindSubmitted,
		VisibilityTimeout: 150 * time.Millisecond,
		SoftDeadline:      80 * time.Millisecond,
		RetryBase:         20 * time.Millisecond,
		Logger:            &log,
		Handler: func(jobCtx context.Context, task queue.Task) error {
			attempts <- task.Attempt
			if task.Attempt == 1 {
				// the event stream hangs until the soft deadline cuts it off
				<-jobCtx.Done()
				return jobCtx.Err()
			}
			cancel()
			return nil
		},
	}
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	enq := queue.Enqueuer{R: client, Prefix: "mayorista", MaxAttempts: 3}
	require.NoError(t, enq.Enqueue(context.Background(), queue.Task{Kind: kindSubmitted, Payload: []byte(`{"id":"PED-2"}`), IdempotencyKey: "PED-2"}))

	require.Eventually(t, func() bool { return len(attempts) >= 2 }, 2*time.Second, 20*time.Millisecond)
	<-done
	require.Equal(t, 1, <-attempts)
	require.Equal(t, 2, <-attempts)

	for _, key := range []string{"mayorista:queue:" + kindSubmitted + ":ready", "mayorista:queue:" + kindSubmitted + ":inflight"} {
		n, err := client.ZCard(context.Background(), key).Result()
		require.NoError(t, err)
		require.Zero(t, n, key)
	}
	require.False(t, mr.Exists("mayorista:queue:"+kindSubmitted+":dedup:PED-2"))
}

func TestHandoffIsDeadLetteredAfterMaxAttempts(t *testing.T) {
	client, mr := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := zerolog.New(io.Discard)
	worker := queue.Worker{
		R:                 client,
		Prefix:            "mayorista",
		Kind:              kindSubmitted,
		VisibilityTimeout: 120 * time.Millisecond,
		RetryBase:         20 * time.Millisecond,
		Logger:            &log,
		Handler: func(context.Context, queue.Task) error {
			return errors.New("event stream unavailable")
		},
	}
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	enq := queue.Enqueuer{R: client, Prefix: "mayorista", MaxAttempts: 2}
	require.NoError(t, enq.Enqueue(context.Background(), queue.Task{Kind: kindSubmitted, Payload: []byte(`{"id":"PED-1"}`), IdempotencyKey: "PED-1"}))

	require.Eventually(t, func() bool {
		n, err := client.LLen(context.Background(), "mayorista:queue:"+kindSubmitted+":dead").Result()
		return err == nil && n == 1
	}, 2*time.Second, 20*time.Millisecond)
	cancel()
	<-done

	letters, err := queue.DeadLetters(context.Background(), client, "mayorista", kindSubmitted, 10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	require.Equal(t, queue.DeadLetter{
		Kind:      kindSubmitted,
		Key:       "PED-1",
		Payload:   []byte(`{"id":"PED-1"}`),
		Attempts:  2,
		LastError: "event stream unavailable",
	}, letters[0])
	// the key is released so the order can be handed off again
	require.False(t, mr.Exists("mayorista:queue:"+kindSubmitted+":dedup:PED-1"))
}

func TestCrashedDeliveryIsReclaimedAsSpentAttempt(t *testing.T) {
	client, mr := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A worker died holding PED-3: its visibility deadline is long gone.
	stale := `{"kind":"order-submitted","key":"PED-3","payload":"eyJpZCI6IlBFRC0zIn0=","attempts":0,"max_attempts":3,"due_at":0}`
	_, err := mr.ZAdd("mayorista:queue:"+kindSubmitted+":inflight", 1, stale)
	require.NoError(t, err)

	delivered := make(chan queue.Task, 1)
	worker := queue.Worker{
		R:               client,
		Prefix:          "mayorista",
		Kind:            kindSubmitted,
		ReclaimInterval: 20 * time.Millisecond,
		Handler: func(_ context.Context, task queue.Task) error {
			delivered <- task
			cancel()
			return nil
		},
	}
	go func() { _ = worker.Run(ctx) }()

	select {
	case got := <-delivered:
		require.Equal(t, 2, got.Attempt)
		require.JSONEq(t, `{"id":"PED-3"}`, string(got.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("stalled handoff was not reclaimed")
	}
}

func TestDelayedHandoffWaitsUntilDue(t *testing.T) {
	client, _ := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enq := queue.Enqueuer{R: client, Prefix: "mayorista"}
	queuedAt := time.Now()
	require.NoError(t, enq.Enqueue(ctx, queue.Task{Kind: kindSubmitted, Payload: []byte(`{"id":"PED-4"}`), Delay: 250 * time.Millisecond}))

	deliveredAt := make(chan time.Time, 1)
	worker := queue.Worker{
		R:      client,
		Prefix: "mayorista",
		Kind:   kindSubmitted,
		Handler: func(context.Context, queue.Task) error {
			deliveredAt <- time.Now()
			cancel()
			return nil
		},
	}
	go func() { _ = worker.Run(ctx) }()

	select {
	case at := <-deliveredAt:
		require.GreaterOrEqual(t, at.Sub(queuedAt), 250*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("delayed handoff was never delivered")
	}
}
