package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-mayorista/internal/obs"
	"github.com/noah-isme/backend-mayorista/internal/resilience"
)

// claimDue moves the earliest due task from the ready set to the in-flight
// set, scored by its visibility deadline.
var claimDue = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #due == 0 then
  return false
end
redis.call('ZREM', KEYS[1], due[1])
redis.call('ZADD', KEYS[2], ARGV[2], due[1])
return due[1]
`)

var errMalformed = errors.New("queue: malformed task dropped")

// Worker consumes tasks of one kind.
type Worker struct {
	R                 redis.Cmdable
	Prefix            string
	Kind              string
	Concurrency       int
	VisibilityTimeout time.Duration
	// SoftDeadline bounds a single handler invocation. Zero means the
	// visibility timeout.
	SoftDeadline time.Duration
	// ReclaimInterval is how often stalled in-flight tasks are swept back.
	ReclaimInterval time.Duration
	Handler         func(context.Context, Task) error
	RetryBase       time.Duration
	RetryJitter     float64
	Logger          *zerolog.Logger
}

type workerSettings struct {
	concurrency int
	visibility  time.Duration
	soft        time.Duration
	reclaim     time.Duration
	retryBase   time.Duration
}

func (w Worker) settings() workerSettings {
	s := workerSettings{
		concurrency: firstPositive(w.Concurrency, 1),
		visibility:  w.VisibilityTimeout,
		soft:        w.SoftDeadline,
		reclaim:     w.ReclaimInterval,
		retryBase:   w.RetryBase,
	}
	if s.visibility <= 0 {
		s.visibility = 30 * time.Second
	}
	if s.soft <= 0 || s.soft > s.visibility {
		s.soft = s.visibility
	}
	if s.reclaim <= 0 {
		s.reclaim = time.Second
	}
	if s.retryBase <= 0 {
		s.retryBase = 200 * time.Millisecond
	}
	return s
}

// Run claims and handles tasks until ctx is cancelled, then waits for the
// deliveries in progress.
func (w Worker) Run(ctx context.Context) error {
	if w.R == nil {
		return errNoClient
	}
	if w.Handler == nil {
		return errors.New("queue: worker handler not configured")
	}
	if !kindPattern.MatchString(w.Kind) {
		return errBadKind
	}
	s := w.settings()
	ks := keysFor(w.Prefix, w.Kind)

	slots := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	sweep := time.NewTicker(s.reclaim)
	defer sweep.Stop()

	for ctx.Err() == nil {
		select {
		case <-sweep.C:
			if err := w.reclaimStalled(ctx, ks); err != nil && ctx.Err() == nil {
				return err
			}
		default:
		}

		// Take a slot first so a claimed task never waits out its
		// visibility window for capacity.
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			return nil
		}
		raw, env, err := w.claim(ctx, ks, s.visibility)
		if err != nil {
			<-slots
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, redis.Nil):
				w.idle(ctx, 100*time.Millisecond)
			case errors.Is(err, errMalformed):
			default:
				return err
			}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()
			w.deliver(ctx, ks, raw, env, s)
		}()
	}
	return nil
}

func (w Worker) claim(ctx context.Context, ks taskKeys, visibility time.Duration) (string, envelope, error) {
	now := time.Now()
	raw, err := claimDue.Run(ctx, w.R, []string{ks.ready, ks.inflight},
		strconv.FormatInt(now.UnixNano(), 10),
		strconv.FormatInt(now.Add(visibility).UnixNano(), 10),
	).Text()
	if err != nil {
		return "", envelope{}, err
	}
	readyTasks.WithLabelValues(w.Kind).Dec()
	env, err := decodeEnvelope(raw)
	if err != nil {
		_ = w.R.ZRem(ctx, ks.inflight, raw).Err()
		w.logger().Warn().Err(err).Str("kind", w.Kind).Msg("queue_task_malformed")
		return "", envelope{}, errMalformed
	}
	return raw, env, nil
}

func (w Worker) deliver(ctx context.Context, ks taskKeys, raw string, env envelope, s workerSettings) {
	attempt := env.Attempts + 1
	jobCtx, cancel := context.WithTimeout(ctx, s.soft)
	defer cancel()
	jobCtx, span := obs.StartSpan(jobCtx, "queue.deliver "+env.Kind,
		attribute.String("queue.kind", env.Kind),
		attribute.String("queue.key", env.Key),
		attribute.Int("queue.attempt", attempt),
	)
	defer span.End()

	start := time.Now()
	err := w.Handler(jobCtx, Task{Kind: env.Kind, Payload: env.Payload, IdempotencyKey: env.Key, MaxAttempts: env.MaxAttempts, Attempt: attempt})
	took := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	// Follow-up writes must land even when the worker is stopping.
	bookCtx := context.WithoutCancel(ctx)
	owned, remErr := w.R.ZRem(bookCtx, ks.inflight, raw).Result()
	if remErr != nil {
		w.logger().Error().Err(remErr).Str("kind", env.Kind).Str("key", env.Key).Msg("queue_task_release_failed")
		return
	}
	if owned == 0 {
		// The sweep already moved it back to the ready set.
		observeDelivery(env.Kind, "reclaimed", took)
		return
	}
	if err == nil {
		if env.Key != "" {
			_ = w.R.Del(bookCtx, ks.dedup(env.Key)).Err()
		}
		observeDelivery(env.Kind, "ok", took)
		return
	}
	env.Attempts = attempt
	env.LastError = err.Error()
	observeDelivery(env.Kind, w.retryOrPark(bookCtx, ks, env, s.retryBase), took)
}

// retryOrPark reschedules env with backoff or, once its attempts are spent,
// parks it in the dead letter list. It reports which happened.
func (w Worker) retryOrPark(ctx context.Context, ks taskKeys, env envelope, base time.Duration) string {
	if env.exhausted() {
		w.park(ctx, ks, env)
		return "dead_letter"
	}
	delay := resilience.Backoff(base, env.Attempts, w.RetryJitter)
	env.DueAt = time.Now().Add(delay).UnixNano()
	if err := schedule(ctx, w.R, ks.ready, env); err != nil {
		w.logger().Error().Err(err).Str("kind", env.Kind).Str("key", env.Key).Msg("queue_task_retry_lost")
		return "lost"
	}
	readyTasks.WithLabelValues(env.Kind).Inc()
	w.logger().Warn().Str("kind", env.Kind).Str("key", env.Key).Int("attempt", env.Attempts).
		Str("error", env.LastError).Dur("backoff", delay).Msg("queue_task_retry")
	return "retry"
}

func (w Worker) park(ctx context.Context, ks taskKeys, env envelope) {
	raw, err := json.Marshal(env)
	if err == nil {
		err = w.R.LPush(ctx, ks.dead, raw).Err()
	}
	if err != nil {
		w.logger().Error().Err(err).Str("kind", env.Kind).Str("key", env.Key).Msg("queue_task_park_failed")
		return
	}
	// Release the key so the same order can be handed off again.
	if env.Key != "" {
		_ = w.R.Del(ctx, ks.dedup(env.Key)).Err()
	}
	deadLettered.WithLabelValues(env.Kind).Inc()
	w.logger().Error().Str("kind", env.Kind).Str("key", env.Key).Int("attempt", env.Attempts).
		Str("error", env.LastError).Msg("queue_task_dead_lettered")
}

// reclaimStalled returns in-flight tasks whose visibility deadline passed to
// the ready set. A stalled delivery counts as a spent attempt.
func (w Worker) reclaimStalled(ctx context.Context, ks taskKeys) error {
	stalled, err := w.R.ZRangeByScore(ctx, ks.inflight, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().UnixNano(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("queue: scan in-flight %s: %w", w.Kind, err)
	}
	for _, raw := range stalled {
		n, err := w.R.ZRem(ctx, ks.inflight, raw).Result()
		if err != nil {
			return fmt.Errorf("queue: reclaim %s: %w", w.Kind, err)
		}
		if n == 0 {
			continue
		}
		env, err := decodeEnvelope(raw)
		if err != nil {
			continue
		}
		env.Attempts++
		env.LastError = "visibility timeout"
		if env.exhausted() {
			w.park(ctx, ks, env)
			continue
		}
		env.DueAt = time.Now().UnixNano()
		if err := schedule(ctx, w.R, ks.ready, env); err != nil {
			return err
		}
		readyTasks.WithLabelValues(env.Kind).Inc()
		w.logger().Warn().Str("kind", env.Kind).Str("key", env.Key).Int("attempt", env.Attempts).Msg("queue_task_reclaimed")
	}
	return nil
}

func (w Worker) idle(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (w Worker) logger() *zerolog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	nop := zerolog.Nop()
	return &nop
}
