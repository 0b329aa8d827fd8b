// Package queue is a small Redis backed task queue. Ready tasks sit in a
// sorted set scored by the time they become due; a claimed task moves to an
// in-flight set scored by its visibility deadline until it is acked, retried
// or dead lettered.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 10
	defaultDedupTTL    = 24 * time.Hour
)

var (
	errNoClient = errors.New("queue: redis client not configured")
	errBadKind  = errors.New("queue: kind must match [a-z0-9:_-]+")

	kindPattern = regexp.MustCompile(`^[a-z0-9:_-]+$`)
)

// Task is the unit handed to a Worker handler.
type Task struct {
	Kind    string
	Payload []byte
	// IdempotencyKey suppresses duplicate enqueues while the task is pending.
	IdempotencyKey string
	MaxAttempts    int
	Delay          time.Duration
	// Attempt is set on delivery, starting at 1.
	Attempt int
}

// Enqueuer publishes tasks.
type Enqueuer struct {
	R           redis.Cmdable
	Prefix      string
	DedupTTL    time.Duration
	MaxAttempts int
}

// Enqueue schedules t. A task carrying an IdempotencyKey that is already
// pending is dropped without error.
func (e Enqueuer) Enqueue(ctx context.Context, t Task) error {
	if e.R == nil {
		return errNoClient
	}
	if !kindPattern.MatchString(t.Kind) {
		return errBadKind
	}
	env := envelope{
		Kind:        t.Kind,
		Key:         t.IdempotencyKey,
		Payload:     t.Payload,
		MaxAttempts: firstPositive(t.MaxAttempts, e.MaxAttempts, defaultMaxAttempts),
		DueAt:       time.Now().Add(t.Delay).UnixNano(),
	}
	ks := keysFor(e.Prefix, t.Kind)
	if env.Key != "" {
		ttl := e.DedupTTL
		if ttl <= 0 {
			ttl = defaultDedupTTL
		}
		fresh, err := e.R.SetNX(ctx, ks.dedup(env.Key), "1", ttl).Result()
		if err != nil {
			return fmt.Errorf("queue: reserve %s: %w", env.Key, err)
		}
		if !fresh {
			return nil
		}
	}
	if err := schedule(ctx, e.R, ks.ready, env); err != nil {
		return err
	}
	readyTasks.WithLabelValues(t.Kind).Inc()
	return nil
}

// DeadLetter is a task that exhausted its attempts.
type DeadLetter struct {
	Kind      string `json:"kind"`
	Key       string `json:"key,omitempty"`
	Payload   []byte `json:"payload"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"lastError,omitempty"`
}

// DeadLetters lists up to limit parked tasks of kind, newest first.
func DeadLetters(ctx context.Context, r redis.Cmdable, prefix, kind string, limit int64) ([]DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.LRange(ctx, keysFor(prefix, kind).dead, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadLetter, 0, len(rows))
	for _, raw := range rows {
		env, err := decodeEnvelope(raw)
		if err != nil {
			continue
		}
		out = append(out, DeadLetter{Kind: env.Kind, Key: env.Key, Payload: env.Payload, Attempts: env.Attempts, LastError: env.LastError})
	}
	return out, nil
}

// envelope is the stored form of a task. Attempts counts deliveries that
// already ran, so the next delivery is Attempts+1.
type envelope struct {
	Kind        string `json:"kind"`
	Key         string `json:"key,omitempty"`
	Payload     []byte `json:"payload"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	DueAt       int64  `json:"due_at"`
	LastError   string `json:"last_error,omitempty"`
}

func (e envelope) exhausted() bool {
	return e.MaxAttempts > 0 && e.Attempts >= e.MaxAttempts
}

func decodeEnvelope(raw string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return envelope{}, fmt.Errorf("queue: decode task: %w", err)
	}
	return env, nil
}

func schedule(ctx context.Context, r redis.Cmdable, ready string, env envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := r.ZAdd(ctx, ready, redis.Z{Score: float64(env.DueAt), Member: string(raw)}).Err(); err != nil {
		return fmt.Errorf("queue: schedule %s: %w", env.Kind, err)
	}
	return nil
}

// taskKeys names the Redis keys of one task kind:
// {prefix}:queue:{kind}:ready|inflight|dead|dedup:{key}.
type taskKeys struct {
	ready    string
	inflight string
	dead     string
	base     string
}

func keysFor(prefix, kind string) taskKeys {
	base := "queue:" + kind
	if prefix != "" {
		base = prefix + ":" + base
	}
	return taskKeys{
		ready:    base + ":ready",
		inflight: base + ":inflight",
		dead:     base + ":dead",
		base:     base,
	}
}

func (k taskKeys) dedup(key string) string {
	return k.base + ":dedup:" + key
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
