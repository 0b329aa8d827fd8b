package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window and records the call
// only when the window still has room, so refused calls do not extend a
// caller's lockout. It returns {allowed, count, oldest score in ms}.
var slidingWindow = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < tonumber(ARGV[4]) then
	redis.call('ZADD', KEYS[1], ARGV[1], ARGV[5])
	count = count + 1
	allowed = 1
end
redis.call('PEXPIRE', KEYS[1], ARGV[3])
local oldest = redis.call('ZRANGE', KEYS[1], '0', '0', 'WITHSCORES')
local first = ARGV[1]
if #oldest == 2 then
	first = oldest[2]
end
return {allowed, count, tonumber(first)}
`)

// Limiter is a sliding window limiter over a Redis sorted set per key.
type Limiter struct {
	Client redis.Cmdable
	Prefix string
	Now    func() time.Time
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// Reset is when the oldest call in the window ages out.
	Reset time.Time
}

// Allow records a call for key when fewer than limit calls happened in the
// trailing window. A limiter without a client, or with a non-positive limit or
// window, allows everything.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, limit int) (Decision, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if l.Client == nil || limit <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: limit, Reset: now.Add(window)}, nil
	}
	nowMs := now.UnixMilli()
	res, err := slidingWindow.Run(ctx, l.Client, []string{l.Prefix + key},
		nowMs,
		nowMs-window.Milliseconds(),
		window.Milliseconds(),
		limit,
		strconv.FormatInt(nowMs, 10)+"-"+uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	return Decision{
		Allowed:   res[0] == 1,
		Remaining: max(0, limit-int(res[1])),
		Reset:     time.UnixMilli(res[2]).Add(window),
	}, nil
}
