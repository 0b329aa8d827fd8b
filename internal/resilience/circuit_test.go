package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(target string, minRequests int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	b := NewBreaker(BreakerConfig{Target: target, MinRequests: minRequests, FailureRatio: 0.5, OpenFor: time.Minute})
	b.now = clock.now
	return b, clock
}

func TestBreakerOpensAndRecoversThroughOneTrial(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBreaker("advisor-recover", 2)

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, Closed, b.State(), "one failure is below the minimum sample")
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(ctx))

	clock.advance(time.Minute)
	require.True(t, b.Allow(ctx))
	require.Equal(t, HalfOpen, b.State())
	require.False(t, b.Allow(ctx), "only one trial while half-open")

	b.Report(ctx, true)
	require.Equal(t, Closed, b.State())
	require.True(t, b.Allow(ctx))

	require.Equal(t, 1.0, testutil.ToFloat64(breakerTransitions.WithLabelValues("advisor-recover", "closed", "open")))
	require.Equal(t, 1.0, testutil.ToFloat64(breakerTransitions.WithLabelValues("advisor-recover", "open", "half_open")))
	require.Equal(t, 1.0, testutil.ToFloat64(breakerTransitions.WithLabelValues("advisor-recover", "half_open", "closed")))
	require.Equal(t, 0.0, testutil.ToFloat64(breakerState.WithLabelValues("advisor-recover")))
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBreaker("advisor-reopen", 1)

	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	clock.advance(time.Minute)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(ctx))
	require.Equal(t, 1.0, testutil.ToFloat64(breakerState.WithLabelValues("advisor-reopen")))
}

func TestBreakerStaysClosedBelowFailureRatio(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker("advisor-healthy", 4)
	for _, ok := range []bool{true, true, false, true, true, false, true} {
		require.True(t, b.Allow(ctx))
		b.Report(ctx, ok)
	}
	require.Equal(t, Closed, b.State())
}

func TestNilBreakerNeverTrips(t *testing.T) {
	ctx := context.Background()
	var b *Breaker
	for range 5 {
		require.True(t, b.Allow(ctx))
		b.Report(ctx, false)
	}
	require.Equal(t, Closed, b.State())
}

func TestBackoffDoublesPerAttempt(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, Backoff(base, 1, 0))
	require.Equal(t, base*4, Backoff(base, 3, 0))
	require.Equal(t, 100*time.Millisecond, Backoff(0, 0, 0))

	d := Backoff(base, 2, 0.2)
	require.GreaterOrEqual(t, d, 160*time.Millisecond)
	require.LessOrEqual(t, d, 240*time.Millisecond)
}
