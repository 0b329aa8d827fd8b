package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mayorista/internal/lock"
)

func newLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, Prefix: "test", RetryBackoff: 2 * time.Millisecond}, mr
}

func TestWithLockNeverOverlapsHolders(t *testing.T) {
	locker, _ := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var inside, overlaps, lines atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(ctx, "session:s1", time.Second, func(context.Context) error {
				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				n := lines.Load()
				time.Sleep(time.Millisecond)
				lines.Store(n + 1)
				inside.Add(-1)
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Zero(t, overlaps.Load())
	require.Equal(t, int32(10), lines.Load())
}

func TestWithLockReleasesOnError(t *testing.T) {
	locker, mr := newLocker(t)
	boom := errors.New("boom")
	err := locker.WithLock(context.Background(), "session:s1", time.Second, func(context.Context) error {
		require.True(t, mr.Exists("test:lock:session:s1"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("test:lock:session:s1"))
}

func TestWithLockGivesUpWhenContextEnds(t *testing.T) {
	locker, mr := newLocker(t)
	require.NoError(t, mr.Set("test:lock:session:s1", "other-holder"))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	called := false
	err := locker.WithLock(ctx, "session:s1", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, called)
	got, err := mr.Get("test:lock:session:s1")
	require.NoError(t, err)
	require.Equal(t, "other-holder", got)
}

func TestExpiredHolderDoesNotReleaseSuccessor(t *testing.T) {
	locker, mr := newLocker(t)
	err := locker.WithLock(context.Background(), "session:s1", 100*time.Millisecond, func(context.Context) error {
		mr.FastForward(150 * time.Millisecond)
		require.False(t, mr.Exists("test:lock:session:s1"))
		return mr.Set("test:lock:session:s1", "successor")
	})
	require.NoError(t, err)
	got, err := mr.Get("test:lock:session:s1")
	require.NoError(t, err)
	require.Equal(t, "successor", got)
}
