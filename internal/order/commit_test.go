package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelayedWaitsThenDelegates(t *testing.T) {
	var got Order
	next := CommitFunc(func(_ context.Context, o Order) (Order, error) {
		got = o
		o.Status = StatusPreparing
		return o, nil
	})
	d := Delayed{Next: next, Latency: 20 * time.Millisecond}

	start := time.Now()
	out, err := d.Commit(context.Background(), Order{ID: "PED-1"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	require.Equal(t, "PED-1", got.ID)
	require.Equal(t, StatusPreparing, out.Status)
}

func TestDelayedHonoursCancellation(t *testing.T) {
	called := false
	d := Delayed{Latency: time.Second, Next: CommitFunc(func(_ context.Context, o Order) (Order, error) {
		called = true
		return o, nil
	})}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := d.Commit(ctx, Order{ID: "PED-2"})
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.False(t, called)
}

func TestDelayedWithoutNextEchoes(t *testing.T) {
	out, err := Delayed{}.Commit(context.Background(), Order{ID: "PED-3"})
	require.NoError(t, err)
	require.Equal(t, "PED-3", out.ID)
}

func TestAssignSeller(t *testing.T) {
	c := AssignSeller("u-9", nil)
	out, err := c.Commit(context.Background(), Order{SellerID: SellerPending})
	require.NoError(t, err)
	require.Equal(t, "u-9", out.SellerID)

	out, err = c.Commit(context.Background(), Order{SellerID: "u-1"})
	require.NoError(t, err)
	require.Equal(t, "u-1", out.SellerID)

	out, err = AssignSeller("", nil).Commit(context.Background(), Order{SellerID: SellerPending})
	require.NoError(t, err)
	require.Equal(t, SellerPending, out.SellerID)
}
