package order

import (
	"context"
	"time"
)

// Committer hands a built order to whatever records it and returns the order
// as recorded.
type Committer interface {
	Commit(ctx context.Context, o Order) (Order, error)
}

// CommitFunc adapts a function to Committer.
type CommitFunc func(ctx context.Context, o Order) (Order, error)

// Commit implements Committer.
func (f CommitFunc) Commit(ctx context.Context, o Order) (Order, error) {
	return f(ctx, o)
}

// Delayed waits Latency before delegating to Next. Cancelling ctx during the
// wait aborts the commit.
type Delayed struct {
	Next    Committer
	Latency time.Duration
}

// Commit implements Committer.
func (d Delayed) Commit(ctx context.Context, o Order) (Order, error) {
	if d.Latency > 0 {
		timer := time.NewTimer(d.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Order{}, ctx.Err()
		case <-timer.C:
		}
	}
	if d.Next == nil {
		return o, nil
	}
	return d.Next.Commit(ctx, o)
}

// AssignSeller stamps sellerID on orders that still carry the pending
// sentinel before passing them on.
func AssignSeller(sellerID string, next Committer) Committer {
	return CommitFunc(func(ctx context.Context, o Order) (Order, error) {
		if sellerID != "" && (o.SellerID == "" || o.SellerID == SellerPending) {
			o.SellerID = sellerID
		}
		if next == nil {
			return o, nil
		}
		return next.Commit(ctx, o)
	})
}
