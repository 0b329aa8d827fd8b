package common

import "context"

// Caller is the identity the gateway attached to a request.
type Caller struct {
	UserID string
	Role   string
}

type callerKey struct{}

// WithCaller stores c on ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller stored on ctx, or the zero Caller.
func CallerFrom(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}

// UserID returns the caller's user id. Anonymous requests report false.
func UserID(ctx context.Context) (string, bool) {
	id := CallerFrom(ctx).UserID
	return id, id != ""
}
