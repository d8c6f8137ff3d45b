package executor

import "context"

// CallContext is the read-only data shared by every operation of one chat call
type CallContext struct {
	UserEmail string
	RequestID string
}

type callContextKey struct{}

// WithCallContext attaches cc to ctx
func WithCallContext(ctx context.Context, cc CallContext) context.Context {
	return context.WithValue(ctx, callContextKey{}, cc)
}

// CallContextFrom returns the call context attached to ctx, or the zero value
func CallContextFrom(ctx context.Context) CallContext {
	cc, _ := ctx.Value(callContextKey{}).(CallContext)
	return cc
}
