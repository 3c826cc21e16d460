package otel

import "context"

type runIDKey struct{}

// WithRunID tags ctx with the aggregation run it belongs to, so events
// emitted deep in the fetch path can be attributed to the run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run ID carried by ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
