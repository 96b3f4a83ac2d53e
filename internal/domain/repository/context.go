package repository

import "context"

type bestEffortKey struct{}

// WithBestEffort marks ctx so provider calls signal instead of blocking when
// the local rate limiter has no tokens. Background refreshes run this way so
// they never starve interactive callers waiting on the same bucket.
func WithBestEffort(ctx context.Context) context.Context {
	return context.WithValue(ctx, bestEffortKey{}, true)
}

// BestEffort reports whether ctx carries the best-effort marker.
func BestEffort(ctx context.Context) bool {
	v, _ := ctx.Value(bestEffortKey{}).(bool)
	return v
}
