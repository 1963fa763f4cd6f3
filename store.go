package budgetgate

import "context"

// Limiter throttles login attempts per key, usually the client IP.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
	Close() error
}
