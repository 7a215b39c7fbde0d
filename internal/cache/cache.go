// Package cache holds short-lived copies of upstream data, keyed by string.
package cache

import (
	"context"
	"time"
)

// Cache stores string values with an optional expiry. A zero ttl means the
// entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}
