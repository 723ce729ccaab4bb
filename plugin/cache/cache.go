// Package cache provides the generic key-value cache used for user
// preference vectors and anonymous search results.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL key-value cache. Values are opaque bytes; callers own the
// encoding.
type Cache interface {
	// Get retrieves a value. The second return is false on miss or expiry.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the given TTL. A non-positive TTL uses the
	// cache's default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// Invalidate removes all keys matching the pattern. A trailing *
	// matches any suffix (e.g. "uservector:42:*"). Returns the number of
	// entries removed.
	Invalidate(ctx context.Context, pattern string) (int, error)

	// Close releases background resources.
	Close() error
}
