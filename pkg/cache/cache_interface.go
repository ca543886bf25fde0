package cache

import (
	"context"
	"time"
)

// Cache is the key/value contract the callback store runs on.
// Values are JSON encoded by the implementation.
type Cache interface {
	// Get decodes the value at key into dest.
	// found=false on a miss, dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)

	// SetNX writes value with an expiry only if key is absent.
	// created=false means the key already existed and nothing was written.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (created bool, err error)

	// Update loads key into dest, calls fn and writes dest back atomically,
	// keeping the key's TTL. A miss returns found=false without calling fn.
	// An error from fn aborts the write and is returned as is.
	Update(ctx context.Context, key string, dest interface{}, fn func() error) (found bool, err error)

	Ping(ctx context.Context) error
}
