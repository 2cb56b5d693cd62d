// Package cache provides the byte caches used to keep taxonomy query results
// between runs.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [MemoryCache]: bounded in-process LRU (HTTP server default)
//   - [RedisCache]: shared cache for several server instances
//   - [MongoCache]: shared cache with a TTL index doing expiry
//   - [NullCache]: caching disabled
//
// All backends are safe for concurrent use. Keys are produced by a [Keyer]
// so that callers never build cache keys by hand.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Default time-to-live values. Taxonomy data only changes when the database
// is repopulated, so entries live long.
const (
	TTLLineage = 7 * 24 * time.Hour
	TTLSubtree = 24 * time.Hour
	TTLTerm    = 7 * 24 * time.Hour
)

// Cache stores opaque byte values under string keys.
//
// Get returns hit=false and a nil error on a miss; errors are reserved for
// backend failures. A ttl of 0 means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// GetJSON reads key and decodes it into v. It returns [ErrCacheMiss] on a
// miss or when the stored value does not decode.
func GetJSON(ctx context.Context, c Cache, key string, v any) error {
	data, hit, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if !hit {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(ctx, key)
		return ErrCacheMiss
	}
	return nil
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return c.Set(ctx, key, data, ttl)
}
