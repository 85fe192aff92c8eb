// Package cache provides a TTL key-value store used to memoize expensive
// registry lookups. The store is pluggable: an in-process map, a SQLite
// file, or Postgres. The cache is an optimization, never a correctness
// mechanism — callers must tolerate misses and store failures.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Store is a TTL key-value store. Values are opaque bytes; expiry is passive
// (checked on read), not actively swept.
type Store interface {
	// Get returns the value for key, or found=false on a miss or after the
	// entry's TTL has elapsed.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key for ttl. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key if present.
	Delete(ctx context.Context, key string) error

	// Ping reports backing-store reachability for readiness checks.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error
}

// Key builds a deterministic cache key from a logical query: same query,
// same key. Long keys are hashed to keep backends happy.
func Key(parts ...string) string {
	joined := strings.Join(parts, ":")
	if len(joined) <= 200 {
		return joined
	}
	sum := sha256.Sum256([]byte(joined))
	return parts[0] + ":" + hex.EncodeToString(sum[:])
}
