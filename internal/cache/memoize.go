package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Memoizer wraps a Store with typed, single-flight memoization. Concurrent
// misses for the same key share one upstream computation per process; across
// processes last-write-wins, which is acceptable because the cache is only
// an optimization.
type Memoizer struct {
	store Store
	group singleflight.Group
}

// NewMemoizer creates a Memoizer over the given store.
func NewMemoizer(store Store) *Memoizer {
	return &Memoizer{store: store}
}

// Store exposes the underlying store (readiness checks, maintenance).
func (m *Memoizer) Store() Store { return m.store }

// Memoize returns the cached value for key, or runs compute, stores the
// result for ttl, and returns it. The key must be a deterministic function
// of the logical query. Store failures are logged and degrade to a direct
// computation; they never fail the request.
//
// Values round-trip through JSON. model types carry decimals as strings, so
// numeric precision survives the round trip.
func Memoize[T any](ctx context.Context, m *Memoizer, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if m == nil {
		return compute(ctx)
	}

	if data, found, err := m.store.Get(ctx, key); err != nil {
		zap.L().Warn("cache get failed, computing directly", zap.String("key", key), zap.Error(err))
	} else if found {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		zap.L().Warn("cache entry corrupt, recomputing", zap.String("key", key))
	}

	res, err, _ := m.group.Do(key, func() (any, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if data, merr := json.Marshal(v); merr == nil {
			if serr := m.store.Set(ctx, key, data, ttl); serr != nil {
				zap.L().Warn("cache set failed", zap.String("key", key), zap.Error(serr))
			}
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}
