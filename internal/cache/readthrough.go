package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// ReadThrough serves values from an LRU and loads misses once per key even
// under concurrent requests. A nil *ReadThrough or one built with a zero TTL
// always calls the loader.
type ReadThrough[T any] struct {
	lru   *LRUCache[T]
	group singleflight.Group
}

func NewReadThrough[T any](maxSize int, ttl time.Duration) *ReadThrough[T] {
	if ttl <= 0 || maxSize <= 0 {
		return &ReadThrough[T]{}
	}
	return &ReadThrough[T]{lru: NewLRUCache[T](maxSize, ttl)}
}

// Get returns the cached value for key or stores the result of load.
// Loader errors are returned and never cached.
func (r *ReadThrough[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if r == nil || r.lru == nil {
		return load(ctx)
	}
	if v, ok := r.lru.Get(key); ok {
		return v, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if v, ok := r.lru.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		r.lru.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// CleanExpired implements Cleaner
func (r *ReadThrough[T]) CleanExpired() int {
	if r == nil || r.lru == nil {
		return 0
	}
	return r.lru.CleanExpired()
}

// Enabled reports whether values are cached at all.
func (r *ReadThrough[T]) Enabled() bool {
	return r != nil && r.lru != nil
}
