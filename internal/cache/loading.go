package cache

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loading is a read-through LRU cache. Concurrent misses for the same key
// share one load, and a load that overlaps an Invalidate is not stored.
type Loading[T any] struct {
	lru   *LRUCache[T]
	ttl   time.Duration
	group singleflight.Group
	epoch atomic.Uint64

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLoading returns a read-through cache. ttl <= 0 disables caching and
// every Get calls the loader.
func NewLoading[T any](maxSize int, ttl time.Duration) *Loading[T] {
	return &Loading[T]{lru: NewLRUCache[T](maxSize, ttl), ttl: ttl}
}

func (l *Loading[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if l.ttl <= 0 {
		return load(ctx)
	}
	if v, ok := l.lru.Get(key); ok {
		l.hits.Add(1)
		return v, nil
	}
	l.misses.Add(1)

	epoch := l.epoch.Load()
	v, err, _ := l.group.Do(strconv.FormatUint(epoch, 10)+"|"+key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if l.epoch.Load() == epoch {
			l.lru.Set(key, v)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops every entry under prefix and discards in-flight loads.
func (l *Loading[T]) Invalidate(prefix string) {
	l.epoch.Add(1)
	l.lru.DeletePrefix(prefix)
}

func (l *Loading[T]) CleanExpired() int { return l.lru.CleanExpired() }

// Stats reports hit and miss counts since creation.
func (l *Loading[T]) Stats() (hits, misses int64) {
	return l.hits.Load(), l.misses.Load()
}
