package chash

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Loader computes the value for a key that LoadingMap does not yet hold.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// LoadingMap wraps a Map with a Loader, generalizing spec.md §8 scenario
// S5 ("concurrent ComputeIfAbsent calls for the same absent key converge
// on a single fn invocation") to loads that can fail and that benefit from
// deduplicating concurrent misses across goroutines, not just within one
// bin's lock. A singleflight.Group is keyed separately from the map's own
// bin locks because a Loader may block on I/O far longer than holding a
// bin lock should ever take.
type LoadingMap[K comparable, V any] struct {
	m      *Map[K, V]
	load   Loader[K, V]
	flight singleflight.Group
}

// NewLoadingMap builds a LoadingMap backed by m, using load to fill misses.
func NewLoadingMap[K comparable, V any](m *Map[K, V], load Loader[K, V]) *LoadingMap[K, V] {
	return &LoadingMap[K, V]{m: m, load: load}
}

// Get returns key's value, loading it via Loader on a miss. Concurrent
// Get calls for the same missing key share a single Loader invocation.
func (l *LoadingMap[K, V]) Get(ctx context.Context, key K) (V, error) {
	if v, ok := l.m.Get(key); ok {
		return v, nil
	}

	flightKey := l.flightKey(key)
	v, err, _ := l.flight.Do(flightKey, func() (any, error) {
		if v, ok := l.m.Get(key); ok {
			return v, nil
		}
		loaded, err := l.load(ctx, key)
		if err != nil {
			return nil, err
		}
		l.m.PutIfAbsent(key, loaded)
		actual, _ := l.m.Get(key)
		return actual, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Invalidate removes key, so the next Get reloads it.
func (l *LoadingMap[K, V]) Invalidate(key K) {
	l.m.Remove(key)
}

// Underlying exposes the backing Map for operations LoadingMap doesn't
// wrap (Put, Remove, bulk traversal, and so on).
func (l *LoadingMap[K, V]) Underlying() *Map[K, V] {
	return l.m
}

// flightKey renders key to a string for singleflight.Group, which keys on
// string rather than an arbitrary comparable. %v is adequate here since
// collisions only cost a little deduplication efficiency, never
// correctness (a colliding flightKey just means two distinct keys
// temporarily share one in-flight load slot).
func (l *LoadingMap[K, V]) flightKey(key K) string {
	return fmt.Sprintf("%v", key)
}
