package chash

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"golang.org/x/sync/errgroup"
)

// leafFactor bounds how many (roughly equal) slices a parallel bulk
// operation divides the table into, relative to the configured
// parallelism: component H (§4.9) splits more finely than the goroutine
// count so that a slow goroutine's slice doesn't stall the whole
// operation as badly as one-slice-per-goroutine would.
const leafFactor = 8

// ForEachKey invokes fn for every key currently in the map, fanning the
// table out across m's configured parallelism (§4.9). fn may be called
// concurrently from multiple goroutines and must be safe for that.
func (m *Map[K, V]) ForEachKey(ctx context.Context, fn func(K)) error {
	return m.forEach(ctx, func(k K, _ V) { fn(k) })
}

// ForEachValue invokes fn for every value currently in the map.
func (m *Map[K, V]) ForEachValue(ctx context.Context, fn func(V)) error {
	return m.forEach(ctx, func(_ K, v V) { fn(v) })
}

// ForEachEntry invokes fn for every (key, value) pair currently in the map.
func (m *Map[K, V]) ForEachEntry(ctx context.Context, fn func(K, V)) error {
	return m.forEach(ctx, fn)
}

func (m *Map[K, V]) forEach(ctx context.Context, fn func(K, V)) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "chash.ForEach")
	defer span.Finish()

	leaves := m.splitCursor(m.leafCount())
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range leaves {
		c := c
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				k, v, ok := c.Next()
				if !ok {
					return nil
				}
				fn(k, v)
			}
		})
	}
	return g.Wait()
}

// Search runs pred concurrently over the map's entries and returns the
// first match any goroutine finds, short-circuiting the others (§4.9).
// "First" is with respect to discovery order under concurrency, not table
// order: which goroutine wins a race is unspecified.
func (m *Map[K, V]) Search(ctx context.Context, pred func(K, V) bool) (key K, value V, found bool) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "chash.Search")
	defer span.Finish()

	type result[K comparable, V any] struct {
		key   K
		value V
	}

	leaves := m.splitCursor(m.leafCount())
	g, ctx := errgroup.WithContext(ctx)
	results := make(chan result[K, V], 1)

	for _, c := range leaves {
		c := c
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}
				k, v, ok := c.Next()
				if !ok {
					return nil
				}
				if pred(k, v) {
					select {
					case results <- result[K, V]{key: k, value: v}:
					default:
					}
					return errSearchFound
				}
			}
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	<-done

	select {
	case r := <-results:
		return r.key, r.value, true
	default:
		var zeroK K
		var zeroV V
		return zeroK, zeroV, false
	}
}

// Reduce folds every (key, value) pair into a single result: transform
// maps an entry to a partial value, combine merges two partials, and zero
// is combine's identity element, matching the map/combine shape of §4.9's
// reduce operations. combine must be associative and commutative, since
// partials from different goroutines are combined in an unspecified order.
func (m *Map[K, V]) Reduce(ctx context.Context, zero any, transform func(K, V) any, combine func(a, b any) any) (any, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "chash.Reduce")
	defer span.Finish()

	leaves := m.splitCursor(m.leafCount())
	partials := make([]any, len(leaves))
	g, ctx := errgroup.WithContext(ctx)
	for idx, c := range leaves {
		idx, c := idx, c
		g.Go(func() error {
			acc := zero
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				k, v, ok := c.Next()
				if !ok {
					break
				}
				acc = combine(acc, transform(k, v))
			}
			partials[idx] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	acc := zero
	for _, p := range partials {
		acc = combine(acc, p)
	}
	return acc, nil
}

// errSearchFound is an internal sentinel errgroup.Group uses to cancel
// sibling goroutines once one of them finds a match; it is never returned
// to callers (Search swallows it).
var errSearchFound = errSearchFoundType{}

type errSearchFoundType struct{}

func (errSearchFoundType) Error() string { return "chash: search matched, stopping siblings" }

// leafCount returns how many ways to split the table for a bulk operation,
// derived from the configured parallelism (§6 WithParallelism).
func (m *Map[K, V]) leafCount() int {
	n := m.cfg.parallelism * leafFactor
	if n < 1 {
		n = 1
	}
	if tl := m.table().length(); n > tl {
		n = tl
	}
	return n
}

// splitCursor divides a fresh whole-map Cursor into up to n leaves via
// repeated Split calls, stopping early if the range gets too small to
// divide further.
func (m *Map[K, V]) splitCursor(n int) []*Cursor[K, V] {
	leaves := []*Cursor[K, V]{m.NewCursor()}
	for len(leaves) < n {
		grew := false
		next := make([]*Cursor[K, V], 0, len(leaves)*2)
		for _, c := range leaves {
			half, err := c.Split()
			if err != nil {
				m.logger.Warn("bulk split failed", "err", err)
				next = append(next, c)
				continue
			}
			if half == nil {
				next = append(next, c)
				continue
			}
			next = append(next, c, half)
			grew = true
		}
		leaves = next
		if !grew {
			break
		}
	}
	return leaves
}
