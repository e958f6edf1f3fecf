package chash

import (
	"sync/atomic"

	"github.com/holisticode/chashmap/log"
	"github.com/holisticode/chashmap/metrics"
)

// sizeCtl sentinel values (§3 "Size-control word").
const sizeCtlInitializing int32 = -1

// Map is a concurrent hash table giving full concurrency for reads and
// high concurrency for writes (spec.md §1-§2). The zero value is not
// usable; build one with New.
type Map[K comparable, V any] struct {
	tbl     atomic.Pointer[table[K, V]]
	sizeCtl atomic.Int32
	counter stripedCounter

	hasher Hasher[K]
	cfg    *config[K, V]

	logger log.Logger
}

// New constructs a Map. hasher computes a raw hash for K; chash applies its
// own spread step on top (§4.1). See the package-level Option functions for
// construction knobs matching spec.md §6's option table.
func New[K comparable, V any](hasher Hasher[K], opts ...Option[K, V]) *Map[K, V] {
	cfg := newConfig[K, V]()
	for _, opt := range opts {
		opt(cfg)
	}
	m := &Map[K, V]{
		hasher: hasher,
		cfg:    cfg,
		logger: log.New("component", "chash"),
	}
	initLen := cfg.initialTableSize()
	m.tbl.Store(newTable[K, V](initLen))
	m.sizeCtl.Store(int32(float64(initLen) * 0.75))
	metrics.TableLength.Update(int64(initLen))
	return m
}

func (m *Map[K, V]) spreadHash(key K) uint32 {
	return spread(m.hasher(key))
}

// table returns the current table, lazily allocating it if this Map was
// constructed with a zero initial size (not reachable via New, but kept
// for parity with spec.md §3's "lazily allocated at first insertion").
func (m *Map[K, V]) table() *table[K, V] {
	if t := m.tbl.Load(); t != nil {
		return t
	}
	return m.initTable()
}

func (m *Map[K, V]) initTable() *table[K, V] {
	for {
		if t := m.tbl.Load(); t != nil {
			return t
		}
		sc := m.sizeCtl.Load()
		if sc < 0 {
			continue // another goroutine is initializing; spin-yield briefly
		}
		if m.sizeCtl.CompareAndSwap(sc, sizeCtlInitializing) {
			n := defaultInitialCapacity
			if sc > 0 {
				n = int(sc)
			}
			t := newTable[K, V](n)
			m.tbl.Store(t)
			m.sizeCtl.Store(int32(float64(n) * 0.75))
			return t
		}
	}
}

// Get returns the value mapped to key, wait-free in the absence of an
// in-flight resize/treeify and chasing at most one forward per resize
// generation otherwise (§5 Progress).
func (m *Map[K, V]) Get(key K) (V, bool) {
	requireNonNilKey(key)
	return m.lookup(m.spreadHash(key), key)
}

// ContainsKey reports whether key has a present (non-tombstoned) mapping.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// ContainsValue scans for a value using equal, since V need not be
// comparable. This necessarily walks the whole map and offers no atomicity
// guarantee against concurrent mutation (spec.md §1 Non-goals).
func (m *Map[K, V]) ContainsValue(target V, equal func(a, b V) bool) bool {
	requireNonNilValue(target)
	requireNonNilFunc(equal)
	found := false
	m.rangeAll(func(_ K, v V) bool {
		if equal(v, target) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Size returns the approximate number of mappings (component A). It may be
// stale relative to concurrent writers but is exact at any quiescent point
// (§8 properties 4-5). A count that does not fit in an int saturates at
// the largest int instead of overflowing (spec.md §6 error conditions).
func (m *Map[K, V]) Size() int {
	n := m.MappingCount()
	if maxInt := int64(^uint(0) >> 1); n > maxInt {
		return int(maxInt)
	}
	return int(n)
}

// MappingCount is Size's 64-bit counterpart. A transiently negative
// counter sum is reported as 0.
func (m *Map[K, V]) MappingCount() int64 {
	n := m.counter.sum()
	if n < 0 {
		return 0
	}
	return n
}

// IsEmpty is true iff the striped counter's sum is <= 0 (§4.7).
func (m *Map[K, V]) IsEmpty() bool {
	return m.counter.sum() <= 0
}

// Clear removes every mapping. It is not atomic with respect to concurrent
// writers (spec.md §1 Non-goals: no whole-map snapshot); a put racing with
// Clear may or may not survive it.
func (m *Map[K, V]) Clear() {
	t := m.table()
restart:
	for i := 0; i < t.length(); i++ {
		for {
			head := t.at(i)
			if head == nil {
				break
			}
			if head.kind == kindForward {
				t = head.forwardTable()
				goto restart
			}
			n := head.count()
			if head.kind == kindTreeBin {
				n = head.tree.count()
			}
			if t.casAt(i, head, nil) {
				m.counter.add(-int64(n))
				break
			}
		}
	}
}

func (m *Map[K, V]) rangeAll(fn func(K, V) bool) {
	c := m.NewCursor()
	for {
		k, v, ok := c.Next()
		if !ok {
			return
		}
		if !fn(k, v) {
			return
		}
	}
}
