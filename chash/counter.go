package chash

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/holisticode/chashmap/metrics"
)

// counterCell is one shard of the striped counter (§4.7), padded to its own
// cache line so independent goroutines updating different cells don't
// thrash each other's cache line (false sharing).
type counterCell struct {
	v atomic.Int64
	_ [56]byte // pad struct to 64 bytes alongside the 8-byte atomic.Int64
}

// stripedCounter is a sharded additive counter (component A): size() and
// isEmpty() read base+sum(cells), an approximation that is never off by
// more than the in-flight updates at the moment of the read (§8 property 4,
// invariant 5).
type stripedCounter struct {
	base  atomic.Int64
	cells atomic.Pointer[[]*counterCell]
	mu    sync.Mutex // guards growth of the cells slice only
}

// seedPool hands out a small per-call pseudo-random state. Go has no public
// per-goroutine local storage (unlike the thread-local random the source
// uses to pick a cell), so this approximates "mostly-sticky-per-thread"
// indexing with a pooled xorshift generator: sync.Pool tends to return the
// same item to the same P repeatedly, which is as close to thread-affinity
// as is practical without runtime internals.
var seedPool = sync.Pool{
	New: func() any {
		s := uint64(0x9E3779B97F4A7C15)
		return &s
	},
}

func nextCellIndex(n int) int {
	sp := seedPool.Get().(*uint64)
	x := *sp
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	*sp = x
	seedPool.Put(sp)
	if n <= 1 {
		return 0
	}
	return int(x % uint64(n))
}

func maxCells() int {
	n := runtime.GOMAXPROCS(0)
	return tableSizeFor(n)
}

// add applies delta to the counter, striping across cells on contention.
func (c *stripedCounter) add(delta int64) {
	cellsPtr := c.cells.Load()
	if cellsPtr == nil {
		old := c.base.Load()
		if c.base.CompareAndSwap(old, old+delta) {
			return
		}
		c.growCells(2)
		cellsPtr = c.cells.Load()
	}

	cells := *cellsPtr
	idx := nextCellIndex(len(cells))
	for attempts := 0; ; attempts++ {
		cell := cells[idx]
		old := cell.v.Load()
		if cell.v.CompareAndSwap(old, old+delta) {
			return
		}
		if attempts > 1 && len(cells) < maxCells() {
			c.growCells(len(cells) * 2)
			cellsPtr = c.cells.Load()
			cells = *cellsPtr
		}
		idx = nextCellIndex(len(cells))
	}
}

func (c *stripedCounter) growCells(want int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.cells.Load()
	if cur != nil && len(*cur) >= want {
		return
	}
	n := want
	if n < 2 {
		n = 2
	}
	if n > maxCells() {
		n = maxCells()
	}
	fresh := make([]*counterCell, n)
	if cur != nil {
		copy(fresh, *cur)
	}
	for i := range fresh {
		if fresh[i] == nil {
			fresh[i] = &counterCell{}
		}
	}
	c.cells.Store(&fresh)
	metrics.CounterCellGrowth.Inc(1)
}

// sum returns base plus every cell's current value (§4.7). It is
// approximate under concurrent writers by design.
func (c *stripedCounter) sum() int64 {
	s := c.base.Load()
	if cellsPtr := c.cells.Load(); cellsPtr != nil {
		for _, cell := range *cellsPtr {
			s += cell.v.Load()
		}
	}
	return s
}
