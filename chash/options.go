package chash

import "github.com/tilinna/clock"

const (
	defaultInitialCapacity  = 16
	defaultLoadFactor       = 0.75
	defaultConcurrencyLevel = 1

	// treeThreshold is the minimum list-bin length that makes conversion
	// to a tree bin worth considering (§4.4).
	treeThreshold = 8
	// untreeifyThreshold is the bin length a tree bin must fall to or
	// below, during a resize split, before it is converted back to a
	// plain list (§4.6).
	untreeifyThreshold = 6
	// minTreeifyTableLen is the smallest table length at which treeify is
	// even considered; below it, growing the table is preferred (spec
	// §9 Open Questions: "prefer resize to tree conversion for small
	// tables (< 64)").
	minTreeifyTableLen = 64
	// maxTableLen bounds table growth (§7 "table cannot grow beyond 1<<30").
	maxTableLen = 1 << 30
)

// config collects the options table from spec.md §6.
type config[K comparable, V any] struct {
	initialCapacity  int
	loadFactor       float64
	concurrencyLevel int
	less             func(a, b K) bool
	clk              clock.Clock
	parallelism      int
}

func newConfig[K comparable, V any]() *config[K, V] {
	return &config[K, V]{
		initialCapacity:  defaultInitialCapacity,
		loadFactor:       defaultLoadFactor,
		concurrencyLevel: defaultConcurrencyLevel,
		clk:              clock.Realtime(),
		parallelism:      4,
	}
}

// Option configures a Map at construction time.
type Option[K comparable, V any] func(*config[K, V])

// WithInitialCapacity sets a sizing hint; the initial table is rounded up
// to a power of two >= initialCapacity*1.5+1, defaulting to 16.
func WithInitialCapacity[K comparable, V any](n int) Option[K, V] {
	return func(c *config[K, V]) { c.initialCapacity = n }
}

// WithLoadFactor records a density in the config. initialTableSize does not
// read it, so the initial table size is the same whatever value is given,
// and the runtime resize threshold stays fixed at 0.75.
func WithLoadFactor[K comparable, V any](f float64) Option[K, V] {
	return func(c *config[K, V]) { c.loadFactor = f }
}

// WithConcurrencyLevel sets a lower-bound hint for initial capacity.
func WithConcurrencyLevel[K comparable, V any](n int) Option[K, V] {
	return func(c *config[K, V]) { c.concurrencyLevel = n }
}

// WithLess supplies a total order over K, enabling tree bins to bound
// search at O(log n) instead of falling back to dual-subtree search on
// hash collisions (§4.4, §4.5).
func WithLess[K comparable, V any](less func(a, b K) bool) Option[K, V] {
	return func(c *config[K, V]) { c.less = less }
}

// WithClock injects a clock.Clock used by the bin-head lock's bounded spin
// accounting, enabling deterministic tests of the spin/park fallback.
func WithClock[K comparable, V any](clk clock.Clock) Option[K, V] {
	return func(c *config[K, V]) { c.clk = clk }
}

// WithParallelism sets the fan-out width for bulk forEach/search/reduce
// (component H), in lieu of the external executor spec.md §6 calls out as
// an out-of-scope collaborator.
func WithParallelism[K comparable, V any](n int) Option[K, V] {
	return func(c *config[K, V]) { c.parallelism = n }
}

func (c *config[K, V]) initialTableSize() int {
	capHint := c.initialCapacity
	if c.concurrencyLevel > capHint {
		capHint = c.concurrencyLevel
	}
	threshold := float64(capHint)*1.5 + 1
	return tableSizeFor(int(threshold))
}
