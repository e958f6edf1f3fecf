package chash

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/tilinna/clock"

	"github.com/holisticode/chashmap/metrics"
)

// Lock states for a bin-head node (§4.2). Spec packs these into the hash
// word's top two bits; here they live in their own atomic word per node
// (see node.go's doc comment and spec §9).
const (
	lockUnlocked uint32 = 0 // 00
	lockHeld     uint32 = 1 // 01
	lockWaiting  uint32 = 2 // 11 ("locked and at least one waiter")
)

// spinBudget bounds how long a contender busy-waits for the lock, measured
// against the Map's configured clock (WithClock), before falling back to
// the WAITING + park protocol. Spec §4.2 calls for "roughly one cache-line
// worth of attempts on multi-CPU, zero on single CPU"; most bins hold 0-1
// entries so contention, and hence parking, is rare in practice. Measuring
// by clock time rather than a fixed iteration count lets tests inject a
// clock.Mock and deterministically exercise both the spin and the park arm
// of lockAs without depending on real scheduling timing.
var spinBudget = func() time.Duration {
	if runtime.GOMAXPROCS(0) <= 1 {
		return 0
	}
	return 50 * time.Microsecond
}()

// binLock is the per-bin-head lock described in §4.2: a bounded spin, then
// a CAS to the WAITING state and a park on a lazily created channel that
// the unlocking owner closes to broadcast-wake every parked contender.
type binLock struct {
	state atomic.Uint32
	ch    atomic.Pointer[chan struct{}]

	// ownerGID is a best-effort reentrancy guard only (§4.3, §6): it is
	// set to the acquiring goroutine's id while the lock is held and
	// checked by the compute/merge call paths, which call lockAs/owns
	// instead of plain lock(), to fail loudly instead of deadlocking
	// against self-recursion.
	ownerGID atomic.Uint64
}

// owns reports whether gid currently holds this lock. Used only for the
// reentrancy check; 0 means "unknown/not tracked" and never matches.
func (b *binLock) owns(gid uint64) bool {
	return gid != 0 && b.state.Load() != lockUnlocked && b.ownerGID.Load() == gid
}

func (b *binLock) waitChan() chan struct{} {
	if p := b.ch.Load(); p != nil {
		return *p
	}
	nc := make(chan struct{})
	if b.ch.CompareAndSwap(nil, &nc) {
		return nc
	}
	return *b.ch.Load()
}

// lock acquires the bin-head lock, spinning briefly before parking. clk
// bounds the spin (see spinBudget); pass the owning Map's cfg.clk.
func (b *binLock) lock(clk clock.Clock) {
	b.lockAs(0, clk)
}

// lockAs acquires the lock and records gid as the current holder, so a
// later call on the same goroutine can be recognized as reentrant via
// owns. Pass 0 when the caller doesn't need reentrancy tracking. clk
// bounds the spin phase; a Map always passes its own cfg.clk, defaulting to
// clock.Realtime() unless WithClock overrode it.
func (b *binLock) lockAs(gid uint64, clk clock.Clock) {
	if b.state.CompareAndSwap(lockUnlocked, lockHeld) {
		b.ownerGID.Store(gid)
		return
	}
	metrics.BinLockContended.Inc(1)
	if spinBudget > 0 {
		deadline := clk.Now().Add(spinBudget)
		for clk.Now().Before(deadline) {
			if b.state.Load() != lockHeld {
				if b.state.CompareAndSwap(lockUnlocked, lockHeld) {
					b.ownerGID.Store(gid)
					return
				}
			}
			runtime.Gosched()
		}
	}

	for {
		if b.state.CompareAndSwap(lockUnlocked, lockHeld) {
			b.ownerGID.Store(gid)
			return
		}
		ch := b.waitChan()
		// Mark that a waiter is parked so the owner knows to notify on
		// release. If the lock was released between our spin and here,
		// this CAS fails and we just retry from the top instead of parking.
		if !b.state.CompareAndSwap(lockHeld, lockWaiting) && b.state.Load() != lockWaiting {
			continue
		}
		metrics.BinLockParked.Inc(1)
		<-ch
	}
}

// unlock releases the bin-head lock. If a waiter registered itself (state
// WAITING), the channel is closed to wake every parked goroutine; plain
// unlock-from-HELD does not notify anyone, matching §4.2's rationale that
// spin cost is cheap relative to a wakeup.
func (b *binLock) unlock() {
	b.ownerGID.Store(0)
	for {
		switch b.state.Load() {
		case lockHeld:
			if b.state.CompareAndSwap(lockHeld, lockUnlocked) {
				return
			}
		default: // lockWaiting
			ch := b.waitChan()
			b.ch.Store(nil)
			b.state.Store(lockUnlocked)
			close(ch)
			return
		}
	}
}
