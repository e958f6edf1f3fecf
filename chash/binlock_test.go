// Copyright 2019 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package chash

import (
	"testing"
	"time"

	"github.com/tilinna/clock"
)

// TestBinLockSpinsThenParksOnMockClock drives lockAs's spin phase with a
// clock.Mock instead of wall time: the spin loop can only fall through to
// the park branch once the mock clock crosses the deadline computed from
// spinBudget, so advancing it past that point is what proves the clock is
// actually being consulted rather than a hidden iteration count.
func TestBinLockSpinsThenParksOnMockClock(t *testing.T) {
	if spinBudget == 0 {
		t.Skip("spinBudget is 0 on single-CPU GOMAXPROCS, spin phase never runs")
	}

	mock := clock.NewMock(time.Unix(0, 0))
	var b binLock
	b.state.Store(lockHeld) // simulate another goroutine already holding it

	done := make(chan struct{})
	go func() {
		b.lockAs(42, mock)
		close(done)
	}()

	// Give the spinning goroutine a chance to enter its spin loop and
	// observe the pre-advance deadline before we move the clock.
	deadlineCrossed := mock.Now().Add(spinBudget + time.Microsecond)
	time.Sleep(10 * time.Millisecond)
	mock.Set(deadlineCrossed)

	// The spin loop must now observe clk.Now() past its deadline and fall
	// through to the park branch, registering lockWaiting since state is
	// still lockHeld.
	waitingSeen := false
	for i := 0; i < 10000; i++ {
		if b.state.Load() == lockWaiting {
			waitingSeen = true
			break
		}
		select {
		case <-done:
			t.Fatal("lockAs returned without the lock ever being released")
		default:
		}
		time.Sleep(time.Microsecond)
	}
	if !waitingSeen {
		t.Fatal("lockAs never parked after the mock clock crossed its spin deadline")
	}

	b.unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lockAs did not return after unlock")
	}
	if owner := b.ownerGID.Load(); owner != 42 {
		t.Fatalf("ownerGID: got %d, want 42", owner)
	}
}

// TestBinLockUncontendedIgnoresClock exercises the fast CAS path, which
// must succeed without ever calling clk.Now() — passing a nil Clock here
// would panic if lockAs touched it before checking the uncontended case.
func TestBinLockUncontendedIgnoresClock(t *testing.T) {
	var b binLock
	b.lockAs(7, nil)
	if owner := b.ownerGID.Load(); owner != 7 {
		t.Fatalf("ownerGID: got %d, want 7", owner)
	}
	b.unlock()
	if b.state.Load() != lockUnlocked {
		t.Fatal("state not unlocked after unlock")
	}
}
