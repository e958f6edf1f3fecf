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
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestS2ConcurrentGetOrReplaceStaysConsistent is scenario S2: 1024
// pre-populated keys mapped to their squares, hammered by concurrent
// get-or-replace operations that set a key's value to k*k+1, must never end up
// outside {k*k, k*k+1} and must never change the map's size.
func TestS2ConcurrentGetOrReplaceStaysConsistent(t *testing.T) {
	const keys = 1024
	m := newIntMap()
	for k := 0; k < keys; k++ {
		m.Put(k, k*k)
	}

	const workers = 8
	const opsPerWorker = 10000
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < opsPerWorker; i++ {
				k := rnd.Intn(keys)
				cur, ok := m.Get(k)
				if !ok {
					t.Errorf("key %d unexpectedly absent", k)
					return
				}
				m.ReplaceExpected(k, cur, k*k+1, intEqual)
			}
		}(int64(w) + 1)
	}
	wg.Wait()

	if got := m.Size(); got != keys {
		t.Fatalf("size: got %d, want %d", got, keys)
	}
	for k := 0; k < keys; k++ {
		v, ok := m.Get(k)
		if !ok {
			t.Fatalf("key %d missing after concurrent run", k)
		}
		if v != k*k && v != k*k+1 {
			t.Fatalf("key %d: got %d, want %d or %d", k, v, k*k, k*k+1)
		}
	}
}

// TestS5ComputeIfAbsentRunsOnceUnderConcurrency is scenario S5: 100
// goroutines race ComputeIfAbsent on the same key against a slow loader;
// the loader must run exactly once, and every caller must observe the
// same resulting value.
func TestS5ComputeIfAbsentRunsOnceUnderConcurrency(t *testing.T) {
	m := newIntMap()

	var calls atomic.Int64
	const workers = 100
	results := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, _ := m.ComputeIfAbsent(7, func(key int) (int, bool) {
				calls.Add(1)
				time.Sleep(10 * time.Millisecond)
				return 999, true
			})
			results[idx] = v
		}(i)
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader ran %d times, want exactly 1", got)
	}
	for i, v := range results {
		if v != 999 {
			t.Fatalf("worker %d observed %d, want 999", i, v)
		}
	}
	if got := m.Size(); got != 1 {
		t.Fatalf("size: got %d, want 1", got)
	}
}
