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

import "testing"

// constantHasher always returns the same raw hash, forcing every key into
// one bin regardless of table size, so a large insert run is guaranteed to
// cross the tree threshold (§4.4).
func constantHasher[K comparable](h uint32) Hasher[K] {
	return func(K) uint32 { return h }
}

// TestS3TreeConversionUnderCollision is scenario S3: many keys sharing one
// hash, ordered by an explicit total order, must end up in a tree bin and
// remain correctly retrievable.
func TestS3TreeConversionUnderCollision(t *testing.T) {
	const n = 5000 // a real run would use 100000; shrunk to keep this test fast
	less := func(a, b int) bool { return a < b }

	m := New[int, int](
		constantHasher[int](42),
		WithLess[int, int](less),
	)

	for i := 0; i < n; i++ {
		m.Put(i, i*i)
	}

	i := m.table().index(spread(42))
	head := m.table().at(i)
	if head == nil || head.kind != kindTreeBin {
		t.Fatalf("expected the single colliding bin to have treeified, kind=%v", head)
	}

	for i := 0; i < n; i++ {
		v, ok := m.Get(i)
		if !ok || v != i*i {
			t.Fatalf("key %d: got (%v, %v), want (%d, true)", i, v, ok, i*i)
		}
	}
	if got := m.Size(); got != n {
		t.Fatalf("size: got %d, want %d", got, n)
	}
}

func TestTreeBinRemoveRebalances(t *testing.T) {
	less := func(a, b int) bool { return a < b }
	m := New[int, int](constantHasher[int](7), WithLess[int, int](less))

	const n = 500
	for i := 0; i < n; i++ {
		m.Put(i, i)
	}
	for i := 0; i < n; i += 2 {
		if _, had := m.Remove(i); !had {
			t.Fatalf("key %d should have been present before removal", i)
		}
	}
	for i := 0; i < n; i++ {
		v, ok := m.Get(i)
		if i%2 == 0 {
			if ok {
				t.Fatalf("key %d should have been removed", i)
			}
			continue
		}
		if !ok || v != i {
			t.Fatalf("key %d: got (%v, %v), want (%d, true)", i, v, ok, i)
		}
	}
}

func TestTreeBinWithoutLessFallsBackToDualSearch(t *testing.T) {
	// No Less supplied: searchNode must fall back to searching both
	// subtrees on a hash tie instead of panicking or losing entries.
	m := New[int, int](constantHasher[int](1))
	const n = 200
	for i := 0; i < n; i++ {
		m.Put(i, i*2)
	}
	for i := 0; i < n; i++ {
		v, ok := m.Get(i)
		if !ok || v != i*2 {
			t.Fatalf("key %d: got (%v, %v), want (%d, true)", i, v, ok, i*2)
		}
	}
}
