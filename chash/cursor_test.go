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

func drain[K comparable, V any](c *Cursor[K, V]) map[K]V {
	out := map[K]V{}
	for {
		k, v, ok := c.Next()
		if !ok {
			return out
		}
		out[k] = v
	}
}

func TestCursorVisitsEveryEntryOnce(t *testing.T) {
	m := newIntMap()
	const n = 500
	want := map[int]int{}
	for i := 0; i < n; i++ {
		m.Put(i, i*i)
		want[i] = i * i
	}

	got := drain[int, int](m.NewCursor())
	if len(got) != len(want) {
		t.Fatalf("cursor visited %d entries, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("key %d: got %v, want %v", k, got[k], v)
		}
	}
}

func TestCursorSplitCoversDisjointUnion(t *testing.T) {
	m := newIntMap()
	const n = 500
	for i := 0; i < n; i++ {
		m.Put(i, i)
	}

	c := m.NewCursor()
	half, err := c.Split()
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if half == nil {
		t.Fatalf("expected a real split for a non-trivial table")
	}

	a := drain[int, int](c)
	b := drain[int, int](half)

	if overlap := len(a) + len(b) - len(union(a, b)); overlap != 0 {
		t.Fatalf("split halves overlap in %d keys", overlap)
	}
	merged := union(a, b)
	if len(merged) != n {
		t.Fatalf("split halves together visited %d keys, want %d", len(merged), n)
	}
}

func TestCursorSplitFailsAfterStart(t *testing.T) {
	m := newIntMap()
	m.Put(1, 1)
	m.Put(2, 2)
	c := m.NewCursor()
	if _, _, ok := c.Next(); !ok {
		t.Fatalf("expected at least one entry")
	}
	if _, err := c.Split(); err != errCursorStarted {
		t.Fatalf("Split after Next: got err=%v, want errCursorStarted", err)
	}
}

func TestCursorOverTreeBin(t *testing.T) {
	less := func(a, b int) bool { return a < b }
	m := New[int, int](constantHasher[int](3), WithLess[int, int](less))
	const n = 1000
	want := map[int]int{}
	for i := 0; i < n; i++ {
		m.Put(i, i)
		want[i] = i
	}
	got := drain[int, int](m.NewCursor())
	if len(got) != n {
		t.Fatalf("cursor over tree bin visited %d entries, want %d", len(got), n)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("key %d: got %v, want %v", k, got[k], v)
		}
	}
}

func union(a, b map[int]int) map[int]int {
	out := map[int]int{}
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

