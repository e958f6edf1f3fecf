// Copyright 2016 The go-ethereum Authors
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

// Package chash implements a concurrent hash table that gives full
// concurrency for reads and high concurrency for writes, suitable as a
// shared in-memory state building block for services with many worker
// goroutines.
//
// Lookups never block: they tolerate concurrent inserts, deletes, resizes
// and list/tree bin conversions in flight. Updates take a lock scoped to a
// single bin (the slot a key hashes to), so unrelated keys never contend.
// A degenerate bin (many keys colliding on the same slot) is promoted to a
// red-black tree so worst-case lookup in that bin stays logarithmic instead
// of linear. Growing the table is cooperative and incremental: one owner
// goroutine moves bins from the old table into a freshly allocated, doubled
// table while every other goroutine keeps making progress against whichever
// table it finds, chasing a forwarding marker into the new one if needed.
//
// Map's zero value is not usable; construct one with New. Neither keys nor
// values may be nil at the public boundary: a nil pointer, interface, map,
// slice, channel or func key or value makes the operation panic with
// ErrNilKey or ErrNilValue. Internally each entry holds its value behind a
// *V, and a nil *V marks "no value", so any V can be stored, value types
// included (e.g. Map[string, int]); zero values of non-nilable types are
// ordinary values.
package chash
