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

// Package debug exposes introspection over a running chash.Map, in the
// style of the teacher's api.Inspector: a small facade a caller can poll
// or serve over HTTP, reporting structural detail that application code
// has no business depending on but that operators and tests want to see.
package debug

import (
	"encoding/json"
	"fmt"

	"github.com/fjl/memsize"

	"github.com/holisticode/chashmap/chash"
)

// BinKind classifies what currently occupies a table slot.
type BinKind string

const (
	BinEmpty   BinKind = "empty"
	BinList    BinKind = "list"
	BinTree    BinKind = "tree"
	BinForward BinKind = "forward"
)

// TableSnapshot summarizes a Map's table shape at the moment TableShape ran.
type TableSnapshot struct {
	Length       int             `json:"length"`
	MappingCount int64           `json:"mappingCount"`
	BinKinds     map[BinKind]int `json:"binKinds"`
	MaxBinLength int             `json:"maxBinLength"`
	TreeBins     int             `json:"treeBins"`
	ForwardBins  int             `json:"forwardBins"`
}

// Inspector wraps a chash.Map to report structural detail an application
// never needs but operators and tests do: bin occupancy distribution,
// tree-conversion counts, and in-memory footprint.
type Inspector[K comparable, V any] struct {
	m *chash.Map[K, V]
}

// NewInspector builds an Inspector over m.
func NewInspector[K comparable, V any](m *chash.Map[K, V]) *Inspector[K, V] {
	return &Inspector[K, V]{m: m}
}

// TableShape classifies every bin currently installed in the map's table.
// It walks the table directly rather than through a Cursor, so (unlike a
// bulk operation) its counts can be torn mid-resize; that's acceptable for
// a debug/operator-facing report (spec.md §1 Non-goals: no whole-map
// snapshot guarantee anywhere in the API).
func (ins *Inspector[K, V]) TableShape() TableSnapshot {
	snap := TableSnapshot{BinKinds: map[BinKind]int{}}
	ins.m.WalkBins(func(kind chash.BinKind, length int) {
		switch kind {
		case chash.BinKindEmpty:
			snap.BinKinds[BinEmpty]++
		case chash.BinKindList:
			snap.BinKinds[BinList]++
		case chash.BinKindTree:
			snap.BinKinds[BinTree]++
			snap.TreeBins++
		case chash.BinKindForward:
			snap.BinKinds[BinForward]++
			snap.ForwardBins++
		}
		if length > snap.MaxBinLength {
			snap.MaxBinLength = length
		}
	})
	snap.Length = ins.m.TableLength()
	snap.MappingCount = ins.m.MappingCount()
	return snap
}

// MemoryFootprint reports the map's retained heap size via memsize, which
// walks the live object graph rather than relying on a fixed per-entry
// estimate, so it accounts for tree-bin overhead and striped-counter
// growth automatically.
func (ins *Inspector[K, V]) MemoryFootprint() memsize.Sizes {
	return memsize.Scan(ins.m)
}

// JSON renders TableShape as an indented JSON document, matching the
// teacher's StorageIndices/PeerStreams style of surfacing debug state as
// marshaled strings over the HTTP debug endpoint.
func (ins *Inspector[K, V]) JSON() (string, error) {
	v, err := json.MarshalIndent(ins.TableShape(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("debug: marshal table shape: %w", err)
	}
	return string(v), nil
}
