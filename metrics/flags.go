// Copyright 2018 The go-ethereum Authors
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

// Package metrics instruments the chash table's internal state machine:
// resize lifecycle, tree conversions, bin-lock contention and counter-cell
// growth. It is a thin registration layer over go-ethereum's metrics
// registry, the same library and idiom the teacher package used for swarm's
// own operational metrics.
package metrics

import (
	"time"

	ethmetrics "github.com/ethereum/go-ethereum/metrics"

	"github.com/holisticode/chashmap/log"
)

var (
	// ResizeStarted counts resize-engine ownership claims (sizeCtl CAS to -1).
	ResizeStarted = ethmetrics.NewRegisteredCounter("chash/resize/started", nil)
	// ResizeCompleted counts resizes that finished publishing a new table.
	ResizeCompleted = ethmetrics.NewRegisteredCounter("chash/resize/completed", nil)
	// TreeifyCount counts list-bin to tree-bin conversions.
	TreeifyCount = ethmetrics.NewRegisteredCounter("chash/bin/treeify", nil)
	// UntreeifyCount counts tree-bin to list-bin conversions during shrink-on-split.
	UntreeifyCount = ethmetrics.NewRegisteredCounter("chash/bin/untreeify", nil)
	// BinLockContended counts bin-head lock acquisitions that did not succeed on the first CAS.
	BinLockContended = ethmetrics.NewRegisteredCounter("chash/binlock/contended", nil)
	// BinLockParked counts bin-head lock acquisitions that fell through to the park/notify path.
	BinLockParked = ethmetrics.NewRegisteredCounter("chash/binlock/parked", nil)
	// CounterCellGrowth counts striped-counter cell-array growth events.
	CounterCellGrowth = ethmetrics.NewRegisteredCounter("chash/counter/cellgrowth", nil)
	// TableLength is a point-in-time gauge of the current table's bin count.
	TableLength = ethmetrics.NewRegisteredGauge("chash/table/length", nil)
)

// Enabled reports whether the underlying go-ethereum metrics registry is
// collecting. Callers on a hot path should check this before doing any
// extra bookkeeping beyond the counter Inc/Gauge Update calls themselves.
func Enabled() bool {
	return ethmetrics.Enabled
}

// Setup optionally starts background process-level metrics collection
// (goroutine count, GC pauses, memory stats) alongside the chash-specific
// counters above. It mirrors the teacher's metrics.Setup entrypoint.
func Setup(collectProcessMetrics bool) {
	if !ethmetrics.Enabled {
		return
	}
	log.Info("enabling chashmap metrics collection")
	if collectProcessMetrics {
		go ethmetrics.CollectProcessMetrics(4 * time.Second)
	}
}
