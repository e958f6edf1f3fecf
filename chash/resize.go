package chash

import "github.com/holisticode/chashmap/metrics"

// addCount folds delta into the striped counter and, using the size of the
// bin the triggering write just touched, decides whether to kick off a
// resize (§4.6). binCount of -1 means "no bin-growth signal" (a remove, or
// an insert into a tree bin) and skips the bin-size trigger entirely.
func (m *Map[K, V]) addCount(delta int64, binCount int) {
	m.counter.add(delta)

	t := m.table()
	if binCount >= 2 && t.length() < minTreeifyTableLen {
		// Small tables grow before they treeify (spec.md §9 Open
		// Questions): a bin reaching 2 entries already signals the table
		// is too small for its load, well before the tree threshold.
		m.tryResize(t)
	}
	if delta > 0 {
		if sc := m.sizeCtl.Load(); sc >= 0 && m.counter.sum() >= int64(sc) {
			m.tryResize(t)
		}
	}
}

// treeifyIfNeeded converts the list bin at table slot i into a tree bin
// once it has reached the tree threshold and the table itself is large
// enough that treeifying, rather than growing the table, is the right
// response (§4.4). Caller must hold the bin-head lock for slot i and have
// already revalidated that head is still the bin's head.
func (m *Map[K, V]) treeifyIfNeeded(t *table[K, V], i int, head *node[K, V], count int) {
	if count < treeThreshold || t.length() < minTreeifyTableLen {
		return
	}
	metrics.TreeifyCount.Inc(1)
	m.logger.Trace("bin treeified", "index", i, "count", count)
	tb := newTreeBin[K, V](head, m.cfg.less)
	t.setAt(i, treeBinNode[K, V](tb))
}

// tryResize attempts to become the sole resize owner by CASing sizeCtl to
// the "initializing/resizing" sentinel, then runs the whole transfer
// synchronously on the calling goroutine. Concurrent readers and writers
// that observe an in-progress resize do not help transfer bins themselves;
// they simply retry their operation, chasing forwarding markers as the
// owner plants them. This trades the source design's bounded
// multi-goroutine transfer-stealing protocol for a much simpler single-
// owner copy, acceptable here because resize is already off the hot path
// for any workload that isn't actively growing (see DESIGN.md).
func (m *Map[K, V]) tryResize(t *table[K, V]) {
	if t.length() >= maxTableLen {
		return
	}
	sc := m.sizeCtl.Load()
	if sc < 0 {
		return
	}
	if !m.sizeCtl.CompareAndSwap(sc, sizeCtlInitializing) {
		return
	}

	metrics.ResizeStarted.Inc(1)
	m.logger.Debug("resize starting", "from", t.length())

	newLen := t.length() * 2
	if newLen > maxTableLen {
		newLen = maxTableLen
	}
	nt := newTable[K, V](newLen)
	m.transfer(t, nt)
	m.tbl.Store(nt)
	m.sizeCtl.Store(int32(float64(newLen) * defaultLoadFactor))

	metrics.ResizeCompleted.Inc(1)
	metrics.TableLength.Update(int64(newLen))
	m.logger.Debug("resize complete", "to", newLen)
}

// transfer copies every bin of old into nt, splitting each into a "low"
// half (staying at the same index) and a "high" half (index + old length),
// and leaves a forwarding node behind in old so any straggling access
// chases through to nt (§4.6).
func (m *Map[K, V]) transfer(old, nt *table[K, V]) {
	oldLen := old.length()
	fwd := forwardingNode[K, V](nt)

	for i := oldLen - 1; i >= 0; i-- {
		for {
			head := old.at(i)
			if head == nil {
				if old.casAt(i, nil, fwd) {
					break
				}
				continue
			}
			if head.kind == kindForward {
				break
			}
			if head.kind == kindTreeBin {
				m.splitTreeBin(head.tree, oldLen, nt, i)
				old.setAt(i, fwd)
				break
			}

			head.lock.lock(m.cfg.clk)
			if old.at(i) != head {
				head.lock.unlock()
				continue
			}
			m.splitListBin(head, oldLen, nt, i)
			old.setAt(i, fwd)
			head.lock.unlock()
			break
		}
	}
}

// splitListBin partitions a list bin's live entries by the newly
// significant bit (hash & oldLen) into low and high runs, installing each
// as a fresh list at nt's slot i and i+oldLen respectively.
func (m *Map[K, V]) splitListBin(head *node[K, V], oldLen int, nt *table[K, V], i int) {
	var loHead, loTail, hiHead, hiTail *node[K, V]
	for n := head; n != nil; n = n.next.Load() {
		v, ok := n.live()
		if !ok {
			continue
		}
		nn := newNode[K, V](n.hash, n.key, v)
		if n.hash&uint32(oldLen) == 0 {
			if loTail == nil {
				loHead = nn
			} else {
				loTail.next.Store(nn)
			}
			loTail = nn
		} else {
			if hiTail == nil {
				hiHead = nn
			} else {
				hiTail.next.Store(nn)
			}
			hiTail = nn
		}
	}
	nt.setAt(i, loHead)
	nt.setAt(i+oldLen, hiHead)
}

// splitTreeBin does the tree-bin equivalent of splitListBin: it partitions
// the bin's live entries by the newly significant bit and installs each
// half as a list or a fresh tree at nt's slot i / i+oldLen, demoting back
// to a list if a half falls to or below untreeifyThreshold (§4.6).
func (m *Map[K, V]) splitTreeBin(tb *treeBin[K, V], oldLen int, nt *table[K, V], i int) {
	tb.lockWrite()
	var loNodes, hiNodes []*node[K, V]
	for n := tb.first.Load(); n != nil; n = n.next.Load() {
		v, ok := n.live()
		if !ok {
			continue
		}
		nn := newNode[K, V](n.hash, n.key, v)
		if n.hash&uint32(oldLen) == 0 {
			loNodes = append(loNodes, nn)
		} else {
			hiNodes = append(hiNodes, nn)
		}
	}
	tb.unlockWrite()

	nt.setAt(i, m.buildBin(loNodes))
	nt.setAt(i+oldLen, m.buildBin(hiNodes))
}

// buildBin assembles a bin head from nodes materialized during a resize
// split: a plain list when the split left few enough entries, otherwise a
// fresh tree bin.
func (m *Map[K, V]) buildBin(nodes []*node[K, V]) *node[K, V] {
	if len(nodes) == 0 {
		return nil
	}
	for i := 0; i+1 < len(nodes); i++ {
		nodes[i].next.Store(nodes[i+1])
	}
	if len(nodes) <= untreeifyThreshold {
		metrics.UntreeifyCount.Inc(1)
		return nodes[0]
	}
	tb := newTreeBin[K, V](nodes[0], m.cfg.less)
	return treeBinNode[K, V](tb)
}
