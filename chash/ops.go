package chash

// binAction tells updateBin/updateTreeBin what to do with a present entry:
// leave it, overwrite its value, or unlink it entirely.
type binAction int

const (
	actionNoop binAction = iota
	actionUpdate
	actionRemove
)

// Put inserts or overwrites the mapping for key, returning the value that
// was previously there, if any (§4.3 "put").
func (m *Map[K, V]) Put(key K, value V) (V, bool) {
	requireNonNilKey(key)
	requireNonNilValue(value)
	return m.putVal(key, value, false)
}

// PutIfAbsent inserts value only if key has no present mapping, returning
// the existing value when it was already present instead of overwriting it.
func (m *Map[K, V]) PutIfAbsent(key K, value V) (V, bool) {
	requireNonNilKey(key)
	requireNonNilValue(value)
	return m.putVal(key, value, true)
}

// putVal is the shared list/tree-bin insert path described by §4.3's
// dispatch: null head installs directly via CAS, a forward chases the new
// table, a tree-root head delegates to the tree bin, and anything else is
// an ordinary list bin walked and mutated under its bin-head lock.
func (m *Map[K, V]) putVal(key K, value V, onlyIfAbsent bool) (V, bool) {
	hash := m.spreadHash(key)
	t := m.table()
	for {
		i := t.index(hash)
		head := t.at(i)

		if head == nil {
			nn := newNode[K, V](hash, key, value)
			if t.casAt(i, nil, nn) {
				m.addCount(1, 0)
				var zero V
				return zero, false
			}
			continue
		}
		if head.kind == kindForward {
			t = head.forwardTable()
			continue
		}
		if head.kind == kindTreeBin {
			tb := head.tree
			tb.lockWrite()
			if onlyIfAbsent {
				if n := tb.searchNode(tb.root.Load(), hash, key); n != nil {
					if old, present := n.live(); present {
						tb.unlockWrite()
						return old, true
					}
				}
			}
			old, had := tb.putLocked(hash, key, value)
			tb.unlockWrite()
			if !had {
				m.addCount(1, -1)
			}
			return old, had
		}

		if head.lock.owns(goroutineID()) {
			panic(ErrReentrant)
		}
		head.lock.lock(m.cfg.clk)
		if t.at(i) != head {
			head.lock.unlock()
			continue
		}

		var old V
		var had bool
		count := 1
		cur := head
		for {
			if cur.hash == hash && cur.key == key {
				old, had = cur.live()
				if !had || !onlyIfAbsent {
					v := value
					cur.value.Store(&v)
				}
				break
			}
			nxt := cur.next.Load()
			if nxt == nil {
				nn := newNode[K, V](hash, key, value)
				cur.next.Store(nn)
				count++
				break
			}
			cur = nxt
			count++
		}

		if !had && count >= treeThreshold {
			m.treeifyIfNeeded(t, i, head, count)
		}
		head.lock.unlock()

		if !had {
			m.addCount(1, count)
		}
		return old, had
	}
}

// PutAll copies every mapping from src into m. It is not atomic as a whole;
// concurrent readers may observe a partially applied copy (spec.md §1
// Non-goals).
func (m *Map[K, V]) PutAll(src map[K]V) {
	for k, v := range src {
		m.Put(k, v)
	}
}

// unlink removes tgt from the list bin rooted at head in table t's slot i,
// given tgt's predecessor (nil if tgt is the head itself). Caller must
// already hold the bin's lock and have revalidated t.at(i) == head.
func (m *Map[K, V]) unlink(t *table[K, V], i int, head, prev, tgt *node[K, V]) {
	nxt := tgt.next.Load()
	if prev == nil {
		t.setAt(i, nxt)
		return
	}
	prev.next.Store(nxt)
}

// updateBin locates key within its bin (list or tree) and, when present,
// lets decide choose whether to overwrite, remove, or leave it. decide must
// be pure: it must never call back into m, since it runs under the bin's
// lock (or the tree bin's write lock). present reports whether key had a
// mapping at all; applied reports whether decide chose actionUpdate or
// actionRemove rather than actionNoop.
func (m *Map[K, V]) updateBin(key K, decide func(old V) (V, binAction)) (old V, applied bool, present bool) {
	hash := m.spreadHash(key)
	t := m.table()
	for {
		i := t.index(hash)
		head := t.at(i)
		if head == nil {
			return old, false, false
		}
		if head.kind == kindForward {
			t = head.forwardTable()
			continue
		}
		if head.kind == kindTreeBin {
			var action binAction
			old, applied, present = head.tree.update(hash, key, func(o V) (V, binAction) {
				nv, a := decide(o)
				action = a
				return nv, a
			})
			if applied && action == actionRemove {
				m.addCount(-1, -1)
			}
			return old, applied, present
		}

		head.lock.lock(m.cfg.clk)
		if t.at(i) != head {
			head.lock.unlock()
			continue
		}

		var prev, tgt *node[K, V]
		for cur := head; cur != nil; cur = cur.next.Load() {
			if cur.hash == hash && cur.key == key {
				tgt = cur
				break
			}
			prev = cur
		}
		if tgt == nil {
			head.lock.unlock()
			return old, false, false
		}
		var ok bool
		old, ok = tgt.live()
		if !ok {
			head.lock.unlock()
			return old, false, false
		}
		newVal, action := decide(old)
		switch action {
		case actionUpdate:
			v := newVal
			tgt.value.Store(&v)
		case actionRemove:
			tgt.value.Store(nil)
			m.unlink(t, i, head, prev, tgt)
		}
		head.lock.unlock()
		if action == actionRemove {
			m.addCount(-1, -1)
		}
		return old, action != actionNoop, true
	}
}

// Replace overwrites key's mapping only if it is currently present,
// returning the value it replaced.
func (m *Map[K, V]) Replace(key K, newValue V) (V, bool) {
	requireNonNilKey(key)
	requireNonNilValue(newValue)
	old, _, present := m.updateBin(key, func(V) (V, binAction) {
		return newValue, actionUpdate
	})
	return old, present
}

// ReplaceExpected overwrites key's mapping with newValue only if its
// current value equals expected under equal, reporting whether the swap
// happened (the compare-and-swap overload of Replace).
func (m *Map[K, V]) ReplaceExpected(key K, expected, newValue V, equal func(a, b V) bool) bool {
	requireNonNilKey(key)
	requireNonNilValue(expected)
	requireNonNilValue(newValue)
	requireNonNilFunc(equal)
	_, applied, _ := m.updateBin(key, func(old V) (V, binAction) {
		if equal(old, expected) {
			return newValue, actionUpdate
		}
		return old, actionNoop
	})
	return applied
}

// Remove deletes key's mapping unconditionally, returning the value it held.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	requireNonNilKey(key)
	old, _, present := m.updateBin(key, func(old V) (V, binAction) {
		return old, actionRemove
	})
	return old, present
}

// RemoveExpected deletes key's mapping only if its current value equals
// expected under equal, reporting whether the removal happened.
func (m *Map[K, V]) RemoveExpected(key K, expected V, equal func(a, b V) bool) bool {
	requireNonNilKey(key)
	requireNonNilValue(expected)
	requireNonNilFunc(equal)
	_, applied, _ := m.updateBin(key, func(old V) (V, binAction) {
		if equal(old, expected) {
			return old, actionRemove
		}
		return old, actionNoop
	})
	return applied
}

// Compute atomically recomputes the mapping for key: fn receives the
// current value (zero value if absent) and whether it was present, and
// returns the value to install and whether to keep an entry at all. fn
// runs exactly once, while the bin-head lock (list bins) or the tree bin's
// write lock is held (§4.3); it must not call back into m for the same key
// on the same goroutine. In a list bin, re-entry through Put, PutIfAbsent,
// Compute, ComputeIfAbsent, ComputeIfPresent or Merge that needs the held
// bin lock panics with ErrReentrant (Get, and ComputeIfAbsent on a key
// that is already present, return without taking it); re-entry through
// Replace or Remove and their expected-value variants, or any re-entry
// into a tree bin, is not detected and blocks forever.
func (m *Map[K, V]) Compute(key K, fn func(key K, old V, present bool) (V, bool)) (V, bool) {
	requireNonNilKey(key)
	requireNonNilFunc(fn)
	hash := m.spreadHash(key)
	gid := goroutineID()
	t := m.table()
	for {
		i := t.index(hash)
		head := t.at(i)

		if head == nil {
			placeholder := &node[K, V]{hash: hash, key: key}
			placeholder.lock.lockAs(gid, m.cfg.clk)
			if !t.casAt(i, nil, placeholder) {
				placeholder.lock.unlock()
				continue
			}
			var zero V
			newVal, keep := fn(key, zero, false)
			if keep {
				v := newVal
				placeholder.value.Store(&v)
				placeholder.lock.unlock()
				m.addCount(1, 1)
				return newVal, true
			}
			t.casAt(i, placeholder, nil)
			placeholder.lock.unlock()
			var zeroV V
			return zeroV, false
		}

		if head.kind == kindForward {
			t = head.forwardTable()
			continue
		}
		if head.kind == kindTreeBin {
			result, present, delta := head.tree.compute(hash, key, func(old V, had bool) (V, bool) {
				return fn(key, old, had)
			})
			if delta != 0 {
				m.addCount(int64(delta), -1)
			}
			if !present {
				var zero V
				return zero, false
			}
			return result, true
		}

		if head.lock.owns(gid) {
			panic(ErrReentrant)
		}
		head.lock.lockAs(gid, m.cfg.clk)
		if t.at(i) != head {
			head.lock.unlock()
			continue
		}

		var prev, tgt *node[K, V]
		count := 0
		for cur := head; cur != nil; cur = cur.next.Load() {
			count++
			if cur.hash == hash && cur.key == key {
				tgt = cur
				break
			}
			prev = cur
		}

		if tgt != nil {
			old, present := tgt.live()
			newVal, keep := fn(key, old, present)
			if keep {
				v := newVal
				tgt.value.Store(&v)
				head.lock.unlock()
				return newVal, true
			}
			tgt.value.Store(nil)
			m.unlink(t, i, head, prev, tgt)
			head.lock.unlock()
			m.addCount(-1, -1)
			var zero V
			return zero, false
		}

		var zero V
		newVal, keep := fn(key, zero, false)
		if !keep {
			head.lock.unlock()
			var zeroV V
			return zeroV, false
		}
		nn := newNode[K, V](hash, key, newVal)
		tail := head
		for tail.next.Load() != nil {
			tail = tail.next.Load()
		}
		tail.next.Store(nn)
		newCount := count + 1
		if newCount >= treeThreshold {
			m.treeifyIfNeeded(t, i, head, newCount)
		}
		head.lock.unlock()
		m.addCount(1, newCount)
		return newVal, true
	}
}

// ComputeIfAbsent installs fn's result for key only if key has no present
// mapping yet, running fn at most once per call and guaranteeing that
// concurrent callers racing on the same absent key converge on a single
// winner (spec.md §8 scenario S5).
func (m *Map[K, V]) ComputeIfAbsent(key K, fn func(key K) (V, bool)) (V, bool) {
	requireNonNilKey(key)
	requireNonNilFunc(fn)
	hash := m.spreadHash(key)
	if v, ok := m.lookup(hash, key); ok {
		return v, true
	}
	gid := goroutineID()
	t := m.table()
	for {
		i := t.index(hash)
		head := t.at(i)

		if head == nil {
			placeholder := &node[K, V]{hash: hash, key: key}
			placeholder.lock.lockAs(gid, m.cfg.clk)
			if !t.casAt(i, nil, placeholder) {
				placeholder.lock.unlock()
				continue
			}
			newVal, ok := fn(key)
			if ok {
				v := newVal
				placeholder.value.Store(&v)
				placeholder.lock.unlock()
				m.addCount(1, 1)
				return newVal, true
			}
			t.casAt(i, placeholder, nil)
			placeholder.lock.unlock()
			var zero V
			return zero, false
		}

		if head.kind == kindForward {
			t = head.forwardTable()
			continue
		}
		if head.kind == kindTreeBin {
			return m.computeIfAbsentTreeBin(head.tree, hash, key, fn)
		}

		if head.lock.owns(gid) {
			panic(ErrReentrant)
		}
		head.lock.lockAs(gid, m.cfg.clk)
		if t.at(i) != head {
			head.lock.unlock()
			continue
		}

		count := 0
		var tail *node[K, V]
		for cur := head; cur != nil; cur = cur.next.Load() {
			count++
			if cur.hash == hash && cur.key == key {
				if old, present := cur.live(); present {
					head.lock.unlock()
					return old, true
				}
			}
			tail = cur
		}
		newVal, ok := fn(key)
		if !ok {
			head.lock.unlock()
			var zero V
			return zero, false
		}
		nn := newNode[K, V](hash, key, newVal)
		tail.next.Store(nn)
		newCount := count + 1
		if newCount >= treeThreshold {
			m.treeifyIfNeeded(t, i, head, newCount)
		}
		head.lock.unlock()
		m.addCount(1, newCount)
		return newVal, true
	}
}

func (m *Map[K, V]) computeIfAbsentTreeBin(tb *treeBin[K, V], hash uint32, key K, fn func(K) (V, bool)) (V, bool) {
	tb.lockWrite()
	defer tb.unlockWrite()

	if n := tb.searchNode(tb.root.Load(), hash, key); n != nil {
		if old, present := n.live(); present {
			return old, true
		}
	}
	newVal, ok := fn(key)
	if !ok {
		var zero V
		return zero, false
	}
	old, had := tb.putLocked(hash, key, newVal)
	if had {
		return old, true
	}
	m.addCount(1, -1)
	return newVal, true
}

// ComputeIfPresent recomputes key's mapping only if it is currently
// present; returning false from fn removes the entry.
func (m *Map[K, V]) ComputeIfPresent(key K, fn func(key K, old V) (V, bool)) (V, bool) {
	requireNonNilKey(key)
	requireNonNilFunc(fn)
	return m.Compute(key, func(k K, old V, present bool) (V, bool) {
		if !present {
			var zero V
			return zero, false
		}
		return fn(k, old)
	})
}

// Merge combines value with any existing mapping for key using fn: if key
// is absent, value is installed directly; otherwise fn(old, value) decides
// the new value, and a nil fn result (ok=false) removes the entry. This
// mirrors java.util.Map.merge and generalizes spec.md §8 scenario S5 to
// arbitrary combination, not just absence.
func (m *Map[K, V]) Merge(key K, value V, fn func(old, value V) (V, bool)) (V, bool) {
	requireNonNilKey(key)
	requireNonNilValue(value)
	requireNonNilFunc(fn)
	return m.Compute(key, func(_ K, old V, present bool) (V, bool) {
		if !present {
			return value, true
		}
		return fn(old, value)
	})
}

// lookup is Get's body parameterized on an already-computed hash, shared
// with call sites (ComputeIfAbsent) that need to probe before committing to
// the locked insert path.
func (m *Map[K, V]) lookup(hash uint32, key K) (V, bool) {
	t := m.table()
	for {
		head := t.at(t.index(hash))
		if head == nil {
			var zero V
			return zero, false
		}
		switch head.kind {
		case kindForward:
			t = head.forwardTable()
			continue
		case kindTreeBin:
			return head.tree.find(hash, key)
		default:
			if n := head.find(hash, key); n != nil {
				return n.live()
			}
			var zero V
			return zero, false
		}
	}
}
