package tt

// Exact-cut flags support cooperative duplicate-search avoidance across
// helper threads: a thread that proves an exact cutoff for a position
// raises the flag so siblings still searching the same subtree can
// abandon it. One bit per slot, addressed by key.

const clearCutRetries = 64

func (t *Table) slotIndex(key uint64) int {
	var base = t.bucketBase(key)
	for i := 0; i < slotsPerBucket; i++ {
		if t.slots[base+i].key.Load() == key {
			return base + i
		}
	}
	return -1
}

// SetExactCut raises the flag for key, reporting whether an entry with
// that key was present.
func (t *Table) SetExactCut(key uint64) bool {
	var idx = t.slotIndex(key)
	if idx < 0 {
		return false
	}
	t.cut[idx/64].Or(1 << (idx % 64))
	return true
}

func (t *Table) HasExactCut(key uint64) bool {
	var idx = t.slotIndex(key)
	if idx < 0 {
		return false
	}
	return t.cut[idx/64].Load()&(1<<(idx%64)) != 0
}

// ClearExactCut lowers the flag for key. The compare-and-swap loop is
// bounded; past the retry limit a plain atomic mask is applied instead
// of spinning further.
func (t *Table) ClearExactCut(key uint64) {
	var idx = t.slotIndex(key)
	if idx < 0 {
		return
	}
	t.clearCutBit(idx)
}

func (t *Table) clearCutBit(idx int) {
	var w = &t.cut[idx/64]
	var mask = uint64(1 << (idx % 64))
	for i := 0; i < clearCutRetries; i++ {
		var old = w.Load()
		if old&mask == 0 {
			return
		}
		if w.CompareAndSwap(old, old&^mask) {
			return
		}
	}
	w.And(^mask)
}
