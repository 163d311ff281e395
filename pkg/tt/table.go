package tt

import (
	"math/bits"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const (
	slotsPerBucket = 4
	entrySize      = 16
)

const (
	gcTriggerPermille = 850
	gcBucketSlice     = 256
	gcAgeLimit        = 16
)

type slot struct {
	key  atomic.Uint64
	data atomic.Uint64
}

// Table is a fixed-capacity concurrent map from 64-bit position keys to
// packed search results, shared by all search threads. Slots are
// published data-word first, key-word last; readers load the key before
// the data, so a matching key always pairs with fully written data.
type Table struct {
	megabytes int
	buckets   int
	slots     []slot
	occ       []atomic.Uint64
	cut       []atomic.Uint64
	age       atomic.Uint32
	emptyOnly atomic.Bool
	gcCursor  atomic.Uint64
	fillCache atomic.Int64
	fillTick  atomic.Uint64
	log       zerolog.Logger
}

func roundPowerOfTwo(size int) int {
	var x = 1
	for (x << 1) <= size {
		x <<= 1
	}
	return x
}

func New(megabytes int) *Table {
	var buckets = roundPowerOfTwo(1024 * 1024 * megabytes / (entrySize * slotsPerBucket))
	var t = &Table{
		megabytes: megabytes,
		buckets:   buckets,
		slots:     make([]slot, buckets*slotsPerBucket),
		occ:       make([]atomic.Uint64, (buckets*slotsPerBucket+63)/64),
		cut:       make([]atomic.Uint64, (buckets*slotsPerBucket+63)/64),
		log:       zerolog.Nop(),
	}
	t.fillCache.Store(-1)
	return t
}

func (t *Table) SetLogger(l zerolog.Logger) {
	t.log = l
}

func (t *Table) Megabytes() int {
	return t.megabytes
}

// EmptySlotOnly toggles the policy of rejecting replacement entirely
// when a bucket has no free slot. Off by default.
func (t *Table) EmptySlotOnly(on bool) {
	t.emptyOnly.Store(on)
}

func (t *Table) bucketBase(key uint64) int {
	return int(key&uint64(t.buckets-1)) * slotsPerBucket
}

// NextAge advances the 6-bit cyclic generation counter. Called once per
// search session.
func (t *Table) NextAge() {
	t.age.Store((t.age.Load() + 1) & ageMask)
}

func (t *Table) Age() uint8 {
	return uint8(t.age.Load()) & ageMask
}

func ageDistance(current, entry uint8) int {
	return int((ageCycle + uint32(current) - uint32(entry)) & ageMask)
}

func slotPriority(data uint64, current uint8) int {
	var p = entryDepth(data) - ageDistance(current, entryAge(data))
	if entryIsPV(data) {
		p += 32
	}
	if entryBound(data) == BoundExact {
		p += 16
	}
	return p
}

// Probe returns the entry stored under key, if any. Zero-depth entries
// carry no information and report a miss.
func (t *Table) Probe(key uint64) (Entry, bool) {
	var base = t.bucketBase(key)
	for i := 0; i < slotsPerBucket; i++ {
		var s = &t.slots[base+i]
		if s.key.Load() != key {
			continue
		}
		var data = s.data.Load()
		if entryDepth(data) == 0 {
			return Entry{}, false
		}
		return unpackEntry(data), true
	}
	return Entry{}, false
}

// Prefetch pulls the bucket for key toward the cache. Best effort, no
// observable effect.
func (t *Table) Prefetch(key uint64) {
	_ = t.slots[t.bucketBase(key)].key.Load()
}

// Store writes a search result under key, applying the replacement
// policy: same-key in-place update (rejected silently when a shallower
// result with a non-exact bound would displace deeper information),
// then any empty slot, then eviction of the minimum-priority slot when
// the newcomer outranks it.
func (t *Table) Store(key uint64, move uint16, score, eval, depth int, bound Bound, isPV bool) {
	if key == 0 {
		return
	}
	if depth < 0 {
		depth = 0
	} else if depth > maxDepth {
		depth = maxDepth
	}
	var age = t.Age()
	var data = packEntry(Entry{
		Move:  move,
		Score: int16(score),
		Eval:  int16(eval),
		Depth: depth,
		Bound: bound,
		Age:   age,
		IsPV:  isPV,
	})
	var base = t.bucketBase(key)

	for i := 0; i < slotsPerBucket; i++ {
		var s = &t.slots[base+i]
		if s.key.Load() != key {
			continue
		}
		if depth < entryDepth(s.data.Load()) && bound != BoundExact {
			return
		}
		s.data.Store(data)
		s.key.Store(key)
		return
	}

	for i := 0; i < slotsPerBucket; i++ {
		var s = &t.slots[base+i]
		if s.key.Load() != 0 {
			continue
		}
		s.data.Store(data)
		s.key.Store(key)
		t.setOccupied(base + i)
		return
	}

	if t.emptyOnly.Load() {
		return
	}

	var newPriority = slotPriority(data, age)
	var victim = -1
	var victimPriority = 0
	for i := 0; i < slotsPerBucket; i++ {
		var p = slotPriority(t.slots[base+i].data.Load(), age)
		if victim < 0 || p < victimPriority {
			victim = base + i
			victimPriority = p
		}
	}
	if newPriority <= victimPriority {
		return
	}
	var s = &t.slots[victim]
	t.clearCutBit(victim)
	s.data.Store(data)
	s.key.Store(key)
	t.setOccupied(victim)
}

// Clear zeroes every slot and resets age and bookkeeping.
func (t *Table) Clear() {
	for i := range t.slots {
		t.slots[i].key.Store(0)
		t.slots[i].data.Store(0)
	}
	for i := range t.occ {
		t.occ[i].Store(0)
	}
	for i := range t.cut {
		t.cut[i].Store(0)
	}
	t.age.Store(0)
	t.gcCursor.Store(0)
	t.fillCache.Store(-1)
}

// Resize reallocates the table for a new size in megabytes. Existing
// entries are discarded.
func (t *Table) Resize(megabytes int) {
	var buckets = roundPowerOfTwo(1024 * 1024 * megabytes / (entrySize * slotsPerBucket))
	t.megabytes = megabytes
	t.buckets = buckets
	t.slots = make([]slot, buckets*slotsPerBucket)
	t.occ = make([]atomic.Uint64, (buckets*slotsPerBucket+63)/64)
	t.cut = make([]atomic.Uint64, (buckets*slotsPerBucket+63)/64)
	t.age.Store(0)
	t.gcCursor.Store(0)
	t.fillCache.Store(-1)
	t.fillTick.Store(0)
}

func (t *Table) setOccupied(idx int) {
	t.occ[idx/64].Or(1 << (idx % 64))
}

func (t *Table) clearOccupied(idx int) {
	t.occ[idx/64].And(^uint64(1 << (idx % 64)))
}

// OccupiedApprox counts the occupancy bitmap. Best effort; the bitmap
// is maintained with relaxed updates.
func (t *Table) OccupiedApprox() int {
	var n = 0
	for i := range t.occ {
		n += bits.OnesCount64(t.occ[i].Load())
	}
	return n
}

// Hashfull estimates occupancy in permille by sampling a prefix of the
// table. The estimate is cached and refreshed periodically.
func (t *Table) Hashfull() int {
	var tick = t.fillTick.Add(1)
	if v := t.fillCache.Load(); v >= 0 && tick&0x3f != 0 {
		return int(v)
	}
	var sample = len(t.slots)
	if sample > 1000 {
		sample = 1000
	}
	var filled = 0
	for i := 0; i < sample; i++ {
		if t.slots[i].key.Load() != 0 {
			filled++
		}
	}
	var v = filled * 1000 / sample
	t.fillCache.Store(int64(v))
	return v
}

// MaybeGC runs one bounded garbage-collection slice when the table is
// nearly full, clearing entries whose generation fell too far behind.
func (t *Table) MaybeGC() {
	if t.Hashfull() < gcTriggerPermille {
		return
	}
	var cleared = t.gcSlice(gcBucketSlice)
	if cleared > 0 {
		t.log.Debug().Int("cleared", cleared).Msg("hash gc slice")
	}
}

func (t *Table) gcSlice(maxBuckets int) int {
	var age = t.Age()
	var cleared = 0
	for n := 0; n < maxBuckets; n++ {
		var b = int(t.gcCursor.Add(1)-1) % t.buckets
		for i := 0; i < slotsPerBucket; i++ {
			var idx = b*slotsPerBucket + i
			var s = &t.slots[idx]
			if s.key.Load() == 0 {
				continue
			}
			if ageDistance(age, entryAge(s.data.Load())) <= gcAgeLimit {
				continue
			}
			s.key.Store(0)
			s.data.Store(0)
			t.clearOccupied(idx)
			t.clearCutBit(idx)
			cleared++
		}
	}
	if t.fillCache.Load() >= 0 && cleared > 0 {
		t.fillCache.Store(-1)
	}
	return cleared
}
