package search

import (
	"runtime"
	"sync/atomic"

	"github.com/mkazuya/sente/pkg/types"
)

type workKind int

const (
	workRootMove workKind = iota
	workFullPosition
)

type workItem struct {
	kind      workKind
	iteration int
	depth     int
	board     types.Board
	move      types.Move
	index     int
}

type workSlot struct {
	item  workItem
	ready atomic.Bool
}

// workQueue is a bounded slot array claimed through monotonic atomic
// counters. Slots are never reused until Clear, so a claim is final:
// producers fail when the array is exhausted and consumers poll. A slot
// becomes visible to consumers only after its ready flag is raised.
type workQueue struct {
	slots   []workSlot
	head    atomic.Int64
	tail    atomic.Int64
	closed  atomic.Bool
	dropped atomic.Int64
}

func newWorkQueue(capacity int) *workQueue {
	return &workQueue{slots: make([]workSlot, capacity)}
}

// Push claims the next slot for item. Reports false, counting the
// drop, when the queue is full or closed.
func (q *workQueue) Push(item workItem) bool {
	if q.closed.Load() {
		return false
	}
	var idx = q.tail.Add(1) - 1
	if idx >= int64(len(q.slots)) {
		q.dropped.Add(1)
		return false
	}
	q.slots[idx].item = item
	q.slots[idx].ready.Store(true)
	return true
}

// Pop claims the next published slot. Reports false when no work is
// available right now; callers poll and sleep briefly.
func (q *workQueue) Pop() (workItem, bool) {
	for {
		var h = q.head.Load()
		var limit = q.tail.Load()
		if limit > int64(len(q.slots)) {
			limit = int64(len(q.slots))
		}
		if h >= limit {
			return workItem{}, false
		}
		if !q.head.CompareAndSwap(h, h+1) {
			continue
		}
		var s = &q.slots[h]
		for !s.ready.Load() {
			runtime.Gosched()
		}
		return s.item, true
	}
}

// Pending counts published but unclaimed items.
func (q *workQueue) Pending() int {
	var t = q.tail.Load()
	if t > int64(len(q.slots)) {
		t = int64(len(q.slots))
	}
	var n = t - q.head.Load()
	if n < 0 {
		n = 0
	}
	return int(n)
}

func (q *workQueue) Dropped() int64 {
	return q.dropped.Load()
}

// Clear recycles all slots. Only safe once consumers are quiescent.
func (q *workQueue) Clear() {
	for i := range q.slots {
		q.slots[i].ready.Store(false)
		q.slots[i].item = workItem{}
	}
	q.head.Store(0)
	q.tail.Store(0)
}

func (q *workQueue) Close() {
	q.closed.Store(true)
}

func (q *workQueue) Closed() bool {
	return q.closed.Load()
}
