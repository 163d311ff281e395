package search

import (
	"sync"
	"testing"
)

func TestWorkQueuePushPopOrder(t *testing.T) {
	var q = newWorkQueue(8)
	for i := 0; i < 5; i++ {
		if !q.Push(workItem{index: i}) {
			t.Fatalf("push %d failed", i)
		}
	}
	if q.Pending() != 5 {
		t.Fatalf("pending = %v, want 5", q.Pending())
	}
	for i := 0; i < 5; i++ {
		var item, ok = q.Pop()
		if !ok || item.index != i {
			t.Fatalf("pop %d = (%+v, %v)", i, item, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("pop on an empty queue must fail")
	}
}

func TestWorkQueueOverflowDrops(t *testing.T) {
	var q = newWorkQueue(4)
	for i := 0; i < 4; i++ {
		q.Push(workItem{index: i})
	}
	if q.Push(workItem{index: 4}) {
		t.Fatalf("push past capacity must fail")
	}
	if q.Push(workItem{index: 5}) {
		t.Fatalf("push past capacity must fail")
	}
	if q.Dropped() != 2 {
		t.Fatalf("dropped = %v, want 2", q.Dropped())
	}
	if q.Pending() != 4 {
		t.Fatalf("pending = %v, want the queued items intact", q.Pending())
	}
}

func TestWorkQueueClaimOnceUnderConcurrency(t *testing.T) {
	const items = 256
	var q = newWorkQueue(items)
	for i := 0; i < items; i++ {
		q.Push(workItem{index: i})
	}

	var mu sync.Mutex
	var seen = make(map[int]int)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				var item, ok = q.Pop()
				if !ok {
					return
				}
				mu.Lock()
				seen[item.index]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != items {
		t.Fatalf("claimed %v distinct items, want %v", len(seen), items)
	}
	for idx, n := range seen {
		if n != 1 {
			t.Fatalf("item %v claimed %v times", idx, n)
		}
	}
}

func TestWorkQueueClearRecycles(t *testing.T) {
	var q = newWorkQueue(2)
	q.Push(workItem{index: 0})
	q.Push(workItem{index: 1})
	q.Push(workItem{index: 2})
	q.Pop()
	q.Clear()
	if q.Pending() != 0 {
		t.Fatalf("pending after clear = %v", q.Pending())
	}
	if !q.Push(workItem{index: 9}) {
		t.Fatalf("push after clear failed")
	}
	var item, ok = q.Pop()
	if !ok || item.index != 9 {
		t.Fatalf("pop after clear = (%+v, %v)", item, ok)
	}
}

func TestWorkQueueClosedRejectsPush(t *testing.T) {
	var q = newWorkQueue(2)
	q.Push(workItem{index: 0})
	q.Close()
	if q.Push(workItem{index: 1}) {
		t.Fatalf("push on a closed queue must fail")
	}
	// already published work still drains
	if _, ok := q.Pop(); !ok {
		t.Fatalf("pending item lost on close")
	}
}
