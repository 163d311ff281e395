package search

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkazuya/sente/pkg/types"
)

const (
	workQueueCapacity  = 1024
	rootChunkSize      = 4
	helperPollInterval = time.Millisecond
	helperDrainWait    = 100 * time.Millisecond
	failSafeMargin     = 2
	failSafeGrace      = 500 * time.Millisecond
)

// runSearch owns the worker pool for one session: N-1 helpers feeding
// off the work queue, a fail-safe watchdog, and a deadline poller,
// while the calling thread iterates.
func (e *Engine) runSearch(ctx context.Context, session uint64) {
	var done = make(chan struct{})
	go e.timePoller(done)
	if !e.DisableFailSafe && e.timeManager.hardLimit > 0 {
		go e.watchdog(done)
	}

	if e.Threads <= 1 {
		e.iterate(session)
		close(done)
		return
	}

	var g = new(errgroup.Group)
	for i := 1; i < e.Threads; i++ {
		var t = &e.threads[i]
		g.Go(func() error {
			e.workerLoop(t)
			return nil
		})
	}
	e.iterate(session)
	e.queue.Close()
	g.Wait()
	close(done)
}

func (e *Engine) workerLoop(t *thread) {
	for {
		// raised before the claim so a popped item is never invisible
		// to the quiescence check
		e.active.Add(1)
		var item, ok = e.queue.Pop()
		if !ok {
			e.active.Add(-1)
			if e.stop.ShouldStop() || e.queue.Closed() {
				return
			}
			time.Sleep(helperPollInterval)
			continue
		}
		e.runWorkItem(t, item)
	}
}

// runWorkItem executes one unit of helper work. The active counter is
// decremented on every exit path, and a helper panic is contained here:
// the coordinator keeps the best answer it already has.
func (e *Engine) runWorkItem(t *thread, item workItem) {
	defer e.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			if r == errSearchTimeout {
				return
			}
			e.log.Error().Int("worker", t.id).Interface("panic", r).Msg("helper panic contained")
			if e.diag != nil {
				e.diag.Faultf("worker-panic", "worker %d: %v", t.id, r)
			}
		}
	}()

	t.board = item.board
	for h := 0; h <= 2; h++ {
		t.stack[h].killer1 = types.MoveEmpty
		t.stack[h].killer2 = types.MoveEmpty
	}

	switch item.kind {
	case workRootMove:
		t.makeMove(item.move, 0)
		var childKey = t.board.Key()
		if e.transTable.HasExactCut(childKey) {
			// a sibling helper is already expanding this subtree
			t.unmakeMove()
			return
		}
		var marked = e.transTable.SetExactCut(childKey)
		if marked {
			defer e.transTable.ClearExactCut(childKey)
		}
		var score = -t.alphaBeta(-valueInfinity, valueInfinity, item.depth, 1)
		var line = append([]types.Move{item.move}, t.stack[1].pv.toSlice()...)
		t.unmakeMove()
		e.stop.PublishRootLine(RootSnapshot{
			Session: e.stop.Session(),
			Depth:   item.iteration,
			Score:   score,
			Line:    line,
			Nodes:   t.nodes,
			Elapsed: time.Since(e.start),
		})
	case workFullPosition:
		var ml = t.genRootMoves()
		if len(ml) == 0 {
			return
		}
		var score = t.searchRoot(ml, -valueInfinity, valueInfinity, item.depth, nil)
		e.stop.PublishRootLine(RootSnapshot{
			Session: e.stop.Session(),
			Depth:   item.depth,
			Score:   score,
			Line:    t.stack[0].pv.toSlice(),
			Nodes:   t.nodes,
			Elapsed: time.Since(e.start),
		})
	}
}

// publishHelperWork feeds the queue for one iteration: early depths
// hand out root moves in small chunks at reduced depth, later depths
// whole-position jobs at a per-helper depth variance so the pool does
// not duplicate exploration.
func (e *Engine) publishHelperWork(session uint64, depth, maxDepth int, ml []types.OrderedMove) {
	if e.Threads <= 1 || depth < 2 {
		return
	}
	var helpers = e.Threads - 1
	if depth <= Max(3, maxDepth/2) {
		var limit = Min(len(ml), helpers*rootChunkSize)
		for i := 0; i < limit; i++ {
			var item = workItem{
				kind:      workRootMove,
				iteration: depth,
				depth:     Max(1, depth-1),
				board:     e.rootBoard.Clone(),
				move:      ml[i].Move,
				index:     i,
			}
			if !e.queue.Push(item) {
				e.noteQueueOverflow(depth)
				return
			}
		}
	} else {
		for i := 0; i < helpers; i++ {
			var item = workItem{
				kind:      workFullPosition,
				iteration: depth,
				depth:     Min(depth+i%2, maxHeight),
				board:     e.rootBoard.Clone(),
			}
			if !e.queue.Push(item) {
				e.noteQueueOverflow(depth)
				return
			}
		}
	}
}

func (e *Engine) noteQueueOverflow(depth int) {
	var dropped = e.queue.Dropped()
	if dropped != e.lastDropped {
		e.lastDropped = dropped
		e.log.Debug().Int("depth", depth).Int64("dropped", dropped).Msg("work queue full")
	}
}

// afterIteration waits, bounded, for helper quiescence (empty queue and
// zero active workers), recycles the queue, and adopts the published
// shared best if it dominates the controller's own line.
func (e *Engine) afterIteration(session uint64, depth int) {
	if e.Threads > 1 {
		var deadline = time.Now().Add(helperDrainWait)
		for time.Now().Before(deadline) {
			if e.queue.Pending() == 0 && e.active.Load() == 0 {
				break
			}
			time.Sleep(helperPollInterval)
		}
		if e.queue.Pending() == 0 && e.active.Load() == 0 {
			e.queue.Clear()
		}
	}

	var snap = e.stop.ReadRootSnapshot()
	e.mu.Lock()
	if snap.Session == session && len(snap.Line) != 0 && dominates(snap, e.mainLine) {
		e.mainLine = mainLine{moves: snap.Line, score: snap.Score, depth: snap.Depth, nodes: e.nodes}
	}
	e.mu.Unlock()

	e.transTable.MaybeGC()
	e.emit(types.ProgressEvent{Kind: types.EventHashfull, Depth: depth, Hashfull: e.transTable.Hashfull()})
}

// dominates reports whether a published snapshot beats the current
// main line: higher score wins, depth breaks ties.
func dominates(snap RootSnapshot, cur mainLine) bool {
	if len(cur.moves) == 0 {
		return true
	}
	return snap.Score > cur.score || snap.Score == cur.score && snap.Depth > cur.depth
}

// onIterationComplete merges a finished controller iteration into the
// shared main line and publishes it as the stable snapshot.
func (e *Engine) onIterationComplete(session uint64, t *thread, depth, score int) {
	e.mu.Lock()
	e.nodes += t.nodes
	t.nodes = 0
	if depth > e.mainLine.depth {
		var line = t.stack[0].pv.toSlice()
		if len(line) == 0 {
			line = e.mainLine.moves
		}
		e.mainLine = mainLine{depth: depth, score: score, moves: line, nodes: e.nodes}
	}
	var info = e.currentSearchInfo(1)
	var nodes = e.nodes
	e.mu.Unlock()

	e.timeManager.OnIterationComplete(depth, score)
	e.stop.PublishRootLine(RootSnapshot{
		Session: session,
		Depth:   e.mainLine.depth,
		Score:   e.mainLine.score,
		Line:    e.mainLine.moves,
		Nodes:   nodes,
		Elapsed: time.Since(e.start),
		Stable:  true,
	})
	e.stop.PublishProgress(session, depth, nodes, time.Since(e.start))

	e.emit(types.ProgressEvent{Kind: types.EventDepth, Depth: depth})
	if nodes >= int64(e.ProgressMinNodes) {
		e.emit(types.ProgressEvent{Kind: types.EventPV, Depth: depth, Info: info})
	}
}

// timePoller translates the hard context deadline into a finalize
// request. Softer stops have already recorded their own reason, so the
// lower-priority request is simply rejected.
func (e *Engine) timePoller(done <-chan struct{}) {
	select {
	case <-done:
	case <-e.timeManager.Done():
		if e.timeManager.ctx.Err() == context.DeadlineExceeded {
			e.stop.RequestFinalize(ReasonNearHard)
		} else {
			e.stop.RequestFinalize(ReasonUserStop)
		}
	}
}

// watchdog is the last-resort safety valve: if cooperative cancellation
// has not taken effect well past the hard deadline, terminating the
// process beats serving a stale move.
func (e *Engine) watchdog(done <-chan struct{}) {
	var timer = time.NewTimer(e.timeManager.hardLimit * failSafeMargin)
	defer timer.Stop()
	select {
	case <-done:
		return
	case <-timer.C:
	}
	e.stop.RequestFinalize(ReasonHard)
	e.timeManager.cancel()
	select {
	case <-done:
		return
	case <-time.After(failSafeGrace):
		e.log.Fatal().
			Dur("hard_limit", e.timeManager.hardLimit).
			Msg("cooperative stop did not take effect, aborting")
	}
}
