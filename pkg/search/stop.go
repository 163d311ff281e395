package search

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkazuya/sente/pkg/types"
)

type FinalizeReason uint8

const (
	ReasonNone FinalizeReason = iota
	ReasonUserStop
	ReasonTimeManagerStop
	ReasonPonderToMove
	ReasonPlanned
	ReasonPlannedMate
	ReasonNearHard
	ReasonHard
)

// priority orders cancellation sources: Hard > NearHard = PlannedMate >
// Planned = PonderToMove > TimeManagerStop > UserStop.
func (r FinalizeReason) priority() uint32 {
	switch r {
	case ReasonHard:
		return 5
	case ReasonNearHard, ReasonPlannedMate:
		return 4
	case ReasonPlanned, ReasonPonderToMove:
		return 3
	case ReasonTimeManagerStop:
		return 2
	case ReasonUserStop:
		return 1
	}
	return 0
}

// IsHard reports whether the reason came from a deadline rather than a
// planned completion.
func (r FinalizeReason) IsHard() bool {
	return r == ReasonHard || r == ReasonNearHard
}

func (r FinalizeReason) String() string {
	switch r {
	case ReasonUserStop:
		return "user_stop"
	case ReasonTimeManagerStop:
		return "time_manager_stop"
	case ReasonPonderToMove:
		return "ponder_to_move"
	case ReasonPlanned:
		return "planned"
	case ReasonPlannedMate:
		return "planned_mate"
	case ReasonNearHard:
		return "near_hard"
	case ReasonHard:
		return "hard"
	}
	return "none"
}

// StopInfo records why a session stopped. Reason and hardness follow
// the accepted finalize request; the progress fields only ever rise.
type StopInfo struct {
	Reason  FinalizeReason
	Hard    bool
	Depth   int
	Nodes   int64
	Elapsed time.Duration
}

// RootSnapshot is the latest published best line of a session. Stable
// snapshots come from a completed controller iteration, partial ones
// from helper threads.
type RootSnapshot struct {
	Session uint64
	Depth   int
	Score   int
	Line    []types.Move
	Nodes   int64
	Elapsed time.Duration
	Stable  bool
}

// StopController coordinates cancellation and exactly-once finalize
// across the coordinator, worker threads, and external callers.
type StopController struct {
	session  atomic.Uint64
	priority atomic.Uint32
	claimed  atomic.Bool
	stopFlag atomic.Bool
	external atomic.Pointer[atomic.Bool]
	notify   chan uint64

	mu   sync.Mutex
	info StopInfo
	root RootSnapshot
}

func NewStopController() *StopController {
	return &StopController{}
}

// Subscribe installs a side channel that receives the id of every new
// session. Send is non-blocking; a full channel drops the notice.
func (c *StopController) Subscribe(ch chan uint64) {
	c.notify = ch
}

// PublishSession begins a new session: prior snapshot and finalize
// state are cleared and the external cancellation flag reference is
// replaced.
func (c *StopController) PublishSession(id uint64, external *atomic.Bool) {
	c.mu.Lock()
	c.info = StopInfo{}
	c.root = RootSnapshot{Session: id}
	c.mu.Unlock()
	c.priority.Store(0)
	c.claimed.Store(false)
	c.stopFlag.Store(false)
	c.external.Store(external)
	c.session.Store(id)
	if c.notify != nil {
		select {
		case c.notify <- id:
		default:
		}
	}
}

func (c *StopController) Session() uint64 {
	return c.session.Load()
}

// ShouldStop is the cooperative cancellation check polled at node
// boundaries.
func (c *StopController) ShouldStop() bool {
	if c.stopFlag.Load() {
		return true
	}
	if p := c.external.Load(); p != nil && p.Load() {
		c.RequestFinalize(ReasonUserStop)
		return true
	}
	return false
}

// StopRequested reports the cancellation flag without the finalize
// side effect of ShouldStop.
func (c *StopController) StopRequested() bool {
	if c.stopFlag.Load() {
		return true
	}
	var p = c.external.Load()
	return p != nil && p.Load()
}

// RequestFinalize accepts a stop request only if its priority strictly
// exceeds the currently accepted one. An accepted request raises the
// cancellation flag and rewrites the stop reason.
func (c *StopController) RequestFinalize(reason FinalizeReason) bool {
	var p = reason.priority()
	for {
		var cur = c.priority.Load()
		if p <= cur {
			return false
		}
		if c.priority.CompareAndSwap(cur, p) {
			break
		}
	}
	c.stopFlag.Store(true)
	if ext := c.external.Load(); ext != nil {
		ext.Store(true)
	}
	c.mu.Lock()
	c.info.Reason = reason
	c.info.Hard = reason.IsHard()
	c.mu.Unlock()
	return true
}

// TryClaimFinalize is the one-shot gate to emit the final answer.
func (c *StopController) TryClaimFinalize() bool {
	return c.claimed.CompareAndSwap(false, true)
}

// PublishProgress raises the monotonic progress fields of the stop
// record. Values below the published ones are ignored.
func (c *StopController) PublishProgress(session uint64, depth int, nodes int64, elapsed time.Duration) {
	if session != c.session.Load() {
		return
	}
	c.mu.Lock()
	if depth > c.info.Depth {
		c.info.Depth = depth
	}
	if nodes > c.info.Nodes {
		c.info.Nodes = nodes
	}
	if elapsed > c.info.Elapsed {
		c.info.Elapsed = elapsed
	}
	c.mu.Unlock()
}

// PublishRootLine replaces the published snapshot unless the candidate
// is strictly worse: a stable line at equal or greater depth beats a
// partial one, and among equal quality the deeper, or equally deep and
// fresher, line wins. Stale-session publications are dropped.
func (c *StopController) PublishRootLine(snap RootSnapshot) bool {
	if snap.Session != c.session.Load() || len(snap.Line) == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.Session != c.root.Session {
		return false
	}
	var cur = &c.root
	var accept bool
	switch {
	case len(cur.Line) == 0:
		accept = true
	case snap.Stable && !cur.Stable:
		accept = snap.Depth >= cur.Depth
	case !snap.Stable && cur.Stable:
		accept = snap.Depth > cur.Depth
	default:
		accept = snap.Depth >= cur.Depth
	}
	if !accept {
		return false
	}
	c.root = snap
	if snap.Depth > c.info.Depth {
		c.info.Depth = snap.Depth
	}
	if snap.Nodes > c.info.Nodes {
		c.info.Nodes = snap.Nodes
	}
	if snap.Elapsed > c.info.Elapsed {
		c.info.Elapsed = snap.Elapsed
	}
	return true
}

// TryReadStopInfo returns the current stop record.
func (c *StopController) TryReadStopInfo() StopInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// ReadRootSnapshot returns the latest published best line.
func (c *StopController) ReadRootSnapshot() RootSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	var snap = c.root
	snap.Line = append([]types.Move(nil), c.root.Line...)
	return snap
}
