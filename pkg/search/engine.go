package search

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkazuya/sente/pkg/tt"
	"github.com/mkazuya/sente/pkg/types"
)

type SearchParams struct {
	Board  types.Board
	Limits types.LimitsType
}

type Engine struct {
	Hash               int
	Threads            int
	MultiPV            int
	ExperimentSettings bool
	ProgressMinNodes   int
	QuietCheckLimit    int
	DisableFailSafe    bool

	evalBuilder       func() types.Evaluator
	transTable        *tt.Table
	lateMoveReduction func(d, m int) int
	timeManager       *timeManager
	stop              *StopController
	aspiration        aspirationWindow
	queue             *workQueue
	diag              *Diagnostics
	threads           []thread
	progress          func(types.ProgressEvent)
	debug             func(string)
	mainLine          mainLine
	sessionSeq        uint64
	rootBoard         types.Board
	active            atomic.Int32
	lastDropped       int64
	start             time.Time
	nodes             int64
	ttHits            int64
	betaCuts          int64
	lmrCount          int64
	log               zerolog.Logger
	mu                sync.Mutex
}

type thread struct {
	engine    *Engine
	id        int
	board     types.Board
	evaluator types.Evaluator
	history   historyService
	nodes     int64
	ttHits    int64
	betaCuts  int64
	lmrCount  int64
	seldepth  int
	rootDepth int
	stack     [stackSize]struct {
		moveList       [types.MaxMoves]types.OrderedMove
		quietsSearched [types.MaxMoves]types.Move
		pv             pv
		staticEval     int
		current        types.Move
		killer1        types.Move
		killer2        types.Move
	}
}

type pv struct {
	items [stackSize]types.Move
	size  int
}

type mainLine struct {
	moves []types.Move
	score int
	depth int
	nodes int64
}

func NewEngine(evalBuilder func() types.Evaluator) *Engine {
	return &Engine{
		Hash:             16,
		Threads:          1,
		MultiPV:          1,
		ProgressMinNodes: 200000,
		QuietCheckLimit:  2,
		evalBuilder:      evalBuilder,
		stop:             NewStopController(),
		log:              zerolog.Nop(),
	}
}

func (e *Engine) SetLogger(l zerolog.Logger) {
	e.log = l
	if e.transTable != nil {
		e.transTable.SetLogger(l)
	}
}

// SetDiagnostics installs the injected diagnostics collaborator used by
// guarded invariants and the picker stage histogram.
func (e *Engine) SetDiagnostics(d *Diagnostics) {
	e.diag = d
}

// StopController exposes the session coordinator for external
// cancellation sources.
func (e *Engine) StopController() *StopController {
	return e.stop
}

// StopSnapshot is a point-in-time diagnostic view of a session: the
// stop record, the published best line, the cancellation flag, and the
// helper pool load.
type StopSnapshot struct {
	Info          StopInfo
	Root          RootSnapshot
	StopRequested bool
	PendingWork   int
	ActiveWorkers int
}

// StopSnapshot reads the diagnostic state without disturbing a running
// search.
func (e *Engine) StopSnapshot() StopSnapshot {
	var snap = StopSnapshot{
		Info:          e.stop.TryReadStopInfo(),
		Root:          e.stop.ReadRootSnapshot(),
		StopRequested: e.stop.StopRequested(),
		ActiveWorkers: int(e.active.Load()),
	}
	if e.queue != nil {
		snap.PendingWork = e.queue.Pending()
	}
	return snap
}

// TransTable exposes the shared hash table for persistence and
// diagnostics.
func (e *Engine) TransTable() *tt.Table {
	return e.transTable
}

func (e *Engine) Prepare() {
	if e.transTable == nil || e.transTable.Megabytes() != e.Hash {
		if e.transTable != nil {
			e.transTable = nil
			runtime.GC()
		}
		e.transTable = tt.New(e.Hash)
		e.transTable.SetLogger(e.log)
	}
	if e.lateMoveReduction == nil {
		e.lateMoveReduction = initLmr(lmrMult)
	}
	if e.queue == nil || e.queue.Closed() {
		e.queue = newWorkQueue(workQueueCapacity)
	}
	if len(e.threads) != e.Threads {
		e.threads = make([]thread, e.Threads)
		for i := range e.threads {
			var t = &e.threads[i]
			t.engine = e
			t.id = i
			t.evaluator = e.evalBuilder()
		}
	}
}

func (e *Engine) Clear() {
	if e.transTable != nil {
		e.transTable.Clear()
	}
	for i := range e.threads {
		e.threads[i].history.Clear()
	}
	e.aspiration.clear()
}

// Search runs one session to completion and reports the best move
// exactly once.
func (e *Engine) Search(ctx context.Context, params SearchParams) types.SearchResult {
	e.start = time.Now()
	e.Prepare()
	var limits = params.Limits
	e.progress = limits.Progress
	e.debug = limits.Debug

	e.sessionSeq++
	var session = e.sessionSeq
	e.stop.PublishSession(session, limits.Stop)

	e.timeManager = newTimeManager(ctx, e.start, limits, params.Board.SideToMove(), e.stop)
	defer e.timeManager.Close()

	e.transTable.NextAge()
	e.nodes = 0
	e.ttHits = 0
	e.betaCuts = 0
	e.lmrCount = 0
	e.mainLine = mainLine{}
	e.aspiration.clear()
	e.queue.Clear()
	e.rootBoard = params.Board.Clone()
	e.lastDropped = e.queue.Dropped()
	for i := range e.threads {
		var t = &e.threads[i]
		t.board = params.Board.Clone()
		t.nodes = 0
		t.ttHits = 0
		t.betaCuts = 0
		t.lmrCount = 0
		t.seldepth = 0
	}

	e.runSearch(ctx, session)

	for i := range e.threads {
		var t = &e.threads[i]
		e.collectThreadStats(t)
	}
	if e.stop.TryReadStopInfo().Reason == ReasonNone {
		e.stop.RequestFinalize(ReasonPlanned)
	}
	e.stop.PublishProgress(session, e.mainLine.depth, e.nodes, time.Since(e.start))

	if !e.stop.TryClaimFinalize() {
		// someone else already emitted the final answer for this session
		e.log.Warn().Uint64("session", session).Msg("finalize already claimed")
	}
	return e.buildResult(session)
}

func (e *Engine) collectThreadStats(t *thread) {
	e.nodes += t.nodes
	e.ttHits += t.ttHits
	e.betaCuts += t.betaCuts
	e.lmrCount += t.lmrCount
	t.nodes = 0
	t.ttHits = 0
	t.betaCuts = 0
	t.lmrCount = 0
}

func (e *Engine) buildResult(session uint64) types.SearchResult {
	var info = e.stop.TryReadStopInfo()
	var snap = e.stop.ReadRootSnapshot()

	var best = types.MoveEmpty
	var score = e.mainLine.score
	if len(e.mainLine.moves) != 0 {
		best = e.mainLine.moves[0]
	}
	if snap.Session == session && len(snap.Line) != 0 && dominates(snap, e.mainLine) {
		best = snap.Line[0]
		score = snap.Score
	}

	var reason = terminationOf(info.Reason, score, e.mainLine.depth)
	return types.SearchResult{
		BestMove: best,
		Score:    score,
		Reason:   reason,
		Stats: types.SearchStats{
			Nodes:    e.nodes,
			Depth:    e.mainLine.depth,
			TTHits:   e.ttHits,
			BetaCuts: e.betaCuts,
			LMRCount: e.lmrCount,
			Elapsed:  time.Since(e.start),
		},
	}
}

func terminationOf(reason FinalizeReason, score, depth int) types.TerminationReason {
	if depth > 0 && isMateValue(score) {
		return types.TerminationMate
	}
	switch reason {
	case ReasonUserStop:
		return types.TerminationUserStop
	case ReasonTimeManagerStop, ReasonNearHard:
		return types.TerminationTimeLimit
	case ReasonHard:
		return types.TerminationAborted
	case ReasonPlannedMate:
		return types.TerminationMate
	}
	return types.TerminationCompleted
}

func (e *Engine) currentSearchInfo(multiPV int) *types.SearchInfo {
	return &types.SearchInfo{
		Depth:    e.mainLine.depth,
		Seldepth: e.threads[0].seldepth,
		Score:    newUsiScore(e.mainLine.score),
		Nodes:    e.nodes + e.threads[0].nodes,
		Time:     time.Since(e.start),
		MainLine: e.mainLine.moves,
		Hashfull: e.transTable.Hashfull(),
		MultiPV:  multiPV,
	}
}

func (e *Engine) emit(ev types.ProgressEvent) {
	if e.progress != nil {
		e.progress(ev)
	}
}

func (e *Engine) debugf(msg string) {
	if e.debug != nil {
		e.debug(msg)
	}
}

func (t *thread) lastMove(height int) types.Move {
	if height < 1 {
		return types.MoveEmpty
	}
	return t.stack[height-1].current
}

func (t *thread) clearPV(height int) {
	t.stack[height].pv.clear()
}

func (t *thread) assignPV(height int, move types.Move) {
	if height+1 < stackSize {
		t.stack[height].pv.assign(move, &t.stack[height+1].pv)
	}
}

func (pv *pv) clear() {
	pv.size = 0
}

func (pv *pv) assign(m types.Move, child *pv) {
	pv.size = 1
	pv.items[0] = m
	if child.size > 0 && 1+child.size <= len(pv.items) {
		pv.size += child.size
		copy(pv.items[1:], child.items[:child.size])
	}
}

func (pv *pv) toSlice() []types.Move {
	var result = make([]types.Move, pv.size)
	copy(result, pv.items[:pv.size])
	return result
}
