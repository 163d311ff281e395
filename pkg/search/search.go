package search

import (
	"errors"
	"time"

	"github.com/mkazuya/sente/pkg/tt"
	"github.com/mkazuya/sente/pkg/types"
)

var errSearchTimeout = errors.New("search timeout")

func (t *thread) incNodes() {
	t.nodes++
	if t.nodes&255 == 0 {
		var e = t.engine
		if e.Threads == 1 {
			//fixed nodes search only in single threaded mode
			e.timeManager.OnNodesChanged(e.nodes + t.nodes)
		}
		if e.timeManager.IsDone() {
			panic(errSearchTimeout)
		}
	}
}

func (t *thread) makeMove(move types.Move, height int) {
	t.stack[height].current = move
	t.board.DoMove(move)
	if height+1 > t.seldepth {
		t.seldepth = height + 1
	}
	t.incNodes()
}

func (t *thread) unmakeMove() {
	t.board.UndoMove()
}

func (t *thread) makeNullMove(height int) {
	t.stack[height].current = types.MoveEmpty
	t.evaluator.OnDoNullMove(t.board)
	t.board.DoNullMove()
	t.incNodes()
}

func (t *thread) unmakeNullMove() {
	t.board.UndoNullMove()
}

func (t *thread) updateKiller(move types.Move, height int) {
	if t.stack[height].killer1 != move {
		t.stack[height].killer2 = t.stack[height].killer1
		t.stack[height].killer1 = move
	}
}

func (t *thread) ttMoveFor(key uint64) (types.Move, tt.Entry, bool) {
	var entry, ok = t.engine.transTable.Probe(key)
	if !ok {
		return types.MoveEmpty, tt.Entry{}, false
	}
	var move = types.MoveEmpty
	if entry.Move != 0 {
		if m, completed := t.board.CompleteMove(entry.Move); completed {
			move = m
		}
	}
	return move, entry, true
}

// iterate is the iterative-deepening driver running on the calling
// thread. Cancellation unwinds through errSearchTimeout and leaves the
// last completed iteration in place.
func (e *Engine) iterate(session uint64) {
	defer func() {
		if r := recover(); r != nil && r != errSearchTimeout {
			panic(r)
		}
	}()

	var t = &e.threads[0]
	var ml = t.genRootMoves()
	if len(ml) == 0 {
		e.debugf("no legal moves at root")
		return
	}
	e.mu.Lock()
	e.mainLine = mainLine{moves: []types.Move{ml[0].Move}}
	e.mu.Unlock()
	if len(ml) == 1 && e.timeManager.softLimit != 0 {
		// forced move, no need to spend the budget
		e.onIterationComplete(session, t, 1, 0)
		return
	}

	var maxDepth = maxHeight
	if d := e.timeManager.limits.Depth; d > 0 {
		maxDepth = Min(d, maxHeight)
	}
	var multiPV = Max(1, e.MultiPV)
	if n := e.timeManager.limits.MultiPV; n > 0 {
		multiPV = n
	}

	for depth := 1; depth <= maxDepth; depth++ {
		e.publishHelperWork(session, depth, maxDepth, ml)
		if multiPV == 1 {
			var score = t.searchRootAspiration(ml, depth)
			e.onIterationComplete(session, t, depth, score)
		} else {
			e.searchMultiPV(session, t, ml, depth, multiPV)
		}
		e.afterIteration(session, depth)
		if e.timeManager.IsDone() {
			// keep the reason recorded by whoever stopped us
			return
		}
	}
	e.stop.RequestFinalize(ReasonPlanned)
}

func (e *Engine) searchMultiPV(session uint64, t *thread, ml []types.OrderedMove, depth, multiPV int) {
	var excluded []types.Move
	for pvIndex := 1; pvIndex <= Min(multiPV, len(ml)); pvIndex++ {
		var score = t.searchRoot(ml, -valueInfinity, valueInfinity, depth, excluded)
		var line = t.stack[0].pv.toSlice()
		if len(line) == 0 {
			break
		}
		if pvIndex == 1 {
			e.aspiration.updateScore(score, tt.BoundExact)
			e.onIterationComplete(session, t, depth, score)
		} else {
			e.emit(types.ProgressEvent{Kind: types.EventPV, Depth: depth, Info: &types.SearchInfo{
				Depth:    depth,
				Seldepth: t.seldepth,
				Score:    newUsiScore(score),
				Nodes:    e.nodes + t.nodes,
				Time:     time.Since(e.start),
				MainLine: line,
				Hashfull: e.transTable.Hashfull(),
				MultiPV:  pvIndex,
			}})
		}
		excluded = append(excluded, line[0])
	}
}

// searchRootAspiration runs one depth inside an aspiration window,
// widening the failing side on each retry and falling back to the full
// window past the retry cap.
func (t *thread) searchRootAspiration(ml []types.OrderedMove, depth int) int {
	var e = t.engine
	var asp = &e.aspiration
	var best = e.mainLine.score
	var alpha, beta = asp.initialBounds(depth, best)
	for retries := 0; ; retries++ {
		var score = t.searchRoot(ml, alpha, beta, depth, nil)
		if score > alpha && score < beta {
			asp.updateScore(score, tt.BoundExact)
			return score
		}
		e.emit(types.ProgressEvent{Kind: types.EventAspiration, Depth: depth, Alpha: alpha, Beta: beta})
		if asp.stopRetries(retries) {
			score = t.searchRoot(ml, -valueInfinity, valueInfinity, depth, nil)
			asp.updateScore(score, tt.BoundExact)
			return score
		}
		alpha, beta = asp.expandWindow(score, alpha, beta, best)
	}
}

func (t *thread) genRootMoves() []types.OrderedMove {
	var board = t.board
	var ttMove, _, _ = t.ttMoveFor(board.Key())
	var hc = t.getHistoryContext(0)
	var mi = movePicker{
		board:   board,
		history: &hc,
		buffer:  t.stack[0].moveList[:],
		diag:    t.engine.diag,
		ttMove:  ttMove,
	}
	mi.init()
	var result []types.OrderedMove
	for {
		var m = mi.Next()
		if m == types.MoveEmpty {
			break
		}
		result = append(result, types.OrderedMove{Move: m})
	}
	return result
}

func containsMatching(moves []types.Move, m types.Move) bool {
	for _, x := range moves {
		if x.Matches(m) {
			return true
		}
	}
	return false
}

// searchRoot runs the move loop at height zero over a prepared root
// move list, keeping the list ordered for the next iteration.
func (t *thread) searchRoot(ml []types.OrderedMove, alpha, beta, depth int, excluded []types.Move) int {
	const height = 0
	t.rootDepth = depth
	t.clearPV(height)
	var e = t.engine
	var board = t.board
	var key = board.Key()
	t.stack[height].staticEval = t.evaluator.Evaluate(board)

	var best = -valueInfinity
	var bestMove = types.MoveEmpty
	var oldAlpha = alpha
	var movesSearched = 0

	for i := range ml {
		var move = ml[i].Move
		if containsMatching(excluded, move) {
			continue
		}
		if t.id == 0 {
			e.emit(types.ProgressEvent{Kind: types.EventCurrMove, Depth: depth, CurrMove: move, CurrMoveNumber: movesSearched + 1})
		}
		t.makeMove(move, height)
		movesSearched++
		var newDepth = depth - 1

		var score = alpha + 1
		if movesSearched > 1 {
			score = -t.alphaBeta(-(alpha + 1), -alpha, newDepth, height+1)
		}
		if score > alpha {
			score = -t.alphaBeta(-beta, -alpha, newDepth, height+1)
		}
		t.unmakeMove()

		ml[i].Key = int32(score)
		if score > best {
			best = score
			bestMove = move
		}
		if score > alpha {
			alpha = score
			t.assignPV(height, move)
			if alpha >= beta {
				t.betaCuts++
				break
			}
		}
	}

	if movesSearched == 0 {
		return lossIn(height)
	}

	var bound = boundOf(best, oldAlpha, beta)
	if bound != tt.BoundUpper {
		e.transTable.Store(key, bestMove.Compact(), valueToTT(best, height), t.stack[height].staticEval, depth, bound, true)
	}
	if idx := findMoveIndex(ml, bestMove); idx >= 0 {
		moveToBegin(ml, idx)
	}
	return best
}

func boundOf(best, oldAlpha, beta int) tt.Bound {
	if best >= beta {
		return tt.BoundLower
	}
	if best <= oldAlpha {
		return tt.BoundUpper
	}
	return tt.BoundExact
}

// main search method
func (t *thread) alphaBeta(alpha, beta, depth, height int) int {
	if depth <= 0 {
		return t.quiescence(alpha, beta, height, 0)
	}
	t.clearPV(height)

	var pvNode = beta != alpha+1
	var e = t.engine
	var board = t.board
	var isCheck = board.InCheck()

	if height >= maxHeight {
		return t.evaluator.Evaluate(board)
	}
	// mate distance pruning
	if winIn(height+1) <= alpha {
		return alpha
	}
	if lossIn(height+2) >= beta && !isCheck {
		return beta
	}

	var key = board.Key()
	e.transTable.Prefetch(key)
	var ttMove, entry, ttHit = t.ttMoveFor(key)
	var ttDepth, ttValue int
	var ttBound tt.Bound
	if ttHit {
		t.ttHits++
		ttDepth = entry.Depth
		ttValue = valueFromTT(int(entry.Score), height)
		ttBound = entry.Bound
		if ttDepth >= depth && !pvNode {
			if ttValue >= beta && (ttBound == tt.BoundLower || ttBound == tt.BoundExact) {
				if ttMove != types.MoveEmpty && !isCaptureOrPromotion(ttMove) {
					t.updateKiller(ttMove, height)
				}
				return ttValue
			}
			if ttValue <= alpha && (ttBound == tt.BoundUpper || ttBound == tt.BoundExact) {
				return ttValue
			}
		}
	}

	var staticEval int
	if ttHit {
		// the stored entry carries the node's static eval
		staticEval = int(entry.Eval)
	} else {
		staticEval = t.evaluator.Evaluate(board)
	}
	t.stack[height].staticEval = staticEval
	var improving = height < 2 || staticEval > t.stack[height-2].staticEval

	if height+2 <= maxHeight {
		t.stack[height+2].killer1 = types.MoveEmpty
		t.stack[height+2].killer2 = types.MoveEmpty
	}

	if !pvNode && !isCheck {
		// static-beta pruning
		if depth <= 6 && beta < valueWin && saturatedAdd(staticEval, -120*depth) >= beta {
			return staticEval
		}

		// razoring
		if depth <= 2 && alpha > valueLoss && saturatedAdd(staticEval, 400) < alpha {
			var score = t.quiescence(alpha, alpha+1, height, 0)
			if score <= alpha {
				return score
			}
		}

		// null-move pruning; with an empty hand zugzwang is a real
		// possibility, so demand either hand pieces or a margin
		if depth >= 3 && staticEval >= beta && beta < valueWin &&
			t.lastMove(height) != types.MoveEmpty &&
			!(ttHit && ttValue < beta && ttBound == tt.BoundUpper) &&
			(board.HandMaterial() > 0 || staticEval >= beta+150) {
			var reduction = 2 + depth/4 + Min(2, (staticEval-beta)/200)
			t.makeNullMove(height)
			var score = -t.alphaBeta(-beta, -(beta - 1), depth-1-reduction, height+1)
			t.unmakeNullMove()
			if score >= beta {
				if score >= valueWin {
					score = beta
				}
				return score
			}
		}
	}

	// internal iterative deepening
	if pvNode && ttMove == types.MoveEmpty && depth >= 4 {
		t.alphaBeta(alpha, beta, depth-2, height)
		ttMove, _, _ = t.ttMoveFor(key)
		t.clearPV(height)
	}

	// ProbCut
	if !pvNode && !isCheck && depth >= 5 && beta > valueLoss && beta < valueWin {
		var probcutBeta = Min(valueWin-1, beta+150)
		if !(ttHit && ttDepth >= depth-4 && ttValue < probcutBeta && ttBound == tt.BoundUpper) {
			var mi = movePicker{
				board:  board,
				buffer: t.stack[height].moveList[:],
				diag:   e.diag,
				mode:   modeProbCut,
			}
			mi.init()
			for {
				var move = mi.Next()
				if move == types.MoveEmpty {
					break
				}
				t.makeMove(move, height)
				var score = -t.quiescence(-probcutBeta, -probcutBeta+1, height+1, 0)
				if score >= probcutBeta {
					score = -t.alphaBeta(-probcutBeta, -probcutBeta+1, depth-4, height+1)
				}
				t.unmakeMove()
				if score >= probcutBeta {
					return score
				}
			}
		}
	}

	var hc = t.getHistoryContext(height)
	var killer1 = t.stack[height].killer1
	var killer2 = t.stack[height].killer2
	var mi = movePicker{
		board:   board,
		history: &hc,
		buffer:  t.stack[height].moveList[:],
		diag:    e.diag,
		ttMove:  ttMove,
		killer1: killer1,
		killer2: killer2,
		counter: hc.CounterMove(),
	}
	mi.init()

	var movesSearched = 0
	var hasLegalMove = false
	var quietsSeen = 0
	var quietsSearched = t.stack[height].quietsSearched[:0]
	var bestMove = types.MoveEmpty

	var lmp = 5 + (depth-1)*depth
	if !improving {
		lmp /= 2
	}

	var best = -valueInfinity
	var oldAlpha = alpha

	for {
		var move = mi.Next()
		if move == types.MoveEmpty {
			break
		}
		var isNoisy = isCaptureOrPromotion(move)
		if !isNoisy {
			quietsSeen++
		}
		var givesCheck = board.GivesCheck(move)

		if depth <= 8 && best > valueLoss && hasLegalMove && !isCheck && !givesCheck {
			// late-move pruning
			if !(isNoisy || move == killer1 || move == killer2) &&
				quietsSeen > lmp {
				continue
			}

			// futility pruning
			if !(isNoisy || move == killer1 || move == killer2) &&
				saturatedAdd(staticEval, 100+pawnValue*depth) <= alpha {
				continue
			}

			// SEE pruning
			var seeMargin int
			if isNoisy {
				seeMargin = Max(depth, (staticEval+pawnValue-alpha)/pawnValue)
			} else {
				seeMargin = depth / 2
			}
			if board.SEE(move) < -seeMargin {
				continue
			}
		}

		t.makeMove(move, height)
		hasLegalMove = true
		movesSearched++

		var extension = 0
		if givesCheck && depth >= 3 {
			extension = 1
		}

		var reduction = 0
		if depth >= 3 && movesSearched > 1 && !isNoisy {
			reduction = e.lateMoveReduction(depth, movesSearched)
			if move == killer1 || move == killer2 {
				reduction--
			}
			if !isCheck {
				reduction -= Max(-2, Min(2, hc.ReadTotal(move)/5000))
				if !improving {
					reduction++
				}
			}
			if pvNode {
				reduction -= 2
			}
			if isCheck || givesCheck {
				reduction--
			}
			reduction = Max(reduction, 0) + extension
			reduction = Max(0, Min(depth-2, reduction))
			if reduction > 0 {
				t.lmrCount++
			}
		}

		if !isNoisy {
			quietsSearched = append(quietsSearched, move)
		}

		var newDepth = depth - 1 + extension

		var score = alpha + 1
		// LMR
		if reduction > 0 {
			score = -t.alphaBeta(-(alpha + 1), -alpha, newDepth-reduction, height+1)
		}
		// PVS
		if score > alpha && pvNode && movesSearched > 1 && newDepth > 0 {
			score = -t.alphaBeta(-(alpha + 1), -alpha, newDepth, height+1)
		}
		// full search
		if score > alpha {
			score = -t.alphaBeta(-beta, -alpha, newDepth, height+1)
		}

		t.unmakeMove()

		if score > best {
			best = score
			bestMove = move
		}
		if score > alpha {
			alpha = score
			t.assignPV(height, move)
			if alpha >= beta {
				t.betaCuts++
				break
			}
		}
	}

	if !hasLegalMove {
		if mi.Failed() {
			// generator reported a malformed position
			return staticEval
		}
		// no legal moves loses, mated or not
		return lossIn(height)
	}

	if alpha > oldAlpha && bestMove != types.MoveEmpty {
		if isCaptureOrPromotion(bestMove) {
			hc.UpdateCapture(bestMove, depth, true)
		} else {
			hc.Update(quietsSearched, bestMove, depth)
			t.updateKiller(bestMove, height)
		}
	}

	var bound = boundOf(best, oldAlpha, beta)
	e.transTable.Store(key, bestMove.Compact(), valueToTT(best, height), staticEval, depth, bound, pvNode)

	return best
}
