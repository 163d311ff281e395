package search

import (
	"github.com/mkazuya/sente/pkg/tt"
	"github.com/mkazuya/sente/pkg/types"
)

const (
	maxQDepth          = 32
	deltaPruningMargin = 200
	badCaptureMinValue = 1000 // rook value
)

func (t *thread) quiescence(alpha, beta, height, qply int) int {
	t.clearPV(height)
	var board = t.board
	if height >= maxHeight {
		return t.evaluator.Evaluate(board)
	}

	var key = board.Key()
	var ttMove, entry, ttHit = t.ttMoveFor(key)
	if ttHit {
		t.ttHits++
		var ttValue = valueFromTT(int(entry.Score), height)
		if entry.Bound == tt.BoundExact ||
			entry.Bound == tt.BoundLower && ttValue >= beta ||
			entry.Bound == tt.BoundUpper && ttValue <= alpha {
			return ttValue
		}
	}

	var isCheck = board.InCheck()
	var best = -valueInfinity
	var staticEval = 0
	if !isCheck {
		if ttHit {
			staticEval = int(entry.Eval)
		} else {
			staticEval = t.evaluator.Evaluate(board)
		}
		best = staticEval
		if staticEval > alpha {
			alpha = staticEval
			if alpha >= beta {
				return alpha
			}
		}
		// unstable lines are cut off once the ply budget runs out
		if qply >= maxQDepth {
			return staticEval
		}
	}

	var quietCheckLimit = t.engine.QuietCheckLimit
	if qply > 0 {
		quietCheckLimit = 0
	}
	var mi = movePicker{
		board:           board,
		buffer:          t.stack[height].moveList[:],
		diag:            t.engine.diag,
		ttMove:          ttMove,
		quietCheckLimit: quietCheckLimit,
		mode:            modeQuiescence,
	}
	mi.init()

	var hasLegalMove = false
	for {
		var move = mi.Next()
		if move == types.MoveEmpty {
			break
		}
		if !isCheck {
			switch mi.Stage() {
			case stageQGood, stageTt:
				if move.CapturedPiece() != types.Empty &&
					saturatedAdd(staticEval, pieceValues[move.CapturedPiece()]+deltaPruningMargin) <= alpha &&
					!board.GivesCheck(move) {
					continue
				}
			case stageQBad:
				// losing captures only when the prize is big or the
				// move checks
				if pieceValues[move.CapturedPiece()] < badCaptureMinValue && !board.GivesCheck(move) {
					continue
				}
			}
		}
		t.makeMove(move, height)
		hasLegalMove = true
		var score = -t.quiescence(-beta, -alpha, height+1, qply+1)
		t.unmakeMove()
		if score > best {
			best = score
		}
		if score > alpha {
			alpha = score
			t.assignPV(height, move)
			if alpha >= beta {
				break
			}
		}
	}

	if !hasLegalMove {
		if isCheck {
			if mi.Failed() {
				// malformed evasion state, fall back to the static view
				return t.evaluator.Evaluate(board)
			}
			return lossIn(height)
		}
		if mi.Failed() {
			return staticEval
		}
	}
	return best
}
