package search

import "github.com/mkazuya/sente/pkg/types"

const historyMax = 1 << 14

const (
	// board moves index by from square, drops by a virtual square per
	// dropped piece type
	fromIndexSize    = types.SquareCount + types.Dragon + 1
	pieceToIndexSize = (types.Dragon + 1) * types.SquareCount
)

type historyService struct {
	mainHistory         [2][fromIndexSize * types.SquareCount]int16
	continuationHistory [pieceToIndexSize][pieceToIndexSize]int16
	captureHistory      [pieceToIndexSize * (types.Dragon + 1)]int16
	counterMoves        [2][pieceToIndexSize]types.Move
}

func (hs *historyService) Clear() {
	for side := range hs.mainHistory {
		for i := range hs.mainHistory[side] {
			hs.mainHistory[side][i] = 0
		}
	}
	for i := range hs.continuationHistory {
		for j := range hs.continuationHistory[i] {
			hs.continuationHistory[i][j] = 0
		}
	}
	for i := range hs.captureHistory {
		hs.captureHistory[i] = 0
	}
	for side := range hs.counterMoves {
		for i := range hs.counterMoves[side] {
			hs.counterMoves[side][i] = types.MoveEmpty
		}
	}
}

func fromIndex(m types.Move) int {
	if m.IsDrop() {
		return types.SquareCount + m.MovingPiece()
	}
	return m.From()
}

func fromToIndex(m types.Move) int {
	return fromIndex(m)*types.SquareCount + m.To()
}

func pieceToIndex(m types.Move) int {
	return m.MovingPiece()*types.SquareCount + m.To()
}

func captureIndex(m types.Move) int {
	return pieceToIndex(m)*(types.Dragon+1) + m.CapturedPiece()
}

type historyContext struct {
	service    *historyService
	sideToMove int
	cont1      int
	cont2      int
}

func (h *historyContext) ReadTotal(m types.Move) int {
	var score = int(h.service.mainHistory[h.sideToMove][fromToIndex(m)])
	var idx = pieceToIndex(m)
	if h.cont1 != -1 {
		score += int(h.service.continuationHistory[h.cont1][idx])
	}
	if h.cont2 != -1 {
		score += int(h.service.continuationHistory[h.cont2][idx])
	}
	return score
}

func (h *historyContext) ReadCapture(m types.Move) int {
	return int(h.service.captureHistory[captureIndex(m)])
}

func (h *historyContext) CounterMove() types.Move {
	if h.cont1 == -1 {
		return types.MoveEmpty
	}
	return h.service.counterMoves[h.sideToMove][h.cont1]
}

func (h *historyContext) Update(quietsSearched []types.Move, bestMove types.Move, depth int) {
	var bonus = Min(depth*depth, 400)
	for _, m := range quietsSearched {
		var good = m == bestMove
		updateHistory(&h.service.mainHistory[h.sideToMove][fromToIndex(m)], bonus, good)
		var idx = pieceToIndex(m)
		if h.cont1 != -1 {
			updateHistory(&h.service.continuationHistory[h.cont1][idx], bonus, good)
		}
		if h.cont2 != -1 {
			updateHistory(&h.service.continuationHistory[h.cont2][idx], bonus, good)
		}
		if good {
			break
		}
	}
	if h.cont1 != -1 {
		h.service.counterMoves[h.sideToMove][h.cont1] = bestMove
	}
}

func (h *historyContext) UpdateCapture(m types.Move, depth int, good bool) {
	updateHistory(&h.service.captureHistory[captureIndex(m)], Min(depth*depth, 400), good)
}

// Exponential moving average
func updateHistory(v *int16, bonus int, good bool) {
	var newVal int
	if good {
		newVal = historyMax
	} else {
		newVal = -historyMax
	}
	*v += int16((newVal - int(*v)) * bonus / 512)
}

func (t *thread) getHistoryContext(height int) historyContext {
	var cont1 = -1
	if prev1 := t.lastMove(height); prev1 != types.MoveEmpty {
		cont1 = pieceToIndex(prev1)
	}
	var cont2 = -1
	if height > 0 {
		if prev2 := t.lastMove(height - 1); prev2 != types.MoveEmpty {
			cont2 = pieceToIndex(prev2)
		}
	}
	return historyContext{
		service:    &t.history,
		sideToMove: t.board.SideToMove(),
		cont1:      cont1,
		cont2:      cont2,
	}
}
