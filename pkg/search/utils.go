package search

import (
	"math"

	"github.com/mkazuya/sente/pkg/types"
)

const (
	stackSize     = 128
	maxHeight     = stackSize - 1
	valueDraw     = 0
	valueMate     = 30000
	valueInfinity = valueMate + 1
	valueWin      = valueMate - 2*maxHeight
	valueLoss     = -valueWin
)

const pawnValue = 100

var pieceValues = [...]int{
	types.Empty: 0, types.Pawn: 100, types.Lance: 300, types.Knight: 350,
	types.Silver: 500, types.Gold: 550, types.Bishop: 800, types.Rook: 1000,
	types.ProPawn: 550, types.ProLance: 550, types.ProKnight: 550,
	types.ProSilver: 550, types.Horse: 1000, types.Dragon: 1200,
	types.King: 10000,
}

func winIn(height int) int {
	return valueMate - height
}

func lossIn(height int) int {
	return -valueMate + height
}

func valueToTT(v, height int) int {
	if v >= valueWin {
		return v + height
	}
	if v <= valueLoss {
		return v - height
	}
	return v
}

func valueFromTT(v, height int) int {
	if v >= valueWin {
		return v - height
	}
	if v <= valueLoss {
		return v + height
	}
	return v
}

func isMateValue(v int) bool {
	return v <= valueLoss || v >= valueWin
}

// saturatedAdd keeps score arithmetic inside the search-infinity
// sentinel range.
func saturatedAdd(a, b int) int {
	var s = a + b
	if s > valueInfinity {
		return valueInfinity
	}
	if s < -valueInfinity {
		return -valueInfinity
	}
	return s
}

func newUsiScore(v int) types.UsiScore {
	if v >= valueWin {
		return types.UsiScore{Mate: (valueMate - v + 1) / 2}
	} else if v <= valueLoss {
		return types.UsiScore{Mate: (-valueMate - v) / 2}
	}
	return types.UsiScore{Centipawns: v}
}

func isCaptureOrPromotion(move types.Move) bool {
	return move.CapturedPiece() != types.Empty || move.IsPromotion()
}

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func initLmr(f func(d, m float64) float64) func(d, m int) int {
	var reductions [64][64]int
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			reductions[d][m] = int(f(float64(d), float64(m)))
		}
	}
	return func(d, m int) int {
		return reductions[Min(d, 63)][Min(m, 63)]
	}
}

func lmrMult(d, m float64) float64 {
	return lirp(math.Log(d)*math.Log(m), math.Log(5)*math.Log(22), math.Log(63)*math.Log(63), 3, 8)
}

func lirp(x, x1, x2, y1, y2 float64) float64 {
	return y1 + (y2-y1)*(x-x1)/(x2-x1)
}

func sortMoves(moves []types.OrderedMove) {
	for i := 1; i < len(moves); i++ {
		j, t := i, moves[i]
		for ; j > 0 && moves[j-1].Key < t.Key; j-- {
			moves[j] = moves[j-1]
		}
		moves[j] = t
	}
}

func moveToTop(ml []types.OrderedMove) {
	var bestIndex = 0
	for i := 1; i < len(ml); i++ {
		if ml[i].Key > ml[bestIndex].Key {
			bestIndex = i
		}
	}
	if bestIndex != 0 {
		ml[0], ml[bestIndex] = ml[bestIndex], ml[0]
	}
}

func findMoveIndex(ml []types.OrderedMove, move types.Move) int {
	for i := range ml {
		if ml[i].Move == move {
			return i
		}
	}
	return -1
}

func moveToBegin(ml []types.OrderedMove, index int) {
	if index == 0 {
		return
	}
	var item = ml[index]
	for i := index; i > 0; i-- {
		ml[i] = ml[i-1]
	}
	ml[0] = item
}
