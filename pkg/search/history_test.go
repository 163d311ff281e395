package search

import (
	"testing"

	"github.com/mkazuya/sente/pkg/types"
)

func TestHistoryRewardsBestMove(t *testing.T) {
	var hs historyService
	var hc = historyContext{service: &hs, cont1: -1, cont2: -1}
	var best = quiet(10, 20)
	var loser = quiet(11, 21)

	hc.Update([]types.Move{loser, best}, best, 6)
	if hc.ReadTotal(best) <= 0 {
		t.Fatalf("best move score = %v, want positive", hc.ReadTotal(best))
	}
	if hc.ReadTotal(loser) >= 0 {
		t.Fatalf("refuted move score = %v, want negative", hc.ReadTotal(loser))
	}
}

func TestHistoryScoresStayBounded(t *testing.T) {
	var hs historyService
	var hc = historyContext{service: &hs, cont1: -1, cont2: -1}
	var best = quiet(10, 20)
	for i := 0; i < 200; i++ {
		hc.Update([]types.Move{best}, best, 20)
	}
	if got := hc.ReadTotal(best); got > historyMax {
		t.Fatalf("score %v escaped the saturation bound", got)
	}
}

func TestHistoryDropMovesGetOwnSlots(t *testing.T) {
	var hs historyService
	var hc = historyContext{service: &hs, cont1: -1, cont2: -1}
	var drop = types.MakeDropMove(types.Pawn, 20)
	var board = quiet(20, 20)

	hc.Update([]types.Move{drop}, drop, 5)
	if hc.ReadTotal(drop) <= 0 {
		t.Fatalf("drop score = %v, want positive", hc.ReadTotal(drop))
	}
	if hc.ReadTotal(board) != 0 {
		t.Fatalf("board move sharing the destination picked up %v", hc.ReadTotal(board))
	}
}

func TestHistoryCounterMove(t *testing.T) {
	var hs historyService
	var prev = quiet(30, 31)
	var reply = quiet(11, 21)
	var hc = historyContext{service: &hs, cont1: pieceToIndex(prev), cont2: -1}

	hc.Update([]types.Move{reply}, reply, 4)
	if hc.CounterMove() != reply {
		t.Fatalf("counter move = %v, want %v", hc.CounterMove(), reply)
	}

	var other = historyContext{service: &hs, cont1: -1, cont2: -1}
	if other.CounterMove() != types.MoveEmpty {
		t.Fatalf("counter move without context must be empty")
	}
}

func TestHistoryCaptureTable(t *testing.T) {
	var hs historyService
	var hc = historyContext{service: &hs, cont1: -1, cont2: -1}
	var good = capture(10, 20, types.Gold)
	var bad = capture(11, 21, types.Pawn)

	hc.UpdateCapture(good, 5, true)
	hc.UpdateCapture(bad, 5, false)
	if hc.ReadCapture(good) <= 0 || hc.ReadCapture(bad) >= 0 {
		t.Fatalf("capture history = %v / %v", hc.ReadCapture(good), hc.ReadCapture(bad))
	}
}

func TestHistoryClear(t *testing.T) {
	var hs historyService
	var hc = historyContext{service: &hs, cont1: 5, cont2: -1}
	var m = quiet(10, 20)
	hc.Update([]types.Move{m}, m, 8)
	hs.Clear()
	if hc.ReadTotal(m) != 0 || hc.CounterMove() != types.MoveEmpty {
		t.Fatalf("history survived a clear")
	}
}
