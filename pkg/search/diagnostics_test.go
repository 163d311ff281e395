package search

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/mkazuya/sente/pkg/types"
)

func TestDiagnosticsStrictPanics(t *testing.T) {
	var d = NewDiagnostics(zerolog.Nop())
	d.Strict = true
	defer func() {
		if recover() == nil {
			t.Fatalf("strict mode must panic on a fault")
		}
	}()
	d.Faultf("test-fault", "boom %d", 1)
}

func TestDiagnosticsNonStrictSwallows(t *testing.T) {
	var d = NewDiagnostics(zerolog.Nop())
	d.Faultf("test-fault", "boom")
	d.Faultf("test-fault", "boom again")
}

func TestDiagnosticsKingCaptureFault(t *testing.T) {
	var d = NewDiagnostics(zerolog.Nop())
	d.Strict = true
	var b = newScriptedBoard(1, map[int]*scriptedNode{
		1: {edges: []scriptedEdge{{move: capture(12, 22, types.King), to: 2}}},
		2: {},
	})
	var mi = pickerFor(b, func(mi *movePicker) { mi.diag = d })
	defer func() {
		if recover() == nil {
			t.Fatalf("king capture must fault in strict mode")
		}
	}()
	drain(mi)
}

func TestDiagnosticsStageHistogram(t *testing.T) {
	var d = NewDiagnostics(zerolog.Nop())
	var b = newScriptedBoard(1, map[int]*scriptedNode{
		1: {edges: []scriptedEdge{
			{move: capture(12, 22, types.Gold), to: 2},
			{move: quiet(10, 20), to: 2},
		}},
		2: {},
	})
	drain(pickerFor(b, func(mi *movePicker) { mi.diag = d }))

	var hist = d.StageHistogram()
	if hist[stageGoodCaptures] != 1 || hist[stageQuiets] != 1 {
		t.Fatalf("histogram = %v", hist)
	}
	d.Reset()
	if d.StageHistogram() != [pickerStageCount]int64{} {
		t.Fatalf("histogram survived reset")
	}
}
