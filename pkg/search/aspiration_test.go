package search

import (
	"testing"

	"github.com/mkazuya/sente/pkg/tt"
)

func TestAspirationFirstDepthIsFullWindow(t *testing.T) {
	var a aspirationWindow
	var alpha, beta = a.initialBounds(1, 0)
	if alpha != -valueInfinity || beta != valueInfinity {
		t.Fatalf("depth 1 bounds = (%v, %v), want full window", alpha, beta)
	}
}

func TestAspirationWindowContainsBestScore(t *testing.T) {
	var a aspirationWindow
	a.updateScore(40, tt.BoundExact)
	a.updateScore(55, tt.BoundExact)
	for depth := 2; depth <= 10; depth++ {
		var alpha, beta = a.initialBounds(depth, 55)
		if !(alpha < 55 && 55 < beta) {
			t.Fatalf("depth %d bounds (%v, %v) do not contain the best score", depth, alpha, beta)
		}
		if beta-alpha < aspirationMinWindow {
			t.Fatalf("depth %d window width %v below minimum", depth, beta-alpha)
		}
	}
}

func TestAspirationVolatilityWidensWindow(t *testing.T) {
	var calm, wild aspirationWindow
	for _, s := range []int{10, 12, 11, 13, 12} {
		calm.updateScore(s, tt.BoundExact)
	}
	for _, s := range []int{10, 300, -150, 250, -100} {
		wild.updateScore(s, tt.BoundExact)
	}
	if wild.calculateWindow(8) <= calm.calculateWindow(8) {
		t.Fatalf("volatile history window %v not wider than calm %v",
			wild.calculateWindow(8), calm.calculateWindow(8))
	}
	if w := wild.calculateWindow(8); w > aspirationInitial+aspirationMaxVolatility {
		t.Fatalf("window %v exceeds the volatility cap", w)
	}
}

func TestAspirationIgnoresBoundaryScores(t *testing.T) {
	var a aspirationWindow
	a.updateScore(10, tt.BoundExact)
	a.updateScore(900, tt.BoundLower)
	a.updateScore(-900, tt.BoundUpper)
	if a.historyLen() != 1 {
		t.Fatalf("history length = %v, want only exact scores recorded", a.historyLen())
	}
}

func TestAspirationMateBandsAreAsymmetric(t *testing.T) {
	var a aspirationWindow
	var winning = winIn(7)
	var alpha, beta = a.initialBounds(9, winning)
	if beta-winning <= winning-alpha {
		t.Fatalf("winning mate band (%v, %v) should stretch toward shorter mates", alpha, beta)
	}
	var losing = lossIn(7)
	alpha, beta = a.initialBounds(9, losing)
	if losing-alpha <= beta-losing {
		t.Fatalf("losing mate band (%v, %v) should stretch toward longer mates", alpha, beta)
	}
}

func TestAspirationExpandWidensFailingSideOnly(t *testing.T) {
	var a aspirationWindow
	var alpha, beta = 30, 80
	var na, nb = a.expandWindow(30, alpha, beta, 55)
	if na >= alpha {
		t.Fatalf("fail low kept alpha at %v", na)
	}
	if nb != beta {
		t.Fatalf("fail low moved beta to %v", nb)
	}
	na, nb = a.expandWindow(80, alpha, beta, 55)
	if nb <= beta {
		t.Fatalf("fail high kept beta at %v", nb)
	}
	if na != alpha {
		t.Fatalf("fail high moved alpha to %v", na)
	}
}

func TestAspirationMateSkippedInVolatility(t *testing.T) {
	var a aspirationWindow
	a.updateScore(20, tt.BoundExact)
	a.updateScore(winIn(3), tt.BoundExact)
	a.updateScore(25, tt.BoundExact)
	if a.volatility != 0 {
		t.Fatalf("volatility = %v, want mate transitions skipped", a.volatility)
	}
}

func TestEnsureMinWindowRecentresOddWidthOnBetaSide(t *testing.T) {
	var alpha, beta = ensureMinWindow(54, 56, 55)
	if beta-alpha < aspirationMinWindow {
		t.Fatalf("window (%v, %v) still below minimum", alpha, beta)
	}
	if beta-55 < 55-alpha {
		t.Fatalf("extra width (%v, %v) should land on the beta side", alpha, beta)
	}
	if !(alpha < 55 && 55 < beta) {
		t.Fatalf("recentred window (%v, %v) lost the best score", alpha, beta)
	}
}

func TestEnsureMinWindowClampsAtInfinity(t *testing.T) {
	var alpha, beta = ensureMinWindow(-valueInfinity, -valueInfinity+2, -valueInfinity+1)
	if alpha < -valueInfinity || beta > valueInfinity {
		t.Fatalf("window (%v, %v) escaped the value range", alpha, beta)
	}
	if beta-alpha < aspirationMinWindow {
		t.Fatalf("clamped window (%v, %v) below minimum", alpha, beta)
	}
}
