package search

import "github.com/mkazuya/sente/pkg/tt"

const (
	aspirationInitial       = 25
	aspirationDelta         = 25
	aspirationExpansion     = 2 // numerator over 4, i.e. 0.5
	aspirationMaxVolatility = 75
	aspirationRetryLimit    = 4
	aspirationMinWindow     = 10
	volatilitySpan          = 5
	volatilityDiffCap       = 1000
)

// aspirationWindow tracks root-score history across iterative-deepening
// depths and sizes the next search window from its volatility. Only
// Exact scores enter the history; boundary values never influence the
// statistics.
type aspirationWindow struct {
	history    []int
	volatility int
}

func (a *aspirationWindow) clear() {
	a.history = a.history[:0]
	a.volatility = 0
}

func (a *aspirationWindow) historyLen() int {
	return len(a.history)
}

func (a *aspirationWindow) updateScore(score int, bound tt.Bound) {
	if bound != tt.BoundExact {
		return
	}
	a.history = append(a.history, score)
	if len(a.history) > 1 {
		a.volatility = a.calcVolatility()
	}
}

// calcVolatility averages the absolute score delta over the last few
// depths, skipping mate scores and capping outliers.
func (a *aspirationWindow) calcVolatility() int {
	if len(a.history) < 2 {
		return 0
	}
	var start = Max(0, len(a.history)-volatilitySpan)
	var total, valid = 0, 0
	for i := start + 1; i < len(a.history); i++ {
		var prev, curr = a.history[i-1], a.history[i]
		if isMateValue(prev) || isMateValue(curr) {
			continue
		}
		var diff = curr - prev
		if diff < 0 {
			diff = -diff
		}
		total += Min(diff, volatilityDiffCap)
		valid++
	}
	if valid == 0 {
		return 0
	}
	return (total + valid/2) / valid
}

func (a *aspirationWindow) calculateWindow(depth int) int {
	if depth <= 2 || len(a.history) < 2 {
		return aspirationInitial
	}
	return aspirationInitial + Min(a.volatility/4, aspirationMaxVolatility)
}

// initialBounds picks the starting window for a depth: the full range
// while there is nothing to aspire to, a tight distance-scaled band
// around mate scores, otherwise bestScore plus/minus the dynamic
// window.
func (a *aspirationWindow) initialBounds(depth, bestScore int) (alpha, beta int) {
	if depth <= 1 {
		return -valueInfinity, valueInfinity
	}
	if isMateValue(bestScore) {
		var abs = bestScore
		if abs < 0 {
			abs = -abs
		}
		var distance = valueMate - abs
		var window int
		switch {
		case distance <= 10:
			window = 5
		case distance <= 20:
			window = 10
		default:
			window = 20
		}
		// hunting shorter mates when winning, longer when losing
		if bestScore > 0 {
			alpha, beta = bestScore-window, bestScore+window*2
		} else {
			alpha, beta = bestScore-window*2, bestScore+window
		}
	} else {
		var window = a.calculateWindow(depth)
		alpha, beta = bestScore-window, bestScore+window
	}
	return ensureMinWindow(alpha, beta, bestScore)
}

// expandWindow widens the failing side after a fail high or fail low,
// leaving the other bound untouched.
func (a *aspirationWindow) expandWindow(score, alpha, beta, bestScore int) (int, int) {
	if score <= alpha {
		var gap = alpha - bestScore
		if gap < 0 {
			gap = -gap
		}
		alpha = Max(-valueInfinity, alpha-Max(aspirationDelta, gap*aspirationExpansion/4))
	}
	if score >= beta {
		var gap = beta - bestScore
		if gap < 0 {
			gap = -gap
		}
		beta = Min(valueInfinity, beta+Max(aspirationDelta, gap*aspirationExpansion/4))
	}
	return alpha, beta
}

func (a *aspirationWindow) stopRetries(retries int) bool {
	return retries >= aspirationRetryLimit
}

// ensureMinWindow recentres a collapsed window on bestScore. An odd
// minimum width puts the extra unit on the beta side.
func ensureMinWindow(alpha, beta, bestScore int) (int, int) {
	alpha = Max(alpha, -valueInfinity)
	beta = Min(beta, valueInfinity)
	if beta-alpha >= aspirationMinWindow {
		return alpha, beta
	}
	alpha = bestScore - aspirationMinWindow/2
	beta = bestScore + (aspirationMinWindow+1)/2
	if alpha < -valueInfinity {
		var shift = -valueInfinity - alpha
		alpha += shift
		beta += shift
	}
	if beta > valueInfinity {
		var shift = beta - valueInfinity
		alpha -= shift
		beta -= shift
	}
	return alpha, beta
}
