package search

import (
	"context"
	"time"

	"github.com/mkazuya/sente/pkg/types"
)

const (
	moveOverhead = 300 * time.Millisecond
	minTimeLimit = 1 * time.Millisecond
)

// timeManager turns a time-control variant into soft and hard budgets.
// The soft limit stops the search between iterations; the hard limit is
// a context deadline checked inside the node loop.
type timeManager struct {
	start     time.Time
	limits    types.LimitsType
	softLimit time.Duration
	hardLimit time.Duration
	nodeLimit int64
	ctx       context.Context
	cancel    context.CancelFunc
	stop      *StopController
}

func newTimeManager(ctx context.Context, start time.Time,
	limits types.LimitsType, side int, stop *StopController) *timeManager {

	var tm = &timeManager{
		start:  start,
		limits: limits,
		stop:   stop,
	}
	tm.applyTimeControl(limits.Time, side)
	if limits.Nodes > 0 {
		tm.nodeLimit = limits.Nodes
	}

	if tm.hardLimit != 0 {
		tm.ctx, tm.cancel = context.WithDeadline(ctx, start.Add(tm.hardLimit))
	} else {
		tm.ctx, tm.cancel = context.WithCancel(ctx)
	}
	return tm
}

func (tm *timeManager) applyTimeControl(tc types.TimeControl, side int) {
	switch tc.Kind {
	case types.TimeControlInfinite:
	case types.TimeControlFixedTime:
		tm.hardLimit = time.Duration(tc.MoveTime) * time.Millisecond
	case types.TimeControlFischer:
		var main = time.Duration(tc.BlackTime) * time.Millisecond
		if side != 0 {
			main = time.Duration(tc.WhiteTime) * time.Millisecond
		}
		var inc = time.Duration(tc.Increment) * time.Millisecond
		tm.softLimit, tm.hardLimit = calcFischerLimits(main, inc)
	case types.TimeControlByoyomi:
		tm.softLimit, tm.hardLimit = calcByoyomiLimits(
			time.Duration(tc.MainTime)*time.Millisecond,
			time.Duration(tc.ByoyomiTime)*time.Millisecond,
			tc.Periods)
	case types.TimeControlFixedNodes:
		tm.nodeLimit = tc.Nodes
	case types.TimeControlPonder:
		// pondering runs without a budget of its own; the session is
		// redirected externally when the expected move arrives
	}
}

func (tm *timeManager) IsDone() bool {
	if tm.ctx.Err() != nil {
		return true
	}
	return tm.stop != nil && tm.stop.ShouldStop()
}

func (tm *timeManager) Done() <-chan struct{} {
	return tm.ctx.Done()
}

func (tm *timeManager) OnNodesChanged(nodes int64) {
	if tm.nodeLimit > 0 && nodes >= tm.nodeLimit {
		if tm.stop != nil {
			tm.stop.RequestFinalize(ReasonTimeManagerStop)
		}
		tm.cancel()
	}
}

func (tm *timeManager) OnIterationComplete(depth, score int) {
	if tm.limits.Time.Kind == types.TimeControlInfinite && tm.limits.Depth == 0 && tm.nodeLimit == 0 {
		return
	}
	if tm.limits.Depth != 0 && depth >= tm.limits.Depth {
		tm.finish(ReasonPlanned)
		return
	}
	if score >= winIn(depth-5) || score <= lossIn(depth-5) {
		tm.finish(ReasonPlannedMate)
		return
	}
	if tm.softLimit != 0 && time.Since(tm.start) >= tm.softLimit {
		tm.finish(ReasonTimeManagerStop)
	}
}

func (tm *timeManager) finish(reason FinalizeReason) {
	if tm.stop != nil {
		tm.stop.RequestFinalize(reason)
	}
	tm.cancel()
}

func (tm *timeManager) Close() {
	tm.cancel()
}

func calcFischerLimits(main, inc time.Duration) (soft, hard time.Duration) {
	main -= moveOverhead
	if main < minTimeLimit {
		main = minTimeLimit
	}
	var ideal = main/35 + inc/2
	soft = ideal * 7 / 10
	hard = ideal * 21 / 10
	soft = limitDuration(soft, minTimeLimit, main)
	hard = limitDuration(hard, minTimeLimit, main)
	return
}

// Byoyomi budgets spend a slice of main time plus most of one period;
// the hard limit must never run past the period or the game is lost on
// time.
func calcByoyomiLimits(main, byoyomi time.Duration, periods int) (soft, hard time.Duration) {
	if periods < 1 {
		periods = 1
	}
	var perMove = main/40 + byoyomi
	soft = perMove * 7 / 10
	hard = main/10 + byoyomi - moveOverhead
	var ceiling = main + byoyomi - moveOverhead
	if ceiling < minTimeLimit {
		ceiling = minTimeLimit
	}
	soft = limitDuration(soft, minTimeLimit, ceiling)
	hard = limitDuration(hard, minTimeLimit, ceiling)
	if hard < soft {
		hard = soft
	}
	return
}

func limitDuration(v, min, max time.Duration) time.Duration {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
