package search

import (
	"context"
	"testing"
	"time"

	"github.com/mkazuya/sente/pkg/types"
)

func newTestTimeManager(tc types.TimeControl, side int) *timeManager {
	return newTimeManager(context.Background(), time.Now(),
		types.LimitsType{Time: tc}, side, NewStopController())
}

func TestTimeManagerInfiniteHasNoBudget(t *testing.T) {
	var tm = newTestTimeManager(types.InfiniteTimeControl(), 0)
	defer tm.Close()
	if tm.softLimit != 0 || tm.hardLimit != 0 {
		t.Fatalf("infinite limits = (%v, %v), want none", tm.softLimit, tm.hardLimit)
	}
	if tm.IsDone() {
		t.Fatalf("infinite search must not be done")
	}
}

func TestTimeManagerFixedTimeSetsHardDeadline(t *testing.T) {
	var tm = newTestTimeManager(types.FixedTimeControl(5000), 0)
	defer tm.Close()
	if tm.hardLimit != 5*time.Second {
		t.Fatalf("hard limit = %v, want 5s", tm.hardLimit)
	}
	if tm.softLimit != 0 {
		t.Fatalf("fixed time must not have a soft limit, got %v", tm.softLimit)
	}
	if _, ok := tm.ctx.Deadline(); !ok {
		t.Fatalf("fixed time must set a context deadline")
	}
}

func TestTimeManagerFischerBudgets(t *testing.T) {
	var tm = newTestTimeManager(types.FischerTimeControl(60000, 30000, 1000), 0)
	defer tm.Close()
	if tm.softLimit <= 0 || tm.hardLimit <= tm.softLimit {
		t.Fatalf("fischer limits = (%v, %v), want 0 < soft < hard", tm.softLimit, tm.hardLimit)
	}
	if tm.hardLimit > 60*time.Second {
		t.Fatalf("hard limit %v exceeds remaining time", tm.hardLimit)
	}

	var white = newTestTimeManager(types.FischerTimeControl(60000, 1000, 0), 1)
	defer white.Close()
	if white.hardLimit >= tm.hardLimit {
		t.Fatalf("side with less clock got budget %v >= %v", white.hardLimit, tm.hardLimit)
	}
}

func TestTimeManagerByoyomiNeverOvershootsPeriod(t *testing.T) {
	var tm = newTestTimeManager(types.ByoyomiTimeControl(60000, 10000, 1), 0)
	defer tm.Close()
	if tm.softLimit <= 0 || tm.hardLimit <= 0 {
		t.Fatalf("byoyomi limits = (%v, %v), want budgets", tm.softLimit, tm.hardLimit)
	}
	var ceiling = 70*time.Second - moveOverhead
	if tm.hardLimit > ceiling {
		t.Fatalf("hard limit %v can lose on time, ceiling %v", tm.hardLimit, ceiling)
	}
	if tm.hardLimit < tm.softLimit {
		t.Fatalf("hard %v below soft %v", tm.hardLimit, tm.softLimit)
	}
}

func TestTimeManagerFixedNodesStops(t *testing.T) {
	var stop = NewStopController()
	stop.PublishSession(1, nil)
	var tm = newTimeManager(context.Background(), time.Now(),
		types.LimitsType{Time: types.FixedNodesTimeControl(1000)}, 0, stop)
	defer tm.Close()

	tm.OnNodesChanged(999)
	if tm.IsDone() {
		t.Fatalf("stopped before the node budget")
	}
	tm.OnNodesChanged(1000)
	if !tm.IsDone() {
		t.Fatalf("node budget reached but not stopped")
	}
	if got := stop.TryReadStopInfo().Reason; got != ReasonTimeManagerStop {
		t.Fatalf("reason = %v, want time manager stop", got)
	}
}

func TestTimeManagerDepthLimitFinishesPlanned(t *testing.T) {
	var stop = NewStopController()
	stop.PublishSession(1, nil)
	var tm = newTimeManager(context.Background(), time.Now(),
		types.LimitsType{Depth: 12, Time: types.InfiniteTimeControl()}, 0, stop)
	defer tm.Close()

	tm.OnIterationComplete(11, 30)
	if tm.IsDone() {
		t.Fatalf("stopped before the depth limit")
	}
	tm.OnIterationComplete(12, 30)
	if !tm.IsDone() {
		t.Fatalf("depth limit reached but not stopped")
	}
	if got := stop.TryReadStopInfo().Reason; got != ReasonPlanned {
		t.Fatalf("reason = %v, want planned", got)
	}
}

func TestTimeManagerMateScoreFinishesEarly(t *testing.T) {
	var stop = NewStopController()
	stop.PublishSession(1, nil)
	var tm = newTimeManager(context.Background(), time.Now(),
		types.LimitsType{Depth: 60, Time: types.InfiniteTimeControl()}, 0, stop)
	defer tm.Close()

	tm.OnIterationComplete(10, winIn(3))
	if !tm.IsDone() {
		t.Fatalf("proven short mate must end the search")
	}
	if got := stop.TryReadStopInfo().Reason; got != ReasonPlannedMate {
		t.Fatalf("reason = %v, want planned mate", got)
	}
}

func TestTimeManagerPonderHasNoBudget(t *testing.T) {
	var tm = newTestTimeManager(types.PonderTimeControl(types.FixedTimeControl(5000)), 0)
	defer tm.Close()
	if tm.softLimit != 0 || tm.hardLimit != 0 || tm.nodeLimit != 0 {
		t.Fatalf("ponder must run without budgets, got (%v, %v, %v)",
			tm.softLimit, tm.hardLimit, tm.nodeLimit)
	}
}
