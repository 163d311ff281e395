package types

import (
	"sync/atomic"
	"time"
)

type TimeControlKind int

const (
	TimeControlInfinite TimeControlKind = iota
	TimeControlFixedTime
	TimeControlFischer
	TimeControlByoyomi
	TimeControlFixedNodes
	TimeControlPonder
)

// TimeControl is a tagged union over the recognized clock variants.
// Fields are interpreted according to Kind; Inner is set for ponder only.
type TimeControl struct {
	Kind        TimeControlKind
	MoveTime    int // ms, FixedTime
	BlackTime   int // ms, Fischer, side moving first
	WhiteTime   int // ms, Fischer
	Increment   int // ms, Fischer
	MainTime    int // ms, Byoyomi
	ByoyomiTime int // ms, Byoyomi, per period
	Periods     int // Byoyomi
	Nodes       int64
	Inner       *TimeControl
}

func InfiniteTimeControl() TimeControl {
	return TimeControl{Kind: TimeControlInfinite}
}

func FixedTimeControl(moveTimeMs int) TimeControl {
	return TimeControl{Kind: TimeControlFixedTime, MoveTime: moveTimeMs}
}

func FischerTimeControl(blackMs, whiteMs, incMs int) TimeControl {
	return TimeControl{Kind: TimeControlFischer, BlackTime: blackMs, WhiteTime: whiteMs, Increment: incMs}
}

func ByoyomiTimeControl(mainMs, byoyomiMs, periods int) TimeControl {
	return TimeControl{Kind: TimeControlByoyomi, MainTime: mainMs, ByoyomiTime: byoyomiMs, Periods: periods}
}

func FixedNodesTimeControl(nodes int64) TimeControl {
	return TimeControl{Kind: TimeControlFixedNodes, Nodes: nodes}
}

func PonderTimeControl(inner TimeControl) TimeControl {
	return TimeControl{Kind: TimeControlPonder, Inner: &inner}
}

// LimitsType is threaded by reference into every search call. The only
// shared-mutable element is the cancellation flag.
type LimitsType struct {
	Depth    int
	Nodes    int64
	MultiPV  int
	Time     TimeControl
	Stop     *atomic.Bool
	Progress func(ProgressEvent)
	Debug    func(string)
}

type EventKind int

const (
	EventCurrMove EventKind = iota
	EventDepth
	EventAspiration
	EventHashfull
	EventPV
)

type ProgressEvent struct {
	Kind           EventKind
	Depth          int
	CurrMove       Move
	CurrMoveNumber int
	Alpha          int
	Beta           int
	Hashfull       int
	Info           *SearchInfo
}

// UsiScore holds either a centipawn score or a signed mate distance in
// moves, never both.
type UsiScore struct {
	Centipawns int
	Mate       int
}

type SearchInfo struct {
	Depth    int
	Seldepth int
	Score    UsiScore
	Nodes    int64
	Time     time.Duration
	MainLine []Move
	Hashfull int
	MultiPV  int
}

type TerminationReason int

const (
	TerminationNone TerminationReason = iota
	TerminationCompleted
	TerminationTimeLimit
	TerminationNodeLimit
	TerminationUserStop
	TerminationMate
	TerminationAborted
)

type SearchStats struct {
	Nodes    int64
	Depth    int
	TTHits   int64
	BetaCuts int64
	LMRCount int64
	Elapsed  time.Duration
}

type SearchResult struct {
	BestMove Move
	Score    int
	Reason   TerminationReason
	Stats    SearchStats
}
