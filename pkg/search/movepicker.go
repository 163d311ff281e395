package search

import "github.com/mkazuya/sente/pkg/types"

const sortTableKeyImportant = 100000

type pickerStage int

const (
	stageTt pickerStage = iota
	stageGoodCaptures
	stageKillers
	stageQuiets
	stageBadCaptures
	stageEvasions
	stageQGood
	stageQChecks
	stageQBad
	stageProbCut
	stageDone
)

const pickerStageCount = int(stageDone) + 1

type pickerMode int

const (
	modeMain pickerMode = iota
	modeQuiescence
	modeProbCut
)

// movePicker yields the moves of one node in staged priority order.
// The sequence is finite and non-restartable; every legal move comes
// out at most once, king captures never. Candidate sets are generated
// lazily per stage, scored, insertion-sorted, then replayed with
// legality and exclusion re-checks.
type movePicker struct {
	board           types.Board
	history         *historyContext
	buffer          []types.OrderedMove
	diag            *Diagnostics
	ttMove          types.Move
	excluded        types.Move
	killer1         types.Move
	killer2         types.Move
	counter         types.Move
	quietCheckLimit int
	seeThreshold    int
	mode            pickerMode
	stage           pickerStage
	last            pickerStage
	count           int
	index           int
	badCount        int
	checksYielded   int
	returned        []types.Move
	returnedBuf     [types.MaxMoves]types.Move
	specials        [3]types.Move
	specialIndex    int
	genFailed       bool
}

func (mi *movePicker) init() {
	mi.returned = mi.returnedBuf[:0]
	if mi.board.InCheck() {
		mi.stage = stageTt
		return
	}
	switch mi.mode {
	case modeProbCut:
		mi.stage = stageProbCut
		mi.genProbCut()
	default:
		mi.stage = stageTt
	}
}

// Failed reports a move-generation error; the caller falls back to the
// node's static evaluation.
func (mi *movePicker) Failed() bool {
	return mi.genFailed
}

// Stage reports the stage that produced the most recent move.
func (mi *movePicker) Stage() pickerStage {
	return mi.last
}

func (mi *movePicker) Next() types.Move {
	for {
		switch mi.stage {
		case stageTt:
			mi.advanceFromTt()
			var m = mi.ttMove
			if m != types.MoveEmpty && mi.accept(m) {
				return mi.yield(m, stageTt)
			}
		case stageGoodCaptures, stageQGood, stageEvasions, stageQuiets, stageQChecks, stageProbCut:
			var m, ok = mi.nextGenerated()
			if ok {
				return m
			}
			mi.advanceStage()
		case stageKillers:
			var m, ok = mi.nextSpecial()
			if ok {
				return m
			}
			mi.stage = stageQuiets
			mi.genQuiets()
		case stageBadCaptures, stageQBad:
			var m, ok = mi.nextBad()
			if ok {
				return m
			}
			mi.stage = stageDone
		case stageDone:
			return types.MoveEmpty
		}
	}
}

func (mi *movePicker) advanceFromTt() {
	if mi.board.InCheck() {
		mi.stage = stageEvasions
		mi.genEvasions()
		return
	}
	switch mi.mode {
	case modeQuiescence:
		mi.stage = stageQGood
		mi.genCaptures()
	default:
		mi.stage = stageGoodCaptures
		mi.genCaptures()
	}
}

func (mi *movePicker) advanceStage() {
	switch mi.stage {
	case stageGoodCaptures:
		mi.stage = stageKillers
		mi.initSpecials()
	case stageQuiets:
		mi.stage = stageBadCaptures
		mi.index = 0
	case stageQGood:
		if mi.quietCheckLimit > 0 {
			mi.stage = stageQChecks
			mi.genQuietChecks()
		} else {
			mi.stage = stageQBad
			mi.index = 0
		}
	case stageQChecks:
		mi.stage = stageQBad
		mi.index = 0
	case stageEvasions, stageProbCut:
		mi.stage = stageDone
	default:
		mi.stage = stageDone
	}
}

// Generated candidates live in buffer[:count]; bad captures found along
// the way are stashed at the tail of the buffer for their own stage.
func (mi *movePicker) nextGenerated() (types.Move, bool) {
	for mi.index < mi.count {
		if mi.index <= 1 {
			if mi.index == 1 {
				sortMoves(mi.buffer[1:mi.count])
			} else {
				moveToTop(mi.buffer[:mi.count])
			}
		}
		var m = mi.buffer[mi.index].Move
		mi.index++
		if (mi.stage == stageGoodCaptures || mi.stage == stageQGood) && mi.board.SEE(m) < 0 {
			mi.stashBad(m)
			continue
		}
		if mi.stage == stageQChecks {
			if mi.checksYielded >= mi.quietCheckLimit {
				return types.MoveEmpty, false
			}
			if !mi.board.GivesCheck(m) {
				continue
			}
		}
		if !mi.accept(m) {
			continue
		}
		if mi.stage == stageQChecks {
			mi.checksYielded++
		}
		return mi.yield(m, mi.stage), true
	}
	return types.MoveEmpty, false
}

func (mi *movePicker) nextSpecial() (types.Move, bool) {
	for mi.specialIndex < len(mi.specials) {
		var m = mi.specials[mi.specialIndex]
		mi.specialIndex++
		if m == types.MoveEmpty || isCaptureOrPromotion(m) || !mi.accept(m) {
			continue
		}
		return mi.yield(m, stageKillers), true
	}
	return types.MoveEmpty, false
}

func (mi *movePicker) nextBad() (types.Move, bool) {
	for mi.index < mi.badCount {
		var m = mi.buffer[len(mi.buffer)-1-mi.index].Move
		mi.index++
		if !mi.accept(m) {
			continue
		}
		var stage = stageBadCaptures
		if mi.mode == modeQuiescence {
			stage = stageQBad
		}
		return mi.yield(m, stage), true
	}
	return types.MoveEmpty, false
}

func (mi *movePicker) stashBad(m types.Move) {
	mi.buffer[len(mi.buffer)-1-mi.badCount].Move = m
	mi.badCount++
}

func (mi *movePicker) initSpecials() {
	mi.specials = [3]types.Move{mi.killer1, mi.killer2, mi.counter}
	mi.specialIndex = 0
}

// accept re-validates a candidate just before it is yielded: legality,
// the excluded move, duplicates, and the king-capture invariant.
func (mi *movePicker) accept(m types.Move) bool {
	if m.CapturedPiece() == types.King {
		if mi.diag != nil {
			mi.diag.Faultf("picker-king-capture", "move %v captures a king", m)
		}
		return false
	}
	if mi.excluded != types.MoveEmpty && mi.excluded.Matches(m) {
		return false
	}
	for _, r := range mi.returned {
		if r == m {
			return false
		}
	}
	return mi.board.IsLegal(m)
}

func (mi *movePicker) yield(m types.Move, stage pickerStage) types.Move {
	mi.last = stage
	mi.returned = append(mi.returned, m)
	if mi.diag != nil {
		mi.diag.CountStage(int(stage))
	}
	return m
}

func (mi *movePicker) genBuffer(gen func([]types.OrderedMove) ([]types.OrderedMove, error)) []types.OrderedMove {
	var ml, err = gen(mi.buffer[:0])
	if err != nil {
		mi.genFailed = true
		ml = ml[:0]
	}
	mi.count = len(ml)
	mi.index = 0
	return ml
}

func (mi *movePicker) genCaptures() {
	var ml = mi.genBuffer(mi.board.GenerateCaptures)
	for i := range ml {
		var m = ml[i].Move
		var score = 10*mi.board.SEE(m) + mvvlva(m)
		if m.IsPromotion() {
			score += 50
		}
		if mi.board.GivesCheck(m) {
			score += 30
		}
		if mi.history != nil {
			score += mi.history.ReadCapture(m)
		}
		ml[i].Key = int32(score)
	}
}

func (mi *movePicker) genQuiets() {
	var ml = mi.genBuffer(mi.board.GenerateQuiets)
	for i := range ml {
		var m = ml[i].Move
		var score = 0
		if mi.history != nil {
			score = mi.history.ReadTotal(m)
		}
		ml[i].Key = int32(score)
	}
}

func (mi *movePicker) genQuietChecks() {
	mi.genQuiets()
}

func (mi *movePicker) genEvasions() {
	var ml = mi.genBuffer(mi.board.GenerateEvasions)
	for i := range ml {
		var m = ml[i].Move
		var score int
		if isCaptureOrPromotion(m) {
			score = sortTableKeyImportant + 10*mi.board.SEE(m) + mvvlva(m)
		} else if mi.history != nil {
			score = mi.history.ReadTotal(m)
		}
		ml[i].Key = int32(score)
	}
}

func (mi *movePicker) genProbCut() {
	var ml = mi.genBuffer(mi.board.GenerateCaptures)
	var n = 0
	for i := range ml {
		var m = ml[i].Move
		if mi.board.SEE(m) < mi.seeThreshold {
			continue
		}
		ml[n] = types.OrderedMove{Move: m, Key: int32(mvvlva(m))}
		n++
	}
	mi.count = n
}

func mvvlva(move types.Move) int {
	var victim = pieceValues[move.CapturedPiece()] / 50
	var attacker = pieceValues[move.MovingPiece()] / 50
	var promo = 0
	if move.IsPromotion() {
		promo = 2
	}
	return 8*(victim+promo) - attacker
}
