package search

import (
	"github.com/mkazuya/sente/pkg/types"
)

// scriptedBoard is a hand-built game tree implementing types.Board.
// Every position is a node with an explicit edge list; moves carry real
// capture and promotion payloads so ordering and pruning behave as they
// would on a live position.
type scriptedNode struct {
	check bool
	eval  int
	hand  int
	edges []scriptedEdge
	fail  bool
}

type scriptedEdge struct {
	move types.Move
	to   int
}

type scriptedBoard struct {
	nodes map[int]*scriptedNode
	stack []int
	nulls []bool
	see   map[types.Move]int
}

func newScriptedBoard(root int, nodes map[int]*scriptedNode) *scriptedBoard {
	return &scriptedBoard{
		nodes: nodes,
		stack: []int{root},
		see:   map[types.Move]int{},
	}
}

func (b *scriptedBoard) node() *scriptedNode {
	return b.nodes[b.stack[len(b.stack)-1]]
}

func (b *scriptedBoard) Key() uint64 {
	var key = uint64(b.stack[len(b.stack)-1])*0x9e3779b97f4a7c15 + 1
	if len(b.nulls) > 0 && b.nulls[len(b.nulls)-1] {
		key ^= 0x5555555555555555
	}
	return key
}

func (b *scriptedBoard) SideToMove() int {
	return (len(b.stack) - 1) % 2
}

func (b *scriptedBoard) InCheck() bool {
	return b.node().check
}

func (b *scriptedBoard) HandMaterial() int {
	return b.node().hand
}

func (b *scriptedBoard) gen(buf []types.OrderedMove, want func(types.Move) bool) ([]types.OrderedMove, error) {
	var n = b.node()
	if n.fail {
		return buf, errScripted
	}
	for _, e := range n.edges {
		if want(e.move) {
			buf = append(buf, types.OrderedMove{Move: e.move})
		}
	}
	return buf, nil
}

func (b *scriptedBoard) GenerateMoves(buf []types.OrderedMove) ([]types.OrderedMove, error) {
	return b.gen(buf, func(types.Move) bool { return true })
}

func (b *scriptedBoard) GenerateCaptures(buf []types.OrderedMove) ([]types.OrderedMove, error) {
	return b.gen(buf, func(m types.Move) bool { return isCaptureOrPromotion(m) })
}

func (b *scriptedBoard) GenerateQuiets(buf []types.OrderedMove) ([]types.OrderedMove, error) {
	return b.gen(buf, func(m types.Move) bool { return !isCaptureOrPromotion(m) })
}

func (b *scriptedBoard) GenerateEvasions(buf []types.OrderedMove) ([]types.OrderedMove, error) {
	return b.gen(buf, func(types.Move) bool { return true })
}

func (b *scriptedBoard) IsLegal(m types.Move) bool {
	for _, e := range b.node().edges {
		if e.move == m {
			return true
		}
	}
	return false
}

func (b *scriptedBoard) CompleteMove(c uint16) (types.Move, bool) {
	for _, e := range b.node().edges {
		if e.move.MatchesCompact(c) {
			return e.move, true
		}
	}
	return types.MoveEmpty, false
}

func (b *scriptedBoard) GivesCheck(m types.Move) bool {
	for _, e := range b.node().edges {
		if e.move == m {
			var to = b.nodes[e.to]
			return to != nil && to.check
		}
	}
	return false
}

func (b *scriptedBoard) SEE(m types.Move) int {
	if v, ok := b.see[m]; ok {
		return v
	}
	return pieceValues[m.CapturedPiece()]
}

func (b *scriptedBoard) DoMove(m types.Move) {
	for _, e := range b.node().edges {
		if e.move == m {
			b.stack = append(b.stack, e.to)
			b.nulls = append(b.nulls, false)
			return
		}
	}
	panic("scripted board: unknown move " + m.String())
}

func (b *scriptedBoard) UndoMove() {
	b.stack = b.stack[:len(b.stack)-1]
	b.nulls = b.nulls[:len(b.nulls)-1]
}

func (b *scriptedBoard) DoNullMove() {
	b.stack = append(b.stack, b.stack[len(b.stack)-1])
	b.nulls = append(b.nulls, true)
}

func (b *scriptedBoard) UndoNullMove() {
	b.UndoMove()
}

func (b *scriptedBoard) Clone() types.Board {
	var c = &scriptedBoard{
		nodes: b.nodes,
		stack: append([]int(nil), b.stack...),
		nulls: append([]bool(nil), b.nulls...),
		see:   b.see,
	}
	return c
}

type errScriptedType struct{}

func (errScriptedType) Error() string { return "scripted generation failure" }

var errScripted = errScriptedType{}

// scriptedEval reads the node's own score, inverting it while a null
// move is on the stack since stored evals are side-to-move relative.
type scriptedEval struct{}

func (scriptedEval) Evaluate(b types.Board) int {
	var sb = b.(*scriptedBoard)
	var eval = sb.node().eval
	if len(sb.nulls) > 0 && sb.nulls[len(sb.nulls)-1] {
		eval = -eval
	}
	return eval
}

func (scriptedEval) OnDoNullMove(types.Board) {}

func newScriptedEngine() *Engine {
	var e = NewEngine(func() types.Evaluator { return scriptedEval{} })
	e.Hash = 1
	e.ProgressMinNodes = 0
	return e
}

// quiet builds a silver shuffle between two squares.
func quiet(from, to int) types.Move {
	return types.MakeMove(from, to, types.Silver, types.Empty)
}

func capture(from, to, victim int) types.Move {
	return types.MakeMove(from, to, types.Rook, victim)
}
