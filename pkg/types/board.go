package types

// Board is the capability interface to the external position and move
// system. Generators append into buf and return the extended slice; a
// malformed position reports an error and the caller falls back to the
// static evaluation of the node.
type Board interface {
	Key() uint64
	SideToMove() int
	InCheck() bool
	// HandMaterial reports the non-pawn hand value of the side to move,
	// consulted by the null-move gate.
	HandMaterial() int
	GenerateMoves(buf []OrderedMove) ([]OrderedMove, error)
	GenerateCaptures(buf []OrderedMove) ([]OrderedMove, error)
	GenerateQuiets(buf []OrderedMove) ([]OrderedMove, error)
	GenerateEvasions(buf []OrderedMove) ([]OrderedMove, error)
	IsLegal(m Move) bool
	// CompleteMove rebuilds a full move from its compact hash-entry
	// form, or reports false if no legal completion exists.
	CompleteMove(c uint16) (Move, bool)
	GivesCheck(m Move) bool
	SEE(m Move) int
	DoMove(m Move)
	UndoMove()
	DoNullMove()
	UndoNullMove()
	Clone() Board
}

// Evaluator scores a position from the side to move's point of view.
type Evaluator interface {
	Evaluate(b Board) int
	OnDoNullMove(b Board)
}
