package types

import "fmt"

const (
	FileCount   = 9
	RankCount   = 9
	SquareCount = FileCount * RankCount
	SquareNone  = -1
)

const (
	Empty = iota
	Pawn
	Lance
	Knight
	Silver
	Gold
	Bishop
	Rook
	King
	ProPawn
	ProLance
	ProKnight
	ProSilver
	Horse
	Dragon
)

const MaxMoves = 600

func File(sq int) int {
	return sq / RankCount
}

func Rank(sq int) int {
	return sq % RankCount
}

func MakeSquare(file, rank int) int {
	return file*RankCount + rank
}

// Move packs a board move or a drop into the low 24 bits of a uint32:
// to[0:7) from[7:14) piece[14:18) captured[18:22) promotion:22 drop:23.
// For drops the from field is unused and piece is the dropped piece type.
type Move uint32

const MoveEmpty = Move(0)

const (
	movePromotionBit = 1 << 22
	moveDropBit      = 1 << 23
)

func MakeMove(from, to, piece, captured int) Move {
	return Move(to) | Move(from)<<7 | Move(piece)<<14 | Move(captured)<<18
}

func MakePromotionMove(from, to, piece, captured int) Move {
	return MakeMove(from, to, piece, captured) | movePromotionBit
}

func MakeDropMove(piece, to int) Move {
	return Move(to) | Move(piece)<<14 | moveDropBit
}

func (m Move) To() int {
	return int(m & 0x7f)
}

func (m Move) From() int {
	if m.IsDrop() {
		return SquareNone
	}
	return int((m >> 7) & 0x7f)
}

func (m Move) MovingPiece() int {
	return int((m >> 14) & 0xf)
}

func (m Move) CapturedPiece() int {
	if m.IsDrop() {
		return Empty
	}
	return int((m >> 18) & 0xf)
}

func (m Move) IsPromotion() bool {
	return m&movePromotionBit != 0
}

func (m Move) IsDrop() bool {
	return m&moveDropBit != 0
}

// EqualIgnoringPromotion reports whether two moves coincide once the
// promotion flag is masked out.
func EqualIgnoringPromotion(a, b Move) bool {
	return a&^movePromotionBit == b&^movePromotionBit
}

// Matches implements the exclusion relation of the move picker: drops
// are matched by piece type and destination, board moves by from and to.
func (m Move) Matches(other Move) bool {
	if other == MoveEmpty {
		return false
	}
	if m.IsDrop() != other.IsDrop() {
		return false
	}
	if m.IsDrop() {
		return m.MovingPiece() == other.MovingPiece() && m.To() == other.To()
	}
	return m.From() == other.From() && m.To() == other.To()
}

var pieceLetters = [...]byte{Pawn: 'P', Lance: 'L', Knight: 'N', Silver: 'S', Gold: 'G', Bishop: 'B', Rook: 'R', King: 'K'}

func squareString(sq int) string {
	return fmt.Sprintf("%d%c", File(sq)+1, 'a'+rune(Rank(sq)))
}

func (m Move) String() string {
	if m == MoveEmpty {
		return "none"
	}
	if m.IsDrop() {
		return fmt.Sprintf("%c*%s", pieceLetters[m.MovingPiece()], squareString(m.To()))
	}
	var s = squareString(m.From()) + squareString(m.To())
	if m.IsPromotion() {
		s += "+"
	}
	return s
}

// Compact folds a move into 16 bits for storage in a hash entry:
// to[0:7) from[7:14) promotion:14 drop:15, with the dropped piece type
// in the from field for drops. Piece and capture information is
// recovered from a live position on the way back out.
func (m Move) Compact() uint16 {
	if m == MoveEmpty {
		return 0
	}
	if m.IsDrop() {
		return uint16(m.To()) | uint16(m.MovingPiece())<<7 | 1<<15
	}
	var c = uint16(m.To()) | uint16(m.From())<<7
	if m.IsPromotion() {
		c |= 1 << 14
	}
	return c
}

// MatchesCompact reports whether m folds to the compact form c.
func (m Move) MatchesCompact(c uint16) bool {
	return c != 0 && m.Compact() == c
}

// OrderedMove carries a move together with its ordering key.
type OrderedMove struct {
	Move Move
	Key  int32
}
