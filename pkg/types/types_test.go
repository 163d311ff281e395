package types

import "testing"

func TestMoveFields(t *testing.T) {
	var m = MakeMove(MakeSquare(6, 6), MakeSquare(6, 5), Pawn, Empty)
	if m.From() != MakeSquare(6, 6) || m.To() != MakeSquare(6, 5) {
		t.Fatalf("from/to = %v/%v", m.From(), m.To())
	}
	if m.MovingPiece() != Pawn || m.CapturedPiece() != Empty {
		t.Fatalf("pieces = %v/%v", m.MovingPiece(), m.CapturedPiece())
	}
	if m.IsPromotion() || m.IsDrop() {
		t.Fatalf("flags set on a plain move")
	}

	var c = MakePromotionMove(MakeSquare(2, 2), MakeSquare(1, 1), Bishop, Rook)
	if !c.IsPromotion() || c.CapturedPiece() != Rook || c.MovingPiece() != Bishop {
		t.Fatalf("promotion capture decoded as %v %v %v",
			c.IsPromotion(), c.CapturedPiece(), c.MovingPiece())
	}
}

func TestDropMove(t *testing.T) {
	var d = MakeDropMove(Silver, MakeSquare(4, 4))
	if !d.IsDrop() {
		t.Fatalf("drop flag lost")
	}
	if d.From() != SquareNone {
		t.Fatalf("drop from = %v, want none", d.From())
	}
	if d.MovingPiece() != Silver || d.To() != MakeSquare(4, 4) {
		t.Fatalf("drop decoded as %v to %v", d.MovingPiece(), d.To())
	}
	if d.CapturedPiece() != Empty {
		t.Fatalf("drops never capture")
	}
}

func TestMoveMatches(t *testing.T) {
	var a = MakeMove(10, 20, Silver, Empty)
	var b = MakeMove(10, 20, Gold, Pawn)
	if !a.Matches(b) {
		t.Fatalf("board moves with equal from/to must match")
	}
	if a.Matches(MakeMove(11, 20, Silver, Empty)) {
		t.Fatalf("distinct origins must not match")
	}

	var d1 = MakeDropMove(Pawn, 30)
	var d2 = MakeDropMove(Pawn, 30)
	var d3 = MakeDropMove(Lance, 30)
	if !d1.Matches(d2) || d1.Matches(d3) {
		t.Fatalf("drop matching must compare piece type and square")
	}
	if a.Matches(MakeDropMove(Silver, 20)) {
		t.Fatalf("a board move must not match a drop")
	}
	if a.Matches(MoveEmpty) {
		t.Fatalf("nothing matches the empty move")
	}
}

func TestEqualIgnoringPromotion(t *testing.T) {
	var plain = MakeMove(10, 20, Silver, Empty)
	var promo = MakePromotionMove(10, 20, Silver, Empty)
	if !EqualIgnoringPromotion(plain, promo) {
		t.Fatalf("promotion flag must be ignored")
	}
	if EqualIgnoringPromotion(plain, MakeMove(10, 21, Silver, Empty)) {
		t.Fatalf("different destinations must differ")
	}
}

func TestMoveCompactRoundTrip(t *testing.T) {
	var cases = []Move{
		MakeMove(10, 20, Silver, Empty),
		MakePromotionMove(10, 20, Silver, Gold),
		MakeDropMove(Knight, 44),
	}
	for _, m := range cases {
		if !m.MatchesCompact(m.Compact()) {
			t.Fatalf("move %v does not match its own compact form", m)
		}
	}
	if MoveEmpty.Compact() != 0 {
		t.Fatalf("empty move must fold to zero")
	}
	if MakeMove(10, 20, Silver, Empty).MatchesCompact(0) {
		t.Fatalf("zero is a miss, never a match")
	}
	// capture payload is not part of the compact form
	var a = MakeMove(10, 20, Silver, Empty)
	var b = MakeMove(10, 20, Gold, Pawn)
	if a.Compact() != b.Compact() {
		t.Fatalf("compact form must depend only on from/to/flags")
	}
}

func TestMoveString(t *testing.T) {
	var cases = []struct {
		move Move
		want string
	}{
		{MakeMove(MakeSquare(6, 6), MakeSquare(6, 5), Pawn, Empty), "7g7f"},
		{MakePromotionMove(MakeSquare(1, 1), MakeSquare(0, 0), Bishop, Empty), "2b1a+"},
		{MakeDropMove(Pawn, MakeSquare(4, 4)), "P*5e"},
		{MoveEmpty, "none"},
	}
	for _, c := range cases {
		if got := c.move.String(); got != c.want {
			t.Fatalf("String(%#x) = %q, want %q", uint32(c.move), got, c.want)
		}
	}
}

func TestSquareMapping(t *testing.T) {
	for sq := 0; sq < SquareCount; sq++ {
		if MakeSquare(File(sq), Rank(sq)) != sq {
			t.Fatalf("square %v does not round trip", sq)
		}
	}
}
