package tt

import "github.com/mkazuya/sente/pkg/types"

// Entries below this depth are not trusted to extend an already
// non-empty line.
const pvTrustDepth = 2

// MainLine reconstructs a principal variation by walking stored Exact
// best moves from the board's current position. The walk stops at the
// first non-Exact entry, illegal or incomplete move, shallow entry once
// the line is non-empty, or repeated key. The board is restored before
// returning.
func (t *Table) MainLine(b types.Board, maxLen int) []types.Move {
	var line []types.Move
	var seen = make(map[uint64]struct{})
	for len(line) < maxLen {
		var key = b.Key()
		if _, ok := seen[key]; ok {
			break
		}
		seen[key] = struct{}{}
		var entry, ok = t.Probe(key)
		if !ok || entry.Bound != BoundExact || entry.Move == 0 {
			break
		}
		if len(line) > 0 && entry.Depth < pvTrustDepth {
			break
		}
		var move, found = b.CompleteMove(entry.Move)
		if !found || !b.IsLegal(move) {
			break
		}
		b.DoMove(move)
		line = append(line, move)
	}
	for range line {
		b.UndoMove()
	}
	return line
}
