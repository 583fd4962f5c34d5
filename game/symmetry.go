package game

// RotateCell maps a cell onto the board rotated by 180 degrees.
func RotateCell(cell int) int {
	return NumCells - 1 - cell
}

// RotateMove rotates both cells of a move index.
func RotateMove(move int) int {
	from, to := SplitMove(move)
	return MoveIndex(RotateCell(from), RotateCell(to))
}

// RotateTile rotates the placement cell of a tile index, keeping its color.
func RotateTile(tile int) int {
	color, cell, ok := SplitTile(tile)
	if !ok {
		return 0
	}
	return TileIndex(color, RotateCell(cell))
}

// Rotate is an involution: Rotate(Rotate(a)) == a.
func Rotate(a Action) Action {
	move, tile := DecodeAction(a)
	return EncodeAction(RotateMove(move), RotateTile(tile))
}

// Canonical converts between absolute board coordinates and the view of
// player. P1 sees the board as stored, P2 sees it rotated. Every conversion
// between the engine and the evaluator goes through here.
func Canonical(a Action, player Player) Action {
	if player == P2 {
		return Rotate(a)
	}
	return a
}

// canonicalCell is Canonical for a single cell.
func canonicalCell(cell int, player Player) int {
	if player == P2 {
		return RotateCell(cell)
	}
	return cell
}
