package game

import (
	"fmt"
	"strings"
)

// Action packs a move and an optional tile placement into one integer:
// action = move*NumTileActions + tile, move = from*NumCells + to.
// Tile 0 places nothing, 1..25 places a black tile on cell tile-1 and
// 26..50 a gray tile on cell tile-26.
type Action int32

// NoAction is returned where no action is possible.
const NoAction Action = -1

// EncodeAction panics on out of range indices.
func EncodeAction(move, tile int) Action {
	if move < 0 || move >= NumMoves {
		panic(fmt.Sprintf("move index %d out of range", move))
	}
	if tile < 0 || tile >= NumTileActions {
		panic(fmt.Sprintf("tile index %d out of range", tile))
	}
	return Action(move*NumTileActions + tile)
}

// DecodeAction splits an action into its move and tile indices.
func DecodeAction(a Action) (move, tile int) {
	if !a.Valid() {
		panic(fmt.Sprintf("action %d out of range", a))
	}
	return int(a) / NumTileActions, int(a) % NumTileActions
}

func MoveIndex(from, to int) int {
	if from < 0 || from >= NumCells || to < 0 || to >= NumCells {
		panic(fmt.Sprintf("cells (%d, %d) out of range", from, to))
	}
	return from*NumCells + to
}

// SplitMove is the inverse of MoveIndex.
func SplitMove(move int) (from, to int) {
	return move / NumCells, move % NumCells
}

// TileIndex returns the tile index of a placement of color on cell.
func TileIndex(color Tile, cell int) int {
	if cell < 0 || cell >= NumCells {
		panic(fmt.Sprintf("cell %d out of range", cell))
	}
	switch color {
	case Black:
		return 1 + cell
	case Gray:
		return 1 + NumCells + cell
	default:
		panic("white tiles are not placeable")
	}
}

func BlackTile(cell int) int { return TileIndex(Black, cell) }

func GrayTile(cell int) int { return TileIndex(Gray, cell) }

// SplitTile is the inverse of TileIndex. ok is false for tile index 0.
func SplitTile(tile int) (color Tile, cell int, ok bool) {
	switch {
	case tile < 0 || tile >= NumTileActions:
		panic(fmt.Sprintf("tile index %d out of range", tile))
	case tile == 0:
		return White, 0, false
	case tile <= NumCells:
		return Black, tile - 1, true
	default:
		return Gray, tile - 1 - NumCells, true
	}
}

func (a Action) Valid() bool {
	return a >= 0 && a < NumActions
}

func (a Action) Move() int {
	move, _ := DecodeAction(a)
	return move
}

func (a Action) Tile() int {
	_, tile := DecodeAction(a)
	return tile
}

func (a Action) From() int {
	from, _ := SplitMove(a.Move())
	return from
}

func (a Action) To() int {
	_, to := SplitMove(a.Move())
	return to
}

// Placement reports the tile placed by the action, if any.
func (a Action) Placement() (color Tile, cell int, ok bool) {
	return SplitTile(a.Tile())
}

// String renders the action as e.g. "c5c4", "c5c4:Bc3" or "c5c4:Gb2".
func (a Action) String() string {
	if !a.Valid() {
		return "none"
	}
	s := CellName(a.From()) + CellName(a.To())
	if color, cell, ok := a.Placement(); ok {
		prefix := "B"
		if color == Gray {
			prefix = "G"
		}
		s += ":" + prefix + CellName(cell)
	}
	return s
}

// CellName renders a cell as a column letter a-e and a row number 1-5, row 1 being y=4.
func CellName(cell int) string {
	x, y := CellXY(cell)
	return fmt.Sprintf("%c%d", 'a'+x, BoardSize-y)
}

// ParseCell is the inverse of CellName.
func ParseCell(s string) (int, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid cell %q", s)
	}
	x := int(s[0] - 'a')
	y := BoardSize - int(s[1]-'0')
	if !inBounds(x, y) {
		return 0, fmt.Errorf("invalid cell %q", s)
	}
	return CellIndex(x, y), nil
}

// ParseAction parses the notation produced by Action.String.
func ParseAction(s string) (Action, error) {
	move, placement, hasPlacement := strings.Cut(strings.TrimSpace(s), ":")
	if len(move) != 4 {
		return NoAction, fmt.Errorf("invalid action %q", s)
	}
	from, err := ParseCell(move[:2])
	if err != nil {
		return NoAction, err
	}
	to, err := ParseCell(move[2:])
	if err != nil {
		return NoAction, err
	}
	tile := 0
	if hasPlacement {
		if len(placement) != 3 {
			return NoAction, fmt.Errorf("invalid placement %q", placement)
		}
		var color Tile
		switch placement[0] {
		case 'B', 'b':
			color = Black
		case 'G', 'g':
			color = Gray
		default:
			return NoAction, fmt.Errorf("invalid tile color %q", placement[:1])
		}
		cell, err := ParseCell(placement[1:])
		if err != nil {
			return NoAction, err
		}
		tile = TileIndex(color, cell)
	}
	return EncodeAction(MoveIndex(from, to), tile), nil
}
