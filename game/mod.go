package game

import "errors"

const (
	BoardSize = 5
	NumCells  = BoardSize * BoardSize // 25

	NumMoves       = NumCells * NumCells // 625 (from, to) pairs
	NumTileActions = 1 + 2*NumCells      // 51: none + black + gray
	NumActions     = NumMoves * NumTileActions

	InitialBlackTiles = 3
	InitialGrayTiles  = 1

	HistorySize = 8

	// Repetitions are only tracked from this ply on
	RepetitionStartPly = 50
	RepetitionLimit    = 5

	DefaultMaxPlies = 150
)

var (
	ErrIllegalAction = errors.New("illegal action")
	ErrGameOver      = errors.New("game is over")
)

// Player identifies a side. P1 starts on row 4 and moves first.
type Player int8

const (
	NoPlayer Player = iota
	P1
	P2
)

func (p Player) Opponent() Player {
	switch p {
	case P1:
		return P2
	case P2:
		return P1
	default:
		panic("no opponent for unknown player")
	}
}

// HomeRow is the row the player's pieces start on.
func (p Player) HomeRow() int {
	if p == P1 {
		return BoardSize - 1
	}
	return 0
}

// GoalRow is the opponent's home row.
func (p Player) GoalRow() int {
	return p.Opponent().HomeRow()
}

func (p Player) String() string {
	switch p {
	case P1:
		return "P1"
	case P2:
		return "P2"
	default:
		return "none"
	}
}

// index into per-player arrays
func (p Player) index() int {
	return int(p) - 1
}

// Tile is the modifier under a cell, it decides how a piece standing on it moves.
type Tile int8

const (
	White Tile = iota // orthogonal
	Black             // diagonal
	Gray              // all eight directions
)

func (t Tile) String() string {
	switch t {
	case White:
		return "white"
	case Black:
		return "black"
	case Gray:
		return "gray"
	default:
		return "unknown"
	}
}

// stock index of a placeable tile color
func (t Tile) index() int {
	switch t {
	case Black:
		return 0
	case Gray:
		return 1
	default:
		panic("white tiles are not placeable")
	}
}

type Status int8

const (
	Ongoing Status = iota
	Won
	Drawn
)

// Reason records why a game ended.
type Reason int8

const (
	NoReason Reason = iota
	GoalReached
	NoLegalMove
	Repetition
	PlyCap
)

func (r Reason) String() string {
	switch r {
	case GoalReached:
		return "goal"
	case NoLegalMove:
		return "no-legal-move"
	case Repetition:
		return "repetition"
	case PlyCap:
		return "ply-cap"
	default:
		return ""
	}
}

// CellIndex returns the row-major index of (x, y).
func CellIndex(x, y int) int {
	return y*BoardSize + x
}

// CellXY is the inverse of CellIndex.
func CellXY(cell int) (x, y int) {
	return cell % BoardSize, cell / BoardSize
}

func inBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}
