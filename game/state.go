package game

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Snapshot is one history entry: the board and the tile stock after a ply.
type Snapshot struct {
	Pieces [NumCells]Player
	Tiles  [NumCells]Tile
	Stock  [2][2]int8
}

// State is the full game state, mutated in place by Apply. Use Copy to
// explore a line without touching the original.
//
// The exported fields are read-only outside this package. Build positions
// with NewState and its options and change them only through Apply, which
// keeps the tile inventory, the history and the repetition counts in step.
type State struct {
	Pieces   [NumCells]Player // occupancy, NoPlayer for empty cells
	Tiles    [NumCells]Tile   // modifier under each cell
	Stock    [2][2]int8       // placeable tiles per player: [black, gray]
	Turn     Player
	Ply      int
	Status   Status
	Winner   Player // NoPlayer unless Status is Won
	Reason   Reason
	MaxPlies int // 0 disables the ply cap

	history     [HistorySize]Snapshot // ring buffer, head is the newest entry
	head        int
	size        int
	repetitions map[uint64]int
}

type Option func(s *State)

// WithMaxPlies sets the ply cap after which the game is drawn. 0 disables it.
func WithMaxPlies(plies int) Option {
	return func(s *State) {
		if plies >= 0 {
			s.MaxPlies = plies
		}
	}
}

// WithStock overrides the initial tile stock of both players.
func WithStock(black, gray int) Option {
	return func(s *State) {
		for p := range s.Stock {
			s.Stock[p] = [2]int8{int8(black), int8(gray)}
		}
	}
}

// WithPosition starts from an arbitrary board instead of the opening setup.
func WithPosition(snap Snapshot) Option {
	return func(s *State) {
		s.Pieces = snap.Pieces
		s.Tiles = snap.Tiles
		s.Stock = snap.Stock
	}
}

// WithTurn sets the player to move and the ply count.
func WithTurn(turn Player, ply int) Option {
	return func(s *State) {
		if turn == P1 || turn == P2 {
			s.Turn = turn
		}
		if ply >= 0 {
			s.Ply = ply
		}
	}
}

// NewState returns the starting position: P2 on row 0, P1 on row 4, every
// cell white and P1 to move.
func NewState(options ...Option) *State {
	s := &State{
		Turn:     P1,
		MaxPlies: DefaultMaxPlies,
	}
	for x := 0; x < BoardSize; x++ {
		s.Pieces[CellIndex(x, P2.HomeRow())] = P2
		s.Pieces[CellIndex(x, P1.HomeRow())] = P1
	}
	for p := range s.Stock {
		s.Stock[p] = [2]int8{InitialBlackTiles, InitialGrayTiles}
	}
	for _, option := range options {
		option(s)
	}
	for p, stock := range s.Stock {
		if stock[0] < 0 || stock[1] < 0 {
			panic(fmt.Sprintf("negative stock %v for player %d", stock, p+1))
		}
	}
	s.pushHistory()
	return s
}

// Copy returns a deep copy of the state.
func (s *State) Copy() *State {
	c := *s // arrays and the history ring are copied by value
	if s.repetitions != nil {
		c.repetitions = make(map[uint64]int, len(s.repetitions))
		for h, n := range s.repetitions {
			c.repetitions[h] = n
		}
	}
	return &c
}

// Over reports whether the game has reached a terminal state.
func (s *State) Over() bool {
	return s.Status != Ongoing
}

// Outcome returns +1, -1 or 0 for a finished game from player's perspective.
func (s *State) Outcome(player Player) float64 {
	switch {
	case s.Status != Won:
		return 0
	case s.Winner == player:
		return 1
	default:
		return -1
	}
}

// StockOf returns the black and gray tiles player can still place.
func (s *State) StockOf(player Player) (black, gray int) {
	stock := s.Stock[player.index()]
	return int(stock[0]), int(stock[1])
}

// Key identifies the state for search statistics. The ply is part of the key
// so the same board at different plies never forms a cycle in the tree.
type Key struct {
	Pieces [NumCells]Player
	Tiles  [NumCells]Tile
	Stock  [2][2]int8
	Turn   Player
	Ply    int
}

func (s *State) Key() Key {
	return Key{
		Pieces: s.Pieces,
		Tiles:  s.Tiles,
		Stock:  s.Stock,
		Turn:   s.Turn,
		Ply:    s.Ply,
	}
}

// PositionHash hashes the board and the mover for repetition counting.
func (s *State) PositionHash() uint64 {
	h := fnv.New64a()
	buf := make([]byte, 0, 2*NumCells+1)
	for _, p := range s.Pieces {
		buf = append(buf, byte(p))
	}
	for _, t := range s.Tiles {
		buf = append(buf, byte(t))
	}
	buf = append(buf, byte(s.Turn))
	h.Write(buf)
	return h.Sum64()
}

// Repetitions returns how often the current position was seen since
// RepetitionStartPly.
func (s *State) Repetitions() int {
	return s.repetitions[s.PositionHash()]
}

func (s *State) pushHistory() {
	s.head = (s.head + HistorySize - 1) % HistorySize
	s.history[s.head] = Snapshot{Pieces: s.Pieces, Tiles: s.Tiles, Stock: s.Stock}
	if s.size < HistorySize {
		s.size++
	}
}

// History returns the recorded snapshots, newest first. The newest entry is
// the current position.
func (s *State) History() []Snapshot {
	out := make([]Snapshot, s.size)
	for i := range out {
		out[i] = s.history[(s.head+i)%HistorySize]
	}
	return out
}

// snapshot returns history entry i, padding with the oldest entry.
func (s *State) snapshot(i int) *Snapshot {
	if s.size == 0 {
		return &Snapshot{Pieces: s.Pieces, Tiles: s.Tiles, Stock: s.Stock}
	}
	if i >= s.size {
		i = s.size - 1
	}
	return &s.history[(s.head+i)%HistorySize]
}

func (s *State) String() string {
	var b strings.Builder
	for y := 0; y < BoardSize; y++ {
		b.WriteByte(byte('0' + BoardSize - y))
		b.WriteByte(' ')
		for x := 0; x < BoardSize; x++ {
			cell := CellIndex(x, y)
			var c byte
			switch s.Pieces[cell] {
			case P1:
				c = 'o'
			case P2:
				c = 'x'
			default:
				c = '.'
			}
			switch s.Tiles[cell] {
			case Black:
				c = marked(c, '#')
			case Gray:
				c = marked(c, '+')
			}
			b.WriteByte(c)
		}
		b.WriteByte('\n')
	}
	b.WriteString("  abcde\n")
	return b.String()
}

// marked marks a piece on a colored tile, or shows the tile mark on an empty cell.
func marked(c byte, mark byte) byte {
	if c == '.' {
		return mark
	}
	return c - 'a' + 'A'
}
