package game

import "fmt"

type direction struct{ dx, dy int }

var (
	orthogonal = []direction{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}
	diagonal   = []direction{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}

	// Movement geometry keyed by the tile under the moving piece. The order
	// is fixed, it defines the canonical order of legal actions.
	directions = [...][]direction{
		White: orthogonal,
		Black: diagonal,
		Gray:  append(append([]direction{}, orthogonal...), diagonal...),
	}
)

// Destinations returns the cells the mover's piece on cell can slide to. A
// slide stops on the first empty cell, jumps over the mover's own pieces and
// is blocked by the opponent.
func (s *State) Destinations(cell int) []int {
	return s.appendDestinations(nil, cell)
}

func (s *State) appendDestinations(dst []int, cell int) []int {
	if s.Pieces[cell] != s.Turn {
		return dst
	}
	x, y := CellXY(cell)
	for _, d := range directions[s.Tiles[cell]] {
		nx, ny := x+d.dx, y+d.dy
		for inBounds(nx, ny) {
			target := s.Pieces[CellIndex(nx, ny)]
			if target == NoPlayer {
				dst = append(dst, CellIndex(nx, ny))
				break
			}
			if target != s.Turn {
				break
			}
			nx, ny = nx+d.dx, ny+d.dy
		}
	}
	return dst
}

// LegalActions enumerates the mover's actions in canonical order: origins
// row-major, destinations in direction order, each move-only action followed
// by its placements on white cells row-major, black before gray.
func (s *State) LegalActions() []Action {
	if s.Over() {
		return nil
	}
	black, gray := s.StockOf(s.Turn)
	var whites []int
	if black > 0 || gray > 0 {
		whites = make([]int, 0, NumCells)
		for cell, tile := range s.Tiles {
			if tile == White {
				whites = append(whites, cell)
			}
		}
	}

	actions := make([]Action, 0, 64)
	destinations := make([]int, 0, 8)
	for from := 0; from < NumCells; from++ {
		if s.Pieces[from] != s.Turn {
			continue
		}
		destinations = s.appendDestinations(destinations[:0], from)
		for _, to := range destinations {
			base := EncodeAction(MoveIndex(from, to), 0)
			actions = append(actions, base)
			for _, cell := range whites {
				if cell == to || (s.Pieces[cell] != NoPlayer && cell != from) {
					continue
				}
				if black > 0 {
					actions = append(actions, base+Action(TileIndex(Black, cell)))
				}
				if gray > 0 {
					actions = append(actions, base+Action(TileIndex(Gray, cell)))
				}
			}
		}
	}
	return actions
}

// HasLegalAction reports whether the mover can act, without enumerating
// placements.
func (s *State) HasLegalAction() bool {
	if s.Over() {
		return false
	}
	buf := make([]int, 0, 8)
	for cell := 0; cell < NumCells; cell++ {
		if s.Pieces[cell] == s.Turn && len(s.appendDestinations(buf[:0], cell)) > 0 {
			return true
		}
	}
	return false
}

// IsLegal reports whether a is among LegalActions.
func (s *State) IsLegal(a Action) bool {
	if s.Over() || !a.Valid() {
		return false
	}
	from, to := a.From(), a.To()
	if s.Pieces[from] != s.Turn {
		return false
	}
	reachable := false
	for _, cell := range s.Destinations(from) {
		if cell == to {
			reachable = true
			break
		}
	}
	if !reachable {
		return false
	}
	color, cell, ok := a.Placement()
	if !ok {
		return true
	}
	if s.Stock[s.Turn.index()][color.index()] <= 0 {
		return false
	}
	if s.Tiles[cell] != White || cell == to {
		return false
	}
	return s.Pieces[cell] == NoPlayer || cell == from
}

// Apply plays a for the mover. Illegal actions are rejected before the
// state is touched.
func (s *State) Apply(a Action) error {
	if s.Over() {
		return fmt.Errorf("apply %s: %w", a, ErrGameOver)
	}
	if !s.IsLegal(a) {
		return fmt.Errorf("apply %s for %s: %w", a, s.Turn, ErrIllegalAction)
	}

	mover := s.Turn
	from, to := a.From(), a.To()
	s.Pieces[to] = mover
	s.Pieces[from] = NoPlayer
	if color, cell, ok := a.Placement(); ok {
		s.Tiles[cell] = color
		s.Stock[mover.index()][color.index()]--
	}

	// The win check runs before the turn is handed over
	if s.reachedGoal(mover) {
		s.finish(Won, mover, GoalReached)
	}

	s.Turn = mover.Opponent()
	if !s.Over() && !s.HasLegalAction() {
		s.finish(Won, mover, NoLegalMove)
	}

	s.Ply++
	s.pushHistory()

	if !s.Over() && s.Ply >= RepetitionStartPly {
		if s.repetitions == nil {
			s.repetitions = make(map[uint64]int)
		}
		h := s.PositionHash()
		s.repetitions[h]++
		if s.repetitions[h] >= RepetitionLimit {
			s.finish(Drawn, NoPlayer, Repetition)
		}
	}

	if !s.Over() && s.MaxPlies > 0 && s.Ply >= s.MaxPlies {
		s.finish(Drawn, NoPlayer, PlyCap)
	}
	return nil
}

func (s *State) reachedGoal(player Player) bool {
	row := player.GoalRow()
	for x := 0; x < BoardSize; x++ {
		if s.Pieces[CellIndex(x, row)] == player {
			return true
		}
	}
	return false
}

func (s *State) finish(status Status, winner Player, reason Reason) {
	s.Status = status
	s.Winner = winner
	s.Reason = reason
}
