package agent

import (
	"errors"
	"fmt"

	"contrast/game"
)

var errNoState = errors.New("request needs moves or a position")

// PositionDTO is a board position on the wire. Pieces use 0 for empty, 1
// and 2 for the players; tiles use 0 white, 1 black and 2 gray.
type PositionDTO struct {
	Pieces [game.NumCells]int8 `json:"pieces"`
	Tiles  [game.NumCells]int8 `json:"tiles"`
	Stock  [2][2]int8          `json:"stock"` // [player][black, gray]
	Turn   int8                `json:"turn"`
	Ply    int                 `json:"ply"`
}

// FindActionRequest describes the state to search, either as the moves
// played from the opening or as a bare position.
type FindActionRequest struct {
	Moves    []string     `json:"moves,omitempty"`
	Position *PositionDTO `json:"position,omitempty"`
}

type FindActionResponse struct {
	Action      string `json:"action"` // e.g. "c1c2:Bc3", "none" without a legal action
	Index       int32  `json:"index"`  // encoded action, -1 without a legal action
	Simulations int    `json:"simulations,omitempty"`
	DurationMs  int64  `json:"duration_ms,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// State rebuilds the game state of the request.
func (r FindActionRequest) State(options ...game.Option) (*game.State, error) {
	if len(r.Moves) > 0 {
		s := game.NewState(options...)
		for i, m := range r.Moves {
			a, err := game.ParseAction(m)
			if err != nil {
				return nil, fmt.Errorf("move %d: %w", i+1, err)
			}
			if err := s.Apply(a); err != nil {
				return nil, fmt.Errorf("move %d: %w", i+1, err)
			}
		}
		return s, nil
	}
	if r.Position != nil {
		return r.Position.State(options...)
	}
	return nil, errNoState
}

// State validates the position and builds a state from it.
func (p PositionDTO) State(options ...game.Option) (*game.State, error) {
	var snap game.Snapshot
	for cell := 0; cell < game.NumCells; cell++ {
		switch piece := game.Player(p.Pieces[cell]); piece {
		case game.NoPlayer, game.P1, game.P2:
			snap.Pieces[cell] = piece
		default:
			return nil, fmt.Errorf("invalid piece %d on %s", p.Pieces[cell], game.CellName(cell))
		}
		switch tile := game.Tile(p.Tiles[cell]); tile {
		case game.White, game.Black, game.Gray:
			snap.Tiles[cell] = tile
		default:
			return nil, fmt.Errorf("invalid tile %d on %s", p.Tiles[cell], game.CellName(cell))
		}
	}
	for player, stock := range p.Stock {
		if stock[0] < 0 || stock[0] > game.InitialBlackTiles || stock[1] < 0 || stock[1] > game.InitialGrayTiles {
			return nil, fmt.Errorf("invalid stock %v for player %d", stock, player+1)
		}
	}
	snap.Stock = p.Stock

	turn := game.Player(p.Turn)
	if turn != game.P1 && turn != game.P2 {
		return nil, fmt.Errorf("invalid turn %d", p.Turn)
	}
	if p.Ply < 0 {
		return nil, fmt.Errorf("invalid ply %d", p.Ply)
	}
	return game.NewState(append(options, game.WithPosition(snap), game.WithTurn(turn, p.Ply))...), nil
}

// PositionFromState is the wire form of the current position of s. The
// history and repetition counts do not travel with it.
func PositionFromState(s *game.State) PositionDTO {
	p := PositionDTO{Stock: s.Stock, Turn: int8(s.Turn), Ply: s.Ply}
	for cell := 0; cell < game.NumCells; cell++ {
		p.Pieces[cell] = int8(s.Pieces[cell])
		p.Tiles[cell] = int8(s.Tiles[cell])
	}
	return p
}
