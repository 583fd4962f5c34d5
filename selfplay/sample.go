// Package selfplay generates training games: search-guided self-play, the
// samples recorded along the way and their dense training targets.
package selfplay

import "contrast/game"

// DefaultDrawPenalty is the reward of every sample of a drawn game. It
// pushes the evaluator toward decisive play.
const DefaultDrawPenalty = -0.1

// Sample is one position of a self-play game. Actions are in board
// coordinates; Policy holds the root visit shares in the same order. Planes
// are already canonical for Player.
type Sample struct {
	Player  game.Player   `json:"player"`
	Ply     int           `json:"ply"`
	Planes  game.Planes   `json:"planes"`
	Actions []game.Action `json:"actions"`
	Policy  []float64     `json:"policy"`
	Reward  float32       `json:"reward"`
}

// Targets spreads the policy over the move and tile heads of the evaluator,
// in the canonical coordinates of the sample's player. Both targets sum to
// the policy total.
func (s *Sample) Targets() (moves [game.NumMoves]float32, tiles [game.NumTileActions]float32) {
	for i, a := range s.Actions {
		move, tile := game.DecodeAction(game.Canonical(a, s.Player))
		p := float32(s.Policy[i])
		moves[move] += p
		tiles[tile] += p
	}
	return moves, tiles
}

// AssignRewards scores each sample from its player's point of view: +1 for
// the winner, -1 for the loser and drawPenalty for both sides of a draw.
func AssignRewards(samples []Sample, winner game.Player, drawPenalty float32) {
	for i := range samples {
		switch {
		case winner == game.NoPlayer:
			samples[i].Reward = drawPenalty
		case samples[i].Player == winner:
			samples[i].Reward = 1
		default:
			samples[i].Reward = -1
		}
	}
}
