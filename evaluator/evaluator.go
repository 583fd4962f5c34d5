// Package evaluator connects the searcher to a position evaluator: the
// predictor contract, a batching dispatcher and the bundled predictors.
package evaluator

import (
	"context"
	"errors"

	"contrast/game"
)

var (
	// ErrStopped resolves requests that can no longer be served because the
	// dispatcher was stopped.
	ErrStopped = errors.New("dispatcher stopped")
	// ErrBatchSize is returned when a predictor answers with the wrong number
	// of predictions or is handed more inputs than it accepts.
	ErrBatchSize = errors.New("batch size mismatch")
)

// Prediction holds the evaluator output for one position, in the canonical
// coordinates of the player to move.
type Prediction struct {
	Moves [game.NumMoves]float32       // (from, to) logits
	Tiles [game.NumTileActions]float32 // placement logits, index 0 is no placement
	Value float32                      // expected outcome for the player to move, in [-1, 1]
}

// ActionLogit scores a canonical action as the sum of its move and tile logits.
func (p *Prediction) ActionLogit(a game.Action) float32 {
	move, tile := game.DecodeAction(a)
	return p.Moves[move] + p.Tiles[tile]
}

// Predictor evaluates a batch of encoded positions. Implementations return
// exactly one prediction per input, in order.
type Predictor interface {
	Predict(ctx context.Context, batch []game.Planes) ([]Prediction, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, batch []game.Planes) ([]Prediction, error)

func (f PredictorFunc) Predict(ctx context.Context, batch []game.Planes) ([]Prediction, error) {
	return f(ctx, batch)
}

// Evaluator evaluates a single position. The searcher only depends on this.
type Evaluator interface {
	Evaluate(ctx context.Context, planes *game.Planes) (Prediction, error)
}

type unbatched struct {
	predictor Predictor
}

// Unbatched calls the predictor once per position on the caller's goroutine.
func Unbatched(p Predictor) Evaluator {
	return unbatched{predictor: p}
}

func (u unbatched) Evaluate(ctx context.Context, planes *game.Planes) (Prediction, error) {
	preds, err := u.predictor.Predict(ctx, []game.Planes{*planes})
	if err != nil {
		return Prediction{}, err
	}
	if len(preds) != 1 {
		return Prediction{}, ErrBatchSize
	}
	preds[0].Value = clamp(preds[0].Value)
	return preds[0], nil
}

func clamp(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
