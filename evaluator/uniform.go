package evaluator

import (
	"context"

	"contrast/game"
)

type uniform struct{}

// NewUniformPredictor returns a predictor with all logits zero and a neutral
// value, so that the searcher spreads priors evenly over legal actions.
func NewUniformPredictor() Predictor {
	return uniform{}
}

func (uniform) Predict(ctx context.Context, batch []game.Planes) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return make([]Prediction, len(batch)), nil
}
