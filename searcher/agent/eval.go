package agent

import (
	"context"

	"contrast/experiments/metrics"
	"contrast/game"
	"contrast/searcher"
)

type evaluationAgent struct {
	mcts *searcher.MCTS
}

// NewEvaluationAgent returns a new agent for actual game play during evaluation.
// It always plays the most visited action.
func NewEvaluationAgent(mcts *searcher.MCTS) Agent {
	return evaluationAgent{mcts: mcts}
}

func (a evaluationAgent) FindAction(ctx context.Context, state *game.State) (game.Action, metrics.SearchMetric, error) {
	result, err := a.mcts.Search(ctx, state)
	if err != nil {
		return game.NoAction, metrics.SearchMetric{}, err
	}
	return result.Best(), result.Metric, nil
}

func (a evaluationAgent) Reset() {
	a.mcts.Reset()
}
