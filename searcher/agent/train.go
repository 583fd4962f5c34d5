package agent

import (
	"context"

	"contrast/experiments/metrics"
	"contrast/game"
	"contrast/searcher"

	"golang.org/x/exp/rand"
)

type trainingAgent struct {
	mcts      *searcher.MCTS
	threshold int
	rng       *rand.Rand
}

// NewTrainingAgent returns a new agent for self-play during training. It
// samples actions by visit share until threshold plies have been played.
func NewTrainingAgent(mcts *searcher.MCTS, threshold int, seed uint64) Agent {
	return &trainingAgent{mcts: mcts, threshold: threshold, rng: rand.New(rand.NewSource(seed))}
}

func (a *trainingAgent) FindAction(ctx context.Context, state *game.State) (game.Action, metrics.SearchMetric, error) {
	result, err := a.mcts.Search(ctx, state)
	if err != nil {
		return game.NoAction, metrics.SearchMetric{}, err
	}
	return searcher.SelectAction(result, state.Ply, a.threshold, a.rng), result.Metric, nil
}

func (a *trainingAgent) Reset() {
	a.mcts.Reset()
}
