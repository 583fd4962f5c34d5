package agent

import (
	"context"

	"contrast/experiments/metrics"
	"contrast/game"

	"golang.org/x/exp/rand"
)

type randomAgent struct {
	rng *rand.Rand
}

// NewRandomAgent returns a baseline agent playing uniformly random legal actions.
func NewRandomAgent(seed uint64) Agent {
	return &randomAgent{rng: rand.New(rand.NewSource(seed))}
}

func (a *randomAgent) FindAction(ctx context.Context, state *game.State) (game.Action, metrics.SearchMetric, error) {
	if err := ctx.Err(); err != nil {
		return game.NoAction, metrics.SearchMetric{}, err
	}
	actions := state.LegalActions()
	if len(actions) == 0 {
		return game.NoAction, metrics.SearchMetric{}, nil
	}
	return actions[a.rng.Intn(len(actions))], metrics.SearchMetric{}, nil
}
