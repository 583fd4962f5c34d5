package agent

import (
	"context"

	"contrast/experiments/metrics"
	"contrast/game"
)

type Agent interface {
	// FindAction returns the action to play in state and performance metrics
	// (if collected) from the search. It returns game.NoAction when the mover
	// cannot act.
	FindAction(ctx context.Context, state *game.State) (game.Action, metrics.SearchMetric, error)
}

// Resetter is implemented by agents keeping search statistics between calls.
// Reset drops them, e.g. when a new game starts.
type Resetter interface {
	Reset()
}
