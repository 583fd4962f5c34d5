package engine

import (
	"context"
	"errors"

	"contrast/experiments/metrics"
)

var ErrNoAction = errors.New("agent returned no action in a running game")

type Engine interface {
	// Run plays a game till it is decided or drawn
	Run(ctx context.Context) (gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric, err error)
}
