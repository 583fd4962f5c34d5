package engine

import (
	"context"
	"fmt"
	"time"

	"contrast/experiments/metrics"
	"contrast/game"
	"contrast/searcher/agent"

	"github.com/rs/zerolog/log"
)

// LocalEngine plays two in-process agents against each other. Agents[0]
// plays P1.
type LocalEngine struct {
	State  *game.State
	Agents [2]agent.Agent
}

func NewLocalEngine(agents [2]agent.Agent, options ...game.Option) *LocalEngine {
	if agents[0] == nil || agents[1] == nil {
		panic("need two agents")
	}
	return &LocalEngine{
		State:  game.NewState(options...),
		Agents: agents,
	}
}

// Run executes the game loop until the game is over.
func (e *LocalEngine) Run(ctx context.Context) (metrics.GameMetric, []metrics.MoveMetric, error) {
	gameMetric := metrics.GameMetric{
		StartingPlayer: int(e.State.Turn),
		StartTime:      time.Now(),
	}
	log.Debug().Msgf("player %d is starting", e.State.Turn)

	var moveMetrics []metrics.MoveMetric
	for step := 1; !e.State.Over(); step++ {
		if err := ctx.Err(); err != nil {
			return gameMetric, moveMetrics, err
		}
		mover := e.State.Turn
		action, searchMetric, err := e.Agents[mover-1].FindAction(ctx, e.State.Copy())
		if err != nil {
			return gameMetric, moveMetrics, fmt.Errorf("player %d at ply %d: %w", mover, e.State.Ply, err)
		}
		if action == game.NoAction {
			return gameMetric, moveMetrics, fmt.Errorf("player %d at ply %d: %w", mover, e.State.Ply, ErrNoAction)
		}
		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         step,
			Player:       int(mover),
			SearchMetric: searchMetric,
		})
		if err := e.State.Apply(action); err != nil {
			return gameMetric, moveMetrics, fmt.Errorf("player %d played %s: %w", mover, action, err)
		}
	}

	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.Winner = int(e.State.Winner)
	gameMetric.Reason = e.State.Reason.String()
	gameMetric.TotalMoves = len(moveMetrics)

	log.Debug().Msgf("game over after %d moves: winner %d (%s)", gameMetric.TotalMoves, gameMetric.Winner, gameMetric.Reason)
	return gameMetric, moveMetrics, nil
}
