package engine

import (
	"context"
	"errors"
	"testing"

	"contrast/evaluator"
	"contrast/experiments/metrics"
	"contrast/game"
	"contrast/searcher"
	"contrast/searcher/agent"

	"github.com/stretchr/testify/require"
)

type scriptedAgent struct {
	action game.Action
	err    error
}

func (a scriptedAgent) FindAction(ctx context.Context, state *game.State) (game.Action, metrics.SearchMetric, error) {
	return a.action, metrics.SearchMetric{}, a.err
}

func TestLocalEngine(t *testing.T) {
	t.Run("random agents finish the game", func(t *testing.T) {
		for seed := uint64(1); seed <= 10; seed++ {
			e := NewLocalEngine([2]agent.Agent{agent.NewRandomAgent(seed), agent.NewRandomAgent(seed + 100)})

			gameMetric, moveMetrics, err := e.Run(context.Background())

			require.NoError(t, err)
			require.True(t, e.State.Over(), "Game %d should be over", seed)
			require.Equal(t, 1, gameMetric.StartingPlayer)
			require.Equal(t, len(moveMetrics), gameMetric.TotalMoves)
			require.Equal(t, e.State.Ply, gameMetric.TotalMoves, "Every move advances one ply")
			require.Equal(t, int(e.State.Winner), gameMetric.Winner)
			require.NotEmpty(t, gameMetric.Reason)
			for i, m := range moveMetrics {
				require.Equal(t, i+1, m.Step)
				require.Equal(t, 1+i%2, m.Player, "Players alternate")
			}
		}
	})

	t.Run("search agent against random agent", func(t *testing.T) {
		mcts := searcher.NewMCTS(
			evaluator.Unbatched(evaluator.NewUniformPredictor()),
			searcher.WithSimulations(10),
			searcher.WithSeed(3),
			searcher.WithMetrics(),
		)
		e := NewLocalEngine(
			[2]agent.Agent{agent.NewEvaluationAgent(mcts), agent.NewRandomAgent(4)},
			game.WithMaxPlies(20),
		)

		gameMetric, moveMetrics, err := e.Run(context.Background())

		require.NoError(t, err)
		require.LessOrEqual(t, gameMetric.TotalMoves, 20)
		require.Equal(t, 10, moveMetrics[0].Simulations, "Search metrics are recorded per move")
	})

	t.Run("agent errors abort the game", func(t *testing.T) {
		boom := errors.New("boom")
		e := NewLocalEngine([2]agent.Agent{scriptedAgent{err: boom}, agent.NewRandomAgent(1)})

		_, _, err := e.Run(context.Background())

		require.ErrorIs(t, err, boom)
	})

	t.Run("missing and illegal actions abort the game", func(t *testing.T) {
		e := NewLocalEngine([2]agent.Agent{scriptedAgent{action: game.NoAction}, agent.NewRandomAgent(1)})
		_, _, err := e.Run(context.Background())
		require.ErrorIs(t, err, ErrNoAction)

		e = NewLocalEngine([2]agent.Agent{scriptedAgent{action: game.EncodeAction(game.MoveIndex(22, 12), 0)}, agent.NewRandomAgent(1)})
		_, _, err = e.Run(context.Background())
		require.ErrorIs(t, err, game.ErrIllegalAction)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := NewLocalEngine([2]agent.Agent{agent.NewRandomAgent(1), agent.NewRandomAgent(2)}).Run(ctx)

		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("missing agent panics", func(t *testing.T) {
		require.Panics(t, func() { NewLocalEngine([2]agent.Agent{agent.NewRandomAgent(1), nil}) })
	})
}
