package selfplay

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"contrast/evaluator"
	"contrast/game"
	"contrast/searcher"

	"github.com/stretchr/testify/require"
)

func quickWorker(id int, eval evaluator.Evaluator, seed uint64) *Worker {
	return NewWorker(id, eval,
		WithWorkerSeed(seed),
		WithSearchOptions(searcher.WithSimulations(4)),
		WithGameOptions(game.WithMaxPlies(12)),
	)
}

func TestWorker(t *testing.T) {
	eval := evaluator.Unbatched(evaluator.NewUniformPredictor())

	t.Run("recording every ply", func(t *testing.T) {
		episode, err := quickWorker(0, eval, 1).Play(context.Background())

		require.NoError(t, err)
		require.LessOrEqual(t, episode.Plies, 12)
		require.Len(t, episode.Samples, episode.Plies, "One sample per ply")
		for i, s := range episode.Samples {
			require.Equal(t, i, s.Ply)
			require.Equal(t, game.Player(1+i%2), s.Player, "Players alternate from P1")
			require.Len(t, s.Policy, len(s.Actions))
			require.InDelta(t, 1.0, sumFloat64(s.Policy), 1e-9)
			switch {
			case episode.Winner == game.NoPlayer:
				require.Equal(t, float32(DefaultDrawPenalty), s.Reward)
			case s.Player == episode.Winner:
				require.Equal(t, float32(1), s.Reward)
			default:
				require.Equal(t, float32(-1), s.Reward)
			}
		}
	})

	t.Run("planes are canonical for the mover", func(t *testing.T) {
		episode, err := quickWorker(0, eval, 3).Play(context.Background())
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(episode.Samples), 2)

		// Opening: the mover's pieces sit on row 4 in its own view
		for _, s := range episode.Samples[:2] {
			own := s.Planes.Plane(game.PlaneOwnPieces)
			for x := 0; x < game.BoardSize; x++ {
				require.Equal(t, float32(1), own[game.CellIndex(x, 4)], "Sample at ply %d", s.Ply)
			}
		}
	})

	t.Run("same seed plays the same game", func(t *testing.T) {
		first, err := quickWorker(0, eval, 7).Play(context.Background())
		require.NoError(t, err)
		second, err := quickWorker(1, eval, 7).Play(context.Background())
		require.NoError(t, err)

		require.Equal(t, first.Samples, second.Samples)
	})

	t.Run("custom draw penalty", func(t *testing.T) {
		w := NewWorker(0, eval,
			WithWorkerSeed(1),
			WithDrawPenalty(0),
			WithSearchOptions(searcher.WithSimulations(2)),
			WithGameOptions(game.WithMaxPlies(2)),
		)

		episode, err := w.Play(context.Background())

		require.NoError(t, err)
		require.Equal(t, game.NoPlayer, episode.Winner)
		require.Equal(t, game.PlyCap, episode.Reason)
		for _, s := range episode.Samples {
			require.Zero(t, s.Reward)
		}
	})

	t.Run("evaluator errors abort the game", func(t *testing.T) {
		boom := errors.New("boom")
		failing := evaluator.Unbatched(evaluator.PredictorFunc(func(ctx context.Context, batch []game.Planes) ([]evaluator.Prediction, error) {
			return nil, boom
		}))

		_, err := quickWorker(0, failing, 1).Play(context.Background())

		require.ErrorIs(t, err, boom)
	})
}

func TestPool(t *testing.T) {
	t.Run("sharing a dispatcher", func(t *testing.T) {
		d := evaluator.NewDispatcher(evaluator.NewUniformPredictor(), evaluator.WithMaxBatch(4))
		d.Start(context.Background())
		defer d.Stop()

		buffer := NewBuffer(1000)
		pool := NewPool(d,
			WithWorkers(3),
			WithGames(5),
			WithPoolSeed(11),
			WithBuffer(buffer),
			WithWorkerOptions(
				WithSearchOptions(searcher.WithSimulations(4)),
				WithGameOptions(game.WithMaxPlies(10)),
			),
		)

		summary, err := pool.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, 5, summary.Games, "Workers stop once all games are claimed")
		require.Equal(t, 5, summary.P1Wins+summary.P2Wins+summary.Draws)
		require.Equal(t, summary.Samples, buffer.Len())
		require.Positive(t, d.Stats().Batches)
	})

	t.Run("more workers than games", func(t *testing.T) {
		var w bytes.Buffer
		writer, err := NewWriter(&w)
		require.NoError(t, err)
		pool := NewPool(evaluator.Unbatched(evaluator.NewUniformPredictor()),
			WithWorkers(4),
			WithGames(1),
			WithWriter(writer),
			WithWorkerOptions(
				WithSearchOptions(searcher.WithSimulations(2)),
				WithGameOptions(game.WithMaxPlies(4)),
			),
		)

		summary, err := pool.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, 1, summary.Games)
		require.Equal(t, summary.Samples, writer.Count())
		require.NoError(t, writer.Close())
	})

	t.Run("first failure stops the pool", func(t *testing.T) {
		boom := errors.New("boom")
		failing := evaluator.Unbatched(evaluator.PredictorFunc(func(ctx context.Context, batch []game.Planes) ([]evaluator.Prediction, error) {
			return nil, boom
		}))

		summary, err := NewPool(failing, WithWorkers(2), WithGames(4)).Run(context.Background())

		require.ErrorIs(t, err, boom)
		require.Zero(t, summary.Games)
	})

	t.Run("nil evaluator panics", func(t *testing.T) {
		require.Panics(t, func() { NewPool(nil) })
	})
}

func sumFloat64(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}
