package searcher

import (
	"context"
	"errors"
	"testing"

	"contrast/game"

	"github.com/stretchr/testify/require"
)

func noNoise() Option {
	return WithDirichlet(DefaultDirichletAlpha, 0)
}

func TestNewMCTS(t *testing.T) {
	t.Run("panics without an evaluator", func(t *testing.T) {
		require.Panics(t, func() { NewMCTS(nil) })
	})

	t.Run("default values", func(t *testing.T) {
		m := NewMCTS(&mockEvaluator{})

		require.Equal(t, DefaultSimulations, m.simulations)
		require.Equal(t, DefaultCPuct, m.cPuct)
		require.Equal(t, DefaultDirichletAlpha, m.alpha)
		require.Equal(t, DefaultDirichletEpsilon, m.epsilon)
		require.NotNil(t, m.src)
	})

	t.Run("ignoring invalid options", func(t *testing.T) {
		m := NewMCTS(&mockEvaluator{}, WithSimulations(0), WithCPuct(-1), WithDirichlet(-1, 2))

		require.Equal(t, DefaultSimulations, m.simulations)
		require.Equal(t, DefaultCPuct, m.cPuct)
		require.Equal(t, DefaultDirichletAlpha, m.alpha)
		require.Equal(t, DefaultDirichletEpsilon, m.epsilon)
	})
}

func TestSearch(t *testing.T) {
	t.Run("visiting the root once per simulation", func(t *testing.T) {
		m := NewMCTS(&mockEvaluator{}, WithSimulations(40), WithSeed(1))

		result, err := m.Search(context.Background(), game.NewState())

		require.NoError(t, err)
		total := 0
		for _, v := range result.Visits {
			total += v
		}
		require.Equal(t, 40, total, "Root visits should equal the simulation count")
		require.InDelta(t, 1.0, sum(result.Policy), 1e-9, "Policy should sum to 1")
		require.Equal(t, game.NewState().LegalActions(), result.Actions, "Root actions keep canonical order")
	})

	t.Run("keeping root priors normalized with noise", func(t *testing.T) {
		m := NewMCTS(&mockEvaluator{}, WithSimulations(5), WithSeed(3))
		s := game.NewState()

		_, err := m.Search(context.Background(), s)
		require.NoError(t, err)
		_, err = m.Search(context.Background(), s)
		require.NoError(t, err)

		root := m.nodes[s.Key()]
		require.InDelta(t, 1.0, sum(root.priors), 1e-9, "Priors should sum to 1 after repeated noise")
		for _, p := range root.priors {
			require.GreaterOrEqual(t, p, 0.0)
		}
	})

	t.Run("leaving the root state untouched", func(t *testing.T) {
		m := NewMCTS(&mockEvaluator{}, WithSimulations(30), WithSeed(1))
		s := game.NewState()
		require.NoError(t, s.Apply(move(22, 17)))
		before := s.Copy()

		_, err := m.Search(context.Background(), s)

		require.NoError(t, err)
		require.Equal(t, before, s)
	})

	t.Run("deterministic under a fixed seed", func(t *testing.T) {
		run := func() Result {
			m := NewMCTS(&mockEvaluator{value: 0.1}, WithSimulations(60), WithSeed(42))
			result, err := m.Search(context.Background(), game.NewState())
			require.NoError(t, err)
			return result
		}

		first, second := run(), run()

		require.Equal(t, first.Actions, second.Actions)
		require.Equal(t, first.Visits, second.Visits)
		require.Equal(t, first.Values, second.Values)
	})

	t.Run("empty result for a finished game", func(t *testing.T) {
		eval := &mockEvaluator{}
		m := NewMCTS(eval)
		s := board(game.P1, map[int]game.Player{7: game.P1, 19: game.P2})
		require.NoError(t, s.Apply(move(7, 2)))

		result, err := m.Search(context.Background(), s)

		require.NoError(t, err)
		require.True(t, result.Empty())
		require.Equal(t, game.NoAction, result.Best())
		require.Equal(t, 0, eval.calls, "Terminal roots are not evaluated")
	})

	t.Run("empty result without legal actions", func(t *testing.T) {
		eval := &mockEvaluator{}
		m := NewMCTS(eval)
		s := board(game.P2, map[int]game.Player{10: game.P2, 5: game.P1, 15: game.P1, 11: game.P1})

		result, err := m.Search(context.Background(), s)

		require.NoError(t, err)
		require.True(t, result.Empty())
		require.Equal(t, 0, eval.calls)
		require.Equal(t, 0, m.Len())
	})

	t.Run("finding the winning move", func(t *testing.T) {
		m := NewMCTS(&mockEvaluator{}, WithSimulations(100), noNoise())
		s := board(game.P1, map[int]game.Player{7: game.P1, 19: game.P2})

		result, err := m.Search(context.Background(), s)

		require.NoError(t, err)
		require.Equal(t, move(7, 2), result.Best())
		value, ok := result.Value(move(7, 2))
		require.True(t, ok)
		require.Equal(t, WIN, value, "Reaching the goal row is worth a win to the mover")
	})

	t.Run("finding the winning move for P2", func(t *testing.T) {
		m := NewMCTS(&mockEvaluator{}, WithSimulations(100), noNoise())
		s := board(game.P2, map[int]game.Player{17: game.P2, 5: game.P1})

		result, err := m.Search(context.Background(), s)

		require.NoError(t, err)
		require.Equal(t, move(17, 22), result.Best())
		value, _ := result.Value(move(17, 22))
		require.Equal(t, WIN, value)
	})

	t.Run("negating leaf values on backup", func(t *testing.T) {
		m := NewMCTS(&mockEvaluator{value: 0.5}, WithSimulations(1), noNoise())
		s := game.NewState()

		result, err := m.Search(context.Background(), s)

		require.NoError(t, err)
		require.Equal(t, 1, result.Visits[0], "First simulation takes the first action")
		require.InDelta(t, -0.5, result.Values[0], 1e-9, "Child value is seen from the opponent")
		require.Equal(t, 2, m.Len(), "Root and one child are expanded")
	})

	t.Run("reusing statistics across searches", func(t *testing.T) {
		eval := &mockEvaluator{}
		m := NewMCTS(eval, WithSimulations(10), WithSeed(1), WithMetrics())
		s := game.NewState()

		first, err := m.Search(context.Background(), s)
		require.NoError(t, err)
		require.False(t, first.Metric.IsTreeReused)
		require.Equal(t, 10, first.Metric.Simulations)
		size := m.Len()

		second, err := m.Search(context.Background(), s)
		require.NoError(t, err)
		require.True(t, second.Metric.IsTreeReused)
		require.GreaterOrEqual(t, m.Len(), size)
		total := 0
		for _, v := range second.Visits {
			total += v
		}
		require.Equal(t, 20, total, "Visits accumulate on a reused root")

		m.Reset()
		require.Equal(t, 0, m.Len())
	})

	t.Run("bounding the tree size", func(t *testing.T) {
		m := NewMCTS(&mockEvaluator{}, WithSimulations(20), WithSeed(5), WithMaxNodes(30))
		s := game.NewState()

		for i := 0; i < 12 && !s.Over(); i++ {
			result, err := m.Search(context.Background(), s)
			require.NoError(t, err)
			require.LessOrEqual(t, m.Len(), 30+20+1, "Tree is dropped once it reaches the cap")
			require.NoError(t, s.Apply(result.Best()))
		}
	})

	t.Run("propagating evaluator errors", func(t *testing.T) {
		boom := errors.New("boom")
		m := NewMCTS(&mockEvaluator{err: boom})

		_, err := m.Search(context.Background(), game.NewState())

		require.ErrorIs(t, err, boom)
	})

	t.Run("stopping on a cancelled context", func(t *testing.T) {
		m := NewMCTS(&mockEvaluator{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := m.Search(ctx, game.NewState())

		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("drawn leaves are worth nothing", func(t *testing.T) {
		m := NewMCTS(&mockEvaluator{value: 0.9}, WithSimulations(20), noNoise())
		s := board(game.P1, map[int]game.Player{15: game.P1, 9: game.P2})
		s.MaxPlies = 1

		result, err := m.Search(context.Background(), s)

		require.NoError(t, err)
		for _, v := range result.Values {
			require.Equal(t, DRAW, v, "Every action hits the ply cap")
		}
	})
}
