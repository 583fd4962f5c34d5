package searcher

import (
	"context"
	"fmt"
	"time"

	"contrast/evaluator"
	"contrast/experiments/metrics"
	"contrast/game"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

type Option func(mcts *MCTS)

// MCTS is a PUCT tree search guided by an evaluator. Statistics are kept per
// position and survive across searches until Reset. An MCTS instance is not
// safe for concurrent use; run one per goroutine.
type MCTS struct {
	evaluator   evaluator.Evaluator
	simulations int
	cPuct       float64
	alpha       float64
	epsilon     float64
	src         rand.Source
	maxNodes    int // 0 keeps every node
	nodes       map[game.Key]*node
	metrics     metrics.Collector
}

func WithSimulations(simulations int) Option {
	return func(m *MCTS) {
		if simulations > 0 {
			m.simulations = simulations
		}
	}
}

func WithCPuct(c float64) Option {
	return func(m *MCTS) {
		if c > 0 {
			m.cPuct = c
		}
	}
}

// WithDirichlet sets the root noise concentration and mixing weight. An
// epsilon of 0 disables root noise.
func WithDirichlet(alpha, epsilon float64) Option {
	return func(m *MCTS) {
		if alpha > 0 {
			m.alpha = alpha
		}
		if epsilon >= 0 && epsilon <= 1 {
			m.epsilon = epsilon
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(m *MCTS) {
		m.src = rand.NewSource(seed)
	}
}

func WithSource(src rand.Source) Option {
	return func(m *MCTS) {
		if src != nil {
			m.src = src
		}
	}
}

// WithMaxNodes drops the whole tree before a search once it holds n nodes.
// A single search may still add up to one node per simulation on top.
func WithMaxNodes(n int) Option {
	return func(m *MCTS) {
		if n >= 0 {
			m.maxNodes = n
		}
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

func NewMCTS(eval evaluator.Evaluator, options ...Option) *MCTS {
	if eval == nil {
		panic("searcher needs an evaluator")
	}
	m := &MCTS{ // Default values
		evaluator:   eval,
		simulations: DefaultSimulations,
		cPuct:       DefaultCPuct,
		alpha:       DefaultDirichletAlpha,
		epsilon:     DefaultDirichletEpsilon,
		nodes:       make(map[game.Key]*node),
		metrics:     metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if m.src == nil {
		m.src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	return m
}

// Search runs the configured number of simulations from state and returns
// the root visit distribution. The state is never modified. A finished game
// or a position without legal actions yields an empty Result.
func (m *MCTS) Search(ctx context.Context, state *game.State) (Result, error) {
	if state.Over() {
		return Result{}, nil
	}
	if m.maxNodes > 0 && len(m.nodes) >= m.maxNodes {
		log.Debug().Msgf("dropping search tree of %d nodes", len(m.nodes))
		m.Reset()
	}
	m.metrics.Start()
	root, reused := m.nodes[state.Key()]
	if !reused {
		actions := state.LegalActions()
		if len(actions) == 0 {
			log.Warn().Msgf("no legal actions at ply %d for %s", state.Ply, state.Turn)
			return Result{}, nil
		}
		var err error
		if root, _, err = m.expand(ctx, state, actions); err != nil {
			return Result{}, err
		}
	}
	if len(root.actions) == 0 {
		return Result{}, nil
	}

	m.metrics.SetTreeReused(reused)

	// Noise goes into the stored priors, so it accumulates when the tree is reused
	addNoise(root, m.alpha, m.epsilon, m.src)

	for i := 0; i < m.simulations; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		_, depth, err := m.simulate(ctx, state.Copy(), 0)
		if err != nil {
			return Result{}, err
		}
		m.metrics.AddSimulation(depth)
	}

	result := newResult(root)
	result.Metric = m.metrics.Complete(len(m.nodes))
	return result, nil
}

// simulate descends from state to a leaf and returns the leaf value from the
// perspective of the player to move in state.
func (m *MCTS) simulate(ctx context.Context, state *game.State, depth int) (float64, int, error) {
	if state.Over() {
		m.metrics.AddTerminal()
		return state.Outcome(state.Turn), depth, nil
	}

	n, ok := m.nodes[state.Key()]
	if !ok {
		_, value, err := m.expand(ctx, state, state.LegalActions())
		return value, depth, err
	}
	if len(n.actions) == 0 {
		return DRAW, depth, nil
	}

	i := n.selectChild(m.cPuct)
	if err := state.Apply(n.actions[i]); err != nil {
		panic(fmt.Sprintf("stored action is not legal: %v", err))
	}
	value, depth, err := m.simulate(ctx, state, depth+1)
	if err != nil {
		return 0, depth, err
	}

	// The child value is from the opponent's perspective
	value = -value
	n.update(i, value)
	return value, depth, nil
}

// expand evaluates state and stores its normalized priors over actions.
func (m *MCTS) expand(ctx context.Context, state *game.State, actions []game.Action) (*node, float64, error) {
	pred, err := m.evaluator.Evaluate(ctx, state.Planes())
	if err != nil {
		return nil, 0, fmt.Errorf("evaluate ply %d: %w", state.Ply, err)
	}
	n := newNode(actions, &pred, state.Turn)
	m.nodes[state.Key()] = n
	m.metrics.AddExpansion()
	return n, float64(pred.Value), nil
}

// Len returns the number of expanded positions.
func (m *MCTS) Len() int {
	return len(m.nodes)
}

// Reset drops all statistics, e.g. between games.
func (m *MCTS) Reset() {
	m.nodes = make(map[game.Key]*node)
}
