package selfplay

import (
	"context"
	"fmt"
	"time"

	"contrast/evaluator"
	"contrast/game"
	"contrast/searcher"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

type WorkerOption func(w *Worker)

// Worker plays self-play games with its own search tree. A Worker is not
// safe for concurrent use.
type Worker struct {
	id          int
	mcts        *searcher.MCTS
	rng         *rand.Rand
	threshold   int
	drawPenalty float32
	seed        uint64
	mctsOptions []searcher.Option
	gameOptions []game.Option
}

// Episode is a finished self-play game and its samples.
type Episode struct {
	Samples  []Sample
	Winner   game.Player // NoPlayer for draws
	Reason   game.Reason
	Plies    int
	Duration time.Duration
}

// WithSearchOptions configures the worker's searcher.
func WithSearchOptions(options ...searcher.Option) WorkerOption {
	return func(w *Worker) {
		w.mctsOptions = append(w.mctsOptions, options...)
	}
}

// WithTemperatureThreshold sets the ply from which the most visited action
// is played instead of a sampled one.
func WithTemperatureThreshold(plies int) WorkerOption {
	return func(w *Worker) {
		if plies >= 0 {
			w.threshold = plies
		}
	}
}

func WithDrawPenalty(penalty float32) WorkerOption {
	return func(w *Worker) {
		w.drawPenalty = penalty
	}
}

// WithGameOptions configures the state every game starts from.
func WithGameOptions(options ...game.Option) WorkerOption {
	return func(w *Worker) {
		w.gameOptions = append(w.gameOptions, options...)
	}
}

// WithWorkerSeed seeds action sampling and the searcher's root noise.
func WithWorkerSeed(seed uint64) WorkerOption {
	return func(w *Worker) {
		w.seed = seed
	}
}

func NewWorker(id int, eval evaluator.Evaluator, options ...WorkerOption) *Worker {
	w := &Worker{ // Default values
		id:          id,
		threshold:   searcher.DefaultTemperatureThreshold,
		drawPenalty: DefaultDrawPenalty,
		seed:        uint64(time.Now().UnixNano()) + uint64(id),
	}
	for _, option := range options {
		option(w)
	}
	w.rng = rand.New(rand.NewSource(w.seed))
	// Searcher options come last so an explicit seed wins
	w.mcts = searcher.NewMCTS(eval, append([]searcher.Option{searcher.WithSeed(w.seed + 1)}, w.mctsOptions...)...)
	return w
}

// Play runs one game to the end. Actions are sampled from the visit shares
// before the temperature threshold and chosen greedily after it.
func (w *Worker) Play(ctx context.Context) (Episode, error) {
	start := time.Now()
	w.mcts.Reset()
	state := game.NewState(w.gameOptions...)

	var samples []Sample
	for !state.Over() {
		result, err := w.mcts.Search(ctx, state)
		if err != nil {
			return Episode{}, fmt.Errorf("worker %d: %w", w.id, err)
		}
		if result.Empty() {
			// Only reachable from a custom starting position
			log.Warn().Msgf("worker %d: no legal action at ply %d, abandoning game", w.id, state.Ply)
			break
		}

		samples = append(samples, Sample{
			Player:  state.Turn,
			Ply:     state.Ply,
			Planes:  *state.Planes(),
			Actions: result.Actions,
			Policy:  result.Policy,
		})

		action := searcher.SelectAction(result, state.Ply, w.threshold, w.rng)
		if err := state.Apply(action); err != nil {
			panic(fmt.Sprintf("searcher chose %s: %v", action, err))
		}
	}

	episode := Episode{
		Samples:  samples,
		Winner:   state.Winner,
		Reason:   state.Reason,
		Plies:    state.Ply,
		Duration: time.Since(start),
	}
	AssignRewards(episode.Samples, episode.Winner, w.drawPenalty)

	if episode.Winner == game.NoPlayer {
		log.Info().Msgf("worker %d: selfplay result DRAW (%s) after %d plies in %s", w.id, episode.Reason, episode.Plies, episode.Duration)
	} else {
		log.Info().Msgf("worker %d: selfplay result WIN %s (%s) after %d plies in %s", w.id, episode.Winner, episode.Reason, episode.Plies, episode.Duration)
	}
	return episode, nil
}
