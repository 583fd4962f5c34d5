package selfplay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"contrast/evaluator"
	"contrast/game"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type PoolOption func(p *Pool)

// Pool runs self-play workers concurrently. All workers evaluate through one
// shared evaluator, normally a Dispatcher, so their leaf requests batch.
type Pool struct {
	evaluator     evaluator.Evaluator
	workers       int
	games         int
	seed          uint64
	workerOptions []WorkerOption
	buffer        *Buffer
	writer        *Writer
}

// Summary counts the results of a pool run.
type Summary struct {
	Games    int
	P1Wins   int
	P2Wins   int
	Draws    int
	Samples  int
	Duration time.Duration
}

func WithWorkers(workers int) PoolOption {
	return func(p *Pool) {
		if workers > 0 {
			p.workers = workers
		}
	}
}

func WithGames(games int) PoolOption {
	return func(p *Pool) {
		if games > 0 {
			p.games = games
		}
	}
}

// WithPoolSeed seeds the workers with seed, seed+1, ...
func WithPoolSeed(seed uint64) PoolOption {
	return func(p *Pool) {
		p.seed = seed
	}
}

func WithWorkerOptions(options ...WorkerOption) PoolOption {
	return func(p *Pool) {
		p.workerOptions = append(p.workerOptions, options...)
	}
}

// WithBuffer collects the samples of every finished game in buffer.
func WithBuffer(buffer *Buffer) PoolOption {
	return func(p *Pool) {
		p.buffer = buffer
	}
}

// WithWriter streams the samples of every finished game to writer.
func WithWriter(writer *Writer) PoolOption {
	return func(p *Pool) {
		p.writer = writer
	}
}

func NewPool(eval evaluator.Evaluator, options ...PoolOption) *Pool {
	if eval == nil {
		panic("pool needs an evaluator")
	}
	p := &Pool{ // Default values
		evaluator: eval,
		workers:   2,
		games:     1,
		seed:      uint64(time.Now().UnixNano()),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Run plays the configured number of games and returns once all are done or
// the first worker fails.
func (p *Pool) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var (
		claimed atomic.Int64
		mu      sync.Mutex
		summary Summary
	)

	log.Info().Msgf("starting selfplay with %d workers for %d games", p.workers, p.games)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < min(p.workers, p.games); i++ {
		id := i
		g.Go(func() error {
			options := append([]WorkerOption{WithWorkerSeed(p.seed + uint64(id))}, p.workerOptions...)
			w := NewWorker(id, p.evaluator, options...)
			for claimed.Add(1) <= int64(p.games) {
				episode, err := w.Play(gctx)
				if err != nil {
					return err
				}
				if err := p.store(episode); err != nil {
					return fmt.Errorf("worker %d: %w", id, err)
				}

				mu.Lock()
				summary.add(episode)
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	summary.Duration = time.Since(start)

	log.Info().Msgf("completed %d selfplay games: P1 %d, P2 %d, draws %d, %d samples in %s",
		summary.Games, summary.P1Wins, summary.P2Wins, summary.Draws, summary.Samples, summary.Duration)
	return summary, err
}

func (p *Pool) store(episode Episode) error {
	if p.buffer != nil {
		p.buffer.Add(episode.Samples...)
	}
	if p.writer != nil {
		return p.writer.Write(episode.Samples...)
	}
	return nil
}

func (s *Summary) add(episode Episode) {
	s.Games++
	s.Samples += len(episode.Samples)
	switch episode.Winner {
	case game.P1:
		s.P1Wins++
	case game.P2:
		s.P2Wins++
	default:
		s.Draws++
	}
}
