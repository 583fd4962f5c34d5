package experiments

import (
	"context"
	"fmt"
	"time"

	"contrast/evaluator"
	"contrast/experiments/metrics"
	"contrast/game"
	"contrast/searcher"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ThroughputConfig is one point of the throughput sweep: concurrent
// searchers sharing a dispatcher of the given batch size.
type ThroughputConfig struct {
	ID        int
	Searchers int
	MaxBatch  int
}

var ThroughputConfigs = []ThroughputConfig{
	{ID: 1, Searchers: 1, MaxBatch: 1},
	{ID: 2, Searchers: 4, MaxBatch: 4},
	{ID: 3, Searchers: 8, MaxBatch: 8},
	{ID: 4, Searchers: 16, MaxBatch: 16},
	{ID: 5, Searchers: 32, MaxBatch: 32},
}

// LargestBatch is the batch size a predictor needs to serve every config.
func LargestBatch(configs []ThroughputConfig) int {
	largest := 1
	for _, c := range configs {
		largest = max(largest, c.MaxBatch)
	}
	return largest
}

// RunThroughputExperiment measures simulations per second for every config.
// Each searcher plays Moves greedy moves from the opening with its own tree.
// The predictor must accept batches of LargestBatch(configs) positions.
func RunThroughputExperiment(ctx context.Context, predictor evaluator.Predictor, configs []ThroughputConfig, simulations, moves int, dir string) ([]metrics.ThroughputRecord, error) {
	records := []metrics.ThroughputRecord{}

	log.Info().Msg("starting throughput experiment...")

	for _, config := range configs {
		record, err := runThroughput(ctx, predictor, config, simulations, moves)
		if err != nil {
			return records, fmt.Errorf("config %d: %w", config.ID, err)
		}
		records = append(records, record)
		log.Info().Msgf("config %+v: %.0f simulations/s, average batch %.1f", config, record.SimulationsPerSecond(), record.AverageBatch)
	}

	log.Info().Msg("completed throughput experiment")

	if dir == "" {
		return records, nil
	}
	writer, err := metrics.NewWriter(dir, "throughput")
	if err != nil {
		return records, fmt.Errorf("failed to create experiment writer: %w", err)
	}
	if err := writer.WriteThroughputRecords(records); err != nil {
		return records, fmt.Errorf("failed to write throughput records: %w", err)
	}
	log.Info().Msgf("stored throughput records in %s", writer.Dir())
	return records, nil
}

func runThroughput(ctx context.Context, predictor evaluator.Predictor, config ThroughputConfig, simulations, moves int) (metrics.ThroughputRecord, error) {
	d := evaluator.NewDispatcher(predictor, evaluator.WithMaxBatch(config.MaxBatch))
	d.Start(ctx)
	defer d.Stop()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < config.Searchers; i++ {
		seed := uint64(i + 1)
		g.Go(func() error {
			mcts := searcher.NewMCTS(d, searcher.WithSimulations(simulations), searcher.WithSeed(seed))
			state := game.NewState()
			for m := 0; m < moves && !state.Over(); m++ {
				result, err := mcts.Search(gctx, state)
				if err != nil {
					return err
				}
				if result.Empty() {
					break
				}
				if err := state.Apply(result.Best()); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return metrics.ThroughputRecord{}, err
	}
	duration := time.Since(start)

	stats := d.Stats()
	return metrics.ThroughputRecord{
		Config:       config.ID,
		Searchers:    config.Searchers,
		MaxBatch:     config.MaxBatch,
		Evaluations:  int(stats.Items),
		Batches:      int(stats.Batches),
		AverageBatch: stats.AverageBatch(),
		Duration:     duration,
	}, nil
}
