package experiments

import (
	"context"
	"fmt"

	"contrast/engine"
	"contrast/evaluator"
	"contrast/experiments/metrics"
	"contrast/game"
	"contrast/searcher"
	"contrast/searcher/agent"

	"github.com/rs/zerolog/log"
)

const NumGames = 30 // Per match up

// Baseline is the random agent every strength experiment plays against.
var Baseline = metrics.AgentConfig{ID: 0, Seed: 1}

var simulationConfigs = []metrics.AgentConfig{
	{ID: 1, Simulations: 10, CPuct: searcher.DefaultCPuct, Seed: 1},
	{ID: 2, Simulations: 25, CPuct: searcher.DefaultCPuct, Seed: 1},
	{ID: 3, Simulations: 50, CPuct: searcher.DefaultCPuct, Seed: 1},
	{ID: 4, Simulations: 100, CPuct: searcher.DefaultCPuct, Seed: 1},
	{ID: 5, Simulations: 200, CPuct: searcher.DefaultCPuct, Seed: 1},
}

var explorationConfigs = []metrics.AgentConfig{
	{ID: 1, Simulations: searcher.DefaultSimulations, CPuct: 0.5, Seed: 1},
	{ID: 2, Simulations: searcher.DefaultSimulations, CPuct: 1.0, Seed: 1},
	{ID: 3, Simulations: searcher.DefaultSimulations, CPuct: 1.5, Seed: 1},
	{ID: 4, Simulations: searcher.DefaultSimulations, CPuct: 2.5, Seed: 1},
}

// Experiment plays every match up Games times. Sides alternate between games
// so both agents start equally often.
type Experiment struct {
	Name      string
	Dir       string // CSV output root, nothing is written when empty
	Configs   []metrics.AgentConfig
	MatchUps  [][2]metrics.AgentConfig
	Games     int
	Evaluator evaluator.Evaluator
	MaxPlies  int
}

// SimulationsToStrength pairs search agents of growing budgets against the
// random baseline.
func SimulationsToStrength(dir string, eval evaluator.Evaluator, maxPlies int) Experiment {
	matchUps := [][2]metrics.AgentConfig{}
	for _, config := range simulationConfigs {
		matchUps = append(matchUps, [2]metrics.AgentConfig{Baseline, config})
	}
	return Experiment{
		Name:      "simulations_to_strength",
		Dir:       dir,
		Configs:   append([]metrics.AgentConfig{Baseline}, simulationConfigs...),
		MatchUps:  matchUps,
		Games:     NumGames,
		Evaluator: eval,
		MaxPlies:  maxPlies,
	}
}

// Exploration pairs every exploration constant against the default one.
func Exploration(dir string, eval evaluator.Evaluator, maxPlies int) Experiment {
	reference := explorationConfigs[1]
	matchUps := [][2]metrics.AgentConfig{}
	for _, config := range explorationConfigs {
		if config.ID != reference.ID {
			matchUps = append(matchUps, [2]metrics.AgentConfig{reference, config})
		}
	}
	return Experiment{
		Name:      "exploration",
		Dir:       dir,
		Configs:   explorationConfigs,
		MatchUps:  matchUps,
		Games:     NumGames,
		Evaluator: eval,
		MaxPlies:  maxPlies,
	}
}

// Run plays the experiment and stores its records.
func (x Experiment) Run(ctx context.Context) ([]metrics.GameRecord, []metrics.MoveRecord, error) {
	// Run a number of games for each matchup
	count := 0
	gameRecords := []metrics.GameRecord{}
	moveRecords := []metrics.MoveRecord{}

	log.Info().Msgf("starting %s experiment...", x.Name)

	for mi, matchup := range x.MatchUps {
		log.Info().Msgf("starting matchup %d of %d between agent1=%+v and agent2=%+v...", mi+1, len(x.MatchUps), matchup[0], matchup[1])

		for i := 0; i < x.Games; i++ {
			config1, config2 := matchup[0], matchup[1]
			if i%2 == 1 {
				config1, config2 = config2, config1
			}

			gameMetric, moveMetrics, err := x.runGame(ctx, config1, config2, uint64(i))
			if err != nil {
				return gameRecords, moveRecords, fmt.Errorf("matchup %d game %d: %w", mi+1, i+1, err)
			}
			count++
			gameRecords = append(gameRecords, metrics.GameRecord{
				ID:         count,
				Agent1:     config1.ID,
				Agent2:     config2.ID,
				GameMetric: gameMetric,
			})
			for _, mm := range moveMetrics {
				moveRecords = append(moveRecords, metrics.MoveRecord{
					Game:       count,
					MoveMetric: mm,
				})
			}

			log.Info().Msgf("completed matchup %d of %d game %d with winner: %d (%s)", mi+1, len(x.MatchUps), i+1, gameMetric.Winner, gameMetric.Reason)
		}
		log.Info().Msgf("completed matchup %d of %d", mi+1, len(x.MatchUps))
	}

	log.Info().Msgf("completed %s experiment", x.Name)

	if x.Dir == "" {
		return gameRecords, moveRecords, nil
	}
	return gameRecords, moveRecords, x.store(gameRecords, moveRecords)
}

func (x Experiment) store(gameRecords []metrics.GameRecord, moveRecords []metrics.MoveRecord) error {
	writer, err := metrics.NewWriter(x.Dir, x.Name)
	if err != nil {
		return fmt.Errorf("failed to create experiment writer: %w", err)
	}
	if err := writer.WriteAgentConfigs(x.Configs); err != nil {
		return fmt.Errorf("failed to store agent configs: %w", err)
	}
	log.Info().Msg("stored agent configs")

	if err := writer.WriteGameRecords(gameRecords); err != nil {
		return fmt.Errorf("failed to write game records: %w", err)
	}
	log.Info().Msg("stored game records")

	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return fmt.Errorf("failed to write move records: %w", err)
	}
	log.Info().Msgf("stored move records in %s", writer.Dir())
	return nil
}

// runGame plays a single game, config1 moving first.
func (x Experiment) runGame(ctx context.Context, config1, config2 metrics.AgentConfig, offset uint64) (metrics.GameMetric, []metrics.MoveMetric, error) {
	agents := [2]agent.Agent{
		x.createAgent(config1, offset),
		x.createAgent(config2, offset),
	}
	e := engine.NewLocalEngine(agents, game.WithMaxPlies(x.MaxPlies))
	return e.Run(ctx)
}

func (x Experiment) createAgent(config metrics.AgentConfig, offset uint64) agent.Agent {
	seed := config.Seed + offset
	if config.IsRandom() {
		return agent.NewRandomAgent(seed)
	}
	return agent.NewEvaluationAgent(createMCTS(config, x.Evaluator, seed))
}

func createMCTS(config metrics.AgentConfig, eval evaluator.Evaluator, seed uint64) *searcher.MCTS {
	options := []searcher.Option{
		searcher.WithSimulations(config.Simulations),
		searcher.WithSeed(seed),
	}
	if config.CPuct > 0 {
		options = append(options, searcher.WithCPuct(config.CPuct))
	}

	options = append(options, searcher.WithMetrics())
	return searcher.NewMCTS(eval, options...)
}
