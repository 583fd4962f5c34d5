package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"contrast/config"
	"contrast/engine"
	"contrast/evaluator"
	"contrast/experiments"
	"contrast/game"
	"contrast/logx"
	"contrast/searcher"
	"contrast/searcher/agent"
	"contrast/selfplay"

	"github.com/rs/zerolog/log"
)

const usage = `usage: contrast <command> [flags]

commands:
  selfplay   generate self-play games and write their samples
  match      run a match-up experiment or play against a remote agent
  serve      serve a search agent on POST /findmove`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "selfplay":
		err = runSelfPlay(ctx, args)
	case "match":
		err = runMatch(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// commonFlags are accepted by every command and override the config file
// when set.
type commonFlags struct {
	fs          *flag.FlagSet
	configPath  *string
	simulations *int
	maxPlies    *int
	model       *string
	logLevel    *string
}

func newFlagSet(name string) commonFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return commonFlags{
		fs:          fs,
		configPath:  fs.String("config", "", "YAML config file"),
		simulations: fs.Int("simulations", 0, "MCTS simulations per move"),
		maxPlies:    fs.Int("max-plies", -1, "ply cap after which the game is drawn, 0 disables it"),
		model:       fs.String("model", "", "ONNX model, uniform priors when empty"),
		logLevel:    fs.String("log-level", "", "log level"),
	}
}

// load parses args and returns the effective configuration.
func (c commonFlags) load(args []string, override func(cfg *config.Config, name string)) (config.Config, error) {
	if err := c.fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	cfg := config.Default()
	if *c.configPath != "" {
		var err error
		if cfg, err = config.Load(*c.configPath); err != nil {
			return cfg, err
		}
	}
	c.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "simulations":
			cfg.MCTS.Simulations = *c.simulations
		case "max-plies":
			cfg.Game.MaxPlies = *c.maxPlies
		case "model":
			cfg.Model.Path = *c.model
		case "log-level":
			cfg.Log.Level = *c.logLevel
		default:
			if override != nil {
				override(&cfg, f.Name)
			}
		}
	})
	logx.Setup(cfg.Log.Level, cfg.Log.Pretty)
	return cfg, cfg.Validate()
}

// newPredictor loads the configured model or falls back to uniform priors.
// The returned function releases the model.
func newPredictor(cfg config.Config) (evaluator.Predictor, func(), error) {
	if cfg.Model.Path == "" {
		log.Warn().Msg("no model configured, searching with uniform priors")
		return evaluator.NewUniformPredictor(), func() {}, nil
	}
	p, err := evaluator.NewONNXPredictor(cfg.Model.Path, cfg.Model.Library, cfg.Dispatcher.MaxBatch)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

// startDispatcher batches evaluations of every searcher of the process.
func startDispatcher(ctx context.Context, cfg config.Config) (*evaluator.Dispatcher, func(), error) {
	predictor, release, err := newPredictor(cfg)
	if err != nil {
		return nil, nil, err
	}
	d := evaluator.NewDispatcher(predictor, cfg.Dispatcher.DispatcherOptions()...)
	d.Start(ctx)
	return d, func() {
		d.Stop()
		stats := d.Stats()
		log.Info().Msgf("dispatcher served %d positions in %d batches (average %.1f), %d failed batches",
			stats.Items, stats.Batches, stats.AverageBatch(), stats.Failures)
		release()
	}, nil
}

func runSelfPlay(ctx context.Context, args []string) error {
	flags := newFlagSet("selfplay")
	workers := flags.fs.Int("workers", 0, "concurrent self-play workers")
	games := flags.fs.Int("games", 0, "games to play")
	output := flags.fs.String("output", "", "zstd sample file")
	cfg, err := flags.load(args, func(cfg *config.Config, name string) {
		switch name {
		case "workers":
			cfg.SelfPlay.Workers = *workers
		case "games":
			cfg.SelfPlay.Games = *games
		case "output":
			cfg.SelfPlay.Output = *output
		}
	})
	if err != nil {
		return err
	}

	d, stopDispatcher, err := startDispatcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopDispatcher()

	buffer := selfplay.NewBuffer(cfg.SelfPlay.BufferSize)
	options := []selfplay.PoolOption{
		selfplay.WithWorkers(cfg.SelfPlay.Workers),
		selfplay.WithGames(cfg.SelfPlay.Games),
		selfplay.WithBuffer(buffer),
		selfplay.WithWorkerOptions(
			selfplay.WithSearchOptions(cfg.MCTS.SearchOptions()...),
			selfplay.WithTemperatureThreshold(cfg.MCTS.TemperatureThreshold),
			selfplay.WithDrawPenalty(cfg.SelfPlay.DrawPenalty),
			selfplay.WithGameOptions(game.WithMaxPlies(cfg.Game.MaxPlies)),
		),
	}
	if cfg.SelfPlay.Output != "" {
		writer, err := selfplay.CreateWriter(cfg.SelfPlay.Output)
		if err != nil {
			return err
		}
		defer func() {
			if err := writer.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close sample file")
			}
			log.Info().Msgf("wrote %d samples to %s", writer.Count(), cfg.SelfPlay.Output)
		}()
		options = append(options, selfplay.WithWriter(writer))
	}

	_, err = selfplay.NewPool(d, options...).Run(ctx)
	log.Info().Msgf("replay buffer holds %d samples", buffer.Len())
	return err
}

func runMatch(ctx context.Context, args []string) error {
	flags := newFlagSet("match")
	experiment := flags.fs.String("experiment", "strength", "strength, exploration or throughput")
	remote := flags.fs.String("remote", "", "agent server URL to play against instead of an experiment")
	games := flags.fs.Int("games", experiments.NumGames, "games per match up")
	dir := flags.fs.String("dir", "experiments", "CSV output directory")
	cfg, err := flags.load(args, nil)
	if err != nil {
		return err
	}

	if *experiment == "throughput" && *remote == "" {
		cfg.Dispatcher.MaxBatch = max(cfg.Dispatcher.MaxBatch, experiments.LargestBatch(experiments.ThroughputConfigs))
		predictor, release, err := newPredictor(cfg)
		if err != nil {
			return err
		}
		defer release()
		_, err = experiments.RunThroughputExperiment(ctx, predictor, experiments.ThroughputConfigs, cfg.MCTS.Simulations, 10, *dir)
		return err
	}

	d, stopDispatcher, err := startDispatcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopDispatcher()

	if *remote != "" {
		return playRemote(ctx, cfg, d, *remote, *games)
	}

	var x experiments.Experiment
	switch *experiment {
	case "strength":
		x = experiments.SimulationsToStrength(*dir, d, cfg.Game.MaxPlies)
	case "exploration":
		x = experiments.Exploration(*dir, d, cfg.Game.MaxPlies)
	default:
		return fmt.Errorf("unknown experiment %q", *experiment)
	}
	x.Games = *games
	_, _, err = x.Run(ctx)
	return err
}

// playRemote alternates sides between a local search agent and the agent
// served at url.
func playRemote(ctx context.Context, cfg config.Config, eval evaluator.Evaluator, url string, games int) error {
	remote := agent.NewRemoteAgent(url, nil)
	wins, losses, draws := 0, 0, 0
	for i := 0; i < games; i++ {
		local := agent.NewEvaluationAgent(searcher.NewMCTS(eval, append(cfg.MCTS.SearchOptions(), searcher.WithMetrics())...))
		agents := [2]agent.Agent{local, remote}
		localPlayer := 1
		if i%2 == 1 {
			agents = [2]agent.Agent{remote, local}
			localPlayer = 2
		}

		gameMetric, _, err := engine.NewLocalEngine(agents, game.WithMaxPlies(cfg.Game.MaxPlies)).Run(ctx)
		if err != nil {
			return fmt.Errorf("game %d: %w", i+1, err)
		}
		switch gameMetric.Winner {
		case 0:
			draws++
		case localPlayer:
			wins++
		default:
			losses++
		}
		log.Info().Msgf("game %d of %d: winner %d (%s) after %d moves", i+1, games, gameMetric.Winner, gameMetric.Reason, gameMetric.TotalMoves)
	}
	log.Info().Msgf("against %s: %d wins, %d losses, %d draws", url, wins, losses, draws)
	return nil
}

func runServe(ctx context.Context, args []string) error {
	flags := newFlagSet("serve")
	addr := flags.fs.String("addr", "", "listen address")
	cfg, err := flags.load(args, func(cfg *config.Config, name string) {
		if name == "addr" {
			cfg.Server.Addr = *addr
		}
	})
	if err != nil {
		return err
	}

	d, stopDispatcher, err := startDispatcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopDispatcher()

	// Serving plays greedily without root noise
	options := append(cfg.MCTS.SearchOptions(), searcher.WithDirichlet(cfg.MCTS.DirichletAlpha, 0), searcher.WithMetrics())
	a := agent.NewEvaluationAgent(searcher.NewMCTS(d, options...))
	return agent.StartAgentServer(ctx, cfg.Server.Addr, a, cfg.Game.MaxPlies)
}
