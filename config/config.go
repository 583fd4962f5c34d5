// Package config loads the YAML configuration shared by the commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"contrast/evaluator"
	"contrast/game"
	"contrast/searcher"
	"contrast/selfplay"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Game       GameConfig       `yaml:"game"`
	MCTS       MCTSConfig       `yaml:"mcts"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	SelfPlay   SelfPlayConfig   `yaml:"selfplay"`
	Server     ServerConfig     `yaml:"server"`
	Model      ModelConfig      `yaml:"model"`
	Log        LogConfig        `yaml:"log"`
}

type GameConfig struct {
	MaxPlies int `yaml:"max_plies"` // 0 disables the ply cap
}

type MCTSConfig struct {
	Simulations          int     `yaml:"simulations"`
	CPuct                float64 `yaml:"c_puct"`
	DirichletAlpha       float64 `yaml:"dirichlet_alpha"`
	DirichletEpsilon     float64 `yaml:"dirichlet_epsilon"`
	TemperatureThreshold int     `yaml:"temperature_threshold"`
	MaxNodes             int     `yaml:"max_nodes"` // tree is dropped once this large, 0 keeps it
}

type DispatcherConfig struct {
	MaxBatch int           `yaml:"max_batch"`
	Timeout  time.Duration `yaml:"timeout"`
	Backoff  time.Duration `yaml:"backoff"`
}

type SelfPlayConfig struct {
	Workers     int     `yaml:"workers"`
	Games       int     `yaml:"games"`
	DrawPenalty float32 `yaml:"draw_penalty"`
	BufferSize  int     `yaml:"buffer_size"`
	Output      string  `yaml:"output"` // zstd sample file, empty to skip
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ModelConfig points at an ONNX evaluator. Without a path the uniform
// predictor is used.
type ModelConfig struct {
	Path    string `yaml:"path"`
	Library string `yaml:"library"` // onnxruntime shared library
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() Config {
	return Config{
		Game: GameConfig{MaxPlies: game.DefaultMaxPlies},
		MCTS: MCTSConfig{
			Simulations:          searcher.DefaultSimulations,
			CPuct:                searcher.DefaultCPuct,
			DirichletAlpha:       searcher.DefaultDirichletAlpha,
			DirichletEpsilon:     searcher.DefaultDirichletEpsilon,
			TemperatureThreshold: searcher.DefaultTemperatureThreshold,
			MaxNodes:             50000,
		},
		Dispatcher: DispatcherConfig{
			MaxBatch: evaluator.DefaultMaxBatch,
			Timeout:  evaluator.DefaultTimeout,
			Backoff:  evaluator.DefaultBackoff,
		},
		SelfPlay: SelfPlayConfig{
			Workers:     2,
			Games:       10,
			DrawPenalty: selfplay.DefaultDrawPenalty,
			BufferSize:  10000,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Pretty: true},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Game.MaxPlies >= 0, "game.max_plies must not be negative, got %d", c.Game.MaxPlies)
	check(c.MCTS.Simulations > 0, "mcts.simulations must be positive, got %d", c.MCTS.Simulations)
	check(c.MCTS.CPuct > 0, "mcts.c_puct must be positive, got %v", c.MCTS.CPuct)
	check(c.MCTS.DirichletAlpha > 0, "mcts.dirichlet_alpha must be positive, got %v", c.MCTS.DirichletAlpha)
	check(c.MCTS.DirichletEpsilon >= 0 && c.MCTS.DirichletEpsilon <= 1, "mcts.dirichlet_epsilon must be in [0, 1], got %v", c.MCTS.DirichletEpsilon)
	check(c.MCTS.TemperatureThreshold >= 0, "mcts.temperature_threshold must not be negative, got %d", c.MCTS.TemperatureThreshold)
	check(c.MCTS.MaxNodes >= 0, "mcts.max_nodes must not be negative, got %d", c.MCTS.MaxNodes)
	check(c.Dispatcher.MaxBatch > 0, "dispatcher.max_batch must be positive, got %d", c.Dispatcher.MaxBatch)
	check(c.Dispatcher.Timeout > 0, "dispatcher.timeout must be positive, got %s", c.Dispatcher.Timeout)
	check(c.Dispatcher.Backoff >= 0, "dispatcher.backoff must not be negative, got %s", c.Dispatcher.Backoff)
	check(c.SelfPlay.Workers > 0, "selfplay.workers must be positive, got %d", c.SelfPlay.Workers)
	check(c.SelfPlay.Games > 0, "selfplay.games must be positive, got %d", c.SelfPlay.Games)
	check(c.SelfPlay.BufferSize > 0, "selfplay.buffer_size must be positive, got %d", c.SelfPlay.BufferSize)
	check(c.Server.Addr != "", "server.addr must be set")
	return errors.Join(errs...)
}

// SearchOptions converts the MCTS section into searcher options.
func (c MCTSConfig) SearchOptions() []searcher.Option {
	return []searcher.Option{
		searcher.WithSimulations(c.Simulations),
		searcher.WithCPuct(c.CPuct),
		searcher.WithDirichlet(c.DirichletAlpha, c.DirichletEpsilon),
		searcher.WithMaxNodes(c.MaxNodes),
	}
}

func (c DispatcherConfig) DispatcherOptions() []evaluator.DispatcherOption {
	return []evaluator.DispatcherOption{
		evaluator.WithMaxBatch(c.MaxBatch),
		evaluator.WithTimeout(c.Timeout),
		evaluator.WithBackoff(c.Backoff),
	}
}
