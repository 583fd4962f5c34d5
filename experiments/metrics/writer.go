package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// AgentConfig describes one side of a match up. An agent without
// simulations plays uniformly random legal actions.
type AgentConfig struct {
	ID          int
	Simulations int
	CPuct       float64
	Seed        uint64
}

func (c AgentConfig) IsRandom() bool {
	return c.Simulations <= 0
}

type GameRecord struct {
	ID     int
	Agent1 int // AgentConfig.ID
	Agent2 int // AgentConfig.ID
	GameMetric
}

type MoveRecord struct {
	Game int // GameRecord.ID
	MoveMetric
}

type ThroughputRecord struct {
	Config       int
	Searchers    int
	MaxBatch     int
	Evaluations  int
	Batches      int
	AverageBatch float64
	Duration     time.Duration
}

// SimulationsPerSecond counts evaluated leaves, terminal simulations excluded.
func (r ThroughputRecord) SimulationsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Evaluations) / r.Duration.Seconds()
}

type Writer struct {
	baseDir string
}

// NewWriter creates dir/name/<timestamp> for the CSV files of one experiment.
func NewWriter(dir, name string) (*Writer, error) {
	// Create a subfolder named by current timestamp
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(dir, name, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	header := []string{"id", "simulations", "c_puct", "seed", "random"}
	return w.writeCSV("agent_configs.csv", header, len(configs), func(i int) []string {
		config := configs[i]
		return []string{
			strconv.Itoa(config.ID),
			strconv.Itoa(config.Simulations),
			strconv.FormatFloat(config.CPuct, 'f', -1, 64),
			strconv.FormatUint(config.Seed, 10),
			strconv.FormatBool(config.IsRandom()),
		}
	})
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"id", "agent1", "agent2", "starting_player", "winner", "reason", "total_moves", "start_time", "end_time", "duration"}
	return w.writeCSV("game_records.csv", header, len(records), func(i int) []string {
		record := records[i]
		return []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Agent1),
			strconv.Itoa(record.Agent2),
			strconv.Itoa(record.StartingPlayer),
			strconv.Itoa(record.Winner),
			record.Reason,
			strconv.Itoa(record.TotalMoves),
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
		}
	})
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{"game", "step", "player", "duration", "simulations", "expansions", "terminals", "max_depth", "tree_size", "is_tree_reused"}
	return w.writeCSV("move_records.csv", header, len(records), func(i int) []string {
		record := records[i]
		return []string{
			strconv.Itoa(record.Game),
			strconv.Itoa(record.Step),
			strconv.Itoa(record.Player),
			record.Duration.String(),
			strconv.Itoa(record.Simulations),
			strconv.Itoa(record.Expansions),
			strconv.Itoa(record.Terminals),
			strconv.Itoa(record.MaxDepth),
			strconv.Itoa(record.TreeSize),
			strconv.FormatBool(record.IsTreeReused),
		}
	})
}

func (w *Writer) WriteThroughputRecords(records []ThroughputRecord) error {
	header := []string{"config", "searchers", "max_batch", "evaluations", "batches", "average_batch", "duration", "evaluations_per_second"}
	return w.writeCSV("throughput_records.csv", header, len(records), func(i int) []string {
		record := records[i]
		return []string{
			strconv.Itoa(record.Config),
			strconv.Itoa(record.Searchers),
			strconv.Itoa(record.MaxBatch),
			strconv.Itoa(record.Evaluations),
			strconv.Itoa(record.Batches),
			strconv.FormatFloat(record.AverageBatch, 'f', 2, 64),
			record.Duration.String(),
			strconv.FormatFloat(record.SimulationsPerSecond(), 'f', 1, 64),
		}
	})
}

func (w *Writer) writeCSV(name string, header []string, n int, row func(i int) []string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	for i := 0; i < n; i++ {
		if err := writer.Write(row(i)); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", name, i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
