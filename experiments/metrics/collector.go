package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Simulations  int
	Duration     time.Duration
	Expansions   int
	Terminals    int // simulations that ended on a finished game
	MaxDepth     int
	TreeSize     int
	IsTreeReused bool
}

type MoveMetric struct {
	Step   int
	Player int // 1 or 2
	SearchMetric
}

type GameMetric struct {
	StartingPlayer int
	Winner         int // 0 for draws
	Reason         string
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

type Collector interface {
	Start()
	SetTreeReused(value bool)
	AddSimulation(depth int)
	AddExpansion()
	AddTerminal()
	Complete(treeSize int) SearchMetric
}

type collector struct {
	startTime    time.Time
	simulations  atomic.Int32
	expansions   atomic.Int32
	terminals    atomic.Int32
	maxDepth     atomic.Int32
	isTreeReused atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) SetTreeReused(value bool) {
	m.isTreeReused.Store(value)
}

func (m *collector) Start() {
	m.startTime = time.Now()
	m.simulations.Store(0)
	m.expansions.Store(0)
	m.terminals.Store(0)
	m.maxDepth.Store(0)
}

func (m *collector) AddSimulation(depth int) {
	m.simulations.Add(1)
	for {
		current := m.maxDepth.Load()
		if int32(depth) <= current || m.maxDepth.CompareAndSwap(current, int32(depth)) {
			return
		}
	}
}

func (m *collector) AddExpansion() {
	m.expansions.Add(1)
}

func (m *collector) AddTerminal() {
	m.terminals.Add(1)
}

func (m *collector) Complete(treeSize int) SearchMetric {
	return SearchMetric{
		Simulations:  int(m.simulations.Load()),
		Duration:     time.Since(m.startTime),
		Expansions:   int(m.expansions.Load()),
		Terminals:    int(m.terminals.Load()),
		MaxDepth:     int(m.maxDepth.Load()),
		TreeSize:     treeSize,
		IsTreeReused: m.isTreeReused.Load(),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start()                            {}
func (m *dummyCollector) SetTreeReused(value bool)          {}
func (m *dummyCollector) AddSimulation(depth int)           {}
func (m *dummyCollector) AddExpansion()                     {}
func (m *dummyCollector) AddTerminal()                      {}
func (m *dummyCollector) Complete(treeSize int) SearchMetric { return SearchMetric{} }
