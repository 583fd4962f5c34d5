package selfplay

import (
	"sync"

	"contrast/game"

	"golang.org/x/exp/rand"
)

// Buffer keeps the most recent samples up to its capacity. It is safe for
// concurrent use.
type Buffer struct {
	mu      sync.Mutex
	samples []Sample
	next    int // slot of the next write once full
}

// Batch holds dense training targets, one row per sampled position.
type Batch struct {
	Planes []game.Planes
	Moves  [][game.NumMoves]float32
	Tiles  [][game.NumTileActions]float32
	Values []float32
}

func (b Batch) Len() int {
	return len(b.Values)
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		panic("buffer capacity must be positive")
	}
	return &Buffer{samples: make([]Sample, 0, capacity)}
}

// Add appends samples, evicting the oldest ones once the buffer is full.
func (b *Buffer) Add(samples ...Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range samples {
		if len(b.samples) < cap(b.samples) {
			b.samples = append(b.samples, s)
			continue
		}
		b.samples[b.next] = s
		b.next = (b.next + 1) % len(b.samples)
	}
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Minibatch draws min(size, Len()) distinct samples uniformly at random.
func (b *Buffer) Minibatch(size int, rng *rand.Rand) Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := max(0, min(size, len(b.samples)))
	// Partial Fisher-Yates over the sample indices
	idx := make([]int, len(b.samples))
	for i := range idx {
		idx[i] = i
	}
	batch := Batch{
		Planes: make([]game.Planes, n),
		Moves:  make([][game.NumMoves]float32, n),
		Tiles:  make([][game.NumTileActions]float32, n),
		Values: make([]float32, n),
	}
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		s := &b.samples[idx[i]]
		batch.Planes[i] = s.Planes
		batch.Moves[i], batch.Tiles[i] = s.Targets()
		batch.Values[i] = s.Reward
	}
	return batch
}
