package searcher

import "math"

// Hyperparameters for MCTS

const (
	DefaultSimulations = 50
	DefaultCPuct       = 1.0 // Exploration constant

	DefaultDirichletAlpha   = 0.3
	DefaultDirichletEpsilon = 0.25

	// Self-play samples moves before this ply and plays the best move after
	DefaultTemperatureThreshold = 30
)

const WIN = 1.0   // Reward for winning outcome
const LOSS = -WIN // Reward for loss outcome (negate from opponent perspective)
const DRAW = 0.0

type puct struct {
	exploration float64
}

// newPUCT precomputes c*sqrt(N) for a node visited N times in total.
func newPUCT(cPuct float64, N int) puct {
	if N < 0 {
		panic("N cannot be negative")
	}
	return puct{exploration: cPuct * math.Sqrt(float64(N))}
}

func (u puct) evaluate(w float64, n int, prior float64) float64 {
	// PUCT = W/n + c*P*sqrt(N)/(1+n)
	q := 0.0
	if n > 0 {
		q = w / float64(n)
	}
	return q + u.exploration*prior/float64(1+n)
}

// softmax normalizes logits into a distribution in place.
func softmax(logits []float64) {
	if len(logits) == 0 {
		return
	}
	top := math.Inf(-1)
	for _, l := range logits {
		if l > top {
			top = l
		}
	}
	sum := 0.0
	for i, l := range logits {
		logits[i] = math.Exp(l - top)
		sum += logits[i]
	}
	for i := range logits {
		logits[i] /= sum
	}
}
