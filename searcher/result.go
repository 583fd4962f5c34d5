package searcher

import (
	"contrast/experiments/metrics"
	"contrast/game"

	"golang.org/x/exp/rand"
)

// Result is the root statistics of one search, indexed in parallel with
// Actions in canonical order.
type Result struct {
	Actions []game.Action
	Visits  []int
	Policy  []float64 // visit share per action
	Values  []float64 // mean value per action from the mover's perspective
	Metric  metrics.SearchMetric
}

func newResult(root *node) Result {
	r := Result{
		Actions: append([]game.Action(nil), root.actions...),
		Visits:  append([]int(nil), root.visits...),
		Policy:  make([]float64, len(root.actions)),
		Values:  make([]float64, len(root.actions)),
	}
	for i := range root.actions {
		r.Values[i] = root.mean(i)
		if root.total > 0 {
			r.Policy[i] = float64(root.visits[i]) / float64(root.total)
		} else {
			r.Policy[i] = 1 / float64(len(root.actions))
		}
	}
	return r
}

func (r Result) Empty() bool {
	return len(r.Actions) == 0
}

// Best returns the most visited action, the first one on ties. It returns
// NoAction for an empty result.
func (r Result) Best() game.Action {
	best := -1
	for i, p := range r.Policy {
		if best < 0 || p > r.Policy[best] {
			best = i
		}
	}
	if best < 0 {
		return game.NoAction
	}
	return r.Actions[best]
}

// Value returns the mean value of action a.
func (r Result) Value(a game.Action) (float64, bool) {
	for i, action := range r.Actions {
		if action == a {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Sample draws an action with probability proportional to its visit share.
func (r Result) Sample(rng *rand.Rand) game.Action {
	if r.Empty() {
		return game.NoAction
	}
	sampled := rng.Float64()
	cumulative := 0.0
	for i, p := range r.Policy {
		cumulative += p
		if sampled < cumulative {
			return r.Actions[i]
		}
	}
	return r.Actions[len(r.Actions)-1] // Fallback in case of rounding errors
}

// SelectAction samples by visit share before the temperature threshold and
// plays the best action from then on.
func SelectAction(r Result, ply, threshold int, rng *rand.Rand) game.Action {
	if ply < threshold {
		return r.Sample(rng)
	}
	return r.Best()
}
