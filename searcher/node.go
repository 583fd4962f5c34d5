package searcher

import (
	"contrast/evaluator"
	"contrast/game"
)

// node holds the statistics of one expanded position, indexed in parallel
// with its legal actions in canonical order.
type node struct {
	actions []game.Action // real board coordinates
	priors  []float64
	visits  []int
	values  []float64 // cumulative value from the mover's perspective
	total   int
}

func newNode(actions []game.Action, pred *evaluator.Prediction, mover game.Player) *node {
	n := &node{
		actions: actions,
		priors:  make([]float64, len(actions)),
		visits:  make([]int, len(actions)),
		values:  make([]float64, len(actions)),
	}
	// The network scores actions in the mover's canonical coordinates
	for i, a := range actions {
		n.priors[i] = float64(pred.ActionLogit(game.Canonical(a, mover)))
	}
	softmax(n.priors)
	return n
}

// selectChild returns the index of the action maximizing PUCT. Ties go to
// the first action in canonical order.
func (n *node) selectChild(cPuct float64) int {
	if len(n.actions) == 0 {
		panic("cannot select from a node without actions")
	}
	u := newPUCT(cPuct, n.total)
	best, bestScore := 0, u.evaluate(n.values[0], n.visits[0], n.priors[0])
	for i := 1; i < len(n.actions); i++ {
		score := u.evaluate(n.values[i], n.visits[i], n.priors[i])
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func (n *node) update(i int, value float64) {
	n.visits[i]++
	n.values[i] += value
	n.total++
}

func (n *node) mean(i int) float64 {
	if n.visits[i] == 0 {
		return 0
	}
	return n.values[i] / float64(n.visits[i])
}
