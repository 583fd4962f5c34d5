package searcher

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"
)

// addNoise mixes Dirichlet noise into the stored root priors:
// p = (1-eps)*p + eps*eta with eta ~ Dir(alpha).
func addNoise(n *node, alpha, epsilon float64, src rand.Source) {
	if len(n.priors) == 0 || epsilon <= 0 {
		return
	}
	concentration := make([]float64, len(n.priors))
	for i := range concentration {
		concentration[i] = alpha
	}
	eta := distmv.NewDirichlet(concentration, src).Rand(nil)
	for i := range n.priors {
		n.priors[i] = (1-epsilon)*n.priors[i] + epsilon*eta[i]
	}
}
