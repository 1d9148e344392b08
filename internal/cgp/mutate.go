package cgp

import (
	"fmt"
	"math/rand"
)

// Mutate returns an independently mutated child of g; g itself is never
// modified. Every site (each node's function and each of its input slots)
// mutates with probability rate. When a new function changes the arity,
// surviving slots keep their old connection by position and extra slots are
// drawn fresh.
func (g *Genome) Mutate(rng *rand.Rand, rate float64) *Genome {
	if rng == nil {
		panic("cgp: mutate requires a random source")
	}
	if rate < 0 || rate > 1 {
		panic(fmt.Sprintf("cgp: mutation rate %f outside [0, 1]", rate))
	}

	child := g.Clone()
	for pos := range child.Nodes {
		node := &child.Nodes[pos]
		if rng.Float64() < rate {
			node.Function = rng.Intn(len(child.params.Functions))
		}

		oldInputs, oldWeights := node.Inputs, node.Weights
		arity := child.params.Functions.arity(node.Function)
		node.Inputs = make([]int, arity)
		node.Weights = make([]float64, arity)
		for slot := arity - 1; slot >= 0; slot-- {
			if rng.Float64() < rate {
				node.Inputs[slot] = child.drawInput(rng, pos)
				node.Weights[slot] = child.drawWeight(rng)
				continue
			}
			if slot < len(oldInputs) {
				node.Inputs[slot] = oldInputs[slot]
				node.Weights[slot] = oldWeights[slot]
				continue
			}
			node.Inputs[slot] = child.drawInput(rng, pos)
			node.Weights[slot] = child.drawWeight(rng)
		}
	}

	child.resetActive()
	child.Novelty = 0
	child.Fitness = 0
	return child
}
