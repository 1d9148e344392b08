package cgp

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutatePreservesArityAndFeedForward(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	g, err := NewGenome(rng, testParams())
	require.NoError(t, err)

	for _, rate := range []float64{0, 0.05, 0.5, 1} {
		child := g
		for i := 0; i < 20; i++ {
			child = child.Mutate(rng, rate)
			require.NoError(t, child.Validate(), "rate %f round %d", rate, i)
			for pos, node := range child.Nodes {
				arity := DefaultFunctions[node.Function].Arity
				assert.Len(t, node.Inputs, arity, "node %d", pos)
				assert.Len(t, node.Weights, arity, "node %d", pos)
			}
		}
	}
}

func TestMutateLeavesParentUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	parent, err := NewGenome(rng, testParams())
	require.NoError(t, err)
	parent.Eval(0.1, 0.2, 0.3)
	parent.Novelty = 4.5
	parent.Fitness = 12
	parent.Regime = RegimeNovelty
	parent.RecordScore("training", 12)

	before := parent.Clone()
	_ = parent.Mutate(rng, 1)

	if diff := cmp.Diff(before.Nodes, parent.Nodes); diff != "" {
		t.Fatalf("parent nodes changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(before.Scores, parent.Scores); diff != "" {
		t.Fatalf("parent scores changed (-before +after):\n%s", diff)
	}
	assert.Equal(t, 4.5, parent.Novelty)
	assert.Equal(t, 12.0, parent.Fitness)
	assert.True(t, parent.activeDetermined)
}

func TestMutateResetsChildState(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	parent, err := NewGenome(rng, testParams())
	require.NoError(t, err)
	parent.DetermineActive()
	parent.Novelty = 3
	parent.Fitness = 7

	child := parent.Mutate(rng, 0.05)
	assert.Zero(t, child.Novelty)
	assert.Zero(t, child.Fitness)
	assert.False(t, child.activeDetermined)
	for pos, node := range child.Nodes {
		assert.Equal(t, pos >= len(child.Nodes)-2, node.Active, "node %d", pos)
	}
}

func TestMutateWithZeroRateCopiesWiring(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	parent, err := NewGenome(rng, testParams())
	require.NoError(t, err)

	child := parent.Mutate(rng, 0)
	for pos := range parent.Nodes {
		assert.Equal(t, parent.Nodes[pos].Function, child.Nodes[pos].Function)
		assert.Equal(t, parent.Nodes[pos].Inputs, child.Nodes[pos].Inputs)
		assert.Equal(t, parent.Nodes[pos].Weights, child.Nodes[pos].Weights)
	}
}

func TestMutateArityGrowthKeepsOldSlotAndDrawsMissingOne(t *testing.T) {
	g := handBuiltGenome()
	// Node 3 now carries a binary function but only one slot survives from a
	// unary predecessor.
	g.Nodes[3].Inputs = []int{1}
	g.Nodes[3].Weights = []float64{0.25}

	child := g.Mutate(rand.New(rand.NewSource(2)), 0)
	node := child.Nodes[3]
	require.Len(t, node.Inputs, 2)
	require.Len(t, node.Weights, 2)
	assert.Equal(t, 1, node.Inputs[0])
	assert.Equal(t, 0.25, node.Weights[0])
	assert.Less(t, node.Inputs[1], 3)
	assert.GreaterOrEqual(t, node.Weights[1], -2.0)
	assert.LessOrEqual(t, node.Weights[1], 2.0)
	require.NoError(t, child.Validate())
}

func TestMutateArityShrinkTruncates(t *testing.T) {
	g := handBuiltGenome()
	// Node 1 now carries neg but still holds two slots from a binary
	// predecessor.
	g.Nodes[1].Inputs = []int{0, -2}
	g.Nodes[1].Weights = []float64{0.7, -0.3}

	child := g.Mutate(rand.New(rand.NewSource(2)), 0)
	assert.Equal(t, []int{0}, child.Nodes[1].Inputs)
	assert.Equal(t, []float64{0.7}, child.Nodes[1].Weights)
	require.NoError(t, child.Validate())
}

func TestMutateRejectsRateOutsideUnitInterval(t *testing.T) {
	g := handBuiltGenome()
	rng := rand.New(rand.NewSource(1))
	assert.Panics(t, func() { g.Mutate(rng, 1.5) })
	assert.Panics(t, func() { g.Mutate(nil, 0.1) })
}
