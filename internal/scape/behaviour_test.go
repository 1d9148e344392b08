package scape

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"cgpforage/internal/novelty"
)

func TestDescribeCountsSpikesAndMean(t *testing.T) {
	d := Describe([]float64{0, 1, 1, 0.5, 0.5}, 0.5)
	assert.Equal(t, 2.0, d[0])
	assert.Equal(t, 3.0, d[1])
	assert.InDelta(t, 0.6, d[2], 1e-12)
}

func TestDescribeShortSeries(t *testing.T) {
	assert.Equal(t, novelty.Descriptor{}, Describe(nil, 0.1))
	assert.Equal(t, novelty.Descriptor{0, 0, 1.5}, Describe([]float64{1.5}, 0.1))
}

func TestLayoutRandomIsSeededAndBounded(t *testing.T) {
	l := Layout{Pattern: PatternRandom, Food: 25, Poison: 4, Spread: 10}
	a := l.place(rand.New(rand.NewSource(3820)))
	b := l.place(rand.New(rand.NewSource(3820)))
	assert.Equal(t, a, b)
	assert.Len(t, a, 29)
	for i, item := range a {
		assert.LessOrEqual(t, math.Abs(item.X), 10.0)
		assert.LessOrEqual(t, math.Abs(item.Y), 10.0)
		if i < 25 {
			assert.Equal(t, Food, item.Kind)
		} else {
			assert.Equal(t, Poison, item.Kind)
		}
	}
}

func TestLayoutCirclePlacesEvenRing(t *testing.T) {
	l := Layout{Pattern: PatternCircle, Food: 4, Spread: 10}
	items := l.place(nil)
	assert.Len(t, items, 4)
	assert.InDelta(t, 10, items[0].X, 1e-9)
	assert.InDelta(t, 10, items[1].Y, 1e-9)
	assert.InDelta(t, -10, items[2].X, 1e-9)
	for _, item := range items {
		assert.InDelta(t, 10, math.Hypot(item.X, item.Y), 1e-9)
	}
}

func TestBrownNoiseWalksAndResets(t *testing.T) {
	n := NewBrownNoise(5, 7)
	prev := 0.0
	for i := 0; i < 100; i++ {
		v := n.Step(0.1)
		assert.LessOrEqual(t, math.Abs(v-prev), 5.0)
		prev = v
	}
	n.Reset()
	assert.LessOrEqual(t, math.Abs(n.Step(0.1)), 5.0)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "food", Food.String())
	assert.Equal(t, "poison", Poison.String())
	assert.Equal(t, "water", Water.String())
}
