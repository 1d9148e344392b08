package scape

import "math/rand"

// BrownNoise is a bounded-step random walk added to a motor command.
type BrownNoise struct {
	MaxStep float64

	rng   *rand.Rand
	value float64
}

func NewBrownNoise(maxStep float64, seed int64) *BrownNoise {
	return &BrownNoise{MaxStep: maxStep, rng: rand.New(rand.NewSource(seed))}
}

func (n *BrownNoise) Step(float64) float64 {
	n.value += -n.MaxStep + n.rng.Float64()*2*n.MaxStep
	return n.value
}

func (n *BrownNoise) Reset() {
	n.value = 0
}
