package scape

import "cgpforage/internal/novelty"

// SpikeThreshold is the step-to-step change that counts as a spike.
const SpikeThreshold = 0.2

// Describe reduces a velocity series sampled every dt to a behaviour
// descriptor: velocity spikes, acceleration spikes and mean velocity.
// Acceleration is the central-difference gradient of the series with
// one-sided differences at both ends.
func Describe(velocities []float64, dt float64) novelty.Descriptor {
	if len(velocities) == 0 {
		return novelty.Descriptor{}
	}
	accel := gradient(velocities, dt)
	mean := 0.0
	for _, v := range velocities {
		mean += v
	}
	mean /= float64(len(velocities))
	return novelty.Descriptor{
		float64(countSpikes(velocities)),
		float64(countSpikes(accel)),
		mean,
	}
}

func countSpikes(series []float64) int {
	n := 0
	for i := 1; i < len(series); i++ {
		d := series[i] - series[i-1]
		if d > SpikeThreshold || d < -SpikeThreshold {
			n++
		}
	}
	return n
}

func gradient(series []float64, dt float64) []float64 {
	n := len(series)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	out[0] = (series[1] - series[0]) / dt
	out[n-1] = (series[n-1] - series[n-2]) / dt
	for i := 1; i < n-1; i++ {
		out[i] = (series[i+1] - series[i-1]) / (2 * dt)
	}
	return out
}
