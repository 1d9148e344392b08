// Package novelty scores behaviour descriptors by their sparseness relative to
// the current population and a persistent archive of earlier behaviours.
package novelty

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const (
	DefaultNeighbours           = 3
	DefaultArchiveThreshold     = 5.0
	DefaultAdmissionProbability = 0.5
)

// Descriptor summarises one simulation run: velocity spikes, acceleration
// spikes and mean velocity.
type Descriptor [3]float64

// Dissimilarity compares a subject descriptor with another one. The third
// term folds the subject's mean velocity against itself rather than against
// other[2]; scores across runs depend on this exact form.
func Dissimilarity(subject, other Descriptor) float64 {
	d0 := subject[0] - other[0]
	d1 := subject[1] - other[1]
	return math.Abs(d0*d0 + d1*d1 + (subject[2] - subject[2]*subject[2]))
}

// Config sets the k-nearest neighbour count and the archive admission rule.
type Config struct {
	Neighbours           int     `yaml:"neighbours"`
	Threshold            float64 `yaml:"archive_threshold"`
	AdmissionProbability float64 `yaml:"admission_probability"`
}

// DefaultConfig is k=3, threshold 5, admission probability 0.5.
func DefaultConfig() Config {
	return Config{
		Neighbours:           DefaultNeighbours,
		Threshold:            DefaultArchiveThreshold,
		AdmissionProbability: DefaultAdmissionProbability,
	}
}

// Archive is an append-only store of past descriptors. It also keeps the
// per-generation behaviour and novelty histories it has scored.
type Archive struct {
	cfg     Config
	entries []Descriptor

	behaviours [][]Descriptor
	scores     [][]float64
}

// NewArchive returns an empty archive or an error for an unusable cfg.
func NewArchive(cfg Config) (*Archive, error) {
	if cfg.Neighbours <= 0 {
		return nil, fmt.Errorf("neighbours must be > 0")
	}
	if cfg.AdmissionProbability < 0 || cfg.AdmissionProbability > 1 {
		return nil, fmt.Errorf("admission probability must be in [0, 1]")
	}
	return &Archive{cfg: cfg}, nil
}

func (a *Archive) Len() int {
	return len(a.entries)
}

// Entries returns a copy of the archived descriptors in admission order.
func (a *Archive) Entries() []Descriptor {
	return append([]Descriptor(nil), a.entries...)
}

// Generations reports how many populations have been scored.
func (a *Archive) Generations() int {
	return len(a.scores)
}

// History returns the descriptors and novelty scores of a scored generation.
func (a *Archive) History(generation int) ([]Descriptor, []float64, bool) {
	if generation < 0 || generation >= len(a.scores) {
		return nil, nil, false
	}
	return append([]Descriptor(nil), a.behaviours[generation]...),
		append([]float64(nil), a.scores[generation]...), true
}

// Score assigns each population member the mean dissimilarity to its
// Neighbours nearest descriptors among the other members and the archive.
// The archive is read as a snapshot; admission happens only after every
// member is scored.
func (a *Archive) Score(rng *rand.Rand, population []Descriptor) ([]float64, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	snapshot := a.entries
	scores := make([]float64, len(population))
	dists := make([]float64, 0, len(population)+len(snapshot))
	for i, subject := range population {
		dists = dists[:0]
		for j, other := range population {
			if j == i {
				continue
			}
			dists = append(dists, Dissimilarity(subject, other))
		}
		for _, other := range snapshot {
			dists = append(dists, Dissimilarity(subject, other))
		}
		scores[i] = sparseness(dists, a.cfg.Neighbours)
	}

	for i, score := range scores {
		if score > a.cfg.Threshold && rng.Float64() < a.cfg.AdmissionProbability {
			a.entries = append(a.entries, population[i])
		}
	}
	a.behaviours = append(a.behaviours, append([]Descriptor(nil), population...))
	a.scores = append(a.scores, append([]float64(nil), scores...))
	return scores, nil
}

// sparseness is the mean of the k smallest values, or of all values when
// fewer than k exist. It sorts dists in place.
func sparseness(dists []float64, k int) float64 {
	if len(dists) == 0 {
		return 0
	}
	sort.Float64s(dists)
	if k > len(dists) {
		k = len(dists)
	}
	sum := 0.0
	for _, d := range dists[:k] {
		sum += d
	}
	return sum / float64(k)
}
