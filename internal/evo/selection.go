package evo

import (
	"fmt"
	"math/rand"
)

// Selector chooses parents from a ranked generation for replication.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked []ScoredGenome, eliteCount int) (ScoredGenome, error)
}

// EliteSelector picks uniformly, with replacement, from the top elite set.
type EliteSelector struct{}

func (EliteSelector) Name() string {
	return "elite"
}

func (EliteSelector) PickParent(rng *rand.Rand, ranked []ScoredGenome, eliteCount int) (ScoredGenome, error) {
	if rng == nil {
		return ScoredGenome{}, fmt.Errorf("random source is required")
	}
	if eliteCount <= 0 || eliteCount > len(ranked) {
		return ScoredGenome{}, fmt.Errorf("invalid elite count: %d", eliteCount)
	}
	return ranked[rng.Intn(eliteCount)], nil
}

// TournamentSelector samples candidates from the elite set and keeps the one
// with the best phase score.
type TournamentSelector struct {
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked []ScoredGenome, eliteCount int) (ScoredGenome, error) {
	if rng == nil {
		return ScoredGenome{}, fmt.Errorf("random source is required")
	}
	if eliteCount <= 0 || eliteCount > len(ranked) {
		return ScoredGenome{}, fmt.Errorf("invalid elite count: %d", eliteCount)
	}

	size := s.TournamentSize
	if size <= 0 {
		size = 3
	}
	if size > eliteCount {
		size = eliteCount
	}

	best := ranked[rng.Intn(eliteCount)]
	for i := 1; i < size; i++ {
		candidate := ranked[rng.Intn(eliteCount)]
		if candidate.Score > best.Score {
			best = candidate
		}
	}
	return best, nil
}

// SelectorByName resolves a configured selection strategy.
func SelectorByName(name string) (Selector, error) {
	switch name {
	case "", "elite":
		return EliteSelector{}, nil
	case "tournament":
		return TournamentSelector{}, nil
	default:
		return nil, fmt.Errorf("unknown selector %q", name)
	}
}
