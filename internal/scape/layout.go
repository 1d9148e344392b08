package scape

import (
	"fmt"
	"math"
	"math/rand"
)

// Pattern is how a layout places its consumables.
type Pattern int

const (
	PatternRandom Pattern = iota
	PatternCircle
	PatternRow
)

func (p Pattern) String() string {
	switch p {
	case PatternRandom:
		return "random"
	case PatternCircle:
		return "circle"
	case PatternRow:
		return "row"
	default:
		return "unknown"
	}
}

// Layout describes the consumables of a scenario. For PatternRandom items
// are uniform in [-Spread, Spread]²; for PatternCircle food sits evenly on a
// circle of radius Spread and poison on one of radius PoisonSpread. For
// PatternRow food then poison run along y = OriginY from x = OriginX, Spacing
// apart.
type Layout struct {
	Pattern      Pattern
	Food         int
	Poison       int
	Spread       float64
	PoisonSpread float64
	Spacing      float64
	OriginX      float64
	OriginY      float64
}

func (l Layout) validate() error {
	if l.Food < 0 || l.Poison < 0 {
		return fmt.Errorf("layout item counts must be >= 0")
	}
	if l.Spread < 0 || l.PoisonSpread < 0 {
		return fmt.Errorf("layout spread must be >= 0")
	}
	switch l.Pattern {
	case PatternRandom, PatternCircle:
		return nil
	case PatternRow:
		if l.Spacing <= 0 {
			return fmt.Errorf("row layout spacing must be > 0")
		}
		return nil
	default:
		return fmt.Errorf("unsupported layout pattern %d", l.Pattern)
	}
}

func (l Layout) place(rng *rand.Rand) []Consumable {
	items := make([]Consumable, 0, l.Food+l.Poison)
	switch l.Pattern {
	case PatternRandom:
		for i := 0; i < l.Food; i++ {
			items = append(items, newConsumable(uniform(rng, l.Spread), uniform(rng, l.Spread), Food))
		}
		for i := 0; i < l.Poison; i++ {
			items = append(items, newConsumable(uniform(rng, l.Spread), uniform(rng, l.Spread), Poison))
		}
	case PatternCircle:
		items = append(items, ring(l.Food, l.Spread, Food)...)
		items = append(items, ring(l.Poison, l.PoisonSpread, Poison)...)
	case PatternRow:
		x := l.OriginX
		for i := 0; i < l.Food+l.Poison; i++ {
			kind := Food
			if i >= l.Food {
				kind = Poison
			}
			items = append(items, newConsumable(x, l.OriginY, kind))
			x += l.Spacing
		}
	}
	return items
}

func uniform(rng *rand.Rand, spread float64) float64 {
	return -spread + rng.Float64()*2*spread
}

func ring(n int, radius float64, kind Kind) []Consumable {
	items := make([]Consumable, 0, n)
	for i := 0; i < n; i++ {
		a := float64(i) * 2 * math.Pi / float64(n)
		items = append(items, newConsumable(radius*math.Cos(a), radius*math.Sin(a), kind))
	}
	return items
}
