// Package olympics runs qualified controllers through a battery of held-out
// foraging events and writes the comparative report.
package olympics

import (
	"math"

	"cgpforage/internal/scape"
)

// Event is one held-out scenario. Together events put every controller in
// the same arena at once; the others run controllers one at a time.
type Event struct {
	Name     string
	Title    string
	Together bool
	// Band splits non-zero scores into low (<= Band) and high tallies.
	Band int

	Scenario scape.Scenario
}

const (
	fightBand          = 5
	soloBand           = 15
	shiftedSensorAngle = math.Pi / 9
	noiseAmplitude     = 5
)

// StandardEvents derives the seven events from the evaluation scenario, the
// training course laid out with the evaluation seed. Fights offset that seed
// to get their own layouts.
func StandardEvents(evaluation scape.Scenario) []Event {
	variant := func(name string, edit func(*scape.Scenario)) scape.Scenario {
		s := evaluation
		s.Name = name
		edit(&s)
		return s
	}

	return []Event{
		{Name: "fight", Title: "Fight", Together: true, Band: fightBand, Scenario: variant("fight", func(s *scape.Scenario) {
			s.Seed = evaluation.Seed + 1
		})},
		{Name: "fight2", Title: "Fight 2", Together: true, Band: fightBand, Scenario: variant("fight2", func(s *scape.Scenario) {
			s.Layout = scape.Layout{Pattern: scape.PatternRandom, Food: 2 * evaluation.Layout.Food, Spread: 2 * evaluation.Layout.Spread}
			s.Seed = evaluation.Seed + 2
		})},
		{Name: "circle", Title: "Circle", Band: soloBand, Scenario: variant("circle", func(s *scape.Scenario) {
			s.Layout = scape.Layout{Pattern: scape.PatternCircle, Food: evaluation.Layout.Food, Spread: evaluation.Layout.Spread}
			s.StartX, s.StartY = 0, 0
		})},
		{Name: "check", Title: "Check", Band: soloBand, Scenario: variant("check", func(*scape.Scenario) {})},
		{Name: "shift", Title: "Shift", Band: soloBand, Scenario: variant("shift", func(s *scape.Scenario) {
			s.SensorAngle = shiftedSensorAngle
		})},
		{Name: "kill", Title: "Kill", Band: soloBand, Scenario: variant("kill", func(s *scape.Scenario) {
			s.BlindLeftFood = true
		})},
		{Name: "noise", Title: "Noise", Band: soloBand, Scenario: variant("noise", func(s *scape.Scenario) {
			s.MotorNoise = noiseAmplitude
		})},
	}
}
