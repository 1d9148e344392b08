package scape

import (
	"context"
	"fmt"

	"cgpforage/internal/cgp"
	"cgpforage/internal/novelty"
)

// Outcome is what one controller produced in one scenario run.
type Outcome struct {
	Food       int
	Poison     int
	Energy     float64
	Descriptor novelty.Descriptor
}

// Scenario fully determines a run apart from the controllers taking part.
type Scenario struct {
	Name          string
	Layout        Layout
	StartX        float64
	StartY        float64
	StartTheta    float64
	SensorAngle   float64
	FieldOfView   float64
	BlindLeftFood bool
	MotorNoise    float64
	Duration      float64
	DT            float64
	Seed          int64
}

func (s Scenario) validate() error {
	if s.Duration <= 0 {
		return fmt.Errorf("scenario %s: duration must be > 0", s.Name)
	}
	if s.DT <= 0 || s.DT > s.Duration {
		return fmt.Errorf("scenario %s: dt must be in (0, duration]", s.Name)
	}
	if s.FieldOfView <= 0 {
		return fmt.Errorf("scenario %s: field of view must be > 0", s.Name)
	}
	if s.MotorNoise < 0 {
		return fmt.Errorf("scenario %s: motor noise must be >= 0", s.Name)
	}
	return s.Layout.validate()
}

// Simulator runs controllers through a scenario. All controllers share one
// arena; outcomes are returned in controller order.
type Simulator interface {
	Run(ctx context.Context, scenario Scenario, controllers []*cgp.Controller) ([]Outcome, error)
}
