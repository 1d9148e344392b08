package scape

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"cgpforage/internal/cgp"
)

// ForageSimulator runs differential-drive foragers in a walled arena.
type ForageSimulator struct {
	Arena Arena
}

func NewForageSimulator() ForageSimulator {
	return ForageSimulator{Arena: DefaultArena}
}

func (s ForageSimulator) Run(ctx context.Context, scn Scenario, controllers []*cgp.Controller) ([]Outcome, error) {
	if err := scn.validate(); err != nil {
		return nil, err
	}
	if len(controllers) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one controller is required", scn.Name)
	}

	w := &world{
		arena:  s.Arena,
		items:  scn.Layout.place(rand.New(rand.NewSource(scn.Seed))),
		robots: make([]robot, len(controllers)),
	}
	steps := int(math.Ceil(scn.Duration/scn.DT - 1e-9))
	for i, c := range controllers {
		if c == nil {
			return nil, fmt.Errorf("scenario %s: controller %d is nil", scn.Name, i)
		}
		w.robots[i] = robot{
			controller:   c,
			x:            scn.StartX,
			y:            scn.StartY,
			theta:        scn.StartTheta,
			radius:       robotRadius,
			maxSpeed:     robotMaxSpeed,
			energy:       robotEnergy,
			leftFood:     lightSensor{angle: scn.SensorAngle, fov: scn.FieldOfView, kind: Food, blind: scn.BlindLeftFood},
			rightFood:    lightSensor{angle: -scn.SensorAngle, fov: scn.FieldOfView, kind: Food},
			leftPoison:   lightSensor{angle: scn.SensorAngle, fov: scn.FieldOfView, kind: Poison},
			rightPoison:  lightSensor{angle: -scn.SensorAngle, fov: scn.FieldOfView, kind: Poison},
			energySensor: energySensor{owner: i},
			velocities:   make([]float64, 0, steps),
		}
	}

	if scn.MotorNoise > 0 {
		restore := installNoise(controllers, scn.MotorNoise, scn.Seed)
		defer restore()
	}

	for step := 0; step < steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w.step(scn.DT)
	}

	outcomes := make([]Outcome, len(w.robots))
	for i := range w.robots {
		r := &w.robots[i]
		outcomes[i] = Outcome{
			Food:       r.food,
			Poison:     r.poison,
			Energy:     r.energy,
			Descriptor: Describe(r.velocities, scn.DT),
		}
	}
	return outcomes, nil
}

// installNoise attaches fresh brown-noise sources to both motors of every
// controller and returns a func putting the previous sources back.
func installNoise(controllers []*cgp.Controller, maxStep float64, seed int64) func() {
	type saved struct{ left, right cgp.NoiseSource }
	previous := make([]saved, len(controllers))
	for i, c := range controllers {
		previous[i] = saved{c.LeftNoise, c.RightNoise}
		base := seed + int64(i)*2
		c.LeftNoise = NewBrownNoise(maxStep, base)
		c.RightNoise = NewBrownNoise(maxStep, base+1)
	}
	return func() {
		for i, c := range controllers {
			c.LeftNoise = previous[i].left
			c.RightNoise = previous[i].right
		}
	}
}
