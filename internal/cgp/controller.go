package cgp

import "fmt"

// Sensor readings delivered to a controller each step, in this order.
const (
	LeftFoodSensor = iota
	RightFoodSensor
	LeftPoisonSensor
	RightPoisonSensor
	EnergySensor
	SensorCount
)

// wiredSensors lists the readings routed to genome inputs. Poison sensors are
// read but never wired.
var wiredSensors = [...]int{LeftFoodSensor, RightFoodSensor, EnergySensor}

// MaxInputs is the widest genome input a controller can feed.
const MaxInputs = len(wiredSensors)

// NoiseSource perturbs a motor command.
type NoiseSource interface {
	Step(dt float64) float64
	Reset()
}

// Controller drives a two-motor agent from a genome.
type Controller struct {
	Genome     *Genome
	Gain       float64
	LeftNoise  NoiseSource
	RightNoise NoiseSource

	left, right float64
	args        []float64
}

func NewController(genome *Genome) (*Controller, error) {
	if genome == nil {
		return nil, fmt.Errorf("genome is required")
	}
	if n := genome.params.Inputs; n > MaxInputs {
		return nil, fmt.Errorf("genome wants %d inputs, controller wires at most %d", n, MaxInputs)
	}
	return &Controller{
		Genome: genome,
		Gain:   1,
		args:   make([]float64, genome.params.Inputs),
	}, nil
}

// Step maps sensor readings to (left, right) motor commands. The genome's
// last node drives the left motor, the second-to-last the right.
func (c *Controller) Step(readings [SensorCount]float64, dt float64) (float64, float64) {
	for i := range c.args {
		c.args[i] = readings[wiredSensors[i]]
	}
	left, right := c.Genome.Eval(c.args...)
	c.left = c.Gain * left
	c.right = c.Gain * right
	if c.LeftNoise != nil {
		c.left += c.LeftNoise.Step(dt)
	}
	if c.RightNoise != nil {
		c.right += c.RightNoise.Step(dt)
	}
	return c.left, c.right
}

// Last returns the most recent motor commands.
func (c *Controller) Last() (float64, float64) {
	return c.left, c.right
}

// Reset clears per-run state; the evolved genome is untouched.
func (c *Controller) Reset() {
	c.left, c.right = 0, 0
	if c.LeftNoise != nil {
		c.LeftNoise.Reset()
	}
	if c.RightNoise != nil {
		c.RightNoise.Reset()
	}
}
