package scape

import (
	"math"

	"cgpforage/internal/cgp"
)

const (
	consumableRadius   = 0.5
	consumableQuantity = 5.0
	consumableRecovery = 100.0
	consumableGlow     = 3.0

	robotRadius      = 1.0
	robotMaxSpeed    = 2.0
	robotEnergy      = 100.0
	motorDecayRate   = 0.1
	restingDecayRate = 0.001
	eatReach         = 1.0
)

// Kind is what a consumable really is.
type Kind int

const (
	Food Kind = iota
	Poison
	Water
)

func (k Kind) String() string {
	switch k {
	case Food:
		return "food"
	case Poison:
		return "poison"
	case Water:
		return "water"
	default:
		return "unknown"
	}
}

// Consumable is an item agents eat by passing within reach. A depleted item
// is invisible until its recovery time has elapsed.
type Consumable struct {
	X, Y         float64
	Kind         Kind
	Radius       float64
	Quantity     float64
	RecoveryTime float64
	Brightness   float64

	depleted      bool
	sinceConsumed float64
}

func newConsumable(x, y float64, kind Kind) Consumable {
	return Consumable{
		X:            x,
		Y:            y,
		Kind:         kind,
		Radius:       consumableRadius,
		Quantity:     consumableQuantity,
		RecoveryTime: consumableRecovery,
		Brightness:   consumableGlow,
	}
}

func (c *Consumable) consume() float64 {
	if c.depleted {
		return 0
	}
	c.depleted = true
	c.sinceConsumed = 0
	return c.Quantity
}

func (c *Consumable) step(dt float64) {
	if !c.depleted {
		return
	}
	if c.sinceConsumed >= c.RecoveryTime {
		c.depleted = false
		return
	}
	c.sinceConsumed += dt
}

// Arena confines agents to a rectangle.
type Arena struct {
	Left, Right, Bottom, Top float64
}

var DefaultArena = Arena{Left: -20, Right: 20, Bottom: -20, Top: 20}

func (a Arena) clamp(r *robot) {
	if r.y+r.radius > a.Top {
		r.y = a.Top - r.radius
	} else if r.y-r.radius < a.Bottom {
		r.y = a.Bottom + r.radius
	}
	if r.x+r.radius > a.Right {
		r.x = a.Right - r.radius
	} else if r.x-r.radius < a.Left {
		r.x = a.Left + r.radius
	}
}

// lightSensor sums the glow of visible consumables of one kind inside its
// field of view.
type lightSensor struct {
	angle float64
	fov   float64
	kind  Kind
	blind bool
}

func (s lightSensor) read(w *world, r *robot) float64 {
	if s.blind {
		return 0
	}
	heading := r.theta + s.angle
	sx := r.x + r.radius*math.Cos(heading)
	sy := r.y + r.radius*math.Sin(heading)

	activation := 0.0
	for i := range w.items {
		item := &w.items[i]
		if item.depleted || item.Kind != s.kind {
			continue
		}
		dx, dy := item.X-sx, item.Y-sy
		if math.Abs(angleDiff(math.Atan2(dy, dx), heading)) > s.fov/2 {
			continue
		}
		activation += item.Brightness / math.Max(dx*dx+dy*dy, 1)
	}
	return activation
}

// energySensor reads its owner's energy through an index into the world's
// robots rather than holding the robot itself.
type energySensor struct {
	owner int
}

func (s energySensor) read(w *world) float64 {
	return w.robots[s.owner].energy
}

type robot struct {
	controller *cgp.Controller

	x, y, theta float64
	radius      float64
	maxSpeed    float64
	energy      float64

	leftFood, rightFood     lightSensor
	leftPoison, rightPoison lightSensor
	energySensor            energySensor

	food, poison int
	velocities   []float64
}

type world struct {
	arena  Arena
	items  []Consumable
	robots []robot
}

func (w *world) stepRobot(idx int, dt float64) {
	r := &w.robots[idx]

	var readings [cgp.SensorCount]float64
	readings[cgp.LeftFoodSensor] = r.leftFood.read(w, r)
	readings[cgp.RightFoodSensor] = r.rightFood.read(w, r)
	readings[cgp.LeftPoisonSensor] = r.leftPoison.read(w, r)
	readings[cgp.RightPoisonSensor] = r.rightPoison.read(w, r)
	readings[cgp.EnergySensor] = r.energySensor.read(w)

	left, right := r.controller.Step(readings, dt)
	left = motorCommand(left, r.maxSpeed)
	right = motorCommand(right, r.maxSpeed)

	r.energy -= math.Abs(left) * dt * motorDecayRate
	r.energy -= math.Abs(right) * dt * motorDecayRate
	r.energy -= dt * restingDecayRate
	if r.energy <= 0 {
		r.energy = 0
		left, right = 0, 0
	}

	v := (left + right) / 2
	omega := (right - left) / (2 * r.radius)
	r.x += v * math.Cos(r.theta) * dt
	r.y += v * math.Sin(r.theta) * dt
	r.theta += omega * dt
	r.velocities = append(r.velocities, v)

	for i := range w.items {
		item := &w.items[i]
		if item.depleted || math.Hypot(r.x-item.X, r.y-item.Y) >= item.Radius+eatReach {
			continue
		}
		quantity := item.consume()
		switch item.Kind {
		case Food:
			r.energy += quantity
			r.food++
		case Poison:
			r.energy -= quantity
			r.poison++
		case Water:
		}
	}
}

func (w *world) step(dt float64) {
	for i := range w.robots {
		w.stepRobot(i, dt)
	}
	for i := range w.items {
		w.items[i].step(dt)
	}
	for i := range w.robots {
		w.arena.clamp(&w.robots[i])
	}
}

// motorCommand saturates a command and zeroes values the genome could not
// express as a speed.
func motorCommand(v, max float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v > max {
		return max
	}
	if v < -max {
		return -max
	}
	return v
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}
