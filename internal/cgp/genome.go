package cgp

import (
	"fmt"
	"math/rand"
)

// Regime records which selection pressure produced a genome.
type Regime string

const (
	RegimeUnset   Regime = ""
	RegimeNovelty Regime = "novelty"
	RegimeFitness Regime = "fitness"
)

// ScenarioScore is one entry of a genome's performance history.
type ScenarioScore struct {
	Scenario string `json:"scenario"`
	Food     int    `json:"food"`
}

// Params fixes the shape of every genome in a population.
type Params struct {
	Functions  FunctionTable
	Nodes      int
	Inputs     int
	Outputs    int
	LevelsBack int
	WeightMin  float64
	WeightMax  float64
}

func (p Params) Validate() error {
	if len(p.Functions) == 0 {
		return fmt.Errorf("function table is empty")
	}
	for i, fn := range p.Functions {
		if fn.Arity <= 0 || fn.call == nil {
			return fmt.Errorf("function %d (%s) is malformed", i, fn.Name)
		}
	}
	if p.Inputs <= 0 {
		return fmt.Errorf("inputs must be > 0")
	}
	if p.Outputs < 2 {
		return fmt.Errorf("outputs must be >= 2")
	}
	if p.Nodes < p.Outputs {
		return fmt.Errorf("nodes must be >= outputs")
	}
	if p.LevelsBack <= 0 {
		return fmt.Errorf("levels back must be > 0")
	}
	if p.WeightMin > p.WeightMax {
		return fmt.Errorf("weight min %f exceeds weight max %f", p.WeightMin, p.WeightMax)
	}
	return nil
}

// Node is one vertex of the computation graph. Inputs holds either an index
// of an earlier node or a negative reference r selecting external input -r-1.
// Weights apply only to external-input connections.
type Node struct {
	Function int
	Inputs   []int
	Weights  []float64
	Output   float64
	Active   bool
}

// Genome is a single-row Cartesian genetic program. The last Outputs nodes
// are the designated outputs and are always active.
type Genome struct {
	ID         string
	ParentID   string
	Generation int

	Nodes []Node

	Novelty float64
	Fitness float64
	Regime  Regime
	Scores  []ScenarioScore

	params           Params
	activeDetermined bool
	activeCount      int
}

// NewGenome builds a random genome.
func NewGenome(rng *rand.Rand, p Params) (*Genome, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	g := &Genome{
		Nodes:  make([]Node, p.Nodes),
		params: p,
	}
	for pos := range g.Nodes {
		node := &g.Nodes[pos]
		node.Function = rng.Intn(len(p.Functions))
		arity := p.Functions.arity(node.Function)
		node.Inputs = make([]int, arity)
		node.Weights = make([]float64, arity)
		for slot := 0; slot < arity; slot++ {
			node.Inputs[slot] = g.drawInput(rng, pos)
			node.Weights[slot] = g.drawWeight(rng)
		}
	}
	g.resetActive()
	return g, nil
}

// AssembleGenome builds a genome from explicit nodes, copying them. The
// result must satisfy Validate.
func AssembleGenome(p Params, nodes []Node) (*Genome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g := &Genome{Nodes: make([]Node, len(nodes)), params: p}
	for i, node := range nodes {
		node.Inputs = append([]int(nil), node.Inputs...)
		node.Weights = append([]float64(nil), node.Weights...)
		node.Output = 0
		g.Nodes[i] = node
	}
	g.resetActive()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Params returns the shape parameters the genome was built with.
func (g *Genome) Params() Params {
	return g.params
}

// drawInput picks uniformly among the external inputs and the earlier nodes
// within levels-back of pos.
func (g *Genome) drawInput(rng *rand.Rand, pos int) int {
	lo := pos - g.params.LevelsBack
	if lo < 0 {
		lo = 0
	}
	k := rng.Intn(g.params.Inputs + pos - lo)
	if k < g.params.Inputs {
		return k - g.params.Inputs
	}
	return lo + k - g.params.Inputs
}

func (g *Genome) drawWeight(rng *rand.Rand) float64 {
	return g.params.WeightMin + rng.Float64()*(g.params.WeightMax-g.params.WeightMin)
}

func (g *Genome) resetActive() {
	first := len(g.Nodes) - g.params.Outputs
	for i := range g.Nodes {
		g.Nodes[i].Active = i >= first
	}
	g.activeDetermined = false
	g.activeCount = 0
}

// DetermineActive marks every node reachable from the outputs. References
// always point backwards, so one pass from the last node suffices.
func (g *Genome) DetermineActive() int {
	count := 0
	for pos := len(g.Nodes) - 1; pos >= 0; pos-- {
		node := &g.Nodes[pos]
		if !node.Active {
			continue
		}
		count++
		for _, ref := range node.Inputs {
			if ref >= 0 {
				g.Nodes[ref].Active = true
			}
		}
	}
	g.activeCount = count
	g.activeDetermined = true
	return count
}

// ActiveCount reports the number of active nodes, determining them first if
// the cache is stale.
func (g *Genome) ActiveCount() int {
	if !g.activeDetermined {
		g.DetermineActive()
	}
	return g.activeCount
}

// Eval forward-evaluates the active nodes and returns the outputs of the last
// and second-to-last nodes.
func (g *Genome) Eval(inputs ...float64) (float64, float64) {
	if len(inputs) != g.params.Inputs {
		panic(fmt.Sprintf("cgp: eval wants %d inputs, got %d", g.params.Inputs, len(inputs)))
	}
	if !g.activeDetermined {
		g.DetermineActive()
	}

	operands := make([]float64, 0, 4)
	for pos := range g.Nodes {
		node := &g.Nodes[pos]
		if !node.Active {
			continue
		}
		operands = operands[:0]
		for slot, ref := range node.Inputs {
			if ref >= 0 {
				operands = append(operands, g.Nodes[ref].Output)
				continue
			}
			operands = append(operands, inputs[-ref-1]*node.Weights[slot])
		}
		node.Output = g.params.Functions[node.Function].Call(operands...)
	}

	n := len(g.Nodes)
	return g.Nodes[n-1].Output, g.Nodes[n-2].Output
}

// Clone returns a deep copy sharing nothing mutable with g.
func (g *Genome) Clone() *Genome {
	out := *g
	out.Nodes = make([]Node, len(g.Nodes))
	for i, node := range g.Nodes {
		node.Inputs = append([]int(nil), node.Inputs...)
		node.Weights = append([]float64(nil), node.Weights...)
		out.Nodes[i] = node
	}
	out.Scores = append([]ScenarioScore(nil), g.Scores...)
	return &out
}

// RecordScore appends a scenario-tagged result to the history.
func (g *Genome) RecordScore(scenario string, food int) {
	g.Scores = append(g.Scores, ScenarioScore{Scenario: scenario, Food: food})
}

// Validate checks the structural invariants: arity-consistent slots, strictly
// backward references within levels-back, in-range external references and
// active output nodes.
func (g *Genome) Validate() error {
	p := g.params
	if len(g.Nodes) != p.Nodes {
		return fmt.Errorf("genome %s has %d nodes, want %d", g.ID, len(g.Nodes), p.Nodes)
	}
	for pos, node := range g.Nodes {
		if node.Function < 0 || node.Function >= len(p.Functions) {
			return fmt.Errorf("node %d: function index %d out of range", pos, node.Function)
		}
		arity := p.Functions.arity(node.Function)
		if len(node.Inputs) != arity || len(node.Weights) != arity {
			return fmt.Errorf("node %d: %d inputs and %d weights for arity %d", pos, len(node.Inputs), len(node.Weights), arity)
		}
		for slot, ref := range node.Inputs {
			switch {
			case ref < -p.Inputs:
				return fmt.Errorf("node %d slot %d: external reference %d out of range", pos, slot, ref)
			case ref >= pos:
				return fmt.Errorf("node %d slot %d: forward reference %d", pos, slot, ref)
			case ref >= 0 && ref < pos-p.LevelsBack:
				return fmt.Errorf("node %d slot %d: reference %d beyond levels back", pos, slot, ref)
			}
		}
	}
	for pos := len(g.Nodes) - p.Outputs; pos < len(g.Nodes); pos++ {
		if !g.Nodes[pos].Active {
			return fmt.Errorf("output node %d is inactive", pos)
		}
	}
	return nil
}
