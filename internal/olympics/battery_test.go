package olympics

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgpforage/internal/cgp"
	"cgpforage/internal/scape"
)

type recordedRun struct {
	scenario    scape.Scenario
	controllers int
}

// recordingSimulator feeds each controller a food count from its genome's
// position in the pool and remembers what it was asked to run.
type recordingSimulator struct {
	mu   sync.Mutex
	runs []recordedRun
	food map[*cgp.Genome]int
	err  error
}

func (s *recordingSimulator) Run(_ context.Context, scn scape.Scenario, controllers []*cgp.Controller) ([]scape.Outcome, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	s.runs = append(s.runs, recordedRun{scenario: scn, controllers: len(controllers)})
	s.mu.Unlock()
	out := make([]scape.Outcome, len(controllers))
	for i, c := range controllers {
		out[i] = scape.Outcome{Food: s.food[c.Genome]}
	}
	return out, nil
}

func trainingScenario() scape.Scenario {
	return scape.Scenario{
		Name:        "training",
		Layout:      scape.Layout{Pattern: scape.PatternRandom, Food: 25, Spread: 10},
		StartX:      -12,
		SensorAngle: math.Pi / 3,
		FieldOfView: 0.8 * math.Pi,
		Duration:    100,
		DT:          0.1,
		Seed:        3820,
	}
}

func evaluationScenario() scape.Scenario {
	s := trainingScenario()
	s.Name = "evaluation"
	s.Seed = 2020
	return s
}

func pool(t *testing.T, regimes ...cgp.Regime) []*cgp.Genome {
	t.Helper()
	params := cgp.Params{Functions: cgp.DefaultFunctions, Nodes: 2, Inputs: 3, Outputs: 2, LevelsBack: 2, WeightMin: -1, WeightMax: 1}
	node := cgp.Node{Function: 0, Inputs: []int{-1, -2}, Weights: []float64{1, 1}}
	out := make([]*cgp.Genome, len(regimes))
	for i, r := range regimes {
		g, err := cgp.AssembleGenome(params, []cgp.Node{node, node})
		require.NoError(t, err)
		g.ID = string(rune('a' + i))
		g.Regime = r
		out[i] = g
	}
	return out
}

func TestStandardEventsDeriveFromEvaluationCourse(t *testing.T) {
	events := StandardEvents(evaluationScenario())
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Name
		assert.Equal(t, ev.Name, ev.Scenario.Name)
	}
	assert.Equal(t, []string{"fight", "fight2", "circle", "check", "shift", "kill", "noise"}, names)

	byName := map[string]Event{}
	for _, ev := range events {
		byName[ev.Name] = ev
	}
	assert.True(t, byName["fight"].Together)
	assert.True(t, byName["fight2"].Together)
	assert.False(t, byName["check"].Together)
	assert.Equal(t, 5, byName["fight"].Band)
	assert.Equal(t, 15, byName["circle"].Band)
	assert.Equal(t, 50, byName["fight2"].Scenario.Layout.Food)
	assert.Equal(t, 20.0, byName["fight2"].Scenario.Layout.Spread)
	assert.Equal(t, scape.PatternCircle, byName["circle"].Scenario.Layout.Pattern)
	assert.Zero(t, byName["circle"].Scenario.StartX)
	assert.Equal(t, int64(2020), byName["check"].Scenario.Seed)
	assert.Equal(t, trainingScenario().Layout, byName["check"].Scenario.Layout)
	assert.InDelta(t, math.Pi/9, byName["shift"].Scenario.SensorAngle, 1e-12)
	assert.True(t, byName["kill"].Scenario.BlindLeftFood)
	assert.Equal(t, 5.0, byName["noise"].Scenario.MotorNoise)
	assert.Equal(t, int64(2021), byName["fight"].Scenario.Seed)
	assert.Equal(t, int64(2022), byName["fight2"].Scenario.Seed)
	assert.Equal(t, evaluationScenario().StartX, byName["check"].Scenario.StartX)
}

func TestBatteryRunsEveryEventAndRecordsScores(t *testing.T) {
	genomes := pool(t, cgp.RegimeNovelty, cgp.RegimeNovelty, cgp.RegimeFitness)
	sim := &recordingSimulator{food: map[*cgp.Genome]int{genomes[0]: 0, genomes[1]: 4, genomes[2]: 17}}
	events := StandardEvents(evaluationScenario())
	b, err := NewBattery(sim, events, nil)
	require.NoError(t, err)

	results, err := b.Run(context.Background(), genomes)
	require.NoError(t, err)
	require.Len(t, results, len(events)*len(genomes))

	// two fights run everyone at once, five solo events run each controller
	assert.Len(t, sim.runs, 2+5*len(genomes))
	assert.Equal(t, 3, sim.runs[0].controllers)
	assert.Equal(t, 1, sim.runs[2].controllers)

	for _, g := range genomes {
		require.Len(t, g.Scores, len(events))
		for i, ev := range events {
			assert.Equal(t, ev.Name, g.Scores[i].Scenario)
		}
	}
	assert.Equal(t, "fight", results[0].Event)
	assert.Equal(t, "a", results[0].GenomeID)
	assert.Equal(t, "novelty", results[0].Regime)
	assert.Equal(t, 17, results[2].Food)
	assert.Equal(t, 1, results[0].SchemaVersion)
}

func TestBatteryResetsControllersBetweenEvents(t *testing.T) {
	genomes := pool(t, cgp.RegimeFitness)
	sim := &leftoverCommandSimulator{}
	ev := Event{Name: "first", Band: 1, Scenario: trainingScenario()}
	b, err := NewBattery(sim, []Event{ev, {Name: "second", Band: 1, Scenario: trainingScenario()}}, nil)
	require.NoError(t, err)

	_, err = b.Run(context.Background(), genomes)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, sim.seen)
}

// leftoverCommandSimulator leaves a motor command behind after each run and records what
// the controller reported at the start of the next one.
type leftoverCommandSimulator struct {
	seen []float64
}

func (p *leftoverCommandSimulator) Run(_ context.Context, _ scape.Scenario, controllers []*cgp.Controller) ([]scape.Outcome, error) {
	left, _ := controllers[0].Last()
	p.seen = append(p.seen, left)
	controllers[0].Step([cgp.SensorCount]float64{1, 1, 0, 0, 1}, 0.1)
	return []scape.Outcome{{}}, nil
}

func TestBatteryPropagatesSimulatorErrors(t *testing.T) {
	sim := &recordingSimulator{err: errors.New("lights out")}
	b, err := NewBattery(sim, StandardEvents(evaluationScenario()), nil)
	require.NoError(t, err)
	_, err = b.Run(context.Background(), pool(t, cgp.RegimeNovelty))
	assert.ErrorContains(t, err, "event fight: lights out")
}

func TestNewBatteryValidates(t *testing.T) {
	sim := &recordingSimulator{}
	_, err := NewBattery(nil, StandardEvents(evaluationScenario()), nil)
	assert.ErrorContains(t, err, "simulator")
	_, err = NewBattery(sim, nil, nil)
	assert.ErrorContains(t, err, "at least one event")
	_, err = NewBattery(sim, []Event{{Name: "x"}, {Name: "x"}}, nil)
	assert.ErrorContains(t, err, "duplicate")

	b, err := NewBattery(sim, []Event{{Name: "x"}}, nil)
	require.NoError(t, err)
	_, err = b.Run(context.Background(), nil)
	assert.Error(t, err)
}
