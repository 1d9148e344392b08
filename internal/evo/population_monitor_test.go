package evo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgpforage/internal/cgp"
	"cgpforage/internal/novelty"
	"cgpforage/internal/scape"
)

// scriptedSimulator answers each run from a function of the controller and
// how many times that controller has been run before.
type scriptedSimulator struct {
	mu      sync.Mutex
	calls   map[*cgp.Controller]int
	outcome func(c *cgp.Controller, call int) scape.Outcome
	err     error
}

func newScriptedSimulator(outcome func(c *cgp.Controller, call int) scape.Outcome) *scriptedSimulator {
	return &scriptedSimulator{calls: map[*cgp.Controller]int{}, outcome: outcome}
}

func (s *scriptedSimulator) Run(ctx context.Context, _ scape.Scenario, controllers []*cgp.Controller) ([]scape.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]scape.Outcome, len(controllers))
	for i, c := range controllers {
		s.mu.Lock()
		call := s.calls[c]
		s.calls[c]++
		s.mu.Unlock()
		out[i] = s.outcome(c, call)
	}
	return out, nil
}

func testMonitorConfig(sim scape.Simulator) MonitorConfig {
	return MonitorConfig{
		Simulator: sim,
		Scenario:  scape.Scenario{Name: "scripted"},
		Params: cgp.Params{
			Functions:  cgp.DefaultFunctions,
			Nodes:      10,
			Inputs:     3,
			Outputs:    2,
			LevelsBack: 10,
			WeightMin:  -1,
			WeightMax:  1,
		},
		Novelty:           novelty.DefaultConfig(),
		MutationRate:      0.05,
		StagnationRate:    0.5,
		Parents:           2,
		Offspring:         6,
		Population:        6,
		NoveltyQualifiers: 2,
		FitnessQualifiers: 3,
		FoodThreshold:     10,
		Workers:           3,
		Seed:              7,
	}
}

func always(o scape.Outcome) func(*cgp.Controller, int) scape.Outcome {
	return func(*cgp.Controller, int) scape.Outcome { return o }
}

func TestRunFillsNoveltyThenFitnessQuota(t *testing.T) {
	sim := newScriptedSimulator(always(scape.Outcome{Food: 10, Descriptor: novelty.Descriptor{4, 2, 1}}))
	m, err := NewPopulationMonitor(testMonitorConfig(sim))
	require.NoError(t, err)

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Generations)
	assert.Equal(t, 2, res.FitnessPhaseStart)
	require.Len(t, res.Qualified, 5)
	for i, g := range res.Qualified {
		want := cgp.RegimeFitness
		if i < 2 {
			want = cgp.RegimeNovelty
		}
		assert.Equal(t, want, g.Regime, "qualified %d", i)
		assert.NoError(t, g.Validate())
	}
	require.Len(t, res.GenerationDiagnostics, 2)
	assert.Equal(t, PhaseNovelty, res.GenerationDiagnostics[0].Phase)
	assert.Equal(t, PhaseFitness, res.GenerationDiagnostics[1].Phase)
	assert.Equal(t, 10.0, res.GenerationDiagnostics[1].BestScore)
	assert.Equal(t, 1, res.Archive.Generations())
}

func TestRunRejectsFlukes(t *testing.T) {
	sim := newScriptedSimulator(func(_ *cgp.Controller, call int) scape.Outcome {
		if call == 0 {
			return scape.Outcome{Food: 12}
		}
		return scape.Outcome{Food: 3}
	})
	cfg := testMonitorConfig(sim)
	cfg.MaxGenerations = 3
	m, err := NewPopulationMonitor(cfg)
	require.NoError(t, err)

	res, err := m.Run(context.Background())
	assert.ErrorIs(t, err, ErrGenerationLimit)
	assert.Empty(t, res.Qualified)
	assert.Equal(t, 3, res.Generations)
	assert.Len(t, res.GenerationDiagnostics, 3)
}

func TestRunQualifiedPoolIsIndependentOfPopulation(t *testing.T) {
	sim := newScriptedSimulator(always(scape.Outcome{Food: 11}))
	m, err := NewPopulationMonitor(testMonitorConfig(sim))
	require.NoError(t, err)

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	seen := map[*cgp.Genome]bool{}
	ids := map[string]bool{}
	for _, g := range res.Qualified {
		assert.False(t, seen[g])
		seen[g] = true
		ids[g.ID] = true
	}
	assert.Len(t, ids, len(res.Qualified))
}

func TestRunStagnationOpensWholePopulation(t *testing.T) {
	cases := []struct {
		name     string
		outcome  scape.Outcome
		stagnant bool
		rate     float64
	}{
		{name: "idle", outcome: scape.Outcome{Food: 1, Poison: 1}, stagnant: true, rate: 0.5},
		{name: "poisoned", outcome: scape.Outcome{Poison: 2}, stagnant: false, rate: 0.05},
		{name: "fed", outcome: scape.Outcome{Food: 2}, stagnant: false, rate: 0.05},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testMonitorConfig(newScriptedSimulator(always(tc.outcome)))
			cfg.MaxGenerations = 2
			m, err := NewPopulationMonitor(cfg)
			require.NoError(t, err)

			res, err := m.Run(context.Background())
			require.ErrorIs(t, err, ErrGenerationLimit)
			for _, diag := range res.GenerationDiagnostics {
				assert.Equal(t, tc.stagnant, diag.Stagnant)
				assert.Equal(t, tc.rate, diag.MutationRate)
			}
		})
	}
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	outcome := func(c *cgp.Controller, _ int) scape.Outcome {
		active := c.Genome.ActiveCount()
		return scape.Outcome{
			Food:       active % 12,
			Poison:     active % 3,
			Descriptor: novelty.Descriptor{float64(active), float64(c.Genome.Nodes[0].Function), 0.5},
		}
	}
	run := func() RunResult {
		cfg := testMonitorConfig(newScriptedSimulator(outcome))
		cfg.MaxGenerations = 5
		cfg.Workers = 4
		m, err := NewPopulationMonitor(cfg)
		require.NoError(t, err)
		res, err := m.Run(context.Background())
		if err != nil {
			require.ErrorIs(t, err, ErrGenerationLimit)
		}
		return res
	}

	a, b := run(), run()
	assert.Equal(t, a.GenerationDiagnostics, b.GenerationDiagnostics)
	assert.Equal(t, a.Lineage, b.Lineage)
	assert.Equal(t, a.Archive.Entries(), b.Archive.Entries())
}

func TestRunHonoursCancellation(t *testing.T) {
	m, err := NewPopulationMonitor(testMonitorConfig(newScriptedSimulator(always(scape.Outcome{}))))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunPropagatesSimulatorErrors(t *testing.T) {
	sim := newScriptedSimulator(always(scape.Outcome{}))
	sim.err = errors.New("arena on fire")
	m, err := NewPopulationMonitor(testMonitorConfig(sim))
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	assert.ErrorContains(t, err, "arena on fire")
}

func TestParentPoolRanksByPhaseScoreStably(t *testing.T) {
	m, err := NewPopulationMonitor(testMonitorConfig(newScriptedSimulator(always(scape.Outcome{}))))
	require.NoError(t, err)

	scored := make([]ScoredGenome, 4)
	for i, score := range []float64{1, 5, 3, 5} {
		scored[i] = ScoredGenome{
			Genome:  &cgp.Genome{ID: string(rune('a' + i))},
			Outcome: scape.Outcome{Food: 2},
			Score:   score,
		}
	}
	parents, rate, stagnant := m.parentPool(scored)
	assert.False(t, stagnant)
	assert.Equal(t, 0.05, rate)
	require.Len(t, parents, 2)
	assert.Equal(t, "b", parents[0].Genome.ID)
	assert.Equal(t, "d", parents[1].Genome.ID)
}

func TestParentPoolStagnantReturnsWholePopulation(t *testing.T) {
	m, err := NewPopulationMonitor(testMonitorConfig(newScriptedSimulator(always(scape.Outcome{}))))
	require.NoError(t, err)

	outcomes := []scape.Outcome{{}, {Food: 1}, {Poison: 1}, {Food: 1, Poison: 1}, {}}
	scored := make([]ScoredGenome, len(outcomes))
	for i, o := range outcomes {
		scored[i] = ScoredGenome{
			Genome:  &cgp.Genome{ID: string(rune('a' + i))},
			Outcome: o,
			Score:   float64(10 - i),
		}
	}
	parents, rate, stagnant := m.parentPool(scored)
	assert.True(t, stagnant)
	assert.Equal(t, 0.5, rate)
	require.Len(t, parents, len(scored))
	ids := map[string]bool{}
	for _, p := range parents {
		ids[p.Genome.ID] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true, "d": true, "e": true}, ids)
}

func TestNextGenerationStagnantIgnoresSelectorRanking(t *testing.T) {
	cfg := testMonitorConfig(newScriptedSimulator(always(scape.Outcome{})))
	cfg.Selector = TournamentSelector{TournamentSize: 3}
	cfg.Offspring = 6000
	m, err := NewPopulationMonitor(cfg)
	require.NoError(t, err)
	population, _, err := m.randomPopulation(0)
	require.NoError(t, err)

	parents := make([]ScoredGenome, len(population))
	for i, g := range population {
		parents[i] = ScoredGenome{Genome: g, Score: float64(i)}
	}
	next, _, err := m.nextGeneration(parents, 0, true, 1)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, child := range next {
		counts[child.ParentID]++
	}
	want := cfg.Offspring / len(parents)
	for _, g := range population {
		assert.InDelta(t, want, counts[g.ID], float64(want)/4, "parent %s", g.ID)
	}
}

func TestNextGenerationRecordsLineage(t *testing.T) {
	m, err := NewPopulationMonitor(testMonitorConfig(newScriptedSimulator(always(scape.Outcome{}))))
	require.NoError(t, err)
	population, _, err := m.randomPopulation(0)
	require.NoError(t, err)

	parents := []ScoredGenome{{Genome: population[0]}, {Genome: population[1]}}
	parents[0].Genome.Novelty = 9
	next, lineage, err := m.nextGeneration(parents, 0.3, false, 4)
	require.NoError(t, err)
	require.Len(t, next, 6)
	require.Len(t, lineage, 6)
	for i, child := range next {
		assert.Contains(t, []string{population[0].ID, population[1].ID}, child.ParentID)
		assert.Equal(t, 4, child.Generation)
		assert.Zero(t, child.Novelty)
		assert.Equal(t, child.ID, lineage[i].GenomeID)
		assert.Equal(t, "mutate", lineage[i].Operation)
		assert.NoError(t, child.Validate())
	}
}

func TestNewPopulationMonitorValidatesConfig(t *testing.T) {
	sim := newScriptedSimulator(always(scape.Outcome{}))
	cases := map[string]func(*MonitorConfig){
		"simulator is required": func(c *MonitorConfig) { c.Simulator = nil },
		"mutation rate":         func(c *MonitorConfig) { c.MutationRate = -0.1 },
		"population size":       func(c *MonitorConfig) { c.Population = 0 },
		"parent count":          func(c *MonitorConfig) { c.Parents = 0 },
		"food threshold":        func(c *MonitorConfig) { c.FoodThreshold = 0 },
		"genome params":         func(c *MonitorConfig) { c.Params.Outputs = 1 },
		"novelty archive":       func(c *MonitorConfig) { c.Novelty.Neighbours = 0 },
	}
	for want, mutate := range cases {
		t.Run(want, func(t *testing.T) {
			cfg := testMonitorConfig(sim)
			mutate(&cfg)
			_, err := NewPopulationMonitor(cfg)
			assert.ErrorContains(t, err, want)
		})
	}
}
