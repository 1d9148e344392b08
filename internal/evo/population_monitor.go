// Package evo runs the two-phase evolutionary search: a novelty-driven phase
// followed by a fitness-driven one, each filling its share of a qualified
// controller pool.
package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cgpforage/internal/cgp"
	"cgpforage/internal/novelty"
	"cgpforage/internal/scape"
)

// ErrGenerationLimit is returned with a partial result when MaxGenerations
// elapse before the qualified pool is full.
var ErrGenerationLimit = errors.New("generation limit reached")

type Phase string

const (
	PhaseNovelty Phase = "novelty"
	PhaseFitness Phase = "fitness"
	PhaseDone    Phase = "done"
)

func (p Phase) regime() cgp.Regime {
	switch p {
	case PhaseNovelty:
		return cgp.RegimeNovelty
	case PhaseFitness:
		return cgp.RegimeFitness
	default:
		return cgp.RegimeUnset
	}
}

// ScoredGenome is one evaluated individual. Score is the phase score used
// for ranking: novelty in the novelty phase, food eaten in the fitness phase.
type ScoredGenome struct {
	Genome     *cgp.Genome
	Controller *cgp.Controller
	Outcome    scape.Outcome
	Score      float64
}

// GenerationDiagnostics summarises one evaluated generation.
type GenerationDiagnostics struct {
	Generation      int     `json:"generation"`
	Phase           Phase   `json:"phase"`
	BestScore       float64 `json:"best_score"`
	MeanScore       float64 `json:"mean_score"`
	BestFood        int     `json:"best_food"`
	MeanFood        float64 `json:"mean_food"`
	MeanPoison      float64 `json:"mean_poison"`
	MeanActiveNodes float64 `json:"mean_active_nodes"`
	ArchiveSize     int     `json:"archive_size"`
	Qualified       int     `json:"qualified"`
	MutationRate    float64 `json:"mutation_rate"`
	Stagnant        bool    `json:"stagnant"`
}

// LineageRecord ties a genome to its parent and the operation that made it.
type LineageRecord struct {
	GenomeID   string `json:"genome_id"`
	ParentID   string `json:"parent_id"`
	Generation int    `json:"generation"`
	Operation  string `json:"operation"`
}

// RunResult is what Run returns: the qualified pool in admission order, the
// novelty archive and per-generation records.
type RunResult struct {
	Qualified             []*cgp.Genome
	Generations           int
	FitnessPhaseStart     int
	GenerationDiagnostics []GenerationDiagnostics
	Lineage               []LineageRecord
	Archive               *novelty.Archive
}

// MonitorConfig fixes the simulator, training scenario, genome shape and
// quotas of one evolutionary run. Workers <= 0 means 1; a nil Selector means
// EliteSelector.
type MonitorConfig struct {
	Simulator         scape.Simulator
	Scenario          scape.Scenario
	Params            cgp.Params
	Selector          Selector
	Novelty           novelty.Config
	MutationRate      float64
	StagnationRate    float64
	Parents           int
	Offspring         int
	Population        int
	NoveltyQualifiers int
	FitnessQualifiers int
	FoodThreshold     int
	MaxGenerations    int
	Workers           int
	Seed              int64
	Logger            *zap.Logger
}

// PopulationMonitor owns the run's random source and archive. It is not safe
// for concurrent use.
type PopulationMonitor struct {
	cfg     MonitorConfig
	rng     *rand.Rand
	archive *novelty.Archive
	log     *zap.Logger
	nextID  int
}

// NewPopulationMonitor validates cfg and seeds the random source from cfg.Seed.
func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Simulator == nil {
		return nil, fmt.Errorf("simulator is required")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("genome params: %w", err)
	}
	if cfg.Params.Inputs > cgp.MaxInputs {
		return nil, fmt.Errorf("genome inputs must be <= %d", cgp.MaxInputs)
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return nil, fmt.Errorf("mutation rate must be in [0, 1]")
	}
	if cfg.StagnationRate < 0 || cfg.StagnationRate > 1 {
		return nil, fmt.Errorf("stagnation rate must be in [0, 1]")
	}
	if cfg.Population <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.Offspring <= 0 {
		return nil, fmt.Errorf("offspring count must be > 0")
	}
	if cfg.Parents <= 0 {
		return nil, fmt.Errorf("parent count must be > 0")
	}
	if cfg.NoveltyQualifiers < 0 || cfg.FitnessQualifiers < 0 {
		return nil, fmt.Errorf("qualifier targets must be >= 0")
	}
	if cfg.FoodThreshold <= 0 {
		return nil, fmt.Errorf("food threshold must be > 0")
	}
	if cfg.MaxGenerations < 0 {
		return nil, fmt.Errorf("max generations must be >= 0")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Selector == nil {
		cfg.Selector = EliteSelector{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	archive, err := novelty.NewArchive(cfg.Novelty)
	if err != nil {
		return nil, fmt.Errorf("novelty archive: %w", err)
	}

	return &PopulationMonitor{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		archive: archive,
		log:     cfg.Logger,
	}, nil
}

// Run evolves until both qualifier quotas are met, the context is done, or
// MaxGenerations elapse. The last case returns the partial result together
// with ErrGenerationLimit.
func (m *PopulationMonitor) Run(ctx context.Context) (RunResult, error) {
	result := RunResult{Archive: m.archive}
	phase := PhaseNovelty
	target := m.cfg.NoveltyQualifiers + m.cfg.FitnessQualifiers

	population, lineage, err := m.randomPopulation(0)
	if err != nil {
		return RunResult{}, err
	}
	result.Lineage = append(result.Lineage, lineage...)

	for gen := 1; ; gen++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if m.cfg.MaxGenerations > 0 && gen > m.cfg.MaxGenerations {
			return result, fmt.Errorf("%w: %d generations, %d of %d controllers qualified",
				ErrGenerationLimit, m.cfg.MaxGenerations, len(result.Qualified), target)
		}

		scored, err := m.evaluatePopulation(ctx, population)
		if err != nil {
			return result, err
		}
		if err := m.score(phase, scored); err != nil {
			return result, err
		}

		admitted, err := m.qualify(ctx, phase, scored, result.Qualified, target)
		if err != nil {
			return result, err
		}
		result.Qualified = admitted
		result.Generations = gen

		parents, rate, stagnant := m.parentPool(scored)
		diag := summarizeGeneration(scored, gen, phase)
		diag.ArchiveSize = m.archive.Len()
		diag.Qualified = len(result.Qualified)
		diag.MutationRate = rate
		diag.Stagnant = stagnant
		result.GenerationDiagnostics = append(result.GenerationDiagnostics, diag)
		m.log.Info("generation complete",
			zap.Int("generation", gen),
			zap.String("phase", string(phase)),
			zap.Float64("best", diag.BestScore),
			zap.Float64("mean", diag.MeanScore),
			zap.Int("best_food", diag.BestFood),
			zap.Int("archive", diag.ArchiveSize),
			zap.Int("qualified", diag.Qualified),
			zap.Float64("mutation_rate", rate),
			zap.Bool("stagnant", stagnant),
		)

		if phase == PhaseNovelty && len(result.Qualified) >= m.cfg.NoveltyQualifiers {
			result.Qualified = result.Qualified[:m.cfg.NoveltyQualifiers]
			phase = PhaseFitness
			result.FitnessPhaseStart = gen + 1
			m.log.Info("switching to fitness phase", zap.Int("generation", gen), zap.Int("novelty_qualified", len(result.Qualified)))
			population, lineage, err = m.randomPopulation(gen)
			if err != nil {
				return result, err
			}
			result.Lineage = append(result.Lineage, lineage...)
			continue
		}
		if phase == PhaseFitness && len(result.Qualified) >= target {
			m.log.Info("qualified pool complete", zap.Int("generation", gen), zap.Int("qualified", len(result.Qualified)))
			return result, nil
		}

		population, lineage, err = m.nextGeneration(parents, rate, stagnant, gen)
		if err != nil {
			return result, err
		}
		result.Lineage = append(result.Lineage, lineage...)
	}
}

func (m *PopulationMonitor) genomeID() string {
	m.nextID++
	return fmt.Sprintf("g%06d", m.nextID)
}

func (m *PopulationMonitor) randomPopulation(generation int) ([]*cgp.Genome, []LineageRecord, error) {
	population := make([]*cgp.Genome, m.cfg.Population)
	lineage := make([]LineageRecord, 0, m.cfg.Population)
	for i := range population {
		g, err := cgp.NewGenome(m.rng, m.cfg.Params)
		if err != nil {
			return nil, nil, fmt.Errorf("seed genome: %w", err)
		}
		g.ID = m.genomeID()
		g.Generation = generation
		population[i] = g
		lineage = append(lineage, LineageRecord{GenomeID: g.ID, Generation: generation, Operation: "seed"})
	}
	return population, lineage, nil
}

// evaluatePopulation runs every genome once, in parallel up to Workers, and
// returns only after all runs have finished.
func (m *PopulationMonitor) evaluatePopulation(ctx context.Context, population []*cgp.Genome) ([]ScoredGenome, error) {
	scored := make([]ScoredGenome, len(population))
	for i, genome := range population {
		controller, err := cgp.NewController(genome)
		if err != nil {
			return nil, fmt.Errorf("controller for %s: %w", genome.ID, err)
		}
		scored[i] = ScoredGenome{Genome: genome, Controller: controller}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(m.cfg.Workers)
	for i := range scored {
		i := i
		group.Go(func() error {
			outcome, err := m.runOnce(groupCtx, scored[i].Controller)
			if err != nil {
				return fmt.Errorf("evaluate %s: %w", scored[i].Genome.ID, err)
			}
			scored[i].Outcome = outcome
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

func (m *PopulationMonitor) runOnce(ctx context.Context, controller *cgp.Controller) (scape.Outcome, error) {
	outcomes, err := m.cfg.Simulator.Run(ctx, m.cfg.Scenario, []*cgp.Controller{controller})
	if err != nil {
		return scape.Outcome{}, err
	}
	if len(outcomes) != 1 {
		return scape.Outcome{}, fmt.Errorf("simulator returned %d outcomes for one controller", len(outcomes))
	}
	return outcomes[0], nil
}

func (m *PopulationMonitor) score(phase Phase, scored []ScoredGenome) error {
	for i := range scored {
		scored[i].Genome.Fitness = float64(scored[i].Outcome.Food)
	}
	if phase != PhaseNovelty {
		for i := range scored {
			scored[i].Score = scored[i].Genome.Fitness
		}
		return nil
	}

	descriptors := make([]novelty.Descriptor, len(scored))
	for i, item := range scored {
		descriptors[i] = item.Outcome.Descriptor
	}
	scores, err := m.archive.Score(m.rng, descriptors)
	if err != nil {
		return fmt.Errorf("novelty scoring: %w", err)
	}
	for i := range scored {
		scored[i].Genome.Novelty = scores[i]
		scored[i].Score = scores[i]
	}
	return nil
}

// qualify re-runs every individual that reached the food threshold and admits
// a deep copy of those that pass again, while the pool has room.
func (m *PopulationMonitor) qualify(ctx context.Context, phase Phase, scored []ScoredGenome, pool []*cgp.Genome, capacity int) ([]*cgp.Genome, error) {
	for _, item := range scored {
		if item.Outcome.Food < m.cfg.FoodThreshold || len(pool) >= capacity {
			continue
		}
		item.Controller.Reset()
		retest, err := m.runOnce(ctx, item.Controller)
		if err != nil {
			return pool, fmt.Errorf("retest %s: %w", item.Genome.ID, err)
		}
		if retest.Food < m.cfg.FoodThreshold {
			m.log.Debug("qualification rejected",
				zap.String("genome", item.Genome.ID),
				zap.Int("first_food", item.Outcome.Food),
				zap.Int("retest_food", retest.Food),
			)
			continue
		}
		admitted := item.Genome.Clone()
		admitted.Regime = phase.regime()
		pool = append(pool, admitted)
		m.log.Info("controller qualified",
			zap.String("genome", admitted.ID),
			zap.String("regime", string(admitted.Regime)),
			zap.Int("food", item.Outcome.Food),
			zap.Int("retest_food", retest.Food),
			zap.Int("pool", len(pool)),
		)
	}
	return pool, nil
}

// parentPool ranks the generation by phase score and returns the eligible
// parents with the mutation rate to breed them at. A generation where nobody
// ate or drank more than once is stagnant: every member becomes eligible and
// the stagnation rate applies.
func (m *PopulationMonitor) parentPool(scored []ScoredGenome) ([]ScoredGenome, float64, bool) {
	competent := false
	for _, item := range scored {
		if item.Outcome.Food > 1 || item.Outcome.Poison > 1 {
			competent = true
			break
		}
	}
	if !competent {
		return scored, m.cfg.StagnationRate, true
	}

	ranked := make([]ScoredGenome, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	n := m.cfg.Parents
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n], m.cfg.MutationRate, false
}

// nextGeneration breeds Offspring mutated children. A stagnant pool is
// sampled uniformly; otherwise the configured Selector picks each parent.
func (m *PopulationMonitor) nextGeneration(parents []ScoredGenome, rate float64, stagnant bool, generation int) ([]*cgp.Genome, []LineageRecord, error) {
	if len(parents) == 0 {
		return nil, nil, fmt.Errorf("no parents to breed from")
	}
	next := make([]*cgp.Genome, 0, m.cfg.Offspring)
	lineage := make([]LineageRecord, 0, m.cfg.Offspring)
	for len(next) < m.cfg.Offspring {
		var parent ScoredGenome
		if stagnant {
			parent = parents[m.rng.Intn(len(parents))]
		} else {
			var err error
			if parent, err = m.cfg.Selector.PickParent(m.rng, parents, len(parents)); err != nil {
				return nil, nil, fmt.Errorf("select parent: %w", err)
			}
		}
		child := parent.Genome.Mutate(m.rng, rate)
		child.ID = m.genomeID()
		child.ParentID = parent.Genome.ID
		child.Generation = generation
		child.Regime = cgp.RegimeUnset
		next = append(next, child)
		lineage = append(lineage, LineageRecord{
			GenomeID:   child.ID,
			ParentID:   parent.Genome.ID,
			Generation: generation,
			Operation:  "mutate",
		})
	}
	return next, lineage, nil
}

func summarizeGeneration(scored []ScoredGenome, generation int, phase Phase) GenerationDiagnostics {
	diag := GenerationDiagnostics{Generation: generation, Phase: phase}
	if len(scored) == 0 {
		return diag
	}

	diag.BestScore = scored[0].Score
	var totalScore, totalFood, totalPoison, totalActive float64
	for _, item := range scored {
		if item.Score > diag.BestScore {
			diag.BestScore = item.Score
		}
		if item.Outcome.Food > diag.BestFood {
			diag.BestFood = item.Outcome.Food
		}
		totalScore += item.Score
		totalFood += float64(item.Outcome.Food)
		totalPoison += float64(item.Outcome.Poison)
		totalActive += float64(item.Genome.ActiveCount())
	}
	n := float64(len(scored))
	diag.MeanScore = totalScore / n
	diag.MeanFood = totalFood / n
	diag.MeanPoison = totalPoison / n
	diag.MeanActiveNodes = totalActive / n
	return diag
}
