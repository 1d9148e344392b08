// Package forager is the public entry point: it evolves a qualified
// controller pool, runs it through the olympic battery, persists the run and
// appends the text report.
package forager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cgpforage/internal/cgp"
	"cgpforage/internal/config"
	"cgpforage/internal/evo"
	"cgpforage/internal/model"
	"cgpforage/internal/olympics"
	"cgpforage/internal/scape"
	"cgpforage/internal/storage"
)

const defaultDBPath = "forager.db"

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *zap.Logger
	// Simulator replaces the built-in arena simulator when set.
	Simulator scape.Simulator
}

type Client struct {
	store storage.Store
	sim   scape.Simulator
	log   *zap.Logger
	now   func() time.Time
}

type RunRequest struct {
	Config config.Config
	// ReportPath overrides Config.ReportPath; both empty skips the report.
	ReportPath string
}

type RunSummary struct {
	RunID             string
	Status            model.RunStatus
	Generations       int
	FitnessPhaseStart int
	ArchiveSize       int
	Qualified         []model.QualifiedController
	Events            []model.EventResult
	Report            string
	ReportPath        string
}

// RunDetail is everything persisted for one run.
type RunDetail struct {
	Summary     model.RunSummary
	Diagnostics []model.GenerationDiagnostics
	Qualified   []model.QualifiedController
	Events      []model.EventResult
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sim := opts.Simulator
	if sim == nil {
		sim = scape.NewForageSimulator()
	}
	return &Client{store: store, sim: sim, log: logger, now: time.Now}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// RunExperiment evolves, competes, persists and reports one run. Hitting the
// configured generation cap is not an error: the partial pool still competes
// and the run is stored with RunGenerationLimit.
func (c *Client) RunExperiment(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}
	selector, err := evo.SelectorByName(cfg.Evolution.Selection)
	if err != nil {
		return RunSummary{}, err
	}
	cfgYAML, err := cfg.YAML()
	if err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	log := c.log.With(zap.String("run_id", runID))
	started := c.now().UTC()

	monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
		Simulator:         c.sim,
		Scenario:          cfg.TrainingScenario(),
		Params:            cfg.GenomeParams(),
		Selector:          selector,
		Novelty:           cfg.Novelty,
		MutationRate:      cfg.Evolution.MutationRate,
		StagnationRate:    cfg.Evolution.StagnationRate,
		Parents:           cfg.Evolution.Parents,
		Offspring:         cfg.Evolution.Offspring,
		Population:        cfg.Evolution.Population,
		NoveltyQualifiers: cfg.Evolution.NoveltyQualifiers,
		FitnessQualifiers: cfg.Evolution.FitnessQualifiers,
		FoodThreshold:     cfg.Evolution.FoodThreshold,
		MaxGenerations:    cfg.Evolution.MaxGenerations,
		Workers:           cfg.Workers,
		Seed:              cfg.Seed,
		Logger:            log,
	})
	if err != nil {
		return RunSummary{}, fmt.Errorf("build monitor: %w", err)
	}

	status := model.RunComplete
	result, err := monitor.Run(ctx)
	switch {
	case errors.Is(err, evo.ErrGenerationLimit):
		status = model.RunGenerationLimit
		log.Warn("evolution stopped early", zap.Error(err))
	case err != nil:
		return RunSummary{}, fmt.Errorf("evolve: %w", err)
	}

	battery, err := olympics.NewBattery(c.sim, olympics.StandardEvents(cfg.EvaluationScenario()), log)
	if err != nil {
		return RunSummary{}, err
	}
	var events []model.EventResult
	if len(result.Qualified) > 0 {
		events, err = battery.Run(ctx, result.Qualified)
		if err != nil {
			return RunSummary{}, fmt.Errorf("olympics: %w", err)
		}
	} else {
		log.Warn("no qualified controllers, skipping olympics")
	}

	report := olympics.Report{
		RunID:      runID,
		Population: cfg.Evolution.Parents + cfg.Evolution.Offspring,
		Events:     battery.Events(),
		Results:    events,
		Genomes:    result.Qualified,
	}
	reportPath := req.ReportPath
	if reportPath == "" {
		reportPath = cfg.ReportPath
	}
	if reportPath != "" {
		if err := report.Append(reportPath); err != nil {
			return RunSummary{}, err
		}
	}

	qualified := qualifiedRecords(result.Qualified)
	summary := model.RunSummary{
		VersionedRecord:   model.CurrentVersion(),
		ID:                runID,
		Status:            status,
		Seed:              cfg.Seed,
		StartedAt:         started,
		FinishedAt:        c.now().UTC(),
		Generations:       result.Generations,
		FitnessPhaseStart: result.FitnessPhaseStart,
		ArchiveSize:       result.Archive.Len(),
		ReportPath:        reportPath,
		Config:            cfgYAML,
	}
	for _, q := range qualified {
		switch cgp.Regime(q.Regime) {
		case cgp.RegimeNovelty:
			summary.NoveltyQualified++
		case cgp.RegimeFitness:
			summary.FitnessQualified++
		case cgp.RegimeUnset:
		}
	}

	if err := c.store.SaveRun(ctx, summary); err != nil {
		return RunSummary{}, fmt.Errorf("save run: %w", err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, diagnosticsRecords(result.GenerationDiagnostics)); err != nil {
		return RunSummary{}, fmt.Errorf("save diagnostics: %w", err)
	}
	if err := c.store.SaveQualified(ctx, runID, qualified); err != nil {
		return RunSummary{}, fmt.Errorf("save qualified: %w", err)
	}
	if err := c.store.SaveEventResults(ctx, runID, events); err != nil {
		return RunSummary{}, fmt.Errorf("save event results: %w", err)
	}
	log.Info("run stored",
		zap.String("status", string(status)),
		zap.Int("generations", result.Generations),
		zap.Int("qualified", len(qualified)),
	)

	return RunSummary{
		RunID:             runID,
		Status:            status,
		Generations:       result.Generations,
		FitnessPhaseStart: result.FitnessPhaseStart,
		ArchiveSize:       summary.ArchiveSize,
		Qualified:         qualified,
		Events:            events,
		Report:            report.Render(),
		ReportPath:        reportPath,
	}, nil
}

// Runs lists stored runs, newest first, capped at limit when limit > 0.
func (c *Client) Runs(ctx context.Context, limit int) ([]model.RunSummary, error) {
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (c *Client) Run(ctx context.Context, runID string) (RunDetail, error) {
	summary, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if !ok {
		return RunDetail{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	detail := RunDetail{Summary: summary}
	if detail.Diagnostics, _, err = c.store.GetGenerationDiagnostics(ctx, runID); err != nil {
		return RunDetail{}, err
	}
	if detail.Qualified, _, err = c.store.GetQualified(ctx, runID); err != nil {
		return RunDetail{}, err
	}
	if detail.Events, _, err = c.store.GetEventResults(ctx, runID); err != nil {
		return RunDetail{}, err
	}
	return detail, nil
}

func qualifiedRecords(genomes []*cgp.Genome) []model.QualifiedController {
	out := make([]model.QualifiedController, 0, len(genomes))
	for _, g := range genomes {
		scores := make([]model.ScenarioScore, len(g.Scores))
		for i, s := range g.Scores {
			scores[i] = model.ScenarioScore{Scenario: s.Scenario, Food: s.Food}
		}
		out = append(out, model.QualifiedController{
			VersionedRecord: model.CurrentVersion(),
			GenomeID:        g.ID,
			ParentID:        g.ParentID,
			Generation:      g.Generation,
			Regime:          string(g.Regime),
			ActiveNodes:     g.ActiveCount(),
			Fitness:         g.Fitness,
			Novelty:         g.Novelty,
			Scores:          scores,
		})
	}
	return out
}

func diagnosticsRecords(in []evo.GenerationDiagnostics) []model.GenerationDiagnostics {
	out := make([]model.GenerationDiagnostics, len(in))
	for i, d := range in {
		out[i] = model.GenerationDiagnostics{
			Generation:      d.Generation,
			Phase:           string(d.Phase),
			BestScore:       d.BestScore,
			MeanScore:       d.MeanScore,
			BestFood:        d.BestFood,
			MeanFood:        d.MeanFood,
			MeanPoison:      d.MeanPoison,
			MeanActiveNodes: d.MeanActiveNodes,
			ArchiveSize:     d.ArchiveSize,
			Qualified:       d.Qualified,
			MutationRate:    d.MutationRate,
			Stagnant:        d.Stagnant,
		}
	}
	return out
}
