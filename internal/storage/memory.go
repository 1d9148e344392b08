package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"cgpforage/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunSummary
	diagnostics map[string][]model.GenerationDiagnostics
	qualified   map[string][]model.QualifiedController
	events      map[string][]model.EventResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunSummary)
	s.diagnostics = make(map[string][]model.GenerationDiagnostics)
	s.qualified = make(map[string][]model.QualifiedController)
	s.events = make(map[string][]model.EventResult)
	return nil
}

func (s *MemoryStore) checkInit() error {
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInit(); err != nil {
		return err
	}

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return model.RunSummary{}, false, err
	}

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return nil, err
	}

	runs := make([]model.RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}

func (s *MemoryStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInit(); err != nil {
		return err
	}

	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	s.diagnostics[runID] = copied
	return nil
}

func (s *MemoryStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return nil, false, err
	}

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	return copied, true, nil
}

func (s *MemoryStore) SaveQualified(_ context.Context, runID string, qualified []model.QualifiedController) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInit(); err != nil {
		return err
	}

	s.qualified[runID] = copyQualified(qualified)
	return nil
}

func (s *MemoryStore) GetQualified(_ context.Context, runID string) ([]model.QualifiedController, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return nil, false, err
	}

	qualified, ok := s.qualified[runID]
	if !ok {
		return nil, false, nil
	}
	return copyQualified(qualified), true, nil
}

func (s *MemoryStore) SaveEventResults(_ context.Context, runID string, results []model.EventResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInit(); err != nil {
		return err
	}

	copied := make([]model.EventResult, len(results))
	copy(copied, results)
	s.events[runID] = copied
	return nil
}

func (s *MemoryStore) GetEventResults(_ context.Context, runID string) ([]model.EventResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return nil, false, err
	}

	results, ok := s.events[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.EventResult, len(results))
	copy(copied, results)
	return copied, true, nil
}

func copyQualified(in []model.QualifiedController) []model.QualifiedController {
	out := make([]model.QualifiedController, len(in))
	for i, record := range in {
		record.Scores = append([]model.ScenarioScore(nil), record.Scores...)
		out[i] = record
	}
	return out
}
