package storage

import (
	"context"

	"cgpforage/internal/model"
)

// Store defines persistence operations for experiment run records.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunSummary) error
	GetRun(ctx context.Context, id string) (model.RunSummary, bool, error)
	// ListRuns returns every run, oldest first.
	ListRuns(ctx context.Context) ([]model.RunSummary, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveQualified(ctx context.Context, runID string, qualified []model.QualifiedController) error
	GetQualified(ctx context.Context, runID string) ([]model.QualifiedController, bool, error)
	SaveEventResults(ctx context.Context, runID string, results []model.EventResult) error
	GetEventResults(ctx context.Context, runID string) ([]model.EventResult, bool, error)
}
