// Package store persists cleaning runs and per-row outcomes for evaluation
// tooling.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/mobilitylabs/ridewash/internal/config"
	"github.com/mobilitylabs/ridewash/internal/model"
)

// Store defines the persistence interface for cleaning runs.
type Store interface {
	CreateRun(ctx context.Context, variant, modelName, source string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error
	SaveOutcomes(ctx context.Context, runID string, outcomes []model.RowOutcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListOutcomes(ctx context.Context, runID string) ([]model.RowOutcome, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store from configuration. Driver "none" returns a no-op
// store so the pipeline can run without persistence.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "none", "":
		return NoopStore{}, nil
	}
	return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
}

// NoopStore discards everything written to it.
type NoopStore struct{}

func (NoopStore) CreateRun(_ context.Context, variant, modelName, source string) (*model.Run, error) {
	return &model.Run{Variant: variant, Model: modelName, Source: source, Status: model.RunStatusRunning}, nil
}

func (NoopStore) CompleteRun(context.Context, string, model.RunStatus, *model.RunSummary) error {
	return nil
}

func (NoopStore) SaveOutcomes(context.Context, string, []model.RowOutcome) error { return nil }

func (NoopStore) GetRun(context.Context, string) (*model.Run, error) {
	return nil, eris.New("store: noop store holds no runs")
}

func (NoopStore) ListOutcomes(context.Context, string) ([]model.RowOutcome, error) {
	return nil, nil
}

func (NoopStore) Migrate(context.Context) error { return nil }

func (NoopStore) Close() error { return nil }
