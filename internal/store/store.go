// Package store persists analysis runs behind a driver-agnostic interface.
// SQLite serves single-user CLI installs; Postgres serves the shared server
// deployment. Both drivers store the recording and result envelope as JSON
// so schema churn in the analysis model never requires a migration.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/newsystem-ai/recording-insights/internal/config"
	"github.com/newsystem-ai/recording-insights/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis runs.
type Store interface {
	CreateRun(ctx context.Context, rec model.Recording, analysisType string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	RecordStep(ctx context.Context, runID string, step model.StepRecord) error
	SetRunResult(ctx context.Context, runID string, result *model.AnalysisEnvelope) error
	FailRun(ctx context.Context, runID, failedStep, message string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver. Postgres is selected by
// driver name or by a postgres:// connection string.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch {
	case cfg.Driver == "postgres" || strings.HasPrefix(cfg.DatabaseURL, "postgres://"):
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	case cfg.Driver == "sqlite" || cfg.Driver == "":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
