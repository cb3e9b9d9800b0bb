package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/newsystem-ai/recording-insights/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "insights.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	recording     TEXT NOT NULL,
	analysis_type TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	result        TEXT,
	failed_step   TEXT,
	error         TEXT,
	started_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_steps (
	id                  TEXT PRIMARY KEY,
	run_id              TEXT NOT NULL REFERENCES runs(id),
	step                TEXT NOT NULL,
	completed_at        DATETIME NOT NULL,
	frame_count         INTEGER NOT NULL DEFAULT 0,
	tokens_used         INTEGER NOT NULL DEFAULT 0,
	workflows_found     INTEGER NOT NULL DEFAULT 0,
	opportunities_found INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_steps_run_id ON run_steps(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, rec model.Recording, analysisType string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal recording")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, recording, analysis_type, status, started_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(recJSON), analysisType, string(model.RunStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:           id,
		Recording:    rec,
		AnalysisType: analysisType,
		Status:       model.RunStatusPending,
		StartedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) RecordStep(ctx context.Context, runID string, step model.StepRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_steps (id, run_id, step, completed_at, frame_count, tokens_used, workflows_found, opportunities_found)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), runID, step.Step, step.CompletedAt,
		step.FrameCount, step.TokensUsed, step.WorkflowsFound, step.OpportunitiesFound,
	)
	return eris.Wrapf(err, "sqlite: record step %s for run %s", step.Step, runID)
}

func (s *SQLiteStore) SetRunResult(ctx context.Context, runID string, result *model.AnalysisEnvelope) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(model.RunStatusCompleted), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID, failedStep, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, failed_step = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), failedStep, message, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, recording, analysis_type, status, result, failed_step, error, started_at, updated_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	steps, err := s.loadSteps(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Steps = steps
	return run, nil
}

func (s *SQLiteStore) loadSteps(ctx context.Context, runID string) ([]model.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step, completed_at, frame_count, tokens_used, workflows_found, opportunities_found
		 FROM run_steps WHERE run_id = ? ORDER BY completed_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load steps for run %s", runID)
	}
	defer rows.Close()

	var steps []model.StepRecord
	for rows.Next() {
		var st model.StepRecord
		if err := rows.Scan(&st.Step, &st.CompletedAt, &st.FrameCount, &st.TokensUsed, &st.WorkflowsFound, &st.OpportunitiesFound); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan step")
		}
		steps = append(steps, st)
	}
	return steps, eris.Wrap(rows.Err(), "sqlite: iterate steps")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, recording, analysis_type, status, result, failed_step, error, started_at, updated_at
	 FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var recJSON string
	var resultJSON, failedStep, errMsg sql.NullString

	err := row.Scan(&r.ID, &recJSON, &r.AnalysisType, &r.Status, &resultJSON, &failedStep, &errMsg, &r.StartedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(recJSON), &r.Recording); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal recording")
	}
	if resultJSON.Valid {
		r.Result = &model.AnalysisEnvelope{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	r.FailedStep = failedStep.String
	r.Error = errMsg.String
	return &r, nil
}
