package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/newsystem-ai/recording-insights/internal/model"
)

// Pool abstracts the pgx connection pool so the store can run against a
// pgxmock pool in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, recording, analysis_type, status, started_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_run_status": `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"set_run_result":    `UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"fail_run":          `UPDATE runs SET status = $1, failed_step = $2, error = $3, updated_at = $4 WHERE id = $5`,
	"get_run":           `SELECT id, recording, analysis_type, status, result, failed_step, error, started_at, updated_at FROM runs WHERE id = $1`,
	"insert_step":       `INSERT INTO run_steps (id, run_id, step, completed_at, frame_count, tokens_used, workflows_found, opportunities_found) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	recording     JSONB NOT NULL,
	analysis_type TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	result        JSONB,
	failed_step   TEXT,
	error         TEXT,
	started_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_steps (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id              TEXT NOT NULL REFERENCES runs(id),
	step                TEXT NOT NULL,
	completed_at        TIMESTAMPTZ NOT NULL,
	frame_count         INTEGER NOT NULL DEFAULT 0,
	tokens_used         BIGINT NOT NULL DEFAULT 0,
	workflows_found     INTEGER NOT NULL DEFAULT 0,
	opportunities_found INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_steps_run_id ON run_steps(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, rec model.Recording, analysisType string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal recording")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, recording, analysis_type, status, started_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, recJSON, analysisType, string(model.RunStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	return checkTagAffected(tag, "run", runID)
}

func (s *PostgresStore) RecordStep(ctx context.Context, runID string, step model.StepRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_steps (id, run_id, step, completed_at, frame_count, tokens_used, workflows_found, opportunities_found)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(), runID, step.Step, step.CompletedAt,
		step.FrameCount, step.TokensUsed, step.WorkflowsFound, step.OpportunitiesFound,
	)
	return eris.Wrapf(err, "postgres: record step %s for run %s", step.Step, runID)
}

func (s *PostgresStore) SetRunResult(ctx context.Context, runID string, result *model.AnalysisEnvelope) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(model.RunStatusCompleted), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set run result %s", runID)
	}
	return checkTagAffected(tag, "run", runID)
}

func (s *PostgresStore) FailRun(ctx context.Context, runID, failedStep, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, failed_step = $2, error = $3, updated_at = $4 WHERE id = $5`,
		string(model.RunStatusFailed), failedStep, message, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	return checkTagAffected(tag, "run", runID)
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, recording, analysis_type, status, result, failed_step, error, started_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	run, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT step, completed_at, frame_count, tokens_used, workflows_found, opportunities_found
		 FROM run_steps WHERE run_id = $1 ORDER BY completed_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load steps for run %s", runID)
	}
	defer rows.Close()

	for rows.Next() {
		var st model.StepRecord
		if err := rows.Scan(&st.Step, &st.CompletedAt, &st.FrameCount, &st.TokensUsed, &st.WorkflowsFound, &st.OpportunitiesFound); err != nil {
			return nil, eris.Wrap(err, "postgres: scan step")
		}
		run.Steps = append(run.Steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate steps")
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, recording, analysis_type, status, result, failed_step, error, started_at, updated_at FROM runs`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` WHERE status = $1`
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row scannable) (*model.Run, error) {
	var r model.Run
	var recJSON []byte
	var resultJSON []byte
	var failedStep, errMsg *string

	err := row.Scan(&r.ID, &recJSON, &r.AnalysisType, &r.Status, &resultJSON, &failedStep, &errMsg, &r.StartedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(recJSON, &r.Recording); err != nil {
		return nil, eris.Wrap(err, "unmarshal recording")
	}
	if len(resultJSON) > 0 {
		r.Result = &model.AnalysisEnvelope{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal result")
		}
	}
	if failedStep != nil {
		r.FailedStep = *failedStep
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}

func checkTagAffected(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
