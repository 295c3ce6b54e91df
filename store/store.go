// Package store keeps a ledger of benchmark runs in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chaos-io/eraser-bench/benchmark"
)

// Store manages the PostgreSQL connection.
type Store struct {
	conn *pgx.Conn
}

// RunRecord is one row of eraser_runs.
type RunRecord struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	BenchmarkFolder string
	OutputFolder    string
	Succeeded       int
	Partial         int
	Failed          int
	SkippedGroups   int
}

// New connects to dsn and ensures the schema exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS eraser_runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			benchmark_folder TEXT NOT NULL,
			output_folder TEXT NOT NULL,
			succeeded INT NOT NULL,
			partial INT NOT NULL,
			failed INT NOT NULL,
			skipped_groups INT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS eraser_pair_results (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES eraser_runs(id) ON DELETE CASCADE,
			group_name TEXT NOT NULL,
			mask TEXT NOT NULL,
			result_path TEXT NOT NULL DEFAULT '',
			demo_path TEXT NOT NULL DEFAULT '',
			stage TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS eraser_pair_results_run_id_idx ON eraser_pair_results (run_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// RecordRun implements benchmark.Recorder.
func (s *Store) RecordRun(ctx context.Context, summary *benchmark.Summary) error {
	return s.SaveSummary(ctx, summary)
}

// SaveSummary writes the run and its pair results in one transaction. Saving
// a run ID again replaces the earlier rows.
func (s *Store) SaveSummary(ctx context.Context, summary *benchmark.Summary) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM eraser_runs WHERE id = $1", summary.RunID); err != nil {
		return fmt.Errorf("delete previous run: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO eraser_runs (id, started_at, finished_at, benchmark_folder, output_folder, succeeded, partial, failed, skipped_groups)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, summary.RunID, summary.StartedAt, summary.FinishedAt, summary.BenchmarkFolder, summary.OutputFolder,
		summary.Succeeded(), summary.Partial(), summary.Failed(), len(summary.Skipped))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	rows := make([][]any, 0, len(summary.Results))
	for _, r := range summary.Results {
		rows = append(rows, []any{
			summary.RunID, r.Group, r.Mask, r.ResultPath, r.DemoPath, string(r.Stage), r.Error, r.Duration.Milliseconds(),
		})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"eraser_pair_results"},
		[]string{"run_id", "group_name", "mask", "result_path", "demo_path", "stage", "error", "duration_ms"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert pair results: %w", err)
	}

	return tx.Commit(ctx)
}

// ListRuns returns at most limit runs, newest first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, benchmark_folder, output_folder, succeeded, partial, failed, skipped_groups
		FROM eraser_runs
		ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunRecord, error) {
		var r RunRecord
		err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.BenchmarkFolder, &r.OutputFolder,
			&r.Succeeded, &r.Partial, &r.Failed, &r.SkippedGroups)
		return r, err
	})
}

// PairResults returns the stored pair results of a run in insertion order.
func (s *Store) PairResults(ctx context.Context, runID string) ([]benchmark.PairResult, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT group_name, mask, result_path, demo_path, stage, error, duration_ms
		FROM eraser_pair_results
		WHERE run_id = $1
		ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (benchmark.PairResult, error) {
		var (
			r     benchmark.PairResult
			stage string
			ms    int64
		)
		err := row.Scan(&r.Group, &r.Mask, &r.ResultPath, &r.DemoPath, &stage, &r.Error, &ms)
		r.Stage = benchmark.Stage(stage)
		r.Duration = time.Duration(ms) * time.Millisecond
		return r, err
	})
}
