// SPDX-License-Identifier: MPL-2.0

// Package history keeps a local ledger of orchestration runs.
//
// Every completed run is written to a small SQLite database: one row per
// run and one row per executed stage. Recording is best-effort by
// contract; callers log ledger errors as warnings and never let them
// change the run's outcome or exit code.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"deployctl/internal/pipeline"

	_ "modernc.org/sqlite"
)

// DefaultListLimit is how many runs ListRecent returns when the caller
// does not ask for a specific count.
const DefaultListLimit = 10

type (
	// Run is one recorded orchestration run.
	Run struct {
		ID         string
		StartedAt  time.Time
		FinishedAt time.Time
		// Flags is the comma-separated flag snapshot from
		// config.Invocation.Summary.
		Flags string
		// Status is the run's overall outcome: failed when the run exited
		// non-zero, warned when any stage was downgraded to a warning,
		// ok otherwise.
		Status   pipeline.Status
		ExitCode int
		Stages   []StageRecord
	}

	// StageRecord is one executed stage or cleanup within a run.
	StageRecord struct {
		Seq      int
		Name     string
		Status   pipeline.Status
		Duration time.Duration
		// Detail carries the error text for warned and failed stages.
		Detail string
	}

	// Store reads and writes the run ledger.
	Store struct {
		db *sql.DB
	}
)

// FromSummary converts a finished pipeline fold into a run record with a
// fresh ID. Skipped stages are dropped: the ledger keeps one row per
// stage that actually ran, in execution order.
func FromSummary(flags string, startedAt, finishedAt time.Time, sum pipeline.Summary) Run {
	run := Run{
		ID:         uuid.New().String(),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Flags:      flags,
		Status:     pipeline.StatusOK,
		ExitCode:   sum.ExitCode,
	}

	seq := 0
	for _, res := range sum.Results {
		if res.Outcome.Status == pipeline.StatusSkipped {
			continue
		}
		rec := StageRecord{
			Seq:      seq,
			Name:     res.Name,
			Status:   res.Outcome.Status,
			Duration: res.Duration,
		}
		if res.Outcome.Err != nil {
			rec.Detail = res.Outcome.Err.Error()
		}
		run.Stages = append(run.Stages, rec)
		seq++

		if rec.Status == pipeline.StatusWarned && run.Status == pipeline.StatusOK {
			run.Status = pipeline.StatusWarned
		}
	}
	if sum.ExitCode != 0 {
		run.Status = pipeline.StatusFailed
	}
	return run
}

// Open opens or creates the ledger database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			flags TEXT NOT NULL,
			status TEXT NOT NULL,
			exit_code INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS stages (
			run_id TEXT NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			detail TEXT,
			PRIMARY KEY (run_id, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record inserts a run and its stage rows in one transaction.
func (s *Store) Record(run Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, finished_at, flags, status, exit_code)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, run.FinishedAt, run.Flags, string(run.Status), run.ExitCode)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, st := range run.Stages {
		_, err = tx.Exec(`
			INSERT INTO stages (run_id, seq, name, status, duration_ms, detail)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, st.Seq, st.Name, string(st.Status), st.Duration.Milliseconds(), st.Detail)
		if err != nil {
			return fmt.Errorf("insert stage %q: %w", st.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}
	return nil
}

// ListRecent returns up to limit runs, newest first, each with its stage
// rows in execution order. A non-positive limit means DefaultListLimit.
func (s *Store) ListRecent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, flags, status, exit_code
		FROM runs ORDER BY started_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Flags, &run.Status, &run.ExitCode); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		stages, err := s.listStages(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Stages = stages
	}
	return runs, nil
}

func (s *Store) listStages(runID string) ([]StageRecord, error) {
	rows, err := s.db.Query(`
		SELECT seq, name, status, duration_ms, detail
		FROM stages WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	var stages []StageRecord
	for rows.Next() {
		var (
			rec    StageRecord
			ms     int64
			detail sql.NullString
		)
		if err := rows.Scan(&rec.Seq, &rec.Name, &rec.Status, &ms, &detail); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		if detail.Valid {
			rec.Detail = detail.String
		}
		stages = append(stages, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return stages, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
