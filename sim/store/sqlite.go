// Package store persists simulation runs and their step records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bizsim/bizsim/sim"
	"github.com/bizsim/bizsim/sim/export"
)

// Run kinds.
const (
	KindRun   = "run"
	KindSweep = "sweep"
)

// timeLayout is fixed-width so created_at sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Run is a stored simulation run. Records is empty in ListRuns output.
type Run struct {
	ID        string       `json:"id"`
	Kind      string       `json:"kind"`
	Scenario  string       `json:"scenario"`
	Period    int          `json:"period"`
	CreatedAt time.Time    `json:"created_at"`
	Records   []export.Row `json:"records,omitempty"`
}

// Store is a SQLite-backed run store. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, dbPath: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveResults stores one run's results under a new run id and returns it.
// Records are written with business models in name order.
func (s *Store) SaveResults(ctx context.Context, kind, scenario string, period int, comboKey string, results sim.Results) (string, error) {
	return s.save(ctx, kind, scenario, period, export.ResultRows(comboKey, results))
}

// SaveSweep stores every sweep point under a single run of kind "sweep".
func (s *Store) SaveSweep(ctx context.Context, scenario string, period int, sweep *sim.SweepResults) (string, error) {
	return s.save(ctx, KindSweep, scenario, period, export.Rows(sweep))
}

func (s *Store) save(ctx context.Context, kind, scenario string, period int, rows []export.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	now := time.Now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, kind, scenario, period, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, kind, scenario, period, now,
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO step_records (run_id, combo_key, business_model, step, costs, revenues) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, id, r.ComboKey, r.BusinessModel, r.Step, r.Costs, r.Revenues); err != nil {
			return "", fmt.Errorf("failed to insert step record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// GetRun loads a run with its step records in insertion order.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT id, kind, scenario, period, created_at FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT combo_key, business_model, step, costs, revenues FROM step_records WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query step records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r export.Row
		if err := rows.Scan(&r.ComboKey, &r.BusinessModel, &r.Step, &r.Costs, &r.Revenues); err != nil {
			return nil, fmt.Errorf("failed to scan step record: %w", err)
		}
		run.Records = append(run.Records, r)
	}
	return run, rows.Err()
}

// ListRuns returns all runs, newest first, without their records.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, scenario, period, created_at FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*Run, error) {
	var (
		run       Run
		createdAt string
	)
	if err := sc.Scan(&run.ID, &run.Kind, &run.Scenario, &run.Period, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for run %s: %w", run.ID, err)
	}
	run.CreatedAt = t
	return &run, nil
}
