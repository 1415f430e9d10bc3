// Package postgres persists simulation run history. The pricing core
// itself never touches storage; this store records what the tooling ran
// and what it produced, so batch regressions can be audited later.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// ErrRunNotFound is returned when a run id has no stored row.
var ErrRunNotFound = errors.New("simulation run not found")

// Run is one recorded scenario execution.
type Run struct {
	ID        uuid.UUID       `json:"id"`
	Scenario  string          `json:"scenario"`
	Seed      string          `json:"seed,omitempty"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Store persists simulation runs in Postgres.
type Store struct {
	db *sql.DB
}

// NewStore opens a connection pool against the given DSN and verifies
// connectivity.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the run history table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS simulation_runs (
			id UUID PRIMARY KEY,
			scenario TEXT NOT NULL,
			seed TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			result JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create simulation_runs: %w", err)
	}
	return nil
}

// SaveRun inserts a run record.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO simulation_runs (id, scenario, seed, status, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Scenario, run.Seed, run.Status, []byte(run.Result), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert simulation run: %w", err)
	}
	return nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, seed, status, result, created_at
		FROM simulation_runs
		WHERE id = $1`, id)

	var run Run
	var result []byte
	if err := row.Scan(&run.ID, &run.Scenario, &run.Seed, &run.Status, &result, &run.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("select simulation run: %w", err)
	}
	run.Result = json.RawMessage(result)
	return &run, nil
}

// ListRuns returns the most recent runs, newest first, optionally
// filtered by scenario name.
func (s *Store) ListRuns(ctx context.Context, scenarioName string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, scenario, seed, status, result, created_at
		FROM simulation_runs`
	args := []interface{}{}
	if scenarioName != "" {
		query += ` WHERE scenario = $1`
		args = append(args, scenarioName)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list simulation runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		var result []byte
		if err := rows.Scan(&run.ID, &run.Scenario, &run.Seed, &run.Status, &result, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan simulation run: %w", err)
		}
		run.Result = json.RawMessage(result)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
