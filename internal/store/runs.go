package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run is one simulation run. Ensemble members share a name and differ by World.
type Run struct {
	ID         string
	Name       string
	Seed       uint64
	World      int
	Config     string // YAML snapshot
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Steps      int
	Reason     string
}

// Finished reports whether the run has been closed.
func (r Run) Finished() bool { return !r.FinishedAt.IsZero() }

// CreateRun inserts a run, assigning an ID and start time when they are unset.
func (s *Store) CreateRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, seed, world, config, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, int64(run.Seed), run.World, run.Config, run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to create run: %w", err)
	}
	s.log.Debug("run created", zap.String("run", run.ID), zap.Uint64("seed", run.Seed), zap.Int("world", run.World))
	return run, nil
}

// FinishRun closes a run with its final step count and stop reason.
func (s *Store) FinishRun(ctx context.Context, id string, steps int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, steps = ?, reason = ? WHERE id = ?`,
		time.Now().UnixMilli(), steps, reason, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	s.log.Debug("run finished", zap.String("run", id), zap.Int("steps", steps), zap.String("reason", reason))
	return nil
}

// GetRun loads a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, seed, world, config, started_at, finished_at, steps, reason FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns returns the most recent runs first. limit <= 0 returns all of them.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, seed, world, config, started_at, finished_at, steps, reason
		 FROM runs ORDER BY started_at DESC, world ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		seed     int64
		started  int64
		finished sql.NullInt64
	)
	err := row.Scan(&run.ID, &run.Name, &seed, &run.World, &run.Config, &started, &finished, &run.Steps, &run.Reason)
	if err != nil {
		return Run{}, err
	}
	run.Seed = uint64(seed)
	run.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		run.FinishedAt = time.UnixMilli(finished.Int64)
	}
	return run, nil
}
