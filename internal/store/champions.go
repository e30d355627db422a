package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"vlife/internal/genome"
	"vlife/internal/rank"
)

// Champion is a ranked genome saved at a checkpoint. Position 0 is the best.
type Champion struct {
	Position int
	Step     int
	Score    float64
	Genome   *genome.Genome
}

// SaveChampions replaces the stored champions of a run with entries, which
// are expected best first (as rank.Rank.Entries returns them).
func (s *Store) SaveChampions(ctx context.Context, runID string, step int, entries []rank.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM champions WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear champions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO champions (run_id, position, step, score, genome) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		data, err := json.Marshal(e.Genome)
		if err != nil {
			return fmt.Errorf("failed to encode genome %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, i, step, e.Score, string(data)); err != nil {
			return fmt.Errorf("failed to insert champion %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit champions: %w", err)
	}
	s.log.Debug("champions saved", zap.String("run", runID), zap.Int("step", step), zap.Int("count", len(entries)))
	return nil
}

// Champions returns up to limit champions of a run, best first.
// limit <= 0 returns all of them.
func (s *Store) Champions(ctx context.Context, runID string, limit int) ([]Champion, error) {
	if limit <= 0 {
		limit = -1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, step, score, genome FROM champions
		 WHERE run_id = ? ORDER BY position LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query champions: %w", err)
	}
	defer rows.Close()

	var champions []Champion
	for rows.Next() {
		var (
			c    Champion
			data string
		)
		if err := rows.Scan(&c.Position, &c.Step, &c.Score, &data); err != nil {
			return nil, err
		}
		c.Genome = genome.New(nil)
		if err := json.Unmarshal([]byte(data), c.Genome); err != nil {
			return nil, fmt.Errorf("champion %d: %w", c.Position, err)
		}
		champions = append(champions, c)
	}
	return champions, rows.Err()
}
