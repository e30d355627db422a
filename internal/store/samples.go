package store

import (
	"context"
	"fmt"

	"vlife/internal/sim"
)

// Sample is a population snapshot taken every few steps of a run.
type Sample struct {
	Step int
	sim.Stats
}

// AppendSample records the statistics of a run at step.
func (s *Store) AppendSample(ctx context.Context, runID string, step int, st sim.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO samples
		 (run_id, step, sim_time, population, births, deaths, mean_energy, best_score, ranked)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, step, st.Time, st.Population, st.Births, st.Deaths, st.MeanEnergy, st.BestScore, st.Ranked,
	)
	if err != nil {
		return fmt.Errorf("failed to append sample: %w", err)
	}
	return nil
}

// Samples returns the samples of a run in step order.
func (s *Store) Samples(ctx context.Context, runID string) ([]Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, sim_time, population, births, deaths, mean_energy, best_score, ranked
		 FROM samples WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.Step, &sm.Time, &sm.Population, &sm.Births, &sm.Deaths,
			&sm.MeanEnergy, &sm.BestScore, &sm.Ranked); err != nil {
			return nil, err
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}
