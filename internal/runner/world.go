package runner

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"vlife/internal/config"
	"vlife/internal/sim"
)

// NewRand returns the generator every component of a world draws from.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// DeriveSeed returns the seed of ensemble world i. World 0 keeps the base seed.
func DeriveSeed(base uint64, world int) uint64 {
	if world == 0 {
		return base
	}
	// splitmix64 finaliser
	z := base + uint64(world)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// NewWorld builds a simulator seeded with seed and populated per cfg.Population.
// A world too crowded for every initial cell keeps the ones that fit.
func NewWorld(cfg *config.Config, seed uint64, log *zap.Logger) (*sim.Simulator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := sim.New(cfg.SimConfig(), NewRand(seed), log)
	pop := cfg.Population

	for i := 0; i < pop.InitialCells; i++ {
		if _, err := s.AddRandomCell(); err != nil {
			if errors.Is(err, sim.ErrWorldFull) {
				log.Warn("world full, initial population truncated",
					zap.Int("placed", i), zap.Int("requested", pop.InitialCells))
				break
			}
			return nil, fmt.Errorf("failed to add cell: %w", err)
		}
	}

	for i := 0; i < pop.Organisms; i++ {
		if _, err := s.AddOrganism(pop.OrganismSize); err != nil {
			if errors.Is(err, sim.ErrWorldFull) {
				log.Warn("world full, organisms truncated", zap.Int("placed", i))
				break
			}
			return nil, fmt.Errorf("failed to add organism: %w", err)
		}
	}

	if pop.TestingCell {
		s.AddTestingCell()
	}

	log.Debug("world populated", zap.Uint64("seed", seed), zap.Int("cells", s.Len()))
	return s, nil
}
