package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vlife/internal/config"
	"vlife/internal/store"
)

// RunStore creates and records runs. *store.Store implements it.
type RunStore interface {
	Recorder
	CreateRun(ctx context.Context, run store.Run) (store.Run, error)
}

// OptionsFromConfig maps the runner section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Seed:            cfg.Seed,
		Speed:           cfg.Runner.Speed,
		Paused:          cfg.Runner.Paused,
		TickInterval:    cfg.GetTickInterval(),
		SampleEvery:     cfg.Runner.SampleEvery,
		CheckpointEvery: cfg.Runner.CheckpointEvery,
		MaxSteps:        cfg.Runner.MaxSteps,
	}
}

// Ensemble is a set of independent worlds sharing a configuration and
// differing by seed.
type Ensemble struct {
	runners []*Runner
	log     *zap.Logger
}

// NewEnsemble builds n worlds from cfg. World i is seeded with
// DeriveSeed(cfg.Seed, i). When st is non-nil every world gets its own run.
func NewEnsemble(ctx context.Context, cfg *config.Config, st RunStore, n int, log *zap.Logger) (*Ensemble, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if n < 1 {
		n = 1
	}

	snapshot, err := cfg.YAML()
	if err != nil {
		return nil, err
	}

	e := &Ensemble{log: log}
	for i := 0; i < n; i++ {
		seed := DeriveSeed(cfg.Seed, i)
		world, err := NewWorld(cfg, seed, log.Named("sim"))
		if err != nil {
			return nil, fmt.Errorf("world %d: %w", i, err)
		}

		opts := OptionsFromConfig(cfg)
		opts.World = i
		opts.Seed = seed
		if st != nil {
			run, err := st.CreateRun(ctx, store.Run{
				Name:   cfg.Name,
				Seed:   seed,
				World:  i,
				Config: string(snapshot),
			})
			if err != nil {
				return nil, fmt.Errorf("world %d: %w", i, err)
			}
			opts.RunID = run.ID
			opts.Recorder = st
		}
		e.runners = append(e.runners, New(world, opts, log))
	}
	return e, nil
}

// Runners returns the runners, one per world.
func (e *Ensemble) Runners() []*Runner { return e.runners }

// Run runs every world in parallel and returns their results in world order.
// The first error cancels the other worlds.
func (e *Ensemble) Run(ctx context.Context) ([]Result, error) {
	results := make([]Result, len(e.runners))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range e.runners {
		g.Go(func() error {
			res, err := r.Run(gctx)
			results[i] = res
			return err
		})
	}
	err := g.Wait()
	e.log.Info("ensemble finished", zap.Int("worlds", len(e.runners)), zap.Error(err))
	return results, err
}

func (e *Ensemble) SetSpeed(speed int) {
	for _, r := range e.runners {
		r.SetSpeed(speed)
	}
}

func (e *Ensemble) Pause() {
	for _, r := range e.runners {
		r.Pause()
	}
}

func (e *Ensemble) Resume() {
	for _, r := range e.runners {
		r.Resume()
	}
}

// RunEnsemble builds n worlds from cfg and runs them to completion.
func RunEnsemble(ctx context.Context, cfg *config.Config, st RunStore, n int, log *zap.Logger) ([]Result, error) {
	e, err := NewEnsemble(ctx, cfg, st, n, log)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx)
}
