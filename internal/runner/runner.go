// Package runner drives simulators headlessly: the fixed-step run loop,
// parallel ensembles of independent worlds, and config hot reload.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"vlife/internal/rank"
	"vlife/internal/sim"
)

// StepDt is the fixed simulation step in seconds.
const StepDt = 1.0 / 60.0

const (
	MinSpeed = 1
	MaxSpeed = 5
)

// Stop reasons recorded with finished runs.
const (
	ReasonMaxSteps = "max steps"
	ReasonExtinct  = "extinct"
	ReasonCanceled = "canceled"
)

// Recorder persists the progress of a run. *store.Store implements it.
type Recorder interface {
	AppendSample(ctx context.Context, runID string, step int, st sim.Stats) error
	SaveChampions(ctx context.Context, runID string, step int, entries []rank.Entry) error
	FinishRun(ctx context.Context, id string, steps int, reason string) error
}

// Options configures a Runner.
type Options struct {
	RunID  string
	World  int
	Seed   uint64
	Speed  int
	Paused bool
	// TickInterval paces ticks; zero runs as fast as possible.
	TickInterval    time.Duration
	SampleEvery     int
	CheckpointEvery int
	// MaxSteps stops the run; zero runs until canceled or extinct.
	MaxSteps int
	// Recorder may be nil for unrecorded runs.
	Recorder Recorder
}

// Result summarises a finished run.
type Result struct {
	RunID  string
	World  int
	Seed   uint64
	Steps  int
	Reason string
	Stats  sim.Stats
}

// Runner steps one simulator. Pause, Resume, SetSpeed and the getters are
// safe to call from other goroutines while Run is active.
type Runner struct {
	sim  *sim.Simulator
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	speed  int
	paused bool
	steps  int
	wake   chan struct{}
}

// New creates a runner for s.
func New(s *sim.Simulator, opts Options, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		sim:    s,
		opts:   opts,
		log:    log.With(zap.Int("world", opts.World)),
		speed:  clampSpeed(opts.Speed),
		paused: opts.Paused,
		wake:   make(chan struct{}, 1),
	}
}

func clampSpeed(speed int) int {
	return max(MinSpeed, min(MaxSpeed, speed))
}

func (r *Runner) Sim() *sim.Simulator { return r.sim }
func (r *Runner) Options() Options { return r.opts }

// Speed returns the number of fixed steps per tick.
func (r *Runner) Speed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}

// SetSpeed sets the steps per tick, clamped to [MinSpeed, MaxSpeed].
func (r *Runner) SetSpeed(speed int) {
	r.mu.Lock()
	r.speed = clampSpeed(speed)
	r.mu.Unlock()
}

// Paused reports whether the run is paused.
func (r *Runner) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

func (r *Runner) Pause() {
	r.mu.Lock()
	r.paused = true
	r.mu.Unlock()
}

func (r *Runner) Resume() {
	r.mu.Lock()
	r.paused = false
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Steps returns the number of fixed steps taken so far.
func (r *Runner) Steps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps
}

// Run steps the simulator until ctx is canceled, MaxSteps is reached or the
// population dies out. Cancellation is a normal stop: the run is finished
// with ReasonCanceled and no error. Errors come from the Recorder.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	r.log.Info("run started",
		zap.String("run", r.opts.RunID), zap.Uint64("seed", r.opts.Seed), zap.Int("cells", r.sim.Len()))

	var tick <-chan time.Time
	if r.opts.TickInterval > 0 {
		ticker := time.NewTicker(r.opts.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	reason := ""
	for reason == "" {
		if ctx.Err() != nil {
			reason = ReasonCanceled
			break
		}

		if r.Paused() {
			select {
			case <-ctx.Done():
			case <-r.wake:
			}
			continue
		}

		var err error
		reason, err = r.Tick(ctx)
		if err != nil {
			return r.result(reason), err
		}
		if reason != "" {
			break
		}

		if tick != nil {
			select {
			case <-ctx.Done():
			case <-tick:
			}
		}
	}

	return r.finish(ctx, reason)
}

// Tick advances Speed fixed steps and returns a stop reason once one applies.
// Writes are not interrupted by cancellation; Run checks ctx between ticks.
// Interactive drivers call Tick directly instead of Run.
func (r *Runner) Tick(ctx context.Context) (string, error) {
	ctx = context.WithoutCancel(ctx)
	speed := r.Speed()
	for i := 0; i < speed; i++ {
		r.sim.Update(StepDt)

		r.mu.Lock()
		r.steps++
		step := r.steps
		r.mu.Unlock()

		if r.opts.SampleEvery > 0 && step%r.opts.SampleEvery == 0 {
			if err := r.sample(ctx, step); err != nil {
				return "", err
			}
		}
		if r.opts.CheckpointEvery > 0 && step%r.opts.CheckpointEvery == 0 {
			if err := r.checkpoint(ctx, step); err != nil {
				return "", err
			}
		}

		if r.opts.MaxSteps > 0 && step >= r.opts.MaxSteps {
			return ReasonMaxSteps, nil
		}
		if r.sim.Len() == 0 {
			return ReasonExtinct, nil
		}
	}
	return "", nil
}

func (r *Runner) sample(ctx context.Context, step int) error {
	st := r.sim.Stats()
	r.log.Debug("sample",
		zap.Int("step", step),
		zap.Int("population", st.Population),
		zap.Float64("mean_energy", st.MeanEnergy),
		zap.Float64("best_score", st.BestScore))
	if r.opts.Recorder == nil {
		return nil
	}
	if err := r.opts.Recorder.AppendSample(ctx, r.opts.RunID, step, st); err != nil {
		return fmt.Errorf("world %d: %w", r.opts.World, err)
	}
	return nil
}

func (r *Runner) checkpoint(ctx context.Context, step int) error {
	if r.opts.Recorder == nil {
		return nil
	}
	entries := r.sim.Rank().Entries()
	if err := r.opts.Recorder.SaveChampions(ctx, r.opts.RunID, step, entries); err != nil {
		return fmt.Errorf("world %d: %w", r.opts.World, err)
	}
	r.log.Debug("checkpoint", zap.Int("step", step), zap.Int("champions", len(entries)))
	return nil
}

// finish saves the final champions and closes the run. It outlives ctx so a
// canceled run is still recorded.
func (r *Runner) finish(ctx context.Context, reason string) (Result, error) {
	res := r.result(reason)
	r.log.Info("run finished",
		zap.String("run", r.opts.RunID),
		zap.String("reason", reason),
		zap.Int("steps", res.Steps),
		zap.Int("population", res.Stats.Population),
		zap.Float64("best_score", res.Stats.BestScore))

	if r.opts.Recorder == nil {
		return res, nil
	}
	ctx = context.WithoutCancel(ctx)
	if err := r.checkpoint(ctx, res.Steps); err != nil {
		return res, err
	}
	if err := r.opts.Recorder.FinishRun(ctx, r.opts.RunID, res.Steps, reason); err != nil {
		return res, fmt.Errorf("world %d: %w", r.opts.World, err)
	}
	return res, nil
}

func (r *Runner) result(reason string) Result {
	return Result{
		RunID:  r.opts.RunID,
		World:  r.opts.World,
		Seed:   r.opts.Seed,
		Steps:  r.Steps(),
		Reason: reason,
		Stats:  r.sim.Stats(),
	}
}
