package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vlife/internal/logging"
	"vlife/internal/runner"
	"vlife/internal/store"
)

var (
	runSteps  int
	runWorlds int
	runDB     string
	runWatch  bool
)

// runCmd runs worlds headlessly
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one or more worlds headlessly and record them",
	Long: `Runs the simulation without a UI. Population samples and the champion
genomes are written to the SQLite database. With --worlds N, N independent
worlds with derived seeds run in parallel. With --watch, edits to
runner.speed and runner.paused in the config file apply to the live run.`,
	RunE: runHeadless,
}

func init() {
	runCmd.Flags().IntVar(&runSteps, "steps", 0, "Stop after N steps (default: runner.max_steps)")
	runCmd.Flags().IntVar(&runWorlds, "worlds", 0, "Number of parallel worlds (default: runner.worlds)")
	runCmd.Flags().StringVar(&runDB, "db", "", "Database path (default: store.path)")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Reload speed/pause from the config file while running")
}

func runHeadless(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runSteps > 0 {
		cfg.Runner.MaxSteps = runSteps
	}
	if runWorlds > 0 {
		cfg.Runner.Worlds = runWorlds
	}
	dbPath := cfg.Store.Path
	if runDB != "" {
		dbPath = runDB
	}

	st, err := store.Open(dbPath, logFor(logging.CategoryStore))
	if err != nil {
		return err
	}
	defer st.Close()

	ensemble, err := runner.NewEnsemble(ctx, cfg, st, cfg.Runner.Worlds, logFor(logging.CategoryRunner))
	if err != nil {
		return err
	}

	watchDone := make(chan error, 1)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	if runWatch {
		go func() {
			watchDone <- runner.WatchConfig(watchCtx, configPath, ensemble, cfg.GetReloadDebounce(), logFor(logging.CategoryRunner))
		}()
	} else {
		watchDone <- nil
	}

	results, runErr := ensemble.Run(ctx)
	cancelWatch()
	if err := <-watchDone; err != nil {
		logger.Warn("config watcher failed", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-36s  %5s  %20s  %8s  %6s  %10s  %s\n", "RUN", "WORLD", "SEED", "STEPS", "CELLS", "BEST", "REASON")
	for _, res := range results {
		fmt.Fprintf(out, "%-36s  %5d  %20d  %8d  %6d  %10.2f  %s\n",
			res.RunID, res.World, res.Seed, res.Steps, res.Stats.Population, res.Stats.BestScore, res.Reason)
	}
	return runErr
}
