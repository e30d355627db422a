package main

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"vlife/internal/logging"
	"vlife/internal/report"
	"vlife/internal/runner"
	"vlife/internal/sim"
)

var (
	inspectSteps int
	inspectCell  uint64
	reportStyle  string
	reportWidth  int
)

// inspectCmd reports a cell after a headless warm-up
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Run a world for N steps and report one cell",
	Long: `Builds the configured world, advances it --steps fixed steps without
recording, and prints a report of the cell given by --cell. Without --cell
the living cell with the lowest ID is reported.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectSteps, "steps", 600, "Steps to run before reporting")
	inspectCmd.Flags().Uint64Var(&inspectCell, "cell", 0, "Cell ID to report")
	inspectCmd.PersistentFlags().StringVar(&reportStyle, "style", "", "Report style: dark, light, notty, ascii (default: auto)")
	inspectCmd.PersistentFlags().IntVar(&reportWidth, "width", 100, "Report wrap width")
}

func runInspect(cmd *cobra.Command, args []string) error {
	world, err := runner.NewWorld(cfg, cfg.Seed, logFor(logging.CategorySim))
	if err != nil {
		return err
	}
	opts := runner.OptionsFromConfig(cfg)
	opts.Speed = 1
	opts.Paused = false
	opts.TickInterval = 0
	opts.MaxSteps = inspectSteps
	if inspectSteps > 0 {
		if _, err := runner.New(world, opts, logFor(logging.CategoryRunner)).Run(cmd.Context()); err != nil {
			return err
		}
	}

	id := sim.CellID(inspectCell)
	if !cmd.Flags().Changed("cell") {
		cells := world.Cells()
		if len(cells) == 0 {
			return fmt.Errorf("no living cells after %d steps", inspectSteps)
		}
		id = slices.MinFunc(cells, func(a, b sim.CellView) int { return cmp.Compare(a.ID, b.ID) }).ID
	}

	view, err := world.CellView(id)
	if err != nil {
		return err
	}
	return printMarkdown(cmd, report.Cell(view, world.Time()))
}

func printMarkdown(cmd *cobra.Command, md string) error {
	r, err := report.NewRenderer(reportWidth, reportStyle)
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
