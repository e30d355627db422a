package main

import (
	"github.com/spf13/cobra"

	"vlife/cmd/vlife/ui"
	"vlife/internal/logging"
	"vlife/internal/runner"
)

// viewCmd opens the terminal viewer
var viewCmd = &cobra.Command{
	Use:         "view",
	Short:       "Watch a world live in the terminal",
	Annotations: map[string]string{annotationInteractive: "true"},
	RunE:        runViewer,
}

func runViewer(cmd *cobra.Command, args []string) error {
	world, err := runner.NewWorld(cfg, cfg.Seed, logFor(logging.CategorySim))
	if err != nil {
		return err
	}
	opts := runner.OptionsFromConfig(cfg)
	opts.MaxSteps = 0
	r := runner.New(world, opts, logFor(logging.CategoryRunner))
	return ui.Run(r, logFor(logging.CategoryViewer))
}
