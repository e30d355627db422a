package main

import (
	"github.com/spf13/cobra"

	"vlife/internal/logging"
	"vlife/internal/report"
	"vlife/internal/store"
)

var (
	runsLimit     int
	runsChampions int
)

// runsCmd groups the run history commands
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Browse recorded runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's samples and champions",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runDB, "db", "", "Database path (default: store.path)")
	runsCmd.PersistentFlags().StringVar(&reportStyle, "style", "", "Report style: dark, light, notty, ascii (default: auto)")
	runsCmd.PersistentFlags().IntVar(&reportWidth, "width", 100, "Report wrap width")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list (0 for all)")
	runsShowCmd.Flags().IntVar(&runsChampions, "champions", 10, "Maximum champions to show (0 for all)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

func openStore() (*store.Store, error) {
	path := cfg.Store.Path
	if runDB != "" {
		path = runDB
	}
	return store.Open(path, logFor(logging.CategoryStore))
}

func runRunsList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	return printMarkdown(cmd, report.Runs(runs))
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	run, err := st.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	samples, err := st.Samples(ctx, run.ID)
	if err != nil {
		return err
	}
	champions, err := st.Champions(ctx, run.ID, runsChampions)
	if err != nil {
		return err
	}
	return printMarkdown(cmd, report.Run(run, samples, champions))
}
