// Command vlife runs the virtual life simulator: interactively in the
// terminal, or headless with results recorded to SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vlife/internal/config"
	"vlife/internal/logging"
)

const (
	// annotationInteractive marks commands that own the terminal.
	annotationInteractive = "interactive"
	// annotationNoConfig marks commands that must work without a loadable config.
	annotationNoConfig = "noconfig"
)

var (
	// Global flags
	configPath string
	seed       uint64
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vlife",
	Short: "vlife - virtual life in a petri dish",
	Long: `vlife simulates cells that move, contract, metabolise molecules and
exchange energy on contact, each driven by a small neural network encoded in
its genome. Dead cells are ranked by lifetime; newborns breed from the best.

Run without arguments to open the viewer with the default configuration.`,
	Annotations:   map[string]string{annotationInteractive: "true"},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[annotationNoConfig] == "true" {
			logger = zap.NewNop()
			return nil
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			loaded.Seed = seed
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		if cmd.Annotations[annotationInteractive] == "true" {
			logger, err = logging.NewQuiet(cfg.Logging, verbose)
		} else {
			logger, err = logging.New(cfg.Logging, verbose)
		}
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.For(logger, cfg.Logging, logging.CategoryBoot).Debug("config loaded",
			zap.String("path", configPath), zap.Uint64("seed", cfg.Seed))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runViewer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "vlife.yaml", "Config file (missing file means defaults)")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Random seed (overrides the config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logFor(category logging.Category) *zap.Logger {
	return logging.For(logger, cfg.Logging, category)
}
