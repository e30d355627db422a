// Package logging builds the zap loggers used across vlife.
// Every subsystem logs through a named category logger derived from the root logger;
// categories can be silenced one by one from the logging config section.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vlife/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // startup and configuration
	CategoryPhysics Category = "physics" // physics engine
	CategorySim     Category = "sim"     // births, deaths, selection
	CategoryStore   Category = "store"   // SQLite persistence
	CategoryRunner  Category = "runner"  // run loop, ensembles, config reload
	CategoryViewer  Category = "viewer"  // terminal UI
)

// New builds the root logger. verbose forces the debug level.
func New(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	return build(cfg, verbose, true)
}

// NewQuiet builds a logger that never writes to stderr, for full-screen
// terminal UIs. Without a log file it discards everything.
func NewQuiet(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	if cfg.File == "" {
		return zap.NewNop(), nil
	}
	return build(cfg, verbose, false)
}

func build(cfg config.LoggingConfig, verbose, stderr bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if !stderr {
		zc.OutputPaths = nil
	}
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// For returns the category logger, or a no-op logger when the category is disabled.
func For(root *zap.Logger, cfg config.LoggingConfig, category Category) *zap.Logger {
	if root == nil || !cfg.IsCategoryEnabled(string(category)) {
		return zap.NewNop()
	}
	return root.Named(string(category))
}
