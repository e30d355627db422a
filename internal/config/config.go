package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"vlife/internal/sim"
)

// EnvPrefix prefixes every environment override, e.g. VLIFE_SEED.
const EnvPrefix = "VLIFE_"

// Config holds all vlife configuration.
type Config struct {
	// Core settings
	Name string `yaml:"name" validate:"required"`
	Seed uint64 `yaml:"seed" env:"SEED"`

	// The petri dish
	World   WorldConfig   `yaml:"world" envPrefix:"WORLD_"`
	Physics PhysicsConfig `yaml:"physics" envPrefix:"PHYSICS_"`

	// Who lives in it and how they are selected
	Population PopulationConfig `yaml:"population" envPrefix:"POPULATION_"`
	Evolution  EvolutionConfig  `yaml:"evolution" envPrefix:"EVOLUTION_"`

	// Headless runs
	Runner RunnerConfig `yaml:"runner" envPrefix:"RUNNER_"`
	Store  StoreConfig  `yaml:"store" envPrefix:"STORE_"`

	// Logging
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
}

// PopulationConfig configures the initial population.
type PopulationConfig struct {
	InitialCells int  `yaml:"initial_cells" env:"INITIAL_CELLS" validate:"gte=0"`
	Organisms    int  `yaml:"organisms" env:"ORGANISMS" validate:"gte=0"`
	OrganismSize int  `yaml:"organism_size" env:"ORGANISM_SIZE" validate:"gte=1"`
	TestingCell  bool `yaml:"testing_cell" env:"TESTING_CELL"`
	// Replace breeds a newborn for every dead cell.
	Replace bool `yaml:"replace" env:"REPLACE"`
}

// EvolutionConfig configures selection and mutation.
type EvolutionConfig struct {
	RankSize            int     `yaml:"rank_size" env:"RANK_SIZE" validate:"gte=1"`
	Mutations           int     `yaml:"mutations" env:"MUTATIONS" validate:"gte=0"`
	MutationProbability float64 `yaml:"mutation_probability" env:"MUTATION_PROBABILITY" validate:"gte=0,lte=1"`
	MutationSigma       float64 `yaml:"mutation_sigma" env:"MUTATION_SIGMA" validate:"gte=0"`
}

// RunnerConfig configures the run loop.
type RunnerConfig struct {
	// Speed is the number of fixed steps per tick.
	Speed  int  `yaml:"speed" env:"SPEED" validate:"gte=1,lte=5"`
	Paused bool `yaml:"paused" env:"PAUSED"`
	// TickInterval paces headless runs; empty or zero runs as fast as possible.
	TickInterval    string `yaml:"tick_interval" env:"TICK_INTERVAL"`
	SampleEvery     int    `yaml:"sample_every" env:"SAMPLE_EVERY" validate:"gte=1"`
	CheckpointEvery int    `yaml:"checkpoint_every" env:"CHECKPOINT_EVERY" validate:"gte=1"`
	MaxSteps        int    `yaml:"max_steps" env:"MAX_STEPS" validate:"gte=0"`
	Worlds          int    `yaml:"worlds" env:"WORLDS" validate:"gte=1,lte=64"`
	ReloadDebounce  string `yaml:"reload_debounce" env:"RELOAD_DEBOUNCE"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path" env:"PATH" validate:"required"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "vlife",
		Seed: 1,

		World:   DefaultWorldConfig(),
		Physics: DefaultPhysicsConfig(),

		Population: PopulationConfig{
			InitialCells: 500,
			OrganismSize: 5,
			Replace:      true,
		},

		Evolution: EvolutionConfig{
			RankSize:            sim.DefaultRankSize,
			Mutations:           sim.DefaultMutations,
			MutationProbability: sim.DefaultMutationProbability,
			MutationSigma:       sim.DefaultMutationSigma,
		},

		Runner: RunnerConfig{
			Speed:           1,
			SampleEvery:     60,
			CheckpointEvery: 3600,
			MaxSteps:        36000,
			Worlds:          1,
			ReloadDebounce:  "500ms",
		},

		Store: StoreConfig{
			Path: "data/vlife.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.YAML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// YAML returns the configuration as stored on disk.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// applyEnvOverrides applies VLIFE_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}

// GetTickInterval returns the pacing of headless runs. Zero means unpaced.
func (c *Config) GetTickInterval() time.Duration {
	if c.Runner.TickInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Runner.TickInterval)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetReloadDebounce returns how long config file events are coalesced.
func (c *Config) GetReloadDebounce() time.Duration {
	d, err := time.ParseDuration(c.Runner.ReloadDebounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// SimConfig translates the configuration into the simulator's.
func (c *Config) SimConfig() sim.Config {
	cfg := sim.DefaultConfig(c.World.Size())
	cfg.Physics = c.Physics.EngineConfig(c.World.Size())
	cfg.Obstacles = c.World.Polygons()
	cfg.Replace = c.Population.Replace
	cfg.RankSize = c.Evolution.RankSize
	cfg.Mutations = c.Evolution.Mutations
	cfg.MutationProbability = c.Evolution.MutationProbability
	cfg.MutationSigma = c.Evolution.MutationSigma
	return cfg
}
