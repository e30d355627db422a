package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("top level seed", func(t *testing.T) {
		t.Setenv("VLIFE_SEED", "1234")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, uint64(1234), cfg.Seed)
	})

	t.Run("nested sections use their prefix", func(t *testing.T) {
		t.Setenv("VLIFE_RUNNER_SPEED", "5")
		t.Setenv("VLIFE_WORLD_WIDTH", "1024")
		t.Setenv("VLIFE_PHYSICS_WALLS", "bounce")
		t.Setenv("VLIFE_STORE_PATH", "/tmp/other.db")
		t.Setenv("VLIFE_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, 5, cfg.Runner.Speed)
		assert.Equal(t, 1024.0, cfg.World.Width)
		assert.Equal(t, "bounce", cfg.Physics.Walls)
		assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("unset variables keep file values", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Runner.Speed = 2
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, 2, cfg.Runner.Speed)
		assert.Equal(t, "data/vlife.db", cfg.Store.Path)
	})

	t.Run("unparsable value is an error", func(t *testing.T) {
		t.Setenv("VLIFE_RUNNER_SPEED", "fast")

		cfg := DefaultConfig()
		assert.Error(t, cfg.applyEnvOverrides())
	})

	t.Run("Load applies overrides over the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vlife.yaml")
		cfg := DefaultConfig()
		cfg.Population.InitialCells = 10
		require.NoError(t, cfg.Save(path))

		t.Setenv("VLIFE_POPULATION_INITIAL_CELLS", "20")
		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 20, loaded.Population.InitialCells)
	})
}
