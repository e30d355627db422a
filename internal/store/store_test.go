package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"vlife/internal/genome"
	"vlife/internal/rank"
	"vlife/internal/sim"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesFileAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "vlife.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Path())
	for _, table := range []string{"runs", "samples", "champions", "schema_versions"} {
		assert.True(t, tableExists(s.db, table), table)
	}
	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(s.db))
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vlife.db")
	ctx := context.Background()

	s, err := Open(path, nil)
	require.NoError(t, err)
	run, err := s.CreateRun(ctx, Run{Name: "first", Seed: 7})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(s.db))
}

func TestRunMigrations_AddsMissingColumns(t *testing.T) {
	s := openTest(t)

	_, err := s.db.Exec(`CREATE TABLE legacy_runs (id TEXT)`)
	require.NoError(t, err)
	assert.False(t, columnExists(s.db, "legacy_runs", "reason"))

	saved := pendingMigrations
	t.Cleanup(func() { pendingMigrations = saved })
	pendingMigrations = []Migration{
		{"legacy_runs", "reason", "TEXT NOT NULL DEFAULT ''"},
		{"missing_table", "x", "INTEGER"},
	}

	require.NoError(t, RunMigrations(s.db, s.log))
	assert.True(t, columnExists(s.db, "legacy_runs", "reason"))
	// Running again is a no-op.
	require.NoError(t, RunMigrations(s.db, s.log))
}

func TestRuns(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	first, err := s.CreateRun(ctx, Run{Name: "a", Seed: 1, Config: "seed: 1\n", StartedAt: base})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	// Seeds above MaxInt64 survive the round trip.
	second, err := s.CreateRun(ctx, Run{Name: "b", Seed: 1<<63 + 5, World: 2, StartedAt: base.Add(time.Second)})
	require.NoError(t, err)

	got, err := s.GetRun(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63+5), got.Seed)
	assert.Equal(t, 2, got.World)
	assert.False(t, got.Finished())

	require.NoError(t, s.FinishRun(ctx, first.ID, 600, "max steps"))
	got, err = s.GetRun(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Finished())
	assert.Equal(t, 600, got.Steps)
	assert.Equal(t, "max steps", got.Reason)
	assert.Equal(t, "seed: 1\n", got.Config)
	assert.True(t, got.StartedAt.Equal(base))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest first")

	runs, err = s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRuns_NotFound(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.FinishRun(ctx, "nope", 1, "done")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSamples(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	run, err := s.CreateRun(ctx, Run{Seed: 3})
	require.NoError(t, err)

	require.NoError(t, s.AppendSample(ctx, run.ID, 120, sim.Stats{Time: 2, Population: 40, Deaths: 3}))
	require.NoError(t, s.AppendSample(ctx, run.ID, 60, sim.Stats{Time: 1, Population: 50, MeanEnergy: 8.5}))

	samples, err := s.Samples(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 60, samples[0].Step)
	assert.Equal(t, 50, samples[0].Population)
	assert.Equal(t, 8.5, samples[0].MeanEnergy)
	assert.Equal(t, 3, samples[1].Deaths)

	empty, err := s.Samples(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestChampions(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	run, err := s.CreateRun(ctx, Run{Seed: 4})
	require.NoError(t, err)

	r := rank.New(3)
	require.NoError(t, r.Insert(10, genome.New(map[string]float64{"size": 2})))
	require.NoError(t, r.Insert(30, genome.New(map[string]float64{"size": 5, "neurons/layer1/activation": 1})))
	require.NoError(t, r.Insert(20, genome.New(map[string]float64{"size": 3})))

	require.NoError(t, s.SaveChampions(ctx, run.ID, 60, r.Entries()))

	champs, err := s.Champions(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, champs, 3)
	assert.Equal(t, 30.0, champs[0].Score)
	size, ok := champs[0].Genome.Get("", "size")
	require.True(t, ok)
	assert.Equal(t, 5.0, size)
	assert.Equal(t, 2, champs[0].Genome.Len())
	assert.Equal(t, 10.0, champs[2].Score)

	// A later checkpoint replaces the earlier one.
	require.NoError(t, s.SaveChampions(ctx, run.ID, 120, r.Entries()[:1]))
	champs, err = s.Champions(ctx, run.ID, 5)
	require.NoError(t, err)
	require.Len(t, champs, 1)
	assert.Equal(t, 120, champs[0].Step)

	top, err := s.Champions(ctx, run.ID, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}
