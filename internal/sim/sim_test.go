package sim

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/spatial/r2"

	"vlife/internal/genome"
	"vlife/internal/geom"
)

const dt = 1.0 / 60.0

func newTestSimulator(t *testing.T, seed uint64, replace bool) *Simulator {
	t.Helper()
	cfg := DefaultConfig(geom.V(400, 400))
	cfg.Replace = replace
	return New(cfg, rand.New(rand.NewPCG(seed, seed+1)), zaptest.NewLogger(t))
}

func kill(t *testing.T, s *Simulator, id CellID) {
	t.Helper()
	b := s.get(id)
	require.NotNil(t, b)
	b.cell.AddEnergy(-1e6)
}

func TestAddRandomCell(t *testing.T) {
	s := newTestSimulator(t, 1, false)
	for i := 0; i < 50; i++ {
		_, err := s.AddRandomCell()
		require.NoError(t, err)
	}
	assert.Equal(t, 50, s.Len())
	for _, v := range s.Cells() {
		assert.GreaterOrEqual(t, v.Radius, 1.0)
		assert.LessOrEqual(t, v.Radius, 10.0)
	}
	assert.Equal(t, 50, s.Stats().Births)
}

func TestAddRandomCell_WorldFull(t *testing.T) {
	cfg := DefaultConfig(geom.V(1, 1))
	cfg.PlacementAttempts = 20
	s := New(cfg, rand.New(rand.NewPCG(1, 2)), nil)

	_, err := s.AddRandomCell()
	require.NoError(t, err)
	_, err = s.AddRandomCell()
	assert.True(t, errors.Is(err, ErrWorldFull))
	assert.Equal(t, 1, s.Len())
}

func TestAddTestingCell(t *testing.T) {
	s := newTestSimulator(t, 1, false)
	id := s.AddTestingCell()

	v, err := s.CellView(id)
	require.NoError(t, err)
	assert.Equal(t, geom.V(20, 200), v.Position)
	assert.Equal(t, 10.0, v.Radius)
	assert.Equal(t, 10000.0, v.Cell.Energy())
	assert.Equal(t, 0.0, v.Cell.MoleculesTotal())
	assert.Contains(t, v.String(), "Energy: Amount: 10000.00")
}

func TestCellView_Unknown(t *testing.T) {
	s := newTestSimulator(t, 1, false)
	_, err := s.CellView(42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClosestCell(t *testing.T) {
	s := newTestSimulator(t, 1, false)
	_, ok := s.ClosestCell(10, 10)
	assert.False(t, ok)

	id := s.AddTestingCell()
	got, ok := s.ClosestCell(300, 300)
	require.True(t, ok)
	assert.Equal(t, id, got)

	big := s.insert(s.get(id).cell, geom.V(100, 100), 30)
	small := s.insert(s.get(id).cell, geom.V(140, 100), 2)
	got, _ = s.ClosestCell(128, 100)
	assert.Equal(t, big, got, "a containing cell wins over a closer centre")
	got, _ = s.ClosestCell(139, 100)
	assert.Equal(t, small, got)
}

func TestHandleContacts_ConservesEnergy(t *testing.T) {
	s := newTestSimulator(t, 1, false)
	a := s.AddTestingCell()
	b := s.AddTestingCell()
	for i := 0; i < 5; i++ {
		s.Update(dt)
	}

	s.engine.Update(dt)
	require.NotEmpty(t, s.engine.Contacts())
	before := s.get(a).cell.Energy() + s.get(b).cell.Energy()
	s.handleContacts(dt)
	after := s.get(a).cell.Energy() + s.get(b).cell.Energy()

	assert.InDelta(t, before, after, 1e-9)
	assert.Equal(t, 1.0, s.get(a).cell.ContactCount())
	assert.Equal(t, 1.0, s.get(b).cell.ContactCount())
}

func TestUpdate_DeadCellsAreRankedAndRemoved(t *testing.T) {
	s := newTestSimulator(t, 2, false)
	for i := 0; i < 5; i++ {
		_, err := s.AddRandomCell()
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		s.Update(dt)
	}
	alive := s.Len()
	victim := s.Cells()[0].ID

	kill(t, s, victim)
	s.Update(dt)

	assert.Equal(t, alive-1, s.Len())
	_, err := s.CellView(victim)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, s.engine.Objects().Len(), s.Len())

	st := s.Stats()
	assert.GreaterOrEqual(t, st.Deaths, 1)
	assert.GreaterOrEqual(t, st.Ranked, 1)
	assert.Greater(t, st.BestScore, 0.0)
}

func TestUpdate_ReplacementKeepsPopulation(t *testing.T) {
	s := newTestSimulator(t, 3, true)
	for i := 0; i < 20; i++ {
		_, err := s.AddRandomCell()
		require.NoError(t, err)
	}

	for round := 0; round < 4; round++ {
		s.Update(dt)
		kill(t, s, s.Cells()[0].ID)
		s.Update(dt)
		assert.Equal(t, 20, s.Len())
	}
	st := s.Stats()
	assert.GreaterOrEqual(t, st.Ranked, 2, "later newborns were bred from ranked genomes")
	assert.Equal(t, st.Births-st.Deaths, 20)
}

func TestAddOrganism(t *testing.T) {
	tests := []struct {
		cells int
		bonds int
	}{
		{1, 0},
		{2, 1},
		{5, 5},
	}
	for _, tt := range tests {
		s := newTestSimulator(t, 4, false)
		ids, err := s.AddOrganism(tt.cells)
		require.NoError(t, err)
		assert.Len(t, ids, tt.cells)
		assert.Equal(t, tt.bonds, s.engine.Bonds().Len())

		first := genome.Encode(s.get(ids[0]).cell)
		for _, id := range ids[1:] {
			other := genome.Encode(s.get(id).cell)
			if diff := cmp.Diff(first.Keys(), other.Keys()); diff != "" {
				t.Fatalf("genes differ (-first +other):\n%s", diff)
			}
			for _, k := range first.Keys() {
				v1, _ := first.Get("", k)
				v2, _ := other.Get("", k)
				require.Equal(t, v1, v2, "gene %s", k)
			}
		}
	}

	s := newTestSimulator(t, 4, false)
	_, err := s.AddOrganism(0)
	assert.Error(t, err)
}

func TestAddOrganism_EveryMemberInsideAndClear(t *testing.T) {
	s := newTestSimulator(t, 6, false)
	for i := 0; i < 40; i++ {
		_, err := s.AddRandomCell()
		require.NoError(t, err)
	}
	organism := map[CellID]int{}
	for o := 1; o <= 5; o++ {
		ids, err := s.AddOrganism(6)
		require.NoError(t, err)
		for _, id := range ids {
			organism[id] = o
		}
	}

	size := s.WorldSize()
	cells := s.Cells()
	for _, v := range cells {
		if organism[v.ID] == 0 {
			continue
		}
		assert.GreaterOrEqual(t, v.Position.X, v.Radius, "cell %d", v.ID)
		assert.LessOrEqual(t, v.Position.X, size.X-v.Radius, "cell %d", v.ID)
		assert.GreaterOrEqual(t, v.Position.Y, v.Radius, "cell %d", v.ID)
		assert.LessOrEqual(t, v.Position.Y, size.Y-v.Radius, "cell %d", v.ID)
		for _, other := range cells {
			if other.ID == v.ID || organism[other.ID] == organism[v.ID] {
				continue
			}
			dist := r2.Norm(r2.Sub(v.Position, other.Position))
			assert.Greater(t, dist, v.Radius+other.Radius, "cells %d and %d overlap", v.ID, other.ID)
		}
	}
}

func TestAddOrganism_RingLargerThanWorld(t *testing.T) {
	s := New(DefaultConfig(geom.V(5, 5)), rand.New(rand.NewPCG(1, 2)), nil)
	_, err := s.AddOrganism(12)
	assert.ErrorIs(t, err, ErrWorldFull)
	assert.Equal(t, 0, s.Len())
}

func TestUpdate_OrganismStaysTogether(t *testing.T) {
	s := newTestSimulator(t, 5, false)
	ids, err := s.AddOrganism(4)
	require.NoError(t, err)
	for i := 0; i < 120; i++ {
		s.Update(dt)
	}
	for _, id := range ids {
		v, err := s.CellView(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		require.NoError(t, err)
		assert.True(t, geom.Finite(v.Position))
		assert.Less(t, v.Position.X, 400.0)
	}
	assert.LessOrEqual(t, s.engine.Bonds().Len(), 4)
}

func TestUpdate_Deterministic(t *testing.T) {
	run := func() Stats {
		s := newTestSimulator(t, 9, true)
		for i := 0; i < 30; i++ {
			_, err := s.AddRandomCell()
			require.NoError(t, err)
		}
		for i := 0; i < 200; i++ {
			s.Update(dt)
		}
		return s.Stats()
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("runs with the same seed differ (-first +second):\n%s", diff)
	}
}

func TestUpdate_PositionsStayFinite(t *testing.T) {
	s := newTestSimulator(t, 6, true)
	for i := 0; i < 40; i++ {
		_, err := s.AddRandomCell()
		require.NoError(t, err)
	}
	for i := 0; i < 300; i++ {
		s.Update(dt)
	}
	for _, v := range s.Cells() {
		require.True(t, geom.Finite(v.Position), "cell %d", v.ID)
	}
	assert.InDelta(t, 5, s.Time(), 1e-9)
}
