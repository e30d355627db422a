package genome

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestBuilder_NestedPaths(t *testing.T) {
	b := NewBuilder()
	b.Add("size", 3)
	layer := b.Nested("neurons").Nested("layer1")
	layer.Add("activation", 1)
	layer.AddVector("bias", []float64{0.5, -0.5})
	g := b.Build()

	want := []string{
		"neurons/layer1/activation",
		"neurons/layer1/bias/000",
		"neurons/layer1/bias/001",
		"size",
	}
	if diff := cmp.Diff(want, g.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	v, ok := g.Get("neurons/layer1", "activation")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	bias, err := g.Vector("neurons/layer1", "bias", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.5}, bias)

	_, err = g.Vector("neurons/layer1", "bias", 3)
	assert.True(t, errors.Is(err, ErrMissingGene))
}

func TestCross_TakesPrefixFromFirstParent(t *testing.T) {
	a := New(map[string]float64{"a": 1, "b": 1, "c": 1, "d": 1, "e": 1})
	b := New(map[string]float64{"a": 2, "b": 2, "c": 2, "d": 2, "e": 2})

	for seed := uint64(0); seed < 20; seed++ {
		child := Cross(a, b, rand.New(rand.NewPCG(seed, seed)))
		require.Equal(t, 5, child.Len())

		keys := child.Keys()
		first, _ := child.Get("", keys[0])
		last, _ := child.Get("", keys[len(keys)-1])
		assert.Equal(t, 1.0, first, "cut is never before the first gene")
		assert.Equal(t, 2.0, last, "cut is never after the last gene")

		switched := false
		for _, k := range keys {
			v, _ := child.Get("", k)
			if v == 2 {
				switched = true
			} else {
				assert.False(t, switched, "genes from a must precede genes from b")
			}
		}
	}
}

func TestCross_UnionOfKeys(t *testing.T) {
	a := New(map[string]float64{"a": 1, "c": 1})
	b := New(map[string]float64{"b": 2, "d": 2})

	child := Cross(a, b, testRNG())
	assert.Equal(t, []string{"a", "b", "c", "d"}, child.Keys())
}

func TestCross_SmallGenomes(t *testing.T) {
	a := New(map[string]float64{"x": 1})
	b := New(map[string]float64{"x": 2})
	child := Cross(a, b, testRNG())
	v, _ := child.Get("", "x")
	assert.Equal(t, 2.0, v)

	a = New(map[string]float64{"x": 1, "y": 1})
	b = New(map[string]float64{"x": 2, "y": 2})
	child = Cross(a, b, testRNG())
	x, _ := child.Get("", "x")
	y, _ := child.Get("", "y")
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 2.0, y)

	empty := Cross(New(nil), New(nil), testRNG())
	assert.Equal(t, 0, empty.Len())
}

func TestMutate(t *testing.T) {
	g := New(map[string]float64{"a": 0, "b": 0, "c": 0})

	assert.Equal(t, 0, g.Mutate(testRNG(), 10, 0, 1))
	for _, k := range g.Keys() {
		v, _ := g.Get("", k)
		assert.Equal(t, 0.0, v)
	}

	changed := g.Mutate(testRNG(), 10, 1, 1)
	assert.Equal(t, 10, changed)
	moved := 0
	for _, k := range g.Keys() {
		if v, _ := g.Get("", k); v != 0 {
			moved++
		}
	}
	assert.Greater(t, moved, 0)

	assert.Equal(t, 0, New(nil).Mutate(testRNG(), 5, 1, 1))
}

func TestSubtree(t *testing.T) {
	g := New(map[string]float64{"n/a": 1, "n/b/c": 2, "m": 3})
	assert.Equal(t, map[string]float64{"a": 1, "b/c": 2}, g.Subtree("n"))
}

func TestJSON(t *testing.T) {
	g := New(map[string]float64{"n/a": 1.5, "m": -3})
	data, err := json.Marshal(g)
	require.NoError(t, err)

	var back Genome
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, g.Keys(), back.Keys())
	v, _ := back.Get("n", "a")
	assert.Equal(t, 1.5, v)

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &back))
}
