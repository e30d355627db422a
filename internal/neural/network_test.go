package neural

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"vlife/internal/genome"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestLayout(t *testing.T) {
	assert.Equal(t, 25, NumInputs)
	assert.Equal(t, 12, NumHidden)
	assert.Equal(t, 76, NumOutputs)
	assert.Equal(t, 64, OutEnergySources)
	assert.Equal(t, 75, OutContactAbsorption)
}

func TestActivation_Apply(t *testing.T) {
	tests := []struct {
		act  Activation
		x    float64
		want float64
	}{
		{Linear, -2, -2},
		{Sigmoid, 0, 0.5},
		{Tanh, 0, 0},
		{Tanh, 1, math.Tanh(1)},
		{Relu, -3, 0},
		{Relu, 3, 3},
		{Swish, 0, 0},
		{Swish, 2, 2 / (1 + math.Exp(-2))},
	}
	for _, tt := range tests {
		t.Run(tt.act.String(), func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.act.Apply(tt.x), 1e-12)
		})
	}
}

func TestRandomActivation_NeverTanh(t *testing.T) {
	rng := testRNG()
	for i := 0; i < 500; i++ {
		assert.NotEqual(t, Tanh, RandomActivation(rng))
	}
}

func TestActivationFromGene(t *testing.T) {
	assert.Equal(t, Sigmoid, ActivationFromGene(1.2))
	assert.Equal(t, Tanh, ActivationFromGene(-2))
	assert.Equal(t, Linear, ActivationFromGene(5))
	assert.Equal(t, Linear, ActivationFromGene(math.NaN()))
}

func TestLayer_Process(t *testing.T) {
	l := NewLayer(2, 2)
	l.Weights = mat.NewDense(2, 2, []float64{1, 2, 0, -1})
	l.Bias = mat.NewVecDense(2, []float64{0.5, 0})
	l.Activation = Relu

	l.Process(mat.NewVecDense(2, []float64{1, 1}))
	assert.InDelta(t, 3.5, l.Output().AtVec(0), 1e-12)
	assert.InDelta(t, 0, l.Output().AtVec(1), 1e-12)
	assert.Equal(t, 2, l.WorkingNeurons())

	l.Weights.Set(1, 1, 0)
	assert.Equal(t, 1, l.WorkingNeurons())
}

func TestRandomLayer_Range(t *testing.T) {
	l := RandomLayer(testRNG(), 4, 3)
	r, c := l.Weights.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w := l.Weights.At(i, j)
			assert.True(t, w >= -1 && w < 1)
		}
	}
	assert.Equal(t, 3, l.Outputs())
	assert.Equal(t, 4, l.Inputs())
}

func TestNetwork_OutputsBoundedByTanh(t *testing.T) {
	n := RandomNetwork(testRNG())
	n.Process(Inputs{EnergyAmount: 100, Radius: 5, MoleculesTotal: 400})

	for i := 0; i < NumOutputs; i++ {
		v := n.output.Output().AtVec(i)
		assert.True(t, v >= -1 && v <= 1, "output %d = %f", i, v)
	}
	assert.Len(t, n.MetabolismFactors(), NumMolecules*NumMolecules)
	assert.Equal(t, NumHidden+NumOutputs, n.WorkingNeurons())
}

func TestNetwork_GenomeRoundTrip(t *testing.T) {
	src := RandomNetwork(testRNG())
	b := genome.NewBuilder()
	src.EncodeGenome(b.Nested("neurons"))
	g := b.Build()

	assert.Equal(t, NumHidden*NumInputs+NumHidden+1+NumOutputs*NumHidden+NumOutputs+1, g.Len())
	_, ok := g.Get("neurons/layer1/weights/003", "012")
	assert.True(t, ok)

	dst := NewNetwork()
	require.NoError(t, dst.DecodeGenome(g, "neurons"))
	assert.True(t, mat.Equal(src.hidden.Weights, dst.hidden.Weights))
	assert.True(t, mat.Equal(src.output.Bias, dst.output.Bias))
	assert.Equal(t, Sigmoid, dst.hidden.Activation)
	assert.Equal(t, Tanh, dst.output.Activation)

	in := Inputs{Velocity: [2]float64{1, -1}, EnergyAmount: 50}
	src.Process(in)
	dst.Process(in)
	assert.InDelta(t, src.Contraction(), dst.Contraction(), 1e-12)
}

func TestNetwork_DecodeMissingGene(t *testing.T) {
	err := NewNetwork().DecodeGenome(genome.New(nil), "neurons")
	assert.True(t, errors.Is(err, genome.ErrMissingGene))
}
