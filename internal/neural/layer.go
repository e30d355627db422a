package neural

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"vlife/internal/genome"
)

// Layer is a dense layer. Every row of Weights holds the weights of one neuron.
type Layer struct {
	Weights    *mat.Dense
	Bias       *mat.VecDense
	Activation Activation
	outputs    *mat.VecDense
}

// NewLayer returns a zeroed layer with linear activation.
func NewLayer(inputs, outputs int) *Layer {
	return &Layer{
		Weights: mat.NewDense(outputs, inputs, nil),
		Bias:    mat.NewVecDense(outputs, nil),
		outputs: mat.NewVecDense(outputs, nil),
	}
}

// RandomLayer draws weights and bias uniformly from [-1, 1) and a random activation.
func RandomLayer(rng *rand.Rand, inputs, outputs int) *Layer {
	l := NewLayer(inputs, outputs)
	for r := 0; r < outputs; r++ {
		for c := 0; c < inputs; c++ {
			l.Weights.Set(r, c, uniform(rng))
		}
		l.Bias.SetVec(r, uniform(rng))
	}
	l.Activation = RandomActivation(rng)
	return l
}

func uniform(rng *rand.Rand) float64 {
	return rng.Float64()*2 - 1
}

// Inputs returns the layer input width.
func (l *Layer) Inputs() int {
	_, c := l.Weights.Dims()
	return c
}

// Outputs returns the layer output width.
func (l *Layer) Outputs() int {
	r, _ := l.Weights.Dims()
	return r
}

// Process computes act(W*in + b) into the layer outputs.
func (l *Layer) Process(in mat.Vector) {
	l.outputs.MulVec(l.Weights, in)
	l.outputs.AddVec(l.outputs, l.Bias)
	for i := 0; i < l.outputs.Len(); i++ {
		l.outputs.SetVec(i, l.Activation.Apply(l.outputs.AtVec(i)))
	}
}

// Output returns the result of the last Process call.
func (l *Layer) Output() *mat.VecDense {
	return l.outputs
}

// WorkingNeurons counts the neurons with at least one non zero weight.
func (l *Layer) WorkingNeurons() int {
	rows, cols := l.Weights.Dims()
	n := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if l.Weights.At(r, c) != 0 {
				n++
				break
			}
		}
	}
	return n
}

// EncodeGenome writes weights, bias and activation.
func (l *Layer) EncodeGenome(b *genome.Builder) {
	rows, cols := l.Weights.Dims()
	weights := b.Nested("weights")
	for r := 0; r < rows; r++ {
		row := weights.Nested(genome.Index(r))
		for c := 0; c < cols; c++ {
			row.Add(genome.Index(c), l.Weights.At(r, c))
		}
	}
	b.AddVector("bias", l.Bias.RawVector().Data)
	b.Add("activation", float64(l.Activation))
}

// DecodeGenome reads the genes written by EncodeGenome. The layer dimensions are kept.
func (l *Layer) DecodeGenome(g *genome.Genome, path string) error {
	rows, cols := l.Weights.Dims()
	weights := genome.ID(path, "weights")
	for r := 0; r < rows; r++ {
		row := genome.ID(weights, genome.Index(r))
		for c := 0; c < cols; c++ {
			v, err := g.Must(row, genome.Index(c))
			if err != nil {
				return err
			}
			l.Weights.Set(r, c, v)
		}
	}
	bias, err := g.Vector(path, "bias", rows)
	if err != nil {
		return err
	}
	for i, v := range bias {
		l.Bias.SetVec(i, v)
	}
	act, err := g.Must(path, "activation")
	if err != nil {
		return err
	}
	l.Activation = ActivationFromGene(act)
	return nil
}

func (l *Layer) String() string {
	return fmt.Sprintf("%dx%d %s", l.Outputs(), l.Inputs(), l.Activation)
}
