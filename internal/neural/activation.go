// Package neural implements the feed forward network that drives a cell.
package neural

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Activation is the function applied to the weighted sum of a neuron.
type Activation int

const (
	Linear Activation = iota
	Sigmoid
	Tanh
	Relu
	Swish
)

// randomActivations are the choices for a freshly generated layer. Tanh is reserved
// for the output layer.
var randomActivations = []Activation{Linear, Sigmoid, Relu, Swish}

// RandomActivation picks any activation but tanh.
func RandomActivation(rng *rand.Rand) Activation {
	return randomActivations[rng.IntN(len(randomActivations))]
}

// ActivationFromGene maps a gene value back to an activation. Values are rounded and
// wrapped into the valid range so that mutated genes stay usable.
func ActivationFromGene(v float64) Activation {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Linear
	}
	n := int(math.Round(math.Abs(v))) % int(Swish+1)
	return Activation(n)
}

// Apply evaluates the activation.
func (a Activation) Apply(x float64) float64 {
	switch a {
	case Sigmoid:
		return 1 / (1 + math.Exp(-x))
	case Tanh:
		return math.Tanh(x)
	case Relu:
		return math.Max(x, 0)
	case Swish:
		return x / (1 + math.Exp(-x))
	default:
		return x
	}
}

func (a Activation) String() string {
	switch a {
	case Linear:
		return "linear"
	case Sigmoid:
		return "sigmoid"
	case Tanh:
		return "tanh"
	case Relu:
		return "relu"
	case Swish:
		return "swish"
	default:
		return fmt.Sprintf("activation(%d)", int(a))
	}
}
