package neural

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/mat"

	"vlife/internal/genome"
)

// NumMolecules is the number of molecule species a cell senses and metabolises.
const NumMolecules = 8

// Input slots, in order.
const (
	InVelocity              = 0
	InVelocityMagnitude     = InVelocity + 2
	InAcceleration          = InVelocityMagnitude + 1
	InAccelerationMagnitude = InAcceleration + 2
	InRadius                = InAccelerationMagnitude + 1
	InEnergyAmount          = InRadius + 1
	InEnergyDelta           = InEnergyAmount + 1
	InEnergyStored          = InEnergyDelta + 1
	InMoleculesAmount       = InEnergyStored + 1
	InMoleculesTotal        = InMoleculesAmount + NumMolecules
	InMovementDirection     = InMoleculesTotal + 1
	InMovementSpeed         = InMovementDirection + 1
	InContactAbsorption     = InMovementSpeed + 1
	InContactCount          = InContactAbsorption + 1
	InContactNormal         = InContactCount + 1

	NumInputs = InContactNormal + 2
)

// Output slots, in order.
const (
	OutMetabolism        = 0
	OutEnergySources     = OutMetabolism + NumMolecules*NumMolecules
	OutContraction       = OutEnergySources + NumMolecules
	OutMovementDirection = OutContraction + 1
	OutMovementSpeed     = OutMovementDirection + 1
	OutContactAbsorption = OutMovementSpeed + 1

	NumOutputs = OutContactAbsorption + 1
)

// NumHidden is the width of the hidden layer.
const NumHidden = NumInputs / 2

// Inputs is what a cell perceives on every step.
type Inputs struct {
	Velocity              [2]float64
	VelocityMagnitude     float64
	Acceleration          [2]float64
	AccelerationMagnitude float64
	Radius                float64
	EnergyAmount          float64
	EnergyDelta           float64
	EnergyStored          float64
	Molecules             [NumMolecules]float64
	MoleculesTotal        float64
	MovementDirection     float64
	MovementSpeed         float64
	ContactAbsorption     float64
	ContactCount          float64
	ContactNormal         [2]float64
}

func (in *Inputs) fill(v *mat.VecDense) {
	v.SetVec(InVelocity, in.Velocity[0])
	v.SetVec(InVelocity+1, in.Velocity[1])
	v.SetVec(InVelocityMagnitude, in.VelocityMagnitude)
	v.SetVec(InAcceleration, in.Acceleration[0])
	v.SetVec(InAcceleration+1, in.Acceleration[1])
	v.SetVec(InAccelerationMagnitude, in.AccelerationMagnitude)
	v.SetVec(InRadius, in.Radius)
	v.SetVec(InEnergyAmount, in.EnergyAmount)
	v.SetVec(InEnergyDelta, in.EnergyDelta)
	v.SetVec(InEnergyStored, in.EnergyStored)
	for i, m := range in.Molecules {
		v.SetVec(InMoleculesAmount+i, m)
	}
	v.SetVec(InMoleculesTotal, in.MoleculesTotal)
	v.SetVec(InMovementDirection, in.MovementDirection)
	v.SetVec(InMovementSpeed, in.MovementSpeed)
	v.SetVec(InContactAbsorption, in.ContactAbsorption)
	v.SetVec(InContactCount, in.ContactCount)
	v.SetVec(InContactNormal, in.ContactNormal[0])
	v.SetVec(InContactNormal+1, in.ContactNormal[1])
}

// Network is the two layer brain of a cell: inputs -> hidden (sigmoid) -> outputs (tanh).
type Network struct {
	inputs         *mat.VecDense
	hidden         *Layer
	output         *Layer
	workingNeurons int
}

// NewNetwork returns a network with zero weights.
func NewNetwork() *Network {
	n := &Network{
		inputs: mat.NewVecDense(NumInputs, nil),
		hidden: NewLayer(NumInputs, NumHidden),
		output: NewLayer(NumHidden, NumOutputs),
	}
	n.hidden.Activation = Sigmoid
	n.output.Activation = Tanh
	return n
}

// RandomNetwork returns a network with uniform random weights.
func RandomNetwork(rng *rand.Rand) *Network {
	n := &Network{
		inputs: mat.NewVecDense(NumInputs, nil),
		hidden: RandomLayer(rng, NumInputs, NumHidden),
		output: RandomLayer(rng, NumHidden, NumOutputs),
	}
	n.hidden.Activation = Sigmoid
	n.output.Activation = Tanh
	n.countWorking()
	return n
}

func (n *Network) countWorking() {
	n.workingNeurons = n.hidden.WorkingNeurons() + n.output.WorkingNeurons()
}

func (n *Network) Hidden() *Layer { return n.hidden }
func (n *Network) Output() *Layer { return n.output }
func (n *Network) WorkingNeurons() int { return n.workingNeurons }

// Process feeds the inputs forward through both layers.
func (n *Network) Process(in Inputs) {
	in.fill(n.inputs)
	n.hidden.Process(n.inputs)
	n.output.Process(n.hidden.Output())
}

func (n *Network) out(i int) float64 {
	return n.output.Output().AtVec(i)
}

// MetabolismFactors returns the NumMolecules x NumMolecules conversion factors, row major.
func (n *Network) MetabolismFactors() []float64 {
	out := make([]float64, NumMolecules*NumMolecules)
	for i := range out {
		out[i] = n.out(OutMetabolism + i)
	}
	return out
}

// EnergySources returns how strongly each molecule species is burnt for energy.
func (n *Network) EnergySources() [NumMolecules]float64 {
	var out [NumMolecules]float64
	for i := range out {
		out[i] = n.out(OutEnergySources + i)
	}
	return out
}

func (n *Network) Contraction() float64 { return n.out(OutContraction) }
func (n *Network) MovementDirection() float64 { return n.out(OutMovementDirection) }
func (n *Network) MovementSpeed() float64 { return n.out(OutMovementSpeed) }
func (n *Network) ContactAbsorption() float64 { return n.out(OutContactAbsorption) }

// EncodeGenome writes both layers below layer1 and layer2.
func (n *Network) EncodeGenome(b *genome.Builder) {
	n.hidden.EncodeGenome(b.Nested("layer1"))
	n.output.EncodeGenome(b.Nested("layer2"))
}

// DecodeGenome reads both layers from the genes below path.
func (n *Network) DecodeGenome(g *genome.Genome, path string) error {
	if err := n.hidden.DecodeGenome(g, genome.ID(path, "layer1")); err != nil {
		return fmt.Errorf("layer1: %w", err)
	}
	if err := n.output.DecodeGenome(g, genome.ID(path, "layer2")); err != nil {
		return fmt.Errorf("layer2: %w", err)
	}
	n.countWorking()
	return nil
}

func (n *Network) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Working neurons: %d\n", n.workingNeurons)
	fmt.Fprintf(&sb, "Layers: %s, %s\n", n.hidden, n.output)
	sources := n.EnergySources()
	fmt.Fprintf(&sb, "Energy sources: %.2f\n", sources[:])
	fmt.Fprintf(&sb, "Movement: direction %.2f, speed %.2f\n", n.MovementDirection(), n.MovementSpeed())
	fmt.Fprintf(&sb, "Contraction: %.2f\n", n.Contraction())
	return sb.String()
}
