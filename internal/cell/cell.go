// Package cell models the biology of a single cell: its molecules and energy, the
// cilia that move it, its contraction and the membrane channels that absorb energy
// from touching cells. All of it is regulated by the cell's neural network.
package cell

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	"vlife/internal/genome"
	"vlife/internal/geom"
	"vlife/internal/neural"
)

const (
	NumMolecules = neural.NumMolecules

	MaxEnergy                  = 100.0
	MaxMoleculeAmount          = 100.0
	MinMovementCost            = 0.0003
	MaxMovementCost            = 0.0005
	MinContractionCost         = 0.0003
	MaxContractionCost         = 0.001
	MaxContraction             = 0.8
	MaxContactEnergyAbsorption = 1.75
	MaxConversion              = 10.0
	MinSize                    = 1.0
	MaxSize                    = 10.0
	MaxSpeed                   = 40.0
	MinContractedSize          = 1.0
)

// Body is the physical state of the object a cell lives in.
type Body struct {
	Velocity     geom.Vec2
	Acceleration geom.Vec2
	Radius       float64
	Mass         float64
}

// Cell is the state of a living cell.
type Cell struct {
	birth   float64
	neurons *neural.Network

	// size when not contracted
	size       float64
	energy     float64
	lastEnergy float64

	molecules  [NumMolecules]float64
	conversion [NumMolecules]float64

	movementCost       float64
	movementDirection  float64
	movementSpeedLimit float64
	movementSpeed      float64
	movementVelocity   geom.Vec2

	contractionCost   float64
	contractionLimit  float64
	contractionAmount float64

	absorptionLimit  float64
	absorptionAmount float64

	contactCount  float64
	contactNormal geom.Vec2
}

// Random creates a cell with random traits and a random network.
func Random(rng *rand.Rand, size, birth float64) *Cell {
	c := &Cell{
		birth:              birth,
		neurons:            neural.RandomNetwork(rng),
		size:               size,
		energy:             MaxEnergy,
		lastEnergy:         MaxEnergy,
		movementCost:       between(rng, MinMovementCost, MaxMovementCost),
		movementSpeedLimit: between(rng, 0, MaxSpeed),
		contractionCost:    between(rng, MinContractionCost, MaxContractionCost),
		contractionLimit:   between(rng, 0, MaxContraction),
		absorptionLimit:    between(rng, 0, MaxContactEnergyAbsorption),
	}
	for i := range c.conversion {
		c.conversion[i] = between(rng, 0, MaxConversion)
	}
	c.randomMolecules(rng)
	return c
}

// Testing creates a cell that starts moving at speed 10. It has no molecules and
// enough energy to outlive any normal cell.
func Testing(rng *rand.Rand, size, birth float64) *Cell {
	c := Random(rng, size, birth)
	c.molecules = [NumMolecules]float64{}
	c.energy = 10000
	c.lastEnergy = c.energy
	c.movementSpeedLimit = 10
	c.movementDirection = 0.2 * math.Pi
	c.movementSpeed = 10
	return c
}

// FromGenome creates a newborn cell expressing g. Decoded traits are clamped to their
// legal ranges. Molecules are drawn at random.
func FromGenome(rng *rand.Rand, g *genome.Genome, birth float64) (*Cell, error) {
	c := &Cell{
		birth:      birth,
		neurons:    neural.NewNetwork(),
		energy:     MaxEnergy,
		lastEnergy: MaxEnergy,
	}
	scalars := []struct {
		name   string
		dst    *float64
		lo, hi float64
	}{
		{"size", &c.size, MinSize, MaxSize},
		{"movement_cost", &c.movementCost, MinMovementCost, MaxMovementCost},
		{"movement_speed_limit", &c.movementSpeedLimit, 0, MaxSpeed},
		{"contraction_cost", &c.contractionCost, MinContractionCost, MaxContractionCost},
		{"contraction_limit", &c.contractionLimit, 0, MaxContraction},
		{"contact_energy_absorption_limit", &c.absorptionLimit, 0, MaxContactEnergyAbsorption},
	}
	for _, s := range scalars {
		v, err := g.Must("", s.name)
		if err != nil {
			return nil, err
		}
		*s.dst = clamp(v, s.lo, s.hi)
	}
	conversion, err := g.Vector("", "molecules_energy_conversion", NumMolecules)
	if err != nil {
		return nil, err
	}
	for i, v := range conversion {
		c.conversion[i] = clamp(v, 0, MaxConversion)
	}
	if err := c.neurons.DecodeGenome(g, "neurons"); err != nil {
		return nil, fmt.Errorf("neurons: %w", err)
	}
	c.randomMolecules(rng)
	return c, nil
}

// EncodeGenome writes the heritable traits of the cell.
func (c *Cell) EncodeGenome(b *genome.Builder) {
	b.Add("size", c.size)
	b.AddVector("molecules_energy_conversion", c.conversion[:])
	b.Add("movement_cost", c.movementCost)
	b.Add("movement_speed_limit", c.movementSpeedLimit)
	b.Add("contraction_cost", c.contractionCost)
	b.Add("contraction_limit", c.contractionLimit)
	b.Add("contact_energy_absorption_limit", c.absorptionLimit)
	c.neurons.EncodeGenome(b.Nested("neurons"))
}

func (c *Cell) randomMolecules(rng *rand.Rand) {
	for i := range c.molecules {
		c.molecules[i] = between(rng, 0, MaxMoleculeAmount)
	}
}

func (c *Cell) Birth() float64 { return c.birth }
func (c *Cell) Age(now float64) float64 { return now - c.birth }
func (c *Cell) Size() float64 { return c.size }
func (c *Cell) Energy() float64 { return c.energy }
func (c *Cell) EnergyDelta() float64 { return c.energy - c.lastEnergy }
func (c *Cell) Molecules() [NumMolecules]float64 { return c.molecules }
func (c *Cell) MovementVelocity() geom.Vec2 { return c.movementVelocity }
func (c *Cell) MovementDirection() float64 { return c.movementDirection }
func (c *Cell) MovementSpeed() float64 { return c.movementSpeed }
func (c *Cell) ContractionAmount() float64 { return c.contractionAmount }
func (c *Cell) AbsorptionAmount() float64 { return c.absorptionAmount }
func (c *Cell) ContactCount() float64 { return c.contactCount }
func (c *Cell) Neurons() *neural.Network { return c.neurons }
func (c *Cell) IsDead() bool { return c.energy <= 0 }

// MoleculesTotal returns the amount of molecules of every species.
func (c *Cell) MoleculesTotal() float64 {
	total := 0.0
	for _, m := range c.molecules {
		total += m
	}
	return total
}

// StoredEnergy is the energy the cell could still produce from its molecules.
func (c *Cell) StoredEnergy() float64 {
	stored := 0.0
	for i, m := range c.molecules {
		stored += m * c.conversion[i]
	}
	return stored
}

// ContractedSize is the radius of the cell after contraction.
func (c *Cell) ContractedSize() float64 {
	return math.Max(c.size*(1-c.contractionAmount), MinContractedSize)
}

// AddEnergy changes the energy by delta. Used for contact exchange.
func (c *Cell) AddEnergy(delta float64) {
	c.energy += delta
}

// ResetContacts forgets the contacts of the previous step.
func (c *Cell) ResetContacts() {
	c.contactCount = 0
	c.contactNormal = geom.Vec2{}
}

// AddContact records a touching cell. The normal points away from it.
func (c *Cell) AddContact(normal geom.Vec2) {
	c.contactCount++
	c.contactNormal = r2.Add(c.contactNormal, normal)
}

// EnergyAbsorptionFrom is the energy this cell takes from other during dt.
// The more channels the other cell expresses the more it resists.
func (c *Cell) EnergyAbsorptionFrom(other *Cell, dt float64) float64 {
	return c.absorptionAmount * other.energy / (1 + other.absorptionAmount) * dt
}

// Update runs one step of the cell metabolism.
func (c *Cell) Update(dt float64, body Body) {
	c.processNeurons(body)
	c.lastEnergy = c.energy
	c.computeContraction()
	c.computeMovement()
	c.computeMetabolism(dt)
	c.computeContactAbsorption()
	c.computeProducedEnergy(dt)
	c.computeConsumedEnergy(dt, body)
}

func (c *Cell) processNeurons(body Body) {
	c.neurons.Process(neural.Inputs{
		Velocity:              [2]float64{body.Velocity.X, body.Velocity.Y},
		VelocityMagnitude:     r2.Norm(body.Velocity),
		Acceleration:          [2]float64{body.Acceleration.X, body.Acceleration.Y},
		AccelerationMagnitude: r2.Norm(body.Acceleration),
		Radius:                body.Radius,
		EnergyAmount:          c.energy,
		EnergyDelta:           c.energy - c.lastEnergy,
		EnergyStored:          c.StoredEnergy(),
		Molecules:             c.molecules,
		MoleculesTotal:        c.MoleculesTotal(),
		MovementDirection:     c.movementDirection,
		MovementSpeed:         c.movementSpeed,
		ContactAbsorption:     c.absorptionAmount,
		ContactCount:          c.contactCount,
		ContactNormal:         [2]float64{c.contactNormal.X, c.contactNormal.Y},
	})
}

func (c *Cell) computeContraction() {
	c.contractionAmount = math.Max(c.neurons.Contraction(), 0) * c.contractionLimit
}

func (c *Cell) computeMovement() {
	twoPi := 2 * math.Pi
	c.movementDirection = math.Mod(math.Abs(c.neurons.MovementDirection()*twoPi), twoPi)
	c.movementSpeed = math.Max(c.neurons.MovementSpeed(), 0) * c.movementSpeedLimit
	c.movementVelocity = geom.Rotate(geom.V(c.movementSpeed, 0), -c.movementDirection)
}

// computeMetabolism converts up to dt units of every species into the others,
// following the regulated conversion matrix. The total amount of molecules is kept.
func (c *Cell) computeMetabolism(dt float64) {
	factors := c.neurons.MetabolismFactors()
	for i := range factors {
		factors[i] = math.Abs(factors[i])
	}
	m := mat.NewDense(NumMolecules, NumMolecules, factors)
	var substrates [NumMolecules]float64
	for i := 0; i < NumMolecules; i++ {
		m.Set(i, i, 1)
		substrates[i] = math.Min(dt, c.molecules[i])
		row := m.RawRowView(i)
		f := substrates[i] / sum(row)
		for j := range row {
			row[j] *= f
		}
	}
	for j := 0; j < NumMolecules; j++ {
		c.molecules[j] += mat.Sum(m.ColView(j)) - substrates[j]
	}
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}

func (c *Cell) computeContactAbsorption() {
	c.absorptionAmount = clamp(c.absorptionAmount+c.neurons.ContactAbsorption(), 0, c.absorptionLimit)
}

func (c *Cell) computeProducedEnergy(dt float64) {
	sources := c.neurons.EnergySources()
	var burnt [NumMolecules]float64
	produced := 0.0
	for i := range burnt {
		burnt[i] = math.Min(math.Max(sources[i], 0)*c.conversion[i]*dt, c.molecules[i])
		produced += burnt[i]
	}
	if produced <= 0 {
		return
	}
	if c.energy+produced > MaxEnergy {
		factor := (MaxEnergy - c.energy) / produced
		if factor <= 0 {
			return
		}
		for i := range burnt {
			burnt[i] *= factor
		}
		produced *= factor
	}
	for i := range burnt {
		c.molecules[i] -= burnt[i]
	}
	c.energy += produced
}

func (c *Cell) computeConsumedEnergy(dt float64, body Body) {
	speed := r2.Norm(c.movementVelocity)
	kinetic := 0.5 * body.Mass * speed * speed * c.movementCost
	contraction := c.contractionAmount * c.contractionCost
	c.energy -= (kinetic + contraction) * dt
}

func (c *Cell) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Energy: Amount: %.2f Delta: %.6f Stored: %.2f\n", c.energy, c.EnergyDelta(), c.StoredEnergy())
	fmt.Fprintf(&sb, "Molecules: %.2f, Total: %.2f\n", c.molecules[:], c.MoleculesTotal())
	fmt.Fprintf(&sb, "Molecules: Production: %.2f\n", c.conversion[:])
	fmt.Fprintf(&sb, "Movement: Speed: %.2f / %.2f, Direction: %3.0f deg, Cost: %.6f\n",
		c.movementSpeed, c.movementSpeedLimit, c.movementDirection*180/math.Pi, c.movementCost)
	contracted := c.ContractedSize()
	fmt.Fprintf(&sb, "Contraction: Size: %.1f / %.1f (%5.1f%%), Amount: %.3f / %.3f, Cost: %.6f\n",
		contracted, c.size, (c.size-contracted)*100/c.size,
		c.contractionAmount, c.contractionLimit, c.contractionCost)
	fmt.Fprintf(&sb, "Contact: Energy Abs: %.4f / %.4f, Contacts: %.0f\n",
		c.absorptionAmount, c.absorptionLimit, c.contactCount)
	sb.WriteString(c.neurons.String())
	return sb.String()
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
