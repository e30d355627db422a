// Package genome stores the heritable parameters of a cell as named genes and
// implements the genetic operators used for reproduction: crossover and mutation.
//
// Gene ids are slash separated paths built by nesting, for example
// "neurons/layer1/weights/003/012". Components contribute their genes through the
// Encoder interface and read them back through Decoder.
package genome

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

// ErrMissingGene is returned when a decoder needs a gene the genome lacks.
var ErrMissingGene = errors.New("genome: missing gene")

// Encoder writes its genes into a builder.
type Encoder interface {
	EncodeGenome(b *Builder)
}

// Decoder reads its genes back from a genome.
type Decoder interface {
	DecodeGenome(g *Genome, path string) error
}

// Genome is an immutable-by-convention mapping from gene id to value.
type Genome struct {
	genes map[string]float64
}

// New creates a genome from a gene table. The map is copied.
func New(genes map[string]float64) *Genome {
	g := &Genome{genes: make(map[string]float64, len(genes))}
	for k, v := range genes {
		g.genes[k] = v
	}
	return g
}

// Encode builds the genome of an encoder.
func Encode(e Encoder) *Genome {
	b := NewBuilder()
	e.EncodeGenome(b)
	return b.Build()
}

// ID joins a path and a gene name.
func ID(path, name string) string {
	if path == "" {
		return name
	}
	return path + "/" + name
}

// Index formats a matrix or vector index as a gene name.
func Index(i int) string {
	return fmt.Sprintf("%03d", i)
}

// Get returns the value of the gene name below path.
func (g *Genome) Get(path, name string) (float64, bool) {
	v, ok := g.genes[ID(path, name)]
	return v, ok
}

// Must returns the gene or ErrMissingGene.
func (g *Genome) Must(path, name string) (float64, error) {
	v, ok := g.Get(path, name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingGene, ID(path, name))
	}
	return v, nil
}

// Len returns the number of genes.
func (g *Genome) Len() int {
	return len(g.genes)
}

// Keys returns the gene ids in sorted order.
func (g *Genome) Keys() []string {
	keys := make([]string, 0, len(g.genes))
	for k := range g.genes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Cross combines two genomes at a single random cut point over the sorted union of
// their gene ids: genes before the cut come from a, the rest from b. A gene missing
// from the preferred parent is taken from the other one.
func Cross(a, b *Genome, rng *rand.Rand) *Genome {
	union := make(map[string]struct{}, len(a.genes)+len(b.genes))
	for k := range a.genes {
		union[k] = struct{}{}
	}
	for k := range b.genes {
		union[k] = struct{}{}
	}
	keys := make([]string, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cut := 0
	if n := len(keys); n > 2 {
		cut = 1 + rng.IntN(n-2)
	} else if n == 2 {
		cut = 1
	}

	child := &Genome{genes: make(map[string]float64, len(keys))}
	for i, k := range keys {
		first, second := a, b
		if i >= cut {
			first, second = b, a
		}
		if v, ok := first.genes[k]; ok {
			child.genes[k] = v
		} else {
			child.genes[k] = second.genes[k]
		}
	}
	return child
}

// Mutate makes n mutation attempts. Each attempt, with the given probability, adds
// normal noise of standard deviation sigma to a uniformly chosen gene. It returns the
// number of genes changed.
func (g *Genome) Mutate(rng *rand.Rand, n int, probability, sigma float64) int {
	if len(g.genes) == 0 {
		return 0
	}
	keys := g.Keys()
	changed := 0
	for i := 0; i < n; i++ {
		if rng.Float64() >= probability {
			continue
		}
		k := keys[rng.IntN(len(keys))]
		g.genes[k] += rng.NormFloat64() * sigma
		changed++
	}
	return changed
}

// Subtree returns the genes below path, with the path prefix removed.
func (g *Genome) Subtree(path string) map[string]float64 {
	prefix := path + "/"
	out := make(map[string]float64)
	for k, v := range g.genes {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

func (g *Genome) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.genes)
}

func (g *Genome) UnmarshalJSON(data []byte) error {
	genes := make(map[string]float64)
	if err := json.Unmarshal(data, &genes); err != nil {
		return fmt.Errorf("genome: %w", err)
	}
	g.genes = genes
	return nil
}

// Builder collects genes under a path. Nested builders share the same gene table.
type Builder struct {
	path  string
	genes map[string]float64
}

// NewBuilder returns a root builder.
func NewBuilder() *Builder {
	return &Builder{genes: make(map[string]float64)}
}

// Nested returns a builder writing below name.
func (b *Builder) Nested(name string) *Builder {
	return &Builder{path: ID(b.path, name), genes: b.genes}
}

// Add records a gene.
func (b *Builder) Add(name string, value float64) {
	b.genes[ID(b.path, name)] = value
}

// AddVector records a vector as indexed genes below name.
func (b *Builder) AddVector(name string, values []float64) {
	nb := b.Nested(name)
	for i, v := range values {
		nb.Add(Index(i), v)
	}
}

// Build returns the genome. The builder must not be used afterwards.
func (b *Builder) Build() *Genome {
	return &Genome{genes: b.genes}
}

// Vector reads back a vector written with AddVector.
func (g *Genome) Vector(path, name string, n int) ([]float64, error) {
	base := ID(path, name)
	out := make([]float64, n)
	for i := range out {
		v, err := g.Must(base, Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
