// Package sim runs the petri dish: it owns the physics engine and the cells living in
// it, exchanges energy between touching cells, removes the dead ones and breeds their
// replacements from the best genomes seen so far.
//
// A Simulator is not safe for concurrent use. The runner serialises access to it.
package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"vlife/internal/cell"
	"vlife/internal/genome"
	"vlife/internal/geom"
	"vlife/internal/physics"
	"vlife/internal/rank"
)

var (
	// ErrWorldFull is returned when no free position is found for a new cell.
	ErrWorldFull = errors.New("sim: no free position for a new cell")
	// ErrNotFound is returned for unknown cell ids.
	ErrNotFound = errors.New("sim: cell not found")
)

// Defaults for a new world.
const (
	DefaultRankSize            = 50
	DefaultMutations           = 10
	DefaultMutationProbability = 0.5
	DefaultMutationSigma       = 0.1
	DefaultBondStrength        = 0.5
	DefaultPlacementAttempts   = 1000
)

// Config parameterises a Simulator.
type Config struct {
	Physics physics.Config
	// Obstacles are closed polygons added to the world on creation.
	Obstacles [][]geom.Vec2

	RankSize            int
	Replace             bool
	Mutations           int
	MutationProbability float64
	MutationSigma       float64
	BondStrength        float64
	PlacementAttempts   int
}

// DefaultConfig returns the configuration of a world of the given size.
func DefaultConfig(worldSize geom.Vec2) Config {
	return Config{
		Physics:             physics.DefaultConfig(worldSize),
		RankSize:            DefaultRankSize,
		Replace:             true,
		Mutations:           DefaultMutations,
		MutationProbability: DefaultMutationProbability,
		MutationSigma:       DefaultMutationSigma,
		BondStrength:        DefaultBondStrength,
		PlacementAttempts:   DefaultPlacementAttempts,
	}
}

// CellID identifies a cell for its whole life. Ids are never reused.
type CellID uint64

type body struct {
	cell   *cell.Cell
	object physics.ObjectHandle
}

// Stats summarises the state of the world.
type Stats struct {
	Time       float64
	Population int
	Births     int
	Deaths     int
	MeanEnergy float64
	BestScore  float64
	Ranked     int
}

// Simulator is the virtual life world.
type Simulator struct {
	cfg    Config
	rng    *rand.Rand
	log    *zap.Logger
	engine *physics.Engine
	cells  *physics.Set[body]
	// object handle id -> cell id
	owners map[uint64]CellID
	rank   *rank.Rank
	dead   []CellID
	births int
	deaths int
}

// New creates an empty world.
func New(cfg Config, rng *rand.Rand, log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PlacementAttempts < 1 {
		cfg.PlacementAttempts = DefaultPlacementAttempts
	}
	s := &Simulator{
		cfg:    cfg,
		rng:    rng,
		log:    log,
		engine: physics.NewEngine(cfg.Physics),
		cells:  physics.NewSet[body](),
		owners: make(map[uint64]CellID),
		rank:   rank.New(cfg.RankSize),
	}
	for _, points := range cfg.Obstacles {
		s.engine.AddObstacle(points)
	}
	return s
}

func (s *Simulator) Time() float64 { return s.engine.Time() }
func (s *Simulator) WorldSize() geom.Vec2 { return s.engine.WorldSize() }
func (s *Simulator) Len() int { return s.cells.Len() }
func (s *Simulator) Rank() *rank.Rank { return s.rank }
func (s *Simulator) Engine() *physics.Engine { return s.engine }

func (s *Simulator) insert(c *cell.Cell, position geom.Vec2, radius float64) CellID {
	obj := s.engine.AddObject(position, radius)
	h := s.cells.Insert(body{cell: c, object: obj})
	id := CellID(h.ID())
	s.owners[obj.ID()] = id
	s.births++
	return id
}

// AddRandomCell adds a cell with random traits at a free position.
func (s *Simulator) AddRandomCell() (CellID, error) {
	radius := cell.MinSize + s.rng.Float64()*(cell.MaxSize-cell.MinSize)
	position, err := s.findFreePosition(radius)
	if err != nil {
		return 0, err
	}
	return s.insert(cell.Random(s.rng, radius, s.Time()), position, radius), nil
}

// AddTestingCell adds a cell with plenty of energy moving from the left of the world.
func (s *Simulator) AddTestingCell() CellID {
	const radius = 10.0
	return s.insert(cell.Testing(s.rng, radius, s.Time()), geom.V(20, 200), radius)
}

// AddCellFromGenome adds a newborn expressing g at a free position.
func (s *Simulator) AddCellFromGenome(g *genome.Genome) (CellID, error) {
	c, err := cell.FromGenome(s.rng, g, s.Time())
	if err != nil {
		return 0, fmt.Errorf("express genome: %w", err)
	}
	position, err := s.findFreePosition(c.Size())
	if err != nil {
		return 0, err
	}
	return s.insert(c, position, c.Size()), nil
}

// AddOrganism adds n cells sharing one random genome, placed on a ring and bonded to
// their neighbours by springs.
func (s *Simulator) AddOrganism(n int) ([]CellID, error) {
	if n < 1 {
		return nil, fmt.Errorf("sim: organism needs at least one cell, got %d", n)
	}
	founder := cell.Random(s.rng, cell.MinSize+s.rng.Float64()*(cell.MaxSize-cell.MinSize), s.Time())
	g := genome.Encode(founder)
	radius := founder.Size()

	ring := 0.0
	if n > 1 {
		ring = radius / math.Sin(math.Pi/float64(n))
	}
	offsets := make([]geom.Vec2, n)
	for i := range offsets {
		offsets[i] = geom.Rotate(geom.V(ring, 0), 2*math.Pi*float64(i)/float64(n))
	}
	center, err := s.findFreeSpot(ring+radius, offsets, radius)
	if err != nil {
		return nil, err
	}

	ids := make([]CellID, 0, n)
	objects := make([]physics.ObjectHandle, 0, n)
	for i := 0; i < n; i++ {
		c := founder
		if i > 0 {
			if c, err = cell.FromGenome(s.rng, g, s.Time()); err != nil {
				return nil, fmt.Errorf("express genome: %w", err)
			}
		}
		id := s.insert(c, r2.Add(center, offsets[i]), radius)
		ids = append(ids, id)
		objects = append(objects, s.cells.Get(physics.HandleOf[body](uint64(id))).object)
	}
	// a pair needs a single bond, a ring of n > 2 needs n
	bonds := n
	if n <= 2 {
		bonds = n - 1
	}
	for i := 0; i < bonds; i++ {
		s.engine.AddBond(objects[i], objects[(i+1)%n], 0, s.cfg.BondStrength)
	}
	s.log.Debug("organism added", zap.Int("cells", n), zap.Float64("radius", radius))
	return ids, nil
}

// findFreePosition samples positions until a circle of radius there overlaps no cell.
func (s *Simulator) findFreePosition(radius float64) (geom.Vec2, error) {
	return s.findFreeSpot(0, []geom.Vec2{{}}, radius)
}

// findFreeSpot samples centres at least margin away from the walls until every circle
// of radius at centre+offset is clear of the living cells.
func (s *Simulator) findFreeSpot(margin float64, offsets []geom.Vec2, radius float64) (geom.Vec2, error) {
	size := s.WorldSize()
	span := geom.V(size.X-2*margin, size.Y-2*margin)
	if span.X < 0 || span.Y < 0 {
		return geom.Vec2{}, ErrWorldFull
	}
	for i := 0; i < s.cfg.PlacementAttempts; i++ {
		center := geom.V(margin+s.rng.Float64()*span.X, margin+s.rng.Float64()*span.Y)
		if s.isClear(center, offsets, radius) {
			return center, nil
		}
	}
	return geom.Vec2{}, ErrWorldFull
}

func (s *Simulator) isClear(center geom.Vec2, offsets []geom.Vec2, radius float64) bool {
	free := true
	s.cells.Each(func(_ physics.Handle[body], b *body) bool {
		o := s.engine.Object(b.object)
		for _, offset := range offsets {
			if r2.Norm(r2.Sub(r2.Add(center, offset), o.Position())) <= radius+o.Radius() {
				free = false
				return false
			}
		}
		return true
	})
	return free
}

func (s *Simulator) get(id CellID) *body {
	return s.cells.Get(physics.HandleOf[body](uint64(id)))
}

func (s *Simulator) object(id CellID) *physics.Object {
	b := s.get(id)
	if b == nil {
		return nil
	}
	return s.engine.Object(b.object)
}

// CellView is a snapshot of a cell and its body.
type CellView struct {
	ID       CellID
	Position geom.Vec2
	Velocity geom.Vec2
	Radius   float64
	Cell     *cell.Cell
}

func (v CellView) String() string {
	return fmt.Sprintf("Cell %d\nRadius: %4.1f, Position: [%.2f, %.2f], Velocity: %4.1f\n%s",
		v.ID, v.Radius, v.Position.X, v.Position.Y, r2.Norm(v.Velocity), v.Cell)
}

// CellView returns the view of a living cell.
func (s *Simulator) CellView(id CellID) (CellView, error) {
	b := s.get(id)
	if b == nil {
		return CellView{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	o := s.engine.Object(b.object)
	return CellView{ID: id, Position: o.Position(), Velocity: o.Velocity(), Radius: o.Radius(), Cell: b.cell}, nil
}

// Cells returns every living cell in insertion order.
func (s *Simulator) Cells() []CellView {
	out := make([]CellView, 0, s.cells.Len())
	s.cells.Each(func(h physics.Handle[body], b *body) bool {
		o := s.engine.Object(b.object)
		out = append(out, CellView{ID: CellID(h.ID()), Position: o.Position(), Velocity: o.Velocity(), Radius: o.Radius(), Cell: b.cell})
		return true
	})
	return out
}

// ClosestCell returns the cell nearest to (x, y). A cell containing the point is always
// preferred to one that does not.
func (s *Simulator) ClosestCell(x, y float64) (CellID, bool) {
	point := geom.V(x, y)
	var (
		selected CellID
		best     = math.Inf(1)
		hit      bool
		found    bool
	)
	s.cells.Each(func(h physics.Handle[body], b *body) bool {
		o := s.engine.Object(b.object)
		dist := r2.Norm(r2.Sub(o.Position(), point))
		inside := dist <= o.Radius()
		if !found || (dist < best && (inside || !hit)) {
			selected, best, hit, found = CellID(h.ID()), dist, inside, true
		}
		return true
	})
	return selected, found
}

// Update advances the world by dt.
func (s *Simulator) Update(dt float64) {
	s.dead = s.dead[:0]
	s.engine.Update(dt)
	s.handleContacts(dt)
	s.updateCells(dt)
	removed := s.removeDeadCells()
	if s.cfg.Replace {
		for i := 0; i < removed; i++ {
			s.reproduce()
		}
	}
}

func (s *Simulator) owner(h physics.ObjectHandle) *body {
	id, ok := s.owners[h.ID()]
	if !ok {
		return nil
	}
	return s.get(id)
}

func (s *Simulator) handleContacts(dt float64) {
	s.cells.Each(func(_ physics.Handle[body], b *body) bool {
		b.cell.ResetContacts()
		return true
	})
	for _, contact := range s.engine.Contacts() {
		b1, b2 := s.owner(contact.A), s.owner(contact.B)
		if b1 == nil || b2 == nil {
			continue
		}
		d1 := b1.cell.EnergyAbsorptionFrom(b2.cell, dt)
		d2 := b2.cell.EnergyAbsorptionFrom(b1.cell, dt)
		b1.cell.AddEnergy(d1 - d2)
		b1.cell.AddContact(contact.Normal)
		b2.cell.AddEnergy(d2 - d1)
		b2.cell.AddContact(r2.Scale(-1, contact.Normal))
	}
}

func (s *Simulator) updateCells(dt float64) {
	s.cells.Each(func(h physics.Handle[body], b *body) bool {
		if o := s.engine.Object(b.object); o != nil {
			b.cell.Update(dt, cell.Body{
				Velocity:     o.Velocity(),
				Acceleration: o.Acceleration(),
				Radius:       o.Radius(),
				Mass:         o.Mass(),
			})
			o.SetRadius(b.cell.ContractedSize())
			o.SetVelocity(r2.Scale(0.5, r2.Add(o.Velocity(), b.cell.MovementVelocity())), dt)
		}
		if b.cell.IsDead() {
			s.dead = append(s.dead, CellID(h.ID()))
		}
		return true
	})
}

func (s *Simulator) removeDeadCells() int {
	now := s.Time()
	for _, id := range s.dead {
		h := physics.HandleOf[body](uint64(id))
		b, ok := s.cells.Remove(h)
		if !ok {
			continue
		}
		age := b.cell.Age(now)
		if err := s.rank.Insert(age, genome.Encode(b.cell)); err != nil {
			s.log.Warn("dead cell not ranked", zap.Uint64("cell", uint64(id)), zap.Error(err))
		}
		delete(s.owners, b.object.ID())
		s.engine.RemoveObject(b.object)
		s.deaths++
		s.log.Debug("cell died", zap.Uint64("cell", uint64(id)), zap.Float64("age", age))
	}
	return len(s.dead)
}

// reproduce adds a newborn bred from two ranked genomes, or a random cell while the
// rank holds fewer than two.
func (s *Simulator) reproduce() {
	var err error
	if s.rank.Len() < 2 {
		_, err = s.AddRandomCell()
	} else {
		a, _ := s.rank.ChooseRandom(s.rng)
		b, _ := s.rank.ChooseRandom(s.rng)
		child := genome.Cross(a, b, s.rng)
		child.Mutate(s.rng, s.cfg.Mutations, s.cfg.MutationProbability, s.cfg.MutationSigma)
		_, err = s.AddCellFromGenome(child)
	}
	if err != nil {
		s.log.Warn("replacement cell not added", zap.Error(err))
	}
}

// Stats summarises the world.
func (s *Simulator) Stats() Stats {
	st := Stats{
		Time:       s.Time(),
		Population: s.cells.Len(),
		Births:     s.births,
		Deaths:     s.deaths,
		Ranked:     s.rank.Len(),
	}
	if st.Population > 0 {
		total := 0.0
		s.cells.Each(func(_ physics.Handle[body], b *body) bool {
			total += b.cell.Energy()
			return true
		})
		st.MeanEnergy = total / float64(st.Population)
	}
	if best, ok := s.rank.Best(); ok {
		st.BestScore = best.Score
	}
	return st
}
