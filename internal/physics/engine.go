// Package physics implements the verlet world the cells live in: circular objects,
// spring bonds between them, static polygon obstacles and the world walls.
package physics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"vlife/internal/geom"
)

// Defaults for a petri dish world.
const (
	DefaultResponseCoef = 0.1
	DefaultSubSteps     = 1
	DefaultRestitution  = 0.5
	DefaultFriction     = 0.6
)

// WallMode selects how objects are kept inside the world.
type WallMode string

const (
	// WallSoft pushes overlapping objects back by a fraction of the overlap.
	WallSoft WallMode = "soft"
	// WallBounce mirrors objects at the wall with restitution and friction.
	WallBounce WallMode = "bounce"
)

// Config parameterises an Engine.
type Config struct {
	WorldSize    geom.Vec2
	ResponseCoef float64
	SubSteps     int
	Gravity      geom.Vec2
	Drag         float64
	Walls        WallMode
	Restitution  float64
	Friction     float64
}

// DefaultConfig returns the petri dish configuration for a world of the given size.
func DefaultConfig(worldSize geom.Vec2) Config {
	return Config{
		WorldSize:    worldSize,
		ResponseCoef: DefaultResponseCoef,
		SubSteps:     DefaultSubSteps,
		Walls:        WallSoft,
		Restitution:  DefaultRestitution,
		Friction:     DefaultFriction,
	}
}

// Engine owns every physical body of the world.
// Engine is not safe for concurrent use.
type Engine struct {
	cfg       Config
	time      float64
	objects   *Set[Object]
	bonds     *Set[Bond]
	obstacles []*geom.ClosedPolygon
	contacts  []Contact
	seen      map[[2]uint64]struct{}
	sweep     []int
}

// NewEngine creates an empty engine.
func NewEngine(cfg Config) *Engine {
	if cfg.SubSteps < 1 {
		cfg.SubSteps = 1
	}
	if cfg.Walls == "" {
		cfg.Walls = WallSoft
	}
	return &Engine{
		cfg:     cfg,
		objects: NewSet[Object](),
		bonds:   NewSet[Bond](),
		seen:    make(map[[2]uint64]struct{}),
	}
}

func (e *Engine) Time() float64 { return e.time }
func (e *Engine) WorldSize() geom.Vec2 { return e.cfg.WorldSize }
func (e *Engine) Objects() *Set[Object] { return e.objects }
func (e *Engine) Bonds() *Set[Bond] { return e.bonds }
func (e *Engine) Contacts() []Contact { return e.contacts }
func (e *Engine) Obstacles() []*geom.ClosedPolygon { return e.obstacles }

// AddObject inserts a resting circle and returns its handle.
func (e *Engine) AddObject(position geom.Vec2, radius float64) ObjectHandle {
	return e.objects.Insert(NewObject(position, radius))
}

// Object returns the object behind h or nil.
func (e *Engine) Object(h ObjectHandle) *Object {
	return e.objects.Get(h)
}

// RemoveObject deletes the object and every bond attached to it.
func (e *Engine) RemoveObject(h ObjectHandle) bool {
	if _, ok := e.objects.Remove(h); !ok {
		return false
	}
	for _, bh := range e.bonds.Handles() {
		if b := e.bonds.Get(bh); b.A == h || b.B == h {
			e.bonds.Remove(bh)
		}
	}
	return true
}

// AddBond links two objects with a spring. The rest length defaults to their current
// distance when length is not positive.
func (e *Engine) AddBond(a, b ObjectHandle, length, strength float64) (BondHandle, bool) {
	oa, ob := e.objects.Pair(a, b)
	if oa == nil {
		return BondHandle{}, false
	}
	if length <= 0 {
		length = r2.Norm(r2.Sub(ob.position, oa.position))
	}
	return e.bonds.Insert(Bond{A: a, B: b, Length: length, Strength: strength}), true
}

// AddObstacle adds a static polygon to the world.
func (e *Engine) AddObstacle(points []geom.Vec2) *geom.ClosedPolygon {
	p := geom.NewClosedPolygon(points)
	e.obstacles = append(e.obstacles, p)
	return p
}

// Update advances the world by dt split into SubSteps integration steps. Velocities
// are measured over the last sub-step, so they equal (pos-last)/dt with one sub-step.
func (e *Engine) Update(dt float64) {
	e.time += dt
	e.contacts = e.contacts[:0]
	clear(e.seen)

	stepDt := dt / float64(e.cfg.SubSteps)
	for i := 0; i < e.cfg.SubSteps; i++ {
		e.checkCollisions()
		e.applyBonds()
		e.applyObstacles()
		e.applyWalls()
		e.integrate(stepDt)
	}

	if stepDt == 0 {
		return
	}
	e.objects.Each(func(_ ObjectHandle, o *Object) bool {
		o.velocity = r2.Scale(1/stepDt, r2.Sub(o.position, o.last))
		o.acceleration = geom.Vec2{}
		return true
	})
}

// checkCollisions separates overlapping circles. Candidate pairs come from a sort and
// sweep over the x extent of each object.
func (e *Engine) checkCollisions() {
	n := e.objects.Len()
	e.sweep = e.sweep[:0]
	for i := 0; i < n; i++ {
		e.sweep = append(e.sweep, i)
	}
	minX := func(i int) float64 {
		_, o := e.objects.At(i)
		return o.Bounds().Min.X
	}
	sort.SliceStable(e.sweep, func(a, b int) bool { return minX(e.sweep[a]) < minX(e.sweep[b]) })

	for si := 0; si < len(e.sweep); si++ {
		i := e.sweep[si]
		_, oi := e.objects.At(i)
		maxX := oi.Bounds().Max.X
		for sj := si + 1; sj < len(e.sweep); sj++ {
			j := e.sweep[sj]
			if minX(j) > maxX {
				break
			}
			if i < j {
				e.collide(i, j)
			} else {
				e.collide(j, i)
			}
		}
	}
}

// collide resolves the pair at insertion positions i < j.
func (e *Engine) collide(i, j int) {
	h1, o1 := e.objects.At(i)
	h2, o2 := e.objects.At(j)
	v := r2.Sub(o1.position, o2.position)
	dist2 := r2.Norm2(v)
	minDist := o1.radius + o2.radius
	if dist2 >= minDist*minDist {
		return
	}

	var n geom.Vec2
	dist := math.Sqrt(dist2)
	if dist == 0 {
		n = geom.V(1, 0)
	} else {
		n = r2.Scale(1/dist, v)
	}

	key := [2]uint64{h1.id, h2.id}
	if _, ok := e.seen[key]; !ok {
		e.seen[key] = struct{}{}
		e.contacts = append(e.contacts, Contact{A: h1, B: h2, Normal: n})
	}

	// each body is displaced by its own share of the total mass
	total := o1.mass + o2.mass
	delta := 0.5 * e.cfg.ResponseCoef * (minDist - dist)
	o1.position = r2.Add(o1.position, r2.Scale(delta*o1.mass/total, n))
	o2.position = r2.Sub(o2.position, r2.Scale(delta*o2.mass/total, n))
}

func (e *Engine) applyBonds() {
	e.bonds.Each(func(_ BondHandle, b *Bond) bool {
		p1, p2 := e.objects.Pair(b.A, b.B)
		if p1 == nil {
			return true
		}
		axis := r2.Sub(p2.position, p1.position)
		distance := r2.Norm(axis)
		if distance == 0 {
			return true
		}
		displacement := distance - b.Length
		factor := 0.5 * b.Strength * displacement / (distance * (p1.mass + p2.mass))
		p1.position = r2.Add(p1.position, r2.Scale(0.5*factor*p1.mass, axis))
		p2.position = r2.Sub(p2.position, r2.Scale(0.5*factor*p2.mass, axis))
		return true
	})
}

func (e *Engine) applyObstacles() {
	if len(e.obstacles) == 0 {
		return
	}
	e.objects.Each(func(_ ObjectHandle, o *Object) bool {
		for _, obstacle := range e.obstacles {
			bounds := obstacle.Bounds()
			if !bounds.Contains(o.position) || !obstacle.Inside(o.position) {
				continue
			}
			seg, ok := obstacle.ClosestSegment(o.position, bounds)
			if !ok {
				continue
			}
			correction := r2.Scale(seg.Depth, seg.Normal())
			out := geom.Unit(correction)
			o.position = r2.Add(o.position, r2.Add(correction, r2.Scale(e.cfg.ResponseCoef*o.radius, out)))
		}
		return true
	})
}

func (e *Engine) applyWalls() {
	if e.cfg.Walls == WallBounce {
		e.objects.Each(func(_ ObjectHandle, o *Object) bool {
			e.bounce(o)
			return true
		})
		return
	}
	response := 0.5 * e.cfg.ResponseCoef
	size := e.cfg.WorldSize
	e.objects.Each(func(_ ObjectHandle, o *Object) bool {
		switch {
		case o.position.X+o.radius >= size.X:
			o.position.X -= response * (o.position.X + o.radius - size.X)
		case o.position.X-o.radius < 0:
			o.position.X += response * (o.radius - o.position.X)
		}
		switch {
		case o.position.Y+o.radius >= size.Y:
			o.position.Y -= response * (o.position.Y + o.radius - size.Y)
		case o.position.Y-o.radius < 0:
			o.position.Y += response * (o.radius - o.position.Y)
		}
		return true
	})
}

// bounce mirrors the object at the walls, damping the normal velocity by the
// restitution and the tangential one by the friction.
func (e *Engine) bounce(o *Object) {
	size := e.cfg.WorldSize
	restitution, friction := e.cfg.Restitution, e.cfg.Friction
	velocity := r2.Sub(o.position, o.last)

	hitX := false
	if o.position.X > size.X-o.radius {
		o.position.X = 2*(size.X-o.radius) - o.position.X
		hitX = true
	} else if o.position.X < o.radius {
		o.position.X = 2*o.radius - o.position.X
		hitX = true
	}
	if hitX {
		o.last.X = o.position.X + restitution*velocity.X
		v := r2.Sub(o.position, o.last)
		v.Y *= 1 - friction
		o.last = r2.Sub(o.position, v)
	}

	hitY := false
	if o.position.Y > size.Y-o.radius {
		o.position.Y = 2*(size.Y-o.radius) - o.position.Y
		hitY = true
	} else if o.position.Y < o.radius {
		o.position.Y = 2*o.radius - o.position.Y
		hitY = true
	}
	if hitY {
		o.last.Y = o.position.Y + restitution*velocity.Y
		v := r2.Sub(o.position, o.last)
		v.X *= 1 - friction
		o.last = r2.Sub(o.position, v)
	}
}

func (e *Engine) integrate(dt float64) {
	halfDrag := 0.5 * e.cfg.Drag
	e.objects.Each(func(_ ObjectHandle, o *Object) bool {
		velocity := r2.Sub(o.position, o.last)
		acc := r2.Add(o.acceleration, e.cfg.Gravity)
		if halfDrag > 0 && (velocity.X != 0 || velocity.Y != 0) {
			speed := r2.Norm(velocity)
			drag := r2.Scale(halfDrag*speed*speed/o.mass, geom.Unit(velocity))
			acc = r2.Sub(acc, drag)
		}
		o.last = o.position
		o.position = r2.Add(o.position, r2.Add(velocity, r2.Scale(dt*dt, acc)))
		o.acceleration = geom.Vec2{}
		return true
	})
}
