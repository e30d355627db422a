package physics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"vlife/internal/geom"
)

// Object is a circular body integrated with position verlet.
// Its mass is fixed at creation from the initial radius.
type Object struct {
	mass         float64
	radius       float64
	position     geom.Vec2
	last         geom.Vec2
	velocity     geom.Vec2
	acceleration geom.Vec2
}

// ObjectHandle references an Object inside an Engine.
type ObjectHandle = Handle[Object]

// NewObject creates a resting object of the given radius at position.
func NewObject(position geom.Vec2, radius float64) Object {
	return Object{
		mass:     math.Pi * radius * radius,
		radius:   radius,
		position: position,
		last:     position,
	}
}

func (o *Object) Mass() float64 { return o.mass }
func (o *Object) Radius() float64 { return o.radius }
func (o *Object) SetRadius(radius float64) { o.radius = radius }
func (o *Object) Position() geom.Vec2 { return o.position }
func (o *Object) Velocity() geom.Vec2 { return o.velocity }
func (o *Object) Acceleration() geom.Vec2 { return o.acceleration }

// SetVelocity makes the next integration step move the object by velocity*dt.
func (o *Object) SetVelocity(velocity geom.Vec2, dt float64) {
	o.last = r2.Sub(o.position, r2.Scale(dt, velocity))
}

// Bounds returns the object bounding box.
func (o *Object) Bounds() geom.AABB {
	return geom.AroundCircle(o.position, o.radius)
}

func (o *Object) String() string {
	return fmt.Sprintf(
		"Radius: %4.1f, Mass: %.2f, Position: [%.2f, %.2f]\nVelocity: %4.1f [%.1f, %.1f], Acceleration: %4.1f [%.1f, %.1f]\n",
		o.radius, o.mass, o.position.X, o.position.Y,
		r2.Norm(o.velocity), o.velocity.X, o.velocity.Y,
		r2.Norm(o.acceleration), o.acceleration.X, o.acceleration.Y,
	)
}

// Bond is a spring holding two objects at a rest length.
type Bond struct {
	A, B     ObjectHandle
	Length   float64
	Strength float64
}

// BondHandle references a Bond inside an Engine.
type BondHandle = Handle[Bond]

// Contact records two overlapping objects during the last update.
// Normal points from B towards A.
type Contact struct {
	A, B   ObjectHandle
	Normal geom.Vec2
}
