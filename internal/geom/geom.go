// Package geom provides the 2D primitives shared by the physics engine and the viewer:
// vectors, axis aligned bounding boxes and closed polygons.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec2 is a 2D vector in world units.
type Vec2 = r2.Vec

// V builds a Vec2.
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Rotate rotates v by angle radians around the origin.
func Rotate(v Vec2, angle float64) Vec2 {
	return r2.Rotate(v, angle, Vec2{})
}

// Unit returns v normalised, or the zero vector when v has no length.
func Unit(v Vec2) Vec2 {
	if v.X == 0 && v.Y == 0 {
		return Vec2{}
	}
	return r2.Unit(v)
}

// Finite reports whether both components are finite numbers.
func Finite(v Vec2) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// AABB is an axis aligned bounding box.
type AABB struct {
	Min Vec2
	Max Vec2
}

// FromMinMax builds a box from its corners.
func FromMinMax(min, max Vec2) AABB {
	return AABB{Min: min, Max: max}
}

// AroundCircle returns the box enclosing a circle.
func AroundCircle(center Vec2, radius float64) AABB {
	return AABB{
		Min: Vec2{X: center.X - radius, Y: center.Y - radius},
		Max: Vec2{X: center.X + radius, Y: center.Y + radius},
	}
}

// Center returns the box centre.
func (b AABB) Center() Vec2 {
	return r2.Scale(0.5, r2.Add(b.Min, b.Max))
}

// Size returns the box extent on each axis.
func (b AABB) Size() Vec2 {
	return r2.Sub(b.Max, b.Min)
}

// Intersects reports strict overlap on both axes; touching boxes do not intersect.
func (b AABB) Intersects(o AABB) bool {
	d := r2.Sub(o.Center(), b.Center())
	total := r2.Add(o.Size(), b.Size())
	return math.Abs(d.X)*2 < total.X && math.Abs(d.Y)*2 < total.Y
}

// Contains reports whether p lies inside the box, borders included.
func (b AABB) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// AABBBuilder accumulates points into a bounding box.
type AABBBuilder struct {
	min, max Vec2
	empty    bool
}

// NewAABBBuilder returns an empty builder.
func NewAABBBuilder() *AABBBuilder {
	return &AABBBuilder{empty: true}
}

// Add grows the box to include p.
func (bb *AABBBuilder) Add(p Vec2) {
	if bb.empty {
		bb.min, bb.max = p, p
		bb.empty = false
		return
	}
	bb.min = Vec2{X: math.Min(bb.min.X, p.X), Y: math.Min(bb.min.Y, p.Y)}
	bb.max = Vec2{X: math.Max(bb.max.X, p.X), Y: math.Max(bb.max.Y, p.Y)}
}

// Build returns the accumulated box. An empty builder yields the zero box.
func (bb *AABBBuilder) Build() AABB {
	return AABB{Min: bb.min, Max: bb.max}
}
