package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

type vertex struct {
	point Vec2
	// inverse length of the segment starting at point
	invLength float64
}

// ClosedPolygon is a polygon whose last point connects back to the first.
type ClosedPolygon struct {
	vertices []vertex
	bounds   AABB
}

// NewClosedPolygon builds a polygon from ordered points.
func NewClosedPolygon(points []Vec2) *ClosedPolygon {
	p := &ClosedPolygon{vertices: make([]vertex, 0, len(points))}
	p.Update(points)
	return p
}

// Update replaces the polygon points, recomputing segment lengths and bounds.
func (p *ClosedPolygon) Update(points []Vec2) {
	p.vertices = p.vertices[:0]
	bb := NewAABBBuilder()
	n := len(points)
	for i, point := range points {
		bb.Add(point)
		next := points[(i+1)%n]
		p.vertices = append(p.vertices, vertex{
			point:     point,
			invLength: 1 / r2.Norm(r2.Sub(next, point)),
		})
	}
	p.bounds = bb.Build()
}

// Len returns the number of vertices.
func (p *ClosedPolygon) Len() int {
	return len(p.vertices)
}

// Points returns a copy of the polygon vertices.
func (p *ClosedPolygon) Points() []Vec2 {
	points := make([]Vec2, len(p.vertices))
	for i, v := range p.vertices {
		points[i] = v.point
	}
	return points
}

// Bounds returns the polygon bounding box.
func (p *ClosedPolygon) Bounds() AABB {
	return p.bounds
}

// Inside reports whether point lies inside the polygon using ray casting parity.
func (p *ClosedPolygon) Inside(point Vec2) bool {
	n := len(p.vertices)
	inside := false
	for i := 0; i < n; i++ {
		a := p.vertices[i].point
		b := p.vertices[(i+1)%n].point
		if (point.Y < a.Y) != (point.Y < b.Y) &&
			point.X < a.X+((point.Y-a.Y)/(b.Y-a.Y))*(b.X-a.X) {
			inside = !inside
		}
	}
	return inside
}

// Segment describes the polygon edge closest to a point.
type Segment struct {
	Index1, Index2 int
	Point1, Point2 Vec2
	// Ratio is the projection of the point onto the edge, in [0, 1].
	Ratio float64
	// Depth is the signed distance from the point to the edge line.
	Depth float64
}

// Normal returns the unit normal of the segment (left hand side of Point1->Point2).
func (s Segment) Normal() Vec2 {
	d := Unit(r2.Sub(s.Point2, s.Point1))
	return Vec2{X: -d.Y, Y: d.X}
}

// ClosestSegment returns the edge closest to point, by absolute depth, among the edges
// having an endpoint inside within. Edges onto which point does not project are ignored. Ties keep the
// first edge found.
func (p *ClosedPolygon) ClosestSegment(point Vec2, within AABB) (Segment, bool) {
	var (
		best  Segment
		found bool
	)
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a, b := p.vertices[i].point, p.vertices[j].point
		if !within.Contains(a) && !within.Contains(b) {
			continue
		}
		depth, ratio, ok := distanceToSegment(point, a, b, p.vertices[i].invLength)
		if !ok {
			continue
		}
		if !found || math.Abs(depth) < math.Abs(best.Depth) {
			best = Segment{Index1: i, Index2: j, Point1: a, Point2: b, Ratio: ratio, Depth: depth}
			found = true
		}
	}
	return best, found
}

// distanceToSegment returns the signed distance from point to the line through a and b
// together with the projection ratio, when the projection falls on the segment.
func distanceToSegment(point, a, b Vec2, invLength float64) (distance, ratio float64, ok bool) {
	ab := r2.Sub(b, a)
	ap := r2.Sub(point, a)
	ratio = r2.Dot(ap, ab) * invLength * invLength
	if ratio < 0 || ratio > 1 {
		return 0, 0, false
	}
	distance = (ab.X*(a.Y-point.Y) - (a.X-point.X)*ab.Y) * invLength
	return distance, ratio, true
}
