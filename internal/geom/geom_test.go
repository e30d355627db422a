package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() *ClosedPolygon {
	return NewClosedPolygon([]Vec2{V(0, 0), V(10, 0), V(10, 10), V(0, 10)})
}

func TestAABB_Intersects(t *testing.T) {
	a := FromMinMax(V(0, 0), V(10, 10))

	tests := []struct {
		name string
		b    AABB
		want bool
	}{
		{"overlap", FromMinMax(V(5, 5), V(15, 15)), true},
		{"inside", FromMinMax(V(2, 2), V(3, 3)), true},
		{"touching edge", FromMinMax(V(10, 0), V(20, 10)), false},
		{"apart", FromMinMax(V(20, 20), V(30, 30)), false},
		{"overlap x only", FromMinMax(V(5, 11), V(15, 20)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Intersects(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersects(a))
		})
	}
}

func TestAABB_Contains(t *testing.T) {
	b := FromMinMax(V(0, 0), V(10, 10))
	assert.True(t, b.Contains(V(0, 0)))
	assert.True(t, b.Contains(V(10, 10)))
	assert.True(t, b.Contains(V(5, 5)))
	assert.False(t, b.Contains(V(10.1, 5)))
	assert.False(t, b.Contains(V(5, -0.1)))
}

func TestAABBBuilder(t *testing.T) {
	bb := NewAABBBuilder()
	assert.Equal(t, AABB{}, bb.Build())

	bb.Add(V(3, 4))
	bb.Add(V(-1, 8))
	bb.Add(V(2, 2))
	box := bb.Build()
	assert.Equal(t, V(-1, 2), box.Min)
	assert.Equal(t, V(3, 8), box.Max)
	assert.Equal(t, V(1, 5), box.Center())
	assert.Equal(t, V(4, 6), box.Size())
}

func TestClosedPolygon_Inside(t *testing.T) {
	p := square()
	assert.True(t, p.Inside(V(5, 5)))
	assert.True(t, p.Inside(V(0.1, 9.9)))
	assert.False(t, p.Inside(V(-1, 5)))
	assert.False(t, p.Inside(V(5, 11)))

	concave := NewClosedPolygon([]Vec2{V(0, 0), V(10, 0), V(10, 10), V(5, 2), V(0, 10)})
	assert.True(t, concave.Inside(V(2, 1)))
	assert.False(t, concave.Inside(V(5, 8)))
}

func TestClosedPolygon_Bounds(t *testing.T) {
	p := square()
	assert.Equal(t, FromMinMax(V(0, 0), V(10, 10)), p.Bounds())
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, []Vec2{V(0, 0), V(10, 0), V(10, 10), V(0, 10)}, p.Points())
}

func TestClosedPolygon_ClosestSegment(t *testing.T) {
	p := square()

	seg, ok := p.ClosestSegment(V(5, 1), p.Bounds())
	require.True(t, ok)
	assert.Equal(t, 0, seg.Index1)
	assert.Equal(t, 1, seg.Index2)
	assert.InDelta(t, 0.5, seg.Ratio, 1e-9)
	assert.InDelta(t, -1, seg.Depth, 1e-9)

	// The correction normal*depth pushes the point onto the edge.
	n := seg.Normal()
	fixed := V(5+n.X*seg.Depth, 1+n.Y*seg.Depth)
	assert.InDelta(t, 0, fixed.Y, 1e-9)

	// Inside points have negative depth on every edge; the shallowest one wins.
	seg, ok = p.ClosestSegment(V(9, 5), p.Bounds())
	require.True(t, ok)
	assert.Equal(t, 1, seg.Index1)
	assert.Equal(t, 2, seg.Index2)
	assert.InDelta(t, -1, seg.Depth, 1e-9)
}

func TestClosedPolygon_ClosestSegmentOutsideWindow(t *testing.T) {
	p := square()
	_, ok := p.ClosestSegment(V(5, 5), FromMinMax(V(100, 100), V(101, 101)))
	assert.False(t, ok)
}

func TestRotateAndUnit(t *testing.T) {
	r := Rotate(V(1, 0), math.Pi/2)
	assert.InDelta(t, 0, r.X, 1e-12)
	assert.InDelta(t, 1, r.Y, 1e-12)

	assert.Equal(t, Vec2{}, Unit(Vec2{}))
	u := Unit(V(3, 4))
	assert.InDelta(t, 0.6, u.X, 1e-12)
	assert.InDelta(t, 0.8, u.Y, 1e-12)

	assert.True(t, Finite(V(1, 2)))
	assert.False(t, Finite(V(math.NaN(), 2)))
}
