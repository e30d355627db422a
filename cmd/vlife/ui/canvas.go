package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"vlife/internal/cell"
	"vlife/internal/geom"
	"vlife/internal/sim"
)

type kind uint8

const (
	kindEmpty kind = iota
	kindObstacle
	kindEnergyLow
	kindEnergyMid
	kindEnergyHigh
	kindSelected
	kindCursor
)

// energyGlyphs are indexed by energy quartile.
var energyGlyphs = [4]rune{'.', 'o', 'O', '@'}

type glyph struct {
	r    rune
	kind kind
}

// Canvas is the world rasterised into a character grid. Column c covers
// world x in [c, c+1)/sx; row r covers world y in [r, r+1)/sy.
type Canvas struct {
	Width, Height int
	sx, sy        float64
	grid          []glyph
}

// Frame is what a canvas draws.
type Frame struct {
	World     geom.Vec2
	Cells     []sim.CellView
	Obstacles []*geom.ClosedPolygon
	// Selected is highlighted when HasSelected is set.
	Selected    sim.CellID
	HasSelected bool
	Cursor      geom.Vec2
}

// Rasterize draws f into a width x height grid.
func Rasterize(f Frame, width, height int) *Canvas {
	width, height = max(width, 1), max(height, 1)
	c := &Canvas{
		Width:  width,
		Height: height,
		sx:     float64(width) / f.World.X,
		sy:     float64(height) / f.World.Y,
		grid:   make([]glyph, width*height),
	}
	for i := range c.grid {
		c.grid[i] = glyph{' ', kindEmpty}
	}

	for _, p := range f.Obstacles {
		bounds := p.Bounds()
		for row := 0; row < height; row++ {
			for col := 0; col < width; col++ {
				pt := c.center(col, row)
				if bounds.Contains(pt) && p.Inside(pt) {
					c.set(col, row, glyph{'#', kindObstacle})
				}
			}
		}
	}

	for _, v := range f.Cells {
		g := energyGlyph(v.Cell)
		if f.HasSelected && v.ID == f.Selected {
			g.kind = kindSelected
		}
		c.fillCircle(v.Position, v.Radius, g)
	}

	col, row := c.cellOf(f.Cursor)
	if c.At(col, row) == ' ' {
		c.set(col, row, glyph{'+', kindCursor})
	}
	return c
}

func energyGlyph(c *cell.Cell) glyph {
	level := int(c.Energy() / cell.MaxEnergy * 4)
	level = max(0, min(3, level))
	k := kindEnergyHigh
	switch level {
	case 0:
		k = kindEnergyLow
	case 1:
		k = kindEnergyMid
	}
	return glyph{energyGlyphs[level], k}
}

func (c *Canvas) center(col, row int) geom.Vec2 {
	return geom.V((float64(col)+0.5)/c.sx, (float64(row)+0.5)/c.sy)
}

// cellOf maps a world point to the character containing it, clamped to the grid.
func (c *Canvas) cellOf(p geom.Vec2) (int, int) {
	col := int(math.Floor(p.X * c.sx))
	row := int(math.Floor(p.Y * c.sy))
	return max(0, min(c.Width-1, col)), max(0, min(c.Height-1, row))
}

// fillCircle marks every character whose centre lies in the circle, and at
// least the character holding the centre.
func (c *Canvas) fillCircle(center geom.Vec2, radius float64, g glyph) {
	c0, r0 := c.cellOf(geom.V(center.X-radius, center.Y-radius))
	c1, r1 := c.cellOf(geom.V(center.X+radius, center.Y+radius))
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			p := c.center(col, row)
			if math.Hypot(p.X-center.X, p.Y-center.Y) <= radius {
				c.set(col, row, g)
			}
		}
	}
	col, row := c.cellOf(center)
	c.set(col, row, g)
}

func (c *Canvas) set(col, row int, g glyph) {
	c.grid[row*c.Width+col] = g
}

// At returns the rune at (col, row), or 0 outside the grid.
func (c *Canvas) At(col, row int) rune {
	if col < 0 || row < 0 || col >= c.Width || row >= c.Height {
		return 0
	}
	return c.grid[row*c.Width+col].r
}

// CharSize returns the world size of one character.
func (c *Canvas) CharSize() geom.Vec2 {
	return geom.V(1/c.sx, 1/c.sy)
}

// Render styles the grid. Runs of equal kind are styled together.
func (c *Canvas) Render(s Styles) string {
	var sb strings.Builder
	for row := 0; row < c.Height; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		line := c.grid[row*c.Width : (row+1)*c.Width]
		start := 0
		for i := 1; i <= len(line); i++ {
			if i < len(line) && line[i].kind == line[start].kind {
				continue
			}
			sb.WriteString(s.styleOf(line[start].kind).Render(runes(line[start:i])))
			start = i
		}
	}
	return sb.String()
}

func runes(gs []glyph) string {
	rs := make([]rune, len(gs))
	for i, g := range gs {
		rs[i] = g.r
	}
	return string(rs)
}

func (s Styles) styleOf(k kind) lipgloss.Style {
	switch k {
	case kindObstacle:
		return s.Obstacle
	case kindEnergyLow:
		return s.Energy[0]
	case kindEnergyMid:
		return s.Energy[1]
	case kindEnergyHigh:
		return s.Energy[2]
	case kindSelected:
		return s.Selected
	case kindCursor:
		return s.Cursor
	}
	return s.Muted
}
