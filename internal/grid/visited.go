package grid

import "image"

// Visited records the exact footprint of every placed patch. It is only
// used for inspection and never influences selection.
type Visited struct {
	Geometry
	cells []bool
}

// NewVisited returns an all-false grid sharing the eligibility geometry.
func NewVisited(geo Geometry) *Visited {
	return &Visited{Geometry: geo, cells: make([]bool, geo.width*geo.height)}
}

// Mark sets every cell covered by a slide-space rectangle.
func (v *Visited) Mark(r image.Rectangle) {
	g := v.ToGridRect(r)
	for y := g.Min.Y; y < g.Max.Y; y++ {
		for x := g.Min.X; x < g.Max.X; x++ {
			v.cells[v.index(x, y)] = true
		}
	}
}

func (v *Visited) CellAt(x, y int) bool {
	if !v.inBounds(x, y) {
		return false
	}
	return v.cells[v.index(x, y)]
}

// Count is the number of visited cells.
func (v *Visited) Count() int {
	n := 0
	for _, ok := range v.cells {
		if ok {
			n++
		}
	}
	return n
}
