package grid

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Eligibility is the boolean map of cells that may still be sampled.
// Cells only ever go from true to false.
type Eligibility struct {
	Geometry
	cells     []bool
	remaining int
}

// NewEligibility builds a grid from a mask indexed as mask[y][x].
// Every row must have the same length.
func NewEligibility(mask [][]bool, scaleX, scaleY float64) (*Eligibility, error) {
	if len(mask) == 0 {
		return nil, fmt.Errorf("empty mask")
	}
	geo, err := NewGeometry(len(mask[0]), len(mask), scaleX, scaleY)
	if err != nil {
		return nil, err
	}

	e := &Eligibility{Geometry: geo, cells: make([]bool, geo.width*geo.height)}
	for y, row := range mask {
		if len(row) != geo.width {
			return nil, fmt.Errorf("mask row %d has %d cells, expected %d", y, len(row), geo.width)
		}
		for x, ok := range row {
			if ok {
				e.cells[geo.index(x, y)] = true
				e.remaining++
			}
		}
	}
	return e, nil
}

// FromImage builds a grid from a mask image sized against a slide of the
// given dimensions. Pixels with non-zero luminance and alpha are eligible.
func FromImage(mask image.Image, slide image.Point) (*Eligibility, error) {
	b := mask.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty mask image")
	}
	if slide.X <= 0 || slide.Y <= 0 {
		return nil, fmt.Errorf("invalid slide dimensions %v", slide)
	}

	rows := make([][]bool, b.Dy())
	for y := range rows {
		rows[y] = make([]bool, b.Dx())
		for x := range rows[y] {
			c := color.Gray16Model.Convert(mask.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			_, _, _, a := mask.At(b.Min.X+x, b.Min.Y+y).RGBA()
			rows[y][x] = c.Y > 0 && a > 0
		}
	}

	return NewEligibility(rows,
		float64(slide.X)/float64(b.Dx()),
		float64(slide.Y)/float64(b.Dy()))
}

// Full builds an all-eligible grid covering a slide, one cell per scale
// slide pixels along each axis.
func Full(slide image.Point, scale float64) (*Eligibility, error) {
	if slide.X <= 0 || slide.Y <= 0 {
		return nil, fmt.Errorf("invalid slide dimensions %v", slide)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("grid scale must be positive and finite, got %v", scale)
	}
	geo, err := NewGeometry(
		int(math.Ceil(float64(slide.X)/scale)),
		int(math.Ceil(float64(slide.Y)/scale)),
		scale, scale)
	if err != nil {
		return nil, err
	}

	e := &Eligibility{Geometry: geo, cells: make([]bool, geo.width*geo.height)}
	for i := range e.cells {
		e.cells[i] = true
	}
	e.remaining = len(e.cells)
	return e, nil
}

// CellAt reports whether a grid cell is eligible. Out-of-range cells are not.
func (e *Eligibility) CellAt(x, y int) bool {
	if !e.inBounds(x, y) {
		return false
	}
	return e.cells[e.index(x, y)]
}

// SetRegionFalse clears every cell covered by a slide-space rectangle and
// returns how many cells changed.
func (e *Eligibility) SetRegionFalse(r image.Rectangle) int {
	return e.clearGrid(e.ToGridRect(r))
}

// SetCellFalse clears one grid cell and reports whether it was eligible.
// Cell origins do not map back onto their cell below scale 1, so this
// takes the cell rather than a slide coordinate.
func (e *Eligibility) SetCellFalse(cell image.Point) bool {
	if !e.inBounds(cell.X, cell.Y) {
		return false
	}
	return e.clearGrid(image.Rectangle{Min: cell, Max: cell.Add(image.Point{X: 1, Y: 1})}) == 1
}

// ClearOrigins clears every cell whose slide-space origin lies inside the
// half-open rectangle r and returns how many cells changed.
func (e *Eligibility) ClearOrigins(r image.Rectangle) int {
	return e.clearGrid(e.OriginRect(r))
}

func (e *Eligibility) clearGrid(g image.Rectangle) int {
	cleared := 0
	for y := g.Min.Y; y < g.Max.Y; y++ {
		for x := g.Min.X; x < g.Max.X; x++ {
			i := e.index(x, y)
			if e.cells[i] {
				e.cells[i] = false
				cleared++
			}
		}
	}
	e.remaining -= cleared
	return cleared
}

// Remaining is the number of eligible cells left.
func (e *Eligibility) Remaining() int { return e.remaining }

// Next returns the first eligible cell at or after the row-major index from,
// together with its index. ok is false when none is left.
func (e *Eligibility) Next(from int) (cell image.Point, index int, ok bool) {
	for i := max(from, 0); i < len(e.cells); i++ {
		if e.cells[i] {
			return image.Point{X: i % e.width, Y: i / e.width}, i, true
		}
	}
	return image.Point{}, len(e.cells), false
}

// EligibleCells lists every eligible cell in row-major order.
func (e *Eligibility) EligibleCells() []image.Point {
	out := make([]image.Point, 0, e.remaining)
	for i, ok := range e.cells {
		if ok {
			out = append(out, image.Point{X: i % e.width, Y: i / e.width})
		}
	}
	return out
}
