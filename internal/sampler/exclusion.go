package sampler

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ivlev/patchminer/internal/grid"
)

// ErrUnplaceable means a coordinate could not be reserved on the grid.
var ErrUnplaceable = errors.New("candidate cannot be placed")

// ExclusionRect returns the slide-space area that must stop being eligible
// once a patch of the given size is placed at c.
//
// overlap is the tolerated overlap: 0 forbids any, 1 allows anything. The
// footprint is scaled by 1-overlap, and the leading edge uses size+1 so a
// neighbour one patch away on the leading side is excluded too.
func ExclusionRect(c, size image.Point, overlap float64) image.Rectangle {
	inv := 1 - overlap
	return image.Rectangle{
		Min: image.Point{
			X: c.X - int(math.RoundToEven(float64(size.X+1)*inv)),
			Y: c.Y - int(math.RoundToEven(float64(size.Y+1)*inv)),
		},
		Max: image.Point{
			X: c.X + int(math.RoundToEven(float64(size.X)*inv)),
			Y: c.Y + int(math.RoundToEven(float64(size.Y)*inv)),
		},
	}
}

// Excluder applies exclusion footprints to the eligibility grid and marks
// the visited grid.
type Excluder struct {
	eligible *grid.Eligibility
	visited  *grid.Visited
	size     image.Point
	overlap  float64
}

// NewExcluder binds the exclusion parameters. Both grids may be nil, in
// which case Reserve only validates its input.
func NewExcluder(eligible *grid.Eligibility, visited *grid.Visited, size image.Point, overlap float64) (*Excluder, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("patch size must be positive, got %v", size)
	}
	if math.IsNaN(overlap) || overlap < 0 || overlap > 1 {
		return nil, fmt.Errorf("overlap factor must be in [0,1], got %v", overlap)
	}
	return &Excluder{eligible: eligible, visited: visited, size: size, overlap: overlap}, nil
}

// Reserve removes the exclusion footprint around p from the eligibility
// grid, clears the cell p was drawn from and records the patch extent as
// visited. A cell outside the grid yields ErrUnplaceable and leaves both
// grids untouched.
func (e *Excluder) Reserve(p Pick) error {
	if e.eligible == nil {
		return nil
	}
	if !p.Cell.In(image.Rect(0, 0, e.eligible.Width(), e.eligible.Height())) {
		return fmt.Errorf("%w: cell %v of %v is outside the grid", ErrUnplaceable, p.Cell, p.Point)
	}

	c := p.Point
	if e.overlap != 1 {
		e.eligible.SetRegionFalse(ExclusionRect(c, e.size, e.overlap))
	}
	if e.overlap == 0 {
		// edge rounding can leave a cell whose patch would still intersect
		e.eligible.ClearOrigins(image.Rectangle{
			Min: c.Sub(e.size).Add(image.Point{X: 1, Y: 1}),
			Max: c.Add(e.size),
		})
	}
	e.eligible.SetCellFalse(p.Cell)

	if e.visited != nil {
		e.visited.Mark(image.Rectangle{Min: c, Max: c.Add(e.size)})
	}
	return nil
}
