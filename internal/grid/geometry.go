// Package grid holds the downsampled boolean maps that drive patch placement.
//
// A grid cell (gx, gy) covers slide pixels starting at round(gx*scaleX),
// round(gy*scaleY). Every conversion between the two spaces goes through
// Geometry so that eligibility and visited bookkeeping round the same way.
package grid

import (
	"fmt"
	"image"
	"math"
)

// Geometry maps slide-pixel coordinates onto a fixed-size grid.
type Geometry struct {
	width, height  int
	scaleX, scaleY float64
}

// NewGeometry validates the grid shape and scale factors.
func NewGeometry(width, height int, scaleX, scaleY float64) (Geometry, error) {
	if width <= 0 || height <= 0 {
		return Geometry{}, fmt.Errorf("grid size must be positive, got %dx%d", width, height)
	}
	if !(scaleX > 0) || !(scaleY > 0) || math.IsInf(scaleX, 0) || math.IsInf(scaleY, 0) {
		return Geometry{}, fmt.Errorf("grid scale must be positive and finite, got (%v, %v)", scaleX, scaleY)
	}
	return Geometry{width: width, height: height, scaleX: scaleX, scaleY: scaleY}, nil
}

func (g Geometry) Width() int  { return g.width }
func (g Geometry) Height() int { return g.height }

// Scale returns slide pixels per grid cell along each axis.
func (g Geometry) Scale() (float64, float64) { return g.scaleX, g.scaleY }

// ToGridRect converts a half-open slide-space rectangle into grid space:
// each edge becomes round(v/scale) (half to even) clamped to the grid.
// The result may be empty; it is never out of range.
func (g Geometry) ToGridRect(r image.Rectangle) image.Rectangle {
	return image.Rectangle{
		Min: image.Point{
			X: clamp(roundDiv(r.Min.X, g.scaleX), 0, g.width),
			Y: clamp(roundDiv(r.Min.Y, g.scaleY), 0, g.height),
		},
		Max: image.Point{
			X: clamp(roundDiv(r.Max.X, g.scaleX), 0, g.width),
			Y: clamp(roundDiv(r.Max.Y, g.scaleY), 0, g.height),
		},
	}
}

// OriginRect returns the cells whose slide origin, as given by ToSlide,
// lies inside the half-open slide rectangle r.
func (g Geometry) OriginRect(r image.Rectangle) image.Rectangle {
	x0, x1 := originSpan(r.Min.X, r.Max.X, g.scaleX, g.width)
	y0, y1 := originSpan(r.Min.Y, r.Max.Y, g.scaleY, g.height)
	return image.Rectangle{Min: image.Point{X: x0, Y: y0}, Max: image.Point{X: x1, Y: y1}}
}

// ToSlide maps a grid cell to its slide-space origin.
func (g Geometry) ToSlide(cell image.Point) image.Point {
	return image.Point{
		X: int(math.RoundToEven(float64(cell.X) * g.scaleX)),
		Y: int(math.RoundToEven(float64(cell.Y) * g.scaleY)),
	}
}

func (g Geometry) index(x, y int) int { return y*g.width + x }

func (g Geometry) inBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// originSpan returns the cells [lo, hi) of an n-cell axis whose origins
// round(i*scale) fall in [from, to).
func originSpan(from, to int, scale float64, n int) (int, int) {
	origin := func(i int) int { return int(math.RoundToEven(float64(i) * scale)) }
	lo := clamp(int(math.Floor(float64(from)/scale))-1, 0, n)
	for lo < n && origin(lo) < from {
		lo++
	}
	hi := lo
	for hi < n && origin(hi) < to {
		hi++
	}
	return lo, hi
}

func roundDiv(v int, scale float64) int {
	return int(math.RoundToEven(float64(v) / scale))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
