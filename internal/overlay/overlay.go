// Package overlay draws the mining grids over a slide thumbnail so the
// sampled area can be inspected.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/patchminer/internal/grid"
)

var (
	Ineligible = color.NRGBA{0, 0, 0, 160}
	Mined      = color.NRGBA{0, 200, 0, 120}
)

// Thumbnailer is the part of a slide the overlay needs.
type Thumbnailer interface {
	Dimensions() image.Point
	Thumbnail(size image.Point) (image.Image, error)
}

// ThumbnailSize fits dims into a maxSide square, keeping the aspect ratio.
func ThumbnailSize(dims image.Point, maxSide int) image.Point {
	if dims.X <= maxSide && dims.Y <= maxSide {
		return dims
	}
	f := float64(maxSide) / float64(max(dims.X, dims.Y))
	return image.Pt(
		max(1, int(math.Round(float64(dims.X)*f))),
		max(1, int(math.Round(float64(dims.Y)*f))),
	)
}

// Render returns a thumbnail of src no larger than maxSide with ineligible
// cells dimmed and visited cells tinted. visited may be nil.
func Render(src Thumbnailer, eligible *grid.Eligibility, visited *grid.Visited, maxSide int) (*image.RGBA, error) {
	if eligible == nil {
		return nil, fmt.Errorf("no eligibility grid to draw")
	}
	if maxSide <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %d", maxSide)
	}

	dims := src.Dimensions()
	size := ThumbnailSize(dims, maxSide)
	thumb, err := src.Thumbnail(size)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(dst, dst.Bounds(), thumb, thumb.Bounds().Min, draw.Src)

	cells := cellLayer(eligible, visited)

	// the grid can extend past the slide edge when the scale does not divide it
	sx, sy := eligible.Scale()
	dr := image.Rect(0, 0,
		int(math.Round(float64(eligible.Width())*sx*float64(size.X)/float64(dims.X))),
		int(math.Round(float64(eligible.Height())*sy*float64(size.Y)/float64(dims.Y))),
	)
	xdraw.NearestNeighbor.Scale(dst, dr, cells, cells.Bounds(), xdraw.Over, nil)
	return dst, nil
}

// cellLayer has one pixel per grid cell.
func cellLayer(eligible *grid.Eligibility, visited *grid.Visited) *image.NRGBA {
	w, h := eligible.Width(), eligible.Height()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case visited != nil && visited.CellAt(x, y):
				img.SetNRGBA(x, y, Mined)
			case !eligible.CellAt(x, y):
				img.SetNRGBA(x, y, Ineligible)
			}
		}
	}
	return img
}

// Write renders the overlay and stores it as PNG.
func Write(path string, src Thumbnailer, eligible *grid.Eligibility, visited *grid.Visited, maxSide int) error {
	img, err := Render(src, eligible, visited, maxSide)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
