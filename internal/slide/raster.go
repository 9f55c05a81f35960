package slide

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/patchminer/internal/system"
)

// RasterSlide serves regions from a fully decoded image. Higher pyramid
// levels are synthesized by downsampling by powers of two.
//
// Slides always read into RGBA so that overhanging pixels stay
// transparent. Label maps keep single-channel sources single-channel and
// are never blended.
type RasterSlide struct {
	path   string
	img    image.Image
	labels bool
}

// NewRasterSlide decodes path with any registered image decoder.
func NewRasterSlide(path string) (*RasterSlide, error) {
	img, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return FromImage(path, img), nil
}

// Decode reads a PNG, JPEG, TIFF, BMP or WebP file.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// NewLabelSlide decodes a label map.
func NewLabelSlide(path string) (*RasterSlide, error) {
	img, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return LabelsFromImage(path, img), nil
}

// FromImage wraps an already decoded image. img must not be modified
// afterwards.
func FromImage(path string, img image.Image) *RasterSlide {
	return &RasterSlide{path: path, img: img}
}

// LabelsFromImage wraps a decoded label map.
func LabelsFromImage(path string, img image.Image) *RasterSlide {
	return &RasterSlide{path: path, img: img, labels: true}
}

func (s *RasterSlide) Path() string { return s.path }

func (s *RasterSlide) Dimensions() image.Point {
	return s.img.Bounds().Size()
}

func (s *RasterSlide) ReadRegion(topLeft image.Point, level int, size image.Point) (image.Image, error) {
	if err := checkRead(level, size); err != nil {
		return nil, err
	}

	bounds := s.img.Bounds()
	factor := 1 << level
	sr := image.Rectangle{Min: topLeft, Max: topLeft.Add(size.Mul(factor))}.Add(bounds.Min)
	clipped := sr.Intersect(bounds)

	dst := s.newBuffer(size)
	if clipped.Empty() {
		return dst, nil
	}

	// destination pixels that the clipped source covers
	dr := image.Rectangle{
		Min: clipped.Min.Sub(sr.Min).Div(factor),
		Max: ceilDiv(clipped.Max.Sub(sr.Min), factor),
	}

	switch {
	case level == 0:
		draw.Draw(dst, dr, s.img, clipped.Min, draw.Src)
	case s.labels:
		// label values must not be blended
		xdraw.NearestNeighbor.Scale(dst, dr, s.img, clipped, xdraw.Src, nil)
	default:
		xdraw.ApproxBiLinear.Scale(dst, dr, s.img, clipped, xdraw.Src, nil)
	}
	return dst, nil
}

// newBuffer allocates a zeroed destination.
func (s *RasterSlide) newBuffer(size image.Point) draw.Image {
	r := image.Rectangle{Max: size}
	if !s.labels {
		return system.GetImage(r)
	}
	switch src := s.img.(type) {
	case *image.Gray:
		return image.NewGray(r)
	case *image.Gray16:
		return image.NewGray16(r)
	case *image.Paletted:
		return image.NewPaletted(r, src.Palette)
	default:
		return system.GetImage(r)
	}
}

func (s *RasterSlide) Thumbnail(size image.Point) (image.Image, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %v", size)
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), s.img, s.img.Bounds(), xdraw.Src, nil)
	return dst, nil
}

func (s *RasterSlide) Close() error {
	return nil
}

func ceilDiv(p image.Point, n int) image.Point {
	return image.Point{X: (p.X + n - 1) / n, Y: (p.Y + n - 1) / n}
}
