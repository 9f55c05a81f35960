// Package slide provides read access to the images patches are cut from.
package slide

import (
	"fmt"
	"image"
	"path/filepath"
	"slices"
	"strings"
)

// Slide is a read-only multi-resolution image. ReadRegion must be safe
// for concurrent use; every call returns a buffer owned by the caller.
type Slide interface {
	Path() string
	Dimensions() image.Point
	// ReadRegion reads size pixels at the given pyramid level starting at
	// topLeft in level-0 coordinates. Pixels outside the slide are
	// transparent (zero), or label 0 for label maps.
	ReadRegion(topLeft image.Point, level int, size image.Point) (image.Image, error)
	Thumbnail(size image.Point) (image.Image, error)
	Close() error
}

// MaxLevel bounds the pyramid level a read may request.
const MaxLevel = 16

var documentExts = map[string]bool{
	".pdf":  true,
	".xps":  true,
	".epub": true,
	".cbz":  true,
	".fb2":  true,
	".mobi": true,
}

var rasterExts = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp"}

// Extensions lists the file extensions Open can read.
func Extensions() []string {
	exts := slices.Clone(rasterExts)
	for ext := range documentExts {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Open picks a decoder from the file extension. Documents are rendered at
// dpi through MuPDF; everything else is decoded as a raster image.
func Open(path string, dpi int) (Slide, error) {
	var (
		s   Slide
		err error
	)
	if documentExts[strings.ToLower(filepath.Ext(path))] {
		s, err = NewFitzSlide(path, dpi)
	} else {
		s, err = NewRasterSlide(path)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenLabels decodes a label map. Label maps are raster images only.
func OpenLabels(path string) (Slide, error) {
	if documentExts[strings.ToLower(filepath.Ext(path))] {
		return nil, fmt.Errorf("label map %s must be a raster image", filepath.Base(path))
	}
	s, err := NewLabelSlide(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SameDimensions fails when a label map does not cover the slide exactly.
func SameDimensions(a, b Slide) error {
	if a.Dimensions() != b.Dimensions() {
		return fmt.Errorf("%s is %v but %s is %v",
			filepath.Base(a.Path()), a.Dimensions(), filepath.Base(b.Path()), b.Dimensions())
	}
	return nil
}

func checkRead(level int, size image.Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("invalid region size %v", size)
	}
	if level < 0 || level > MaxLevel {
		return fmt.Errorf("level %d out of range [0,%d]", level, MaxLevel)
	}
	return nil
}
