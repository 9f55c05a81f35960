// Package patch defines the unit of work passed between the sampling,
// extraction and provenance stages.
package patch

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
)

// Source identifies which image a candidate is read from.
type Source int

const (
	SourceSlide Source = iota
	SourceLabelMap
)

func (s Source) String() string {
	switch s {
	case SourceLabelMap:
		return "label map"
	default:
		return "slide"
	}
}

// Candidate is a patch location. It is not modified once handed to an
// extractor.
type Candidate struct {
	TopLeft image.Point // level-0 slide pixels
	Level   int
	Size    image.Point
	Source  Source
}

// Footprint is the patch extent in level-0 slide pixels.
func (c Candidate) Footprint() image.Rectangle {
	scale := 1 << c.Level
	return image.Rectangle{Min: c.TopLeft, Max: c.TopLeft.Add(c.Size.Mul(scale))}
}

// Twin returns the same location bound to another source.
func (c Candidate) Twin(src Source) Candidate {
	c.Source = src
	return c
}

// Proportions maps a label value to the fraction of patch pixels holding it.
type Proportions map[uint32]float64

// Outcome is the result of extracting one candidate.
type Outcome struct {
	Candidate   Candidate
	Accepted    bool
	Path        string // where the patch was (or would have been) written
	Rejected    string // name of the failing predicate, if any
	Proportions Proportions
	Err         error
}

// BaseName strips directories and the extension from an image path.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FileName is the deterministic name of a persisted patch.
func FileName(base string, c Candidate) string {
	suffix := ""
	if c.Source == SourceLabelMap {
		suffix = "_LM"
	}
	return fmt.Sprintf("%s_patch@%d-%d_%dx%d%s.png", base, c.TopLeft.X, c.TopLeft.Y, c.Size.X, c.Size.Y, suffix)
}
