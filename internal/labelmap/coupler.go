package labelmap

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ivlev/patchminer/internal/extractor"
	"github.com/ivlev/patchminer/internal/patch"
	"github.com/ivlev/patchminer/internal/slide"
)

// ErrDimensionMismatch means the label map does not cover the slide.
var ErrDimensionMismatch = errors.New("label map dimensions differ from slide")

// Coupler extracts the label-map twin of every accepted slide patch.
type Coupler struct {
	extractor *extractor.Extractor
}

// NewCoupler checks that labels matches the slide dimensions and prepares
// an extractor over it with validation disabled.
func NewCoupler(main, labels slide.Slide, opts extractor.Options, vm ValueMap) (*Coupler, error) {
	if err := slide.SameDimensions(main, labels); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
	}

	remap := cloneMap(vm)
	opts.Pipeline = nil
	opts.Process = func(img image.Image) patch.Proportions {
		return Proportions(img, remap)
	}

	ex, err := extractor.New(labels, opts)
	if err != nil {
		return nil, err
	}
	return &Coupler{extractor: ex}, nil
}

// Dir is where label patches are written.
func (c *Coupler) Dir() string { return c.extractor.Dir() }

// Couple returns one twin outcome per accepted slide outcome, in the same
// order. Rejected slide outcomes produce no twin.
func (c *Coupler) Couple(ctx context.Context, slideOutcomes []patch.Outcome) []patch.Outcome {
	var twins []patch.Candidate
	for _, o := range slideOutcomes {
		if o.Accepted {
			twins = append(twins, o.Candidate.Twin(patch.SourceLabelMap))
		}
	}
	if len(twins) == 0 {
		return nil
	}
	return c.extractor.Run(ctx, twins)
}

func cloneMap(vm ValueMap) ValueMap {
	out := make(ValueMap, len(vm))
	for k, v := range vm {
		out[k] = v
	}
	return out
}
