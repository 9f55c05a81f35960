package miner

import (
	"context"
	"fmt"
	"image"

	"github.com/ivlev/patchminer/internal/config"
	"github.com/ivlev/patchminer/internal/extractor"
	"github.com/ivlev/patchminer/internal/patch"
)

// Extract processes predefined coordinates, in order, as a single batch.
// The grids and the validation pipeline are bypassed, so every readable
// coordinate is accepted. Label patches are coupled as in Run.
func (c *Controller) Extract(ctx context.Context, pts []image.Point) (Result, error) {
	res := Result{Slide: c.slide.Path(), Quota: len(pts)}
	if len(pts) == 0 {
		return res, fmt.Errorf("%w: no coordinates to extract", config.ErrInvalid)
	}

	plain, err := extractor.New(c.slide, c.extractOptions(nil))
	if err != nil {
		return res, err
	}

	batch := make([]patch.Candidate, len(pts))
	for i, p := range pts {
		batch[i] = patch.Candidate{TopLeft: p, Level: c.cfg.Level, Size: c.cfg.Size(), Source: patch.SourceSlide}
	}

	c.state = Extracting
	outcomes := plain.Run(ctx, batch)
	var twins []patch.Outcome
	if c.coupler != nil {
		twins = c.coupler.Couple(ctx, outcomes)
	}

	c.state = Tallying
	if err := c.tally(&res, outcomes, twins); err != nil {
		return res, err
	}

	// every requested coordinate has been processed
	c.state = QuotaMet
	res.State = c.state
	return res, nil
}
