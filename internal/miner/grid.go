package miner

import (
	"fmt"
	"image"

	"github.com/ivlev/patchminer/internal/config"
	"github.com/ivlev/patchminer/internal/grid"
	"github.com/ivlev/patchminer/internal/slide"
)

// BuildGrid returns the eligibility grid a run samples from: the mask image
// if one is configured, an all-eligible grid at the configured scale
// otherwise, or nil for unconstrained sampling.
func BuildGrid(cfg config.Run, dims image.Point) (*grid.Eligibility, error) {
	switch {
	case cfg.MaskPath != "":
		mask, err := slide.Decode(cfg.MaskPath)
		if err != nil {
			return nil, fmt.Errorf("load mask: %w", err)
		}
		return grid.FromImage(mask, dims)
	case cfg.Scale > 0:
		return grid.Full(dims, cfg.Scale)
	default:
		return nil, nil
	}
}
