// Package sampler picks patch coordinates and reserves the space around them.
package sampler

import (
	"errors"
	"fmt"
	"image"
	"math/rand"

	"github.com/ivlev/patchminer/internal/grid"
)

// Policy decides which eligible coordinate is taken next.
type Policy string

const (
	Random     Policy = "random"
	Sequential Policy = "sequential"
)

// ErrExhausted means no eligible coordinate is left.
var ErrExhausted = errors.New("no eligible coordinates left")

// Pick is a selected slide coordinate. Cell is the grid cell it was drawn
// from and is only meaningful when a grid drives selection.
type Pick struct {
	Point image.Point
	Cell  image.Point
}

// ParsePolicy maps a read type string onto a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case Random, Sequential:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unrecognized read type %q", s)
	}
}

// Selector draws candidate coordinates in slide-pixel space.
//
// Without a grid it draws uniformly over the whole slide. With a grid it
// only returns origins of currently eligible cells.
type Selector struct {
	grid   *grid.Eligibility
	policy Policy
	slide  image.Point
	rng    *rand.Rand

	// sequential: eligible cells never reappear, so the scan resumes here
	cursor int
	// random: superset of eligible cell indexes, pruned lazily
	pool []image.Point
}

// NewSelector returns a selector over g, which may be nil.
func NewSelector(g *grid.Eligibility, policy Policy, slide image.Point, rng *rand.Rand) (*Selector, error) {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	if g == nil && (slide.X <= 0 || slide.Y <= 0) {
		return nil, fmt.Errorf("invalid slide dimensions %v", slide)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	s := &Selector{grid: g, policy: policy, slide: slide, rng: rng}
	if g != nil && policy == Random {
		s.pool = g.EligibleCells()
	}
	return s, nil
}

// Next returns the next candidate coordinate, or ErrExhausted.
func (s *Selector) Next() (Pick, error) {
	if s.grid == nil {
		return Pick{Point: image.Point{X: s.rng.Intn(s.slide.X), Y: s.rng.Intn(s.slide.Y)}}, nil
	}

	switch s.policy {
	case Sequential:
		cell, idx, ok := s.grid.Next(s.cursor)
		s.cursor = idx
		if !ok {
			return Pick{}, ErrExhausted
		}
		return s.pick(cell), nil
	default:
		for len(s.pool) > 0 {
			i := s.rng.Intn(len(s.pool))
			cell := s.pool[i]
			if s.grid.CellAt(cell.X, cell.Y) {
				return s.pick(cell), nil
			}
			last := len(s.pool) - 1
			s.pool[i] = s.pool[last]
			s.pool = s.pool[:last]
		}
		return Pick{}, ErrExhausted
	}
}

func (s *Selector) pick(cell image.Point) Pick {
	return Pick{Point: s.grid.ToSlide(cell), Cell: cell}
}
