// Package validity decides whether an extracted patch is usable.
package validity

import (
	"fmt"
	"image"
)

// Predicate is a pure check over a patch's pixels.
type Predicate interface {
	Name() string
	Check(img image.Image) bool
}

type funcPredicate struct {
	name string
	fn   func(image.Image) bool
}

func (p funcPredicate) Name() string               { return p.name }
func (p funcPredicate) Check(img image.Image) bool { return p.fn(img) }

// Func wraps a plain function as a named Predicate.
func Func(name string, fn func(image.Image) bool) Predicate {
	return funcPredicate{name: name, fn: fn}
}

// Pipeline runs predicates in registration order and stops at the first
// failure. An empty pipeline accepts everything.
type Pipeline struct {
	predicates []Predicate
}

// NewPipeline registers the given predicates in order.
func NewPipeline(predicates ...Predicate) (*Pipeline, error) {
	p := &Pipeline{}
	for _, pred := range predicates {
		if err := p.Register(pred); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Register appends a predicate. Nil predicates are rejected here so that
// Validate never has to guard against them.
func (p *Pipeline) Register(pred Predicate) error {
	if pred == nil {
		return fmt.Errorf("nil predicate at position %d", len(p.predicates))
	}
	if fp, ok := pred.(funcPredicate); ok && fp.fn == nil {
		return fmt.Errorf("predicate %q has no function", fp.name)
	}
	p.predicates = append(p.predicates, pred)
	return nil
}

// Validate reports whether img passes every predicate. When it does not,
// failed names the first predicate that rejected it.
func (p *Pipeline) Validate(img image.Image) (ok bool, failed string) {
	if p == nil {
		return true, ""
	}
	for _, pred := range p.predicates {
		if !pred.Check(img) {
			return false, pred.Name()
		}
	}
	return true, ""
}

// Len is the number of registered predicates.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.predicates)
}

// AlphaOpaque rejects patches with any pixel that is not fully opaque,
// which is how reads overhanging the slide edge come back.
func AlphaOpaque() Predicate {
	return Func("alpha", func(img image.Image) bool {
		if o, ok := img.(interface{ Opaque() bool }); ok {
			return o.Opaque()
		}
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
					return false
				}
			}
		}
		return true
	})
}

// ExactSize rejects patches whose dimensions differ from w x h.
func ExactSize(w, h int) Predicate {
	return Func(fmt.Sprintf("size %dx%d", w, h), func(img image.Image) bool {
		b := img.Bounds()
		return b.Dx() == w && b.Dy() == h
	})
}
