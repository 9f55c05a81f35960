package validity

import "fmt"

// Options carries the parameters the built-in predicates need.
type Options struct {
	Width, Height      int
	SharpnessThreshold float64
}

// NewPredicate creates a built-in predicate by name
func NewPredicate(name string, opts Options) (Predicate, error) {
	switch name {
	case "alpha":
		return AlphaOpaque(), nil
	case "size":
		if opts.Width <= 0 || opts.Height <= 0 {
			return nil, fmt.Errorf("size predicate needs a positive patch size")
		}
		return ExactSize(opts.Width, opts.Height), nil
	case "sharpness":
		s := NewSharpnessCheck()
		if opts.SharpnessThreshold > 0 {
			s.MinVariance = opts.SharpnessThreshold
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown predicate: %s", name)
	}
}

// FromNames builds a pipeline from predicate names in order.
func FromNames(names []string, opts Options) (*Pipeline, error) {
	p := &Pipeline{}
	for _, name := range names {
		pred, err := NewPredicate(name, opts)
		if err != nil {
			return nil, err
		}
		if err := p.Register(pred); err != nil {
			return nil, err
		}
	}
	return p, nil
}
