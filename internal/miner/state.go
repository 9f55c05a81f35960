package miner

// State is a step of the mining loop.
type State int

const (
	Sampling State = iota
	Extracting
	Tallying
	Saturated
	QuotaMet
)

func (s State) String() string {
	switch s {
	case Sampling:
		return "sampling"
	case Extracting:
		return "extracting"
	case Tallying:
		return "tallying"
	case Saturated:
		return "saturated"
	case QuotaMet:
		return "quota met"
	default:
		return "unknown"
	}
}

// Terminal reports whether the loop has stopped.
func (s State) Terminal() bool {
	return s == Saturated || s == QuotaMet
}
