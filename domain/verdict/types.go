// Package verdict aggregates per-pass probabilities into a single result and
// decides the age category that drives the protective policy.
package verdict

// Category is the binary age-category decision.
type Category int

const (
	Minor Category = iota
	Major
)

func (c Category) String() string {
	switch c {
	case Minor:
		return "minor"
	case Major:
		return "major"
	default:
		return "unknown"
	}
}

// Aggregated combines all successful passes of one analysis cycle.
// Probability is the mean adult probability; Confidence is the calibrated
// agreement score, always inside the configured band.
type Aggregated struct {
	Probability float64
	Confidence  float64
	PassCount   int
}

// Verdict is the categorical decision plus the aggregate that produced it.
type Verdict struct {
	Category Category
	Result   Aggregated
}
