package infer

import (
	"fmt"
	"math"
)

// tolerance used to decide whether a length-2 output already is a
// probability distribution rather than a pair of logits.
const distributionEps = 1e-6

// Interpret converts a raw model output of length 1 or 2 into the
// probability of the adult class, clamped to [0,1].
//
// A single value inside [0,1] is taken as the probability directly; any
// other single value is treated as a logit and squashed with the logistic
// function. A pair that already forms a probability distribution is used
// as-is (index 1 is the adult weight); otherwise the pair is treated as
// logits and softmaxed. Other lengths yield ErrUnsupportedOutputShape.
func Interpret(raw []float64) (float64, error) {
	switch len(raw) {
	case 1:
		v := raw[0]
		if v >= 0 && v <= 1 {
			return v, nil
		}
		return clamp01(sigmoid(v)), nil
	case 2:
		a, b := raw[0], raw[1]
		if a >= 0 && a <= 1 && b >= 0 && b <= 1 && math.Abs(a+b-1) <= distributionEps {
			return clamp01(b), nil
		}
		return clamp01(softmax2(a, b)), nil
	default:
		return 0, fmt.Errorf("%w: length %d", ErrUnsupportedOutputShape, len(raw))
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// softmax2 returns the softmax weight of b in the pair (a, b), computed in a
// numerically stable form.
func softmax2(a, b float64) float64 {
	m := math.Max(a, b)
	ea := math.Exp(a - m)
	eb := math.Exp(b - m)
	return eb / (ea + eb)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
