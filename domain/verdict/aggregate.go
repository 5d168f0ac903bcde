package verdict

import (
	"errors"
	"math"

	"github.com/Mohammed-Akramuddin/agegate/config"
)

// ErrNoPasses reports an empty pass set. The orchestrator's fallback
// contract guarantees at least one pass, so this indicates a caller bug.
var ErrNoPasses = errors.New("no passes to aggregate")

// Aggregate combines per-pass probabilities into one probability and a
// confidence score. The probability is the mean of the passes. Confidence
// measures statistical agreement: a single pass earns confidence from its
// distance to 0.5, multiple passes from the fraction on the majority side
// of 0.5, boosted when spread is tight and penalized when spread is wide.
// The result is clamped to the configured band and is invariant under
// permutation of the pass set. If cfg is nil the default configuration is
// used.
func Aggregate(probs []float64, cfg *config.Config) (Aggregated, error) {
	if len(probs) == 0 {
		return Aggregated{}, ErrNoPasses
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	mean := 0.0
	for _, p := range probs {
		mean += p
	}
	mean /= float64(len(probs))

	var conf float64
	if len(probs) == 1 {
		conf = math.Min(cfg.ConfidenceCeil, 0.5+cfg.SinglePassSlope*math.Abs(mean-0.5))
	} else {
		conf = multiPassConfidence(probs, mean, cfg)
	}

	conf = clamp(conf, cfg.ConfidenceFloor, cfg.ConfidenceCeil)
	return Aggregated{Probability: mean, Confidence: conf, PassCount: len(probs)}, nil
}

func multiPassConfidence(probs []float64, mean float64, cfg *config.Config) float64 {
	n := float64(len(probs))

	high := 0
	minP, maxP := probs[0], probs[0]
	var m2 float64
	for _, p := range probs {
		if p >= 0.5 {
			high++
		}
		if p < minP {
			minP = p
		}
		if p > maxP {
			maxP = p
		}
		d := p - mean
		m2 += d * d
	}
	agreement := float64(high) / n
	if other := 1 - agreement; other > agreement {
		agreement = other
	}
	stddev := math.Sqrt(m2 / n) // population
	spread := maxP - minP

	conf := agreement
	if stddev < cfg.LowSpreadStdDev && spread < cfg.LowSpreadRange {
		conf = math.Min(conf*cfg.LowSpreadBoost, cfg.ConfidenceCeil)
	}
	conf = math.Min(conf+cfg.CenterWeight*math.Abs(mean-0.5), cfg.ConfidenceCeil)
	if stddev > cfg.HighSpreadStdDev || spread > cfg.HighSpreadRange {
		conf *= cfg.HighSpreadFactor
	}
	return conf
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
