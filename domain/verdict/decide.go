package verdict

import (
	"math"

	"github.com/Mohammed-Akramuddin/agegate/config"
)

// Decide applies the decision threshold to an aggregate and returns the
// verdict. The threshold is deliberately above 0.5 so that borderline cases
// lean toward Minor, i.e. toward enabling the protective policy. Results
// sitting inside the boundary margin get their confidence reduced; the
// confidence floor still applies. Deciding is deterministic: the same
// aggregate always yields the same verdict. If cfg is nil the default
// configuration is used.
func Decide(agg Aggregated, cfg *config.Config) Verdict {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	cat := Minor
	ref := 1 - cfg.DecisionThreshold
	if agg.Probability >= cfg.DecisionThreshold {
		cat = Major
		ref = cfg.DecisionThreshold
	}

	if math.Abs(agg.Probability-ref) < cfg.BoundaryMargin {
		agg.Confidence = math.Max(cfg.ConfidenceFloor, agg.Confidence*cfg.BoundaryFactor)
	}

	return Verdict{Category: cat, Result: agg}
}
