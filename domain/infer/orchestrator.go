package infer

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"

	"github.com/Mohammed-Akramuddin/agegate/config"
	"github.com/Mohammed-Akramuddin/agegate/domain/frame"
	"github.com/Mohammed-Akramuddin/agegate/metrics"
)

// Pass is one completed preprocess+infer cycle over a region variant.
type Pass struct {
	PaddingPct  float64
	Probability float64
}

// Orchestrator runs test-time augmentation passes over a frame. Passes
// execute strictly sequentially to bound peak memory to one tensor and to
// respect a single-flight classifier capability.
type Orchestrator struct {
	cfg     *config.Config
	cls     Classifier
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewOrchestrator returns an orchestrator over the given classifier. If cfg
// is nil the default configuration is used. logger and m may be nil.
func NewOrchestrator(cfg *config.Config, cls Classifier, logger *slog.Logger, m *metrics.Metrics) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Orchestrator{cfg: cfg, cls: cls, logger: logger, metrics: m}
}

// Run executes one pass per configured ensemble padding and returns the
// surviving passes. A failed pass (capability error or unsupported output
// shape) is logged and skipped. If every pass fails, exactly one fallback
// pass runs at the canonical default padding; if that fails too Run returns
// ErrInferenceUnavailable. Cancelling ctx prevents further passes from
// being started.
func (o *Orchestrator) Run(ctx context.Context, img *image.RGBA, boxes []frame.FaceBox) ([]Pass, error) {
	if img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return nil, frame.ErrEmptyRegion
	}

	var passes []Pass
	var lastErr error
	for i, pad := range o.cfg.EnsemblePaddings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			// Cooperative yield between passes keeps the host responsive.
			runtime.Gosched()
		}
		p, err := o.runPass(ctx, img, boxes, pad)
		if err != nil {
			lastErr = err
			if o.metrics != nil {
				o.metrics.PassFailures.Add(1)
			}
			if o.logger != nil {
				o.logger.Warn("inference pass failed", "padding_pct", pad, "error", err)
			}
			continue
		}
		if o.metrics != nil {
			o.metrics.PassesRun.Add(1)
		}
		passes = append(passes, p)
	}
	if len(passes) > 0 {
		return passes, nil
	}

	// All ensemble passes failed: one fallback pass at the default padding.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.metrics != nil {
		o.metrics.FallbackPasses.Add(1)
	}
	p, err := o.runPass(ctx, img, boxes, o.cfg.PaddingPct)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, fmt.Errorf("%w: fallback pass: %v (first failure: %v)", ErrInferenceUnavailable, err, lastErr)
	}
	if o.metrics != nil {
		o.metrics.PassesRun.Add(1)
	}
	return []Pass{p}, nil
}

func (o *Orchestrator) runPass(ctx context.Context, img *image.RGBA, boxes []frame.FaceBox, pad float64) (Pass, error) {
	region, rect := frame.SelectRegion(img, boxes, pad, o.cfg.MinFaceSize)
	tensor, err := frame.Preprocess(region, o.cfg.TargetSize, o.cfg.Mean, o.cfg.Std)
	if err != nil {
		return Pass{}, err
	}
	raw, err := o.cls.Infer(ctx, tensor)
	if err != nil {
		return Pass{}, err
	}
	prob, err := Interpret(raw)
	if err != nil {
		return Pass{}, err
	}
	if o.logger != nil {
		o.logger.Debug("inference pass",
			"padding_pct", pad,
			"region", rect.String(),
			"raw_len", len(raw),
			"probability", prob,
		)
	}
	return Pass{PaddingPct: pad, Probability: prob}, nil
}

// Probabilities extracts the per-pass probabilities in pass order.
func Probabilities(passes []Pass) []float64 {
	out := make([]float64, len(passes))
	for i, p := range passes {
		out[i] = p.Probability
	}
	return out
}
