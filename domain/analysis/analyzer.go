// Package analysis runs one complete cycle from a captured frame to a
// persisted verdict and policy transition.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Mohammed-Akramuddin/agegate/capture"
	"github.com/Mohammed-Akramuddin/agegate/config"
	"github.com/Mohammed-Akramuddin/agegate/domain/detect"
	"github.com/Mohammed-Akramuddin/agegate/domain/frame"
	"github.com/Mohammed-Akramuddin/agegate/domain/infer"
	"github.com/Mohammed-Akramuddin/agegate/domain/policy"
	"github.com/Mohammed-Akramuddin/agegate/domain/verdict"
	"github.com/Mohammed-Akramuddin/agegate/metrics"
)

// ErrBusy reports a re-entrant Analyze while a cycle is in flight. The
// request is dropped, not queued.
var ErrBusy = errors.New("analysis already in progress")

// ErrStopped reports a cycle whose result was discarded because Stop was
// called while a pass was in flight.
var ErrStopped = errors.New("analysis stopped")

// Result is the outcome of one completed analysis cycle. PolicyErr carries
// a recovered policy sink failure; the verdict and window were still
// persisted when it is set.
type Result struct {
	CycleID      string
	Verdict      verdict.Verdict
	PolicyState  policy.State
	PolicyErr    error
	AllowedUntil time.Time
	Elapsed      time.Duration
}

// AuditRecord mirrors a Result for an optional history backend.
type AuditRecord struct {
	CycleID       string
	DecidedAt     time.Time
	Probability   float64
	Confidence    float64
	PassCount     int
	Verdict       string
	PolicyApplied bool
}

// Auditor records completed analyses. Optional; failures are logged, never
// fatal.
type Auditor interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// Analyzer drives the full pipeline. At most one cycle runs at a time; the
// running guard rejects re-entrant starts instead of queueing them. The
// frame source handed to Analyze is owned by the cycle and is released on
// every exit path: completion, error, explicit Stop, and an auto-stop timer
// a fixed delay after the result.
type Analyzer struct {
	cfg        *config.Config
	logger     *slog.Logger
	detector   detect.Detector
	orch       *infer.Orchestrator
	controller *policy.Controller
	metrics    *metrics.Metrics
	auditor    Auditor
	now        func() time.Time

	running atomic.Bool
	stopped atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	release func()
}

// New wires an analyzer. detector, m, and auditor may be nil; a nil
// detector behaves like detect.Absent().
func New(cfg *config.Config, logger *slog.Logger, detector detect.Detector, classifier infer.Classifier,
	controller *policy.Controller, m *metrics.Metrics, auditor Auditor) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if detector == nil {
		detector = detect.Absent()
	}
	return &Analyzer{
		cfg:        cfg,
		logger:     logger,
		detector:   detector,
		orch:       infer.NewOrchestrator(cfg, classifier, logger, m),
		controller: controller,
		metrics:    m,
		auditor:    auditor,
		now:        time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (a *Analyzer) SetNow(now func() time.Time) { a.now = now }

// Analyze runs one cycle over the given frame source. The consent gate is
// checked once before any pipeline work. On ErrInferenceUnavailable no
// verdict is produced and persisted state is left unchanged.
func (a *Analyzer) Analyze(ctx context.Context, src capture.Source) (Result, error) {
	if !a.running.CompareAndSwap(false, true) {
		if a.metrics != nil {
			a.metrics.CyclesDropped.Add(1)
		}
		// The rejected request's source is ours to clean up; nobody else
		// will grab from it.
		src.Close()
		return Result{}, ErrBusy
	}
	defer a.running.Store(false)
	a.stopped.Store(false)

	cycleID := uuid.NewString()
	start := a.now()
	if a.metrics != nil {
		a.metrics.CyclesStarted.Add(1)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := src.Close(); err != nil && a.logger != nil {
				a.logger.Warn("frame source close failed", "cycle", cycleID, "error", err)
			}
		})
	}
	a.mu.Lock()
	a.cancel = cancel
	a.release = release
	a.mu.Unlock()

	completed := false
	defer func() {
		if !completed {
			release()
		}
	}()

	res, err := a.run(ctx, cycleID, src)
	if err != nil {
		if a.metrics != nil {
			a.metrics.CyclesFailed.Add(1)
		}
		return Result{}, err
	}

	res.Elapsed = a.now().Sub(start)
	if a.metrics != nil {
		a.metrics.CyclesCompleted.Add(1)
		a.metrics.UpdateCycleLatency(res.Elapsed)
	}
	a.recordAudit(ctx, res)
	if a.logger != nil {
		a.logger.Info("analysis complete",
			"cycle", cycleID,
			"verdict", res.Verdict.Category.String(),
			"probability", res.Verdict.Result.Probability,
			"confidence", res.Verdict.Result.Confidence,
			"passes", res.Verdict.Result.PassCount,
			"policy_state", res.PolicyState.String(),
			"elapsed", res.Elapsed,
		)
	}

	completed = true
	if d := a.cfg.AutoStopDelay(); d > 0 {
		// The source stays alive briefly so hosts can keep showing a live
		// preview next to the result, then is force-released.
		time.AfterFunc(d, release)
	} else {
		release()
	}
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, cycleID string, src capture.Source) (Result, error) {
	// Consent gate: checked once per invocation, never re-derived mid-run.
	if err := a.controller.ConsentGiven(ctx); err != nil {
		return Result{}, err
	}

	snap, err := src.Grab()
	if err != nil {
		return Result{}, err
	}
	if snap.Empty() {
		return Result{}, frame.ErrEmptyRegion
	}

	boxes := a.detectFaces(ctx, snap)

	passes, err := a.orch.Run(ctx, snap.Image, boxes)
	if err != nil {
		return Result{}, err
	}
	// A pass already dispatched when Stop landed ran to completion; its
	// result is discarded here.
	if a.stopped.Load() {
		return Result{}, ErrStopped
	}

	agg, err := verdict.Aggregate(infer.Probabilities(passes), a.cfg)
	if err != nil {
		return Result{}, err
	}
	v := verdict.Decide(agg, a.cfg)

	outcome, err := a.controller.Apply(ctx, v)
	if err != nil {
		return Result{}, err
	}
	if outcome.SinkErr != nil && a.metrics != nil {
		a.metrics.PolicyFailures.Add(1)
	}

	return Result{
		CycleID:      cycleID,
		Verdict:      v,
		PolicyState:  outcome.State,
		PolicyErr:    outcome.SinkErr,
		AllowedUntil: outcome.AllowedUntil,
	}, nil
}

func (a *Analyzer) detectFaces(ctx context.Context, snap frame.Snapshot) []frame.FaceBox {
	boxes, err := a.detector.Detect(ctx, snap.Image)
	if err != nil {
		if a.metrics != nil {
			a.metrics.DetectorFailures.Add(1)
		}
		if a.logger != nil {
			a.logger.Warn("detector unavailable, analyzing full frame", "error", err)
		}
		return nil
	}
	return boxes
}

func (a *Analyzer) recordAudit(ctx context.Context, res Result) {
	if a.auditor == nil {
		return
	}
	rec := AuditRecord{
		CycleID:       res.CycleID,
		DecidedAt:     a.now(),
		Probability:   res.Verdict.Result.Probability,
		Confidence:    res.Verdict.Result.Confidence,
		PassCount:     res.Verdict.Result.PassCount,
		Verdict:       res.Verdict.Category.String(),
		PolicyApplied: res.PolicyErr == nil,
	}
	if err := a.auditor.Record(ctx, rec); err != nil && a.logger != nil {
		a.logger.Warn("audit record failed", "cycle", res.CycleID, "error", err)
	}
}

// Stop cancels the in-flight cycle, prevents further passes from starting,
// and releases the frame source. A pass already dispatched to the external
// classifier runs to completion; its result is discarded.
func (a *Analyzer) Stop() {
	a.stopped.Store(true)
	a.mu.Lock()
	cancel := a.cancel
	release := a.release
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if release != nil {
		release()
	}
}

// Running reports whether a cycle is currently in flight.
func (a *Analyzer) Running() bool { return a.running.Load() }
