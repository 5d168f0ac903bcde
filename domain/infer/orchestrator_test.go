package infer

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/Mohammed-Akramuddin/agegate/config"
	"github.com/Mohammed-Akramuddin/agegate/domain/frame"
)

func testConfig(paddings ...float64) *config.Config {
	cfg := config.DefaultConfig()
	cfg.TargetSize = 16
	cfg.MinFaceSize = 4
	if len(paddings) > 0 {
		cfg.EnsemblePaddings = paddings
	}
	return cfg
}

func testFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 120, 100, 90, 255
	}
	return img
}

// scriptedClassifier replays one response per call, in order.
type scriptedClassifier struct {
	outputs [][]float64
	errs    []error
	calls   int
}

func (s *scriptedClassifier) Infer(ctx context.Context, tensor []float32) ([]float64, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.outputs) {
		return s.outputs[i], nil
	}
	return nil, errors.New("script exhausted")
}

func TestOrchestrator_OnePassPerPadding(t *testing.T) {
	cls := &scriptedClassifier{outputs: [][]float64{{0.3}, {0.5}, {0.7}}}
	o := NewOrchestrator(testConfig(10, 25, 40), cls, nil, nil)
	passes, err := o.Run(context.Background(), testFrame(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(passes) != 3 {
		t.Fatalf("expected 3 passes, got %d", len(passes))
	}
	for i, want := range []float64{0.3, 0.5, 0.7} {
		if passes[i].Probability != want {
			t.Fatalf("pass %d probability %f, want %f", i, passes[i].Probability, want)
		}
	}
	if cls.calls != 3 {
		t.Fatalf("expected 3 classifier calls, got %d", cls.calls)
	}
}

func TestOrchestrator_FailedPassSkipped(t *testing.T) {
	boom := errors.New("boom")
	cls := &scriptedClassifier{
		outputs: [][]float64{{0.3}, nil, {0.7}},
		errs:    []error{nil, boom, nil},
	}
	o := NewOrchestrator(testConfig(10, 25, 40), cls, nil, nil)
	passes, err := o.Run(context.Background(), testFrame(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(passes) != 2 {
		t.Fatalf("expected 2 surviving passes, got %d", len(passes))
	}
}

func TestOrchestrator_BadShapeTreatedAsFailedPass(t *testing.T) {
	cls := &scriptedClassifier{outputs: [][]float64{{0.1, 0.2, 0.3}, {0.6}}}
	o := NewOrchestrator(testConfig(10, 25), cls, nil, nil)
	passes, err := o.Run(context.Background(), testFrame(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(passes) != 1 || passes[0].Probability != 0.6 {
		t.Fatalf("expected only the well-shaped pass, got %+v", passes)
	}
}

func TestOrchestrator_FallbackPassWhenAllFail(t *testing.T) {
	boom := errors.New("boom")
	cls := &scriptedClassifier{
		outputs: [][]float64{nil, nil, nil, {0.6}},
		errs:    []error{boom, boom, boom, nil},
	}
	cfg := testConfig(10, 25, 40)
	o := NewOrchestrator(cfg, cls, nil, nil)
	passes, err := o.Run(context.Background(), testFrame(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(passes) != 1 {
		t.Fatalf("expected single fallback pass, got %d", len(passes))
	}
	if passes[0].PaddingPct != cfg.PaddingPct {
		t.Fatalf("fallback must use default padding %f, got %f", cfg.PaddingPct, passes[0].PaddingPct)
	}
	if cls.calls != 4 {
		t.Fatalf("expected 3 ensemble calls + 1 fallback, got %d", cls.calls)
	}
}

func TestOrchestrator_InferenceUnavailable(t *testing.T) {
	boom := errors.New("boom")
	cls := &scriptedClassifier{errs: []error{boom, boom}}
	o := NewOrchestrator(testConfig(25), cls, nil, nil)
	_, err := o.Run(context.Background(), testFrame(), nil)
	if !errors.Is(err, ErrInferenceUnavailable) {
		t.Fatalf("expected ErrInferenceUnavailable, got %v", err)
	}
}

func TestOrchestrator_CancelledContextStartsNoPasses(t *testing.T) {
	cls := &scriptedClassifier{outputs: [][]float64{{0.5}}}
	o := NewOrchestrator(testConfig(25), cls, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Run(ctx, testFrame(), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if cls.calls != 0 {
		t.Fatalf("no pass may start after cancellation, got %d calls", cls.calls)
	}
}

func TestOrchestrator_EmptyFrame(t *testing.T) {
	o := NewOrchestrator(testConfig(25), &scriptedClassifier{}, nil, nil)
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := o.Run(context.Background(), empty, nil); !errors.Is(err, frame.ErrEmptyRegion) {
		t.Fatalf("expected ErrEmptyRegion, got %v", err)
	}
}
