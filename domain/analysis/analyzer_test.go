package analysis

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mohammed-Akramuddin/agegate/capture"
	"github.com/Mohammed-Akramuddin/agegate/config"
	"github.com/Mohammed-Akramuddin/agegate/domain/frame"
	"github.com/Mohammed-Akramuddin/agegate/domain/infer"
	"github.com/Mohammed-Akramuddin/agegate/domain/policy"
	"github.com/Mohammed-Akramuddin/agegate/domain/verdict"
	"github.com/Mohammed-Akramuddin/agegate/store"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.TargetSize = 16
	cfg.MinFaceSize = 4
	cfg.AutoStopSeconds = 0
	return cfg
}

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	return img
}

// fakeSource counts grabs and closes so release behavior is observable.
type fakeSource struct {
	img    *image.RGBA
	grabs  atomic.Int64
	closes atomic.Int64
}

func (s *fakeSource) Grab() (frame.Snapshot, error) {
	s.grabs.Add(1)
	return frame.Snapshot{Image: s.img, CapturedAt: time.Now(), Sequence: uint64(s.grabs.Load())}, nil
}

func (s *fakeSource) Close() error {
	s.closes.Add(1)
	return nil
}

var _ capture.Source = (*fakeSource)(nil)

type nopSink struct{}

func (nopSink) EnableProtection(context.Context) error  { return nil }
func (nopSink) DisableProtection(context.Context) error { return nil }

func newAnalyzer(t *testing.T, cfg *config.Config, cls infer.Classifier, consent bool) (*Analyzer, *store.Memory, *policy.Controller) {
	t.Helper()
	st := store.NewMemory()
	if consent {
		if err := st.SetConsentGiven(context.Background(), true); err != nil {
			t.Fatalf("seed consent: %v", err)
		}
	}
	ctrl := policy.NewController(cfg, st, nopSink{}, nil)
	return New(cfg, nil, nil, cls, ctrl, nil, nil), st, ctrl
}

func scripted(probs ...float64) infer.Classifier {
	i := 0
	return infer.ClassifierFunc(func(context.Context, []float32) ([]float64, error) {
		p := probs[i%len(probs)]
		i++
		return []float64{p}, nil
	})
}

func TestAnalyze_MinorEnforcesPolicy(t *testing.T) {
	cfg := testConfig()
	a, st, _ := newAnalyzer(t, cfg, scripted(0.46), true)
	src := &fakeSource{img: testImage()}

	res, err := a.Analyze(context.Background(), src)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Verdict.Category != verdict.Minor {
		t.Fatalf("probability 0.46 must yield minor, got %s", res.Verdict.Category)
	}
	if res.PolicyState != policy.StateEnforced {
		t.Fatalf("expected policy enforced, got %s", res.PolicyState)
	}
	if res.CycleID == "" {
		t.Fatalf("missing cycle id")
	}
	if src.closes.Load() != 1 {
		t.Fatalf("source must be released exactly once, got %d", src.closes.Load())
	}
	isMinor, ok, _ := st.LastVerdictMinor(context.Background())
	if !ok || !isMinor {
		t.Fatalf("verdict not persisted: ok=%v isMinor=%v", ok, isMinor)
	}
	until, _ := st.VerificationAllowedUntil(context.Background())
	if until.IsZero() || !until.Equal(res.AllowedUntil) {
		t.Fatalf("verification window not persisted: store=%v result=%v", until, res.AllowedUntil)
	}
}

func TestAnalyze_MultiPassCount(t *testing.T) {
	cfg := testConfig()
	cfg.EnsemblePaddings = []float64{10, 25, 40}
	a, _, _ := newAnalyzer(t, cfg, scripted(0.7, 0.72, 0.68), true)

	res, err := a.Analyze(context.Background(), &fakeSource{img: testImage()})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Verdict.Result.PassCount != 3 {
		t.Fatalf("expected 3 passes, got %d", res.Verdict.Result.PassCount)
	}
	if res.Verdict.Category != verdict.Major {
		t.Fatalf("expected major, got %s", res.Verdict.Category)
	}
}

func TestAnalyze_InferenceUnavailableLeavesStateUntouched(t *testing.T) {
	cfg := testConfig()
	failing := infer.ClassifierFunc(func(context.Context, []float32) ([]float64, error) {
		return nil, errors.New("model not loaded")
	})
	a, st, _ := newAnalyzer(t, cfg, failing, true)
	src := &fakeSource{img: testImage()}

	_, err := a.Analyze(context.Background(), src)
	if !errors.Is(err, infer.ErrInferenceUnavailable) {
		t.Fatalf("expected ErrInferenceUnavailable, got %v", err)
	}
	if src.closes.Load() != 1 {
		t.Fatalf("source must be released on failure, got %d closes", src.closes.Load())
	}
	if _, ok, _ := st.LastVerdictMinor(context.Background()); ok {
		t.Fatalf("failed cycle must not persist a verdict")
	}
	until, _ := st.VerificationAllowedUntil(context.Background())
	if !until.IsZero() {
		t.Fatalf("failed cycle must not extend the window, got %v", until)
	}
}

func TestAnalyze_ConsentGate(t *testing.T) {
	cfg := testConfig()
	calls := 0
	cls := infer.ClassifierFunc(func(context.Context, []float32) ([]float64, error) {
		calls++
		return []float64{0.5}, nil
	})
	a, _, _ := newAnalyzer(t, cfg, cls, false)
	src := &fakeSource{img: testImage()}

	_, err := a.Analyze(context.Background(), src)
	if !errors.Is(err, policy.ErrConsentMissing) {
		t.Fatalf("expected ErrConsentMissing, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("pipeline must not run without consent, classifier called %d times", calls)
	}
	if src.grabs.Load() != 0 {
		t.Fatalf("no frame must be grabbed without consent")
	}
	if src.closes.Load() != 1 {
		t.Fatalf("source must still be released, got %d closes", src.closes.Load())
	}
}

func TestAnalyze_ReentrantStartDropped(t *testing.T) {
	cfg := testConfig()
	started := make(chan struct{})
	proceed := make(chan struct{})
	blocking := infer.ClassifierFunc(func(context.Context, []float32) ([]float64, error) {
		close(started)
		<-proceed
		return []float64{0.7}, nil
	})
	a, _, _ := newAnalyzer(t, cfg, blocking, true)

	first := &fakeSource{img: testImage()}
	done := make(chan error, 1)
	go func() {
		_, err := a.Analyze(context.Background(), first)
		done <- err
	}()
	<-started

	second := &fakeSource{img: testImage()}
	if _, err := a.Analyze(context.Background(), second); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for re-entrant start, got %v", err)
	}
	if second.closes.Load() != 1 {
		t.Fatalf("dropped request's source must be closed, got %d", second.closes.Load())
	}
	if second.grabs.Load() != 0 {
		t.Fatalf("dropped request must not grab a frame")
	}

	close(proceed)
	if err := <-done; err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if first.closes.Load() != 1 {
		t.Fatalf("first source must be released once, got %d", first.closes.Load())
	}
	if a.Running() {
		t.Fatalf("analyzer still marked running after completion")
	}
}

func TestAnalyze_StopDiscardsResult(t *testing.T) {
	cfg := testConfig()
	started := make(chan struct{})
	proceed := make(chan struct{})
	blocking := infer.ClassifierFunc(func(context.Context, []float32) ([]float64, error) {
		close(started)
		<-proceed
		return []float64{0.9}, nil
	})
	a, st, _ := newAnalyzer(t, cfg, blocking, true)
	src := &fakeSource{img: testImage()}

	done := make(chan error, 1)
	go func() {
		_, err := a.Analyze(context.Background(), src)
		done <- err
	}()
	<-started
	a.Stop()
	close(proceed)

	err := <-done
	if !errors.Is(err, ErrStopped) && !errors.Is(err, infer.ErrInferenceUnavailable) {
		t.Fatalf("stopped cycle must not produce a verdict, got %v", err)
	}
	if src.closes.Load() == 0 {
		t.Fatalf("Stop must release the source")
	}
	if _, ok, _ := st.LastVerdictMinor(context.Background()); ok {
		t.Fatalf("stopped cycle must not persist a verdict")
	}
}

func TestAnalyze_AuditRecorded(t *testing.T) {
	cfg := testConfig()
	var recorded []AuditRecord
	auditor := auditorFunc(func(_ context.Context, rec AuditRecord) error {
		recorded = append(recorded, rec)
		return nil
	})

	st := store.NewMemory()
	st.SetConsentGiven(context.Background(), true)
	ctrl := policy.NewController(cfg, st, nopSink{}, nil)
	a := New(cfg, nil, nil, scripted(0.8), ctrl, nil, auditor)

	res, err := a.Analyze(context.Background(), &fakeSource{img: testImage()})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(recorded) != 1 {
		t.Fatalf("expected one audit record, got %d", len(recorded))
	}
	rec := recorded[0]
	if rec.CycleID != res.CycleID || rec.Verdict != "major" || !rec.PolicyApplied {
		t.Fatalf("unexpected audit record: %+v", rec)
	}
}

type auditorFunc func(context.Context, AuditRecord) error

func (f auditorFunc) Record(ctx context.Context, rec AuditRecord) error { return f(ctx, rec) }
