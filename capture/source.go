// Package capture provides frame sources for the analysis pipeline. A
// source is exclusively owned by the active analysis cycle and must be
// closed on every exit path.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vova616/screenshot"

	"github.com/Mohammed-Akramuddin/agegate/domain/frame"
)

// ErrSourceClosed reports a Grab on a source that has been released.
var ErrSourceClosed = errors.New("frame source closed")

// Source is a camera-equivalent handle. Grab returns the next frame; Close
// releases the underlying resource and is safe to call more than once.
type Source interface {
	Grab() (frame.Snapshot, error)
	Close() error
}

type stillSource struct {
	img      *image.RGBA
	sequence atomic.Uint64
	closed   atomic.Bool
}

// NewStillSource wraps a single in-memory image as a Source. Each Grab
// returns the same pixels with a fresh timestamp and sequence number.
func NewStillSource(img *image.RGBA) Source {
	return &stillSource{img: img}
}

// NewFileSource decodes a PNG or JPEG file into a still source.
func NewFileSource(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame file: %w", err)
	}
	defer f.Close()
	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame file %s: %w", path, err)
	}
	return NewStillSource(toRGBA(decoded)), nil
}

func (s *stillSource) Grab() (frame.Snapshot, error) {
	if s.closed.Load() {
		return frame.Snapshot{}, ErrSourceClosed
	}
	return frame.Snapshot{
		Image:      s.img,
		CapturedAt: time.Now(),
		Sequence:   s.sequence.Add(1),
	}, nil
}

func (s *stillSource) Close() error {
	s.closed.Store(true)
	return nil
}

type screenSource struct {
	sequence atomic.Uint64
	closed   atomic.Bool
	mu       sync.Mutex // single grab in flight at a time
}

// NewScreenSource captures frames from the active screen.
func NewScreenSource() Source {
	return &screenSource{}
}

func (s *screenSource) Grab() (frame.Snapshot, error) {
	if s.closed.Load() {
		return frame.Snapshot{}, ErrSourceClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	img, err := screenshot.CaptureScreen()
	if err != nil {
		return frame.Snapshot{}, fmt.Errorf("capture screen: %w", err)
	}
	return frame.Snapshot{
		Image:      img,
		CapturedAt: time.Now(),
		Sequence:   s.sequence.Add(1),
	}, nil
}

func (s *screenSource) Close() error {
	s.closed.Store(true)
	return nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
