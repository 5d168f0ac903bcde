// Package detect defines the optional face-detector capability. The pipeline
// always queries through the Detector interface; when no detector backend is
// available an Absent detector stands in and causes full-frame analysis.
package detect

import (
	"context"
	"image"

	"github.com/Mohammed-Akramuddin/agegate/domain/frame"
)

// Detector locates faces in a frame. Failure is non-fatal for the pipeline:
// callers fall back to analyzing the full frame.
type Detector interface {
	Detect(ctx context.Context, img *image.RGBA) ([]frame.FaceBox, error)
}

// Func adapts a plain function to the Detector interface.
type Func func(ctx context.Context, img *image.RGBA) ([]frame.FaceBox, error)

func (f Func) Detect(ctx context.Context, img *image.RGBA) ([]frame.FaceBox, error) {
	return f(ctx, img)
}

// Absent returns a detector representing a missing detection capability.
// It reports no faces and never fails.
func Absent() Detector {
	return Func(func(context.Context, *image.RGBA) ([]frame.FaceBox, error) {
		return nil, nil
	})
}
