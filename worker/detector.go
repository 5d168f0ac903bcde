package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/Mohammed-Akramuddin/agegate/domain/detect"
	"github.com/Mohammed-Akramuddin/agegate/domain/frame"
)

// Detector adapts a Worker to the detector capability. The request payload
// is the frame encoded as PNG; the response is a JSON array of face boxes.
type Detector struct {
	w *Worker
}

// NewDetector starts a detector worker process.
func NewDetector(command string, args ...string) (*Detector, error) {
	w, err := New(command, args...)
	if err != nil {
		return nil, err
	}
	return &Detector{w: w}, nil
}

// Detect sends one frame and returns the detected face boxes. Failures are
// plain errors; the pipeline recovers by analyzing the full frame.
func (d *Detector) Detect(ctx context.Context, img *image.RGBA) ([]frame.FaceBox, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	body, err := d.w.roundTrip(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	var boxes []frame.FaceBox
	if err := decode(body, &boxes); err != nil {
		return nil, err
	}
	return boxes, nil
}

// Close stops the worker process.
func (d *Detector) Close() error { return d.w.Close() }

var _ detect.Detector = (*Detector)(nil)
