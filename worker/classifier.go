package worker

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Mohammed-Akramuddin/agegate/domain/infer"
)

// Classifier adapts a Worker to the classifier capability. The request
// payload is the tensor as little-endian float32 values; the response is a
// JSON array of 1 or 2 floats.
type Classifier struct {
	w *Worker
}

// NewClassifier starts a classifier worker process.
func NewClassifier(command string, args ...string) (*Classifier, error) {
	w, err := New(command, args...)
	if err != nil {
		return nil, err
	}
	return &Classifier{w: w}, nil
}

// Infer sends one tensor and returns the raw model output. Transport
// failures wrap infer.ErrInferenceUnavailable so the orchestrator treats
// them as a failed pass.
func (c *Classifier) Infer(ctx context.Context, tensor []float32) ([]float64, error) {
	payload := make([]byte, 4*len(tensor))
	for i, v := range tensor {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}
	body, err := c.w.roundTrip(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", infer.ErrInferenceUnavailable, err)
	}
	var raw []float64
	if err := decode(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", infer.ErrInferenceUnavailable, err)
	}
	return raw, nil
}

// Close stops the worker process.
func (c *Classifier) Close() error { return c.w.Close() }

var _ infer.Classifier = (*Classifier)(nil)
