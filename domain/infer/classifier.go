// Package infer runs the classifier capability over region variants and
// interprets its raw output into a probability of the adult class.
package infer

import (
	"context"
	"errors"
)

// ErrInferenceUnavailable reports that the classifier capability failed for
// every attempted pass including the fallback pass. The analysis cycle ends
// without a verdict and persisted state is left untouched.
var ErrInferenceUnavailable = errors.New("inference unavailable")

// ErrUnsupportedOutputShape reports a raw output whose length is not 1 or 2.
// The affected pass is discarded; the cycle fails only if no pass survives.
var ErrUnsupportedOutputShape = errors.New("unsupported output shape")

// Classifier is the external model capability. Infer must be idempotent per
// call and may fail. Tensors are channel-major float32 (shape [1,3,S,S]).
type Classifier interface {
	Infer(ctx context.Context, tensor []float32) ([]float64, error)
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, tensor []float32) ([]float64, error)

func (f ClassifierFunc) Infer(ctx context.Context, tensor []float32) ([]float64, error) {
	return f(ctx, tensor)
}
