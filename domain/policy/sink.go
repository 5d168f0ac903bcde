// Package policy drives the external protective policy from verdicts and
// owns the persisted policy state, verification window, and consent gate.
package policy

import (
	"context"
	"errors"
)

// ErrPolicyLocked reports that the policy sink refused the call. The verdict
// and verification window are still recorded; the user-visible effect is
// "classification succeeded, protection could not be changed".
var ErrPolicyLocked = errors.New("policy sink locked")

// ErrConsentMissing reports that the one-time consent flow has not
// completed. No pipeline work is attempted without consent.
var ErrConsentMissing = errors.New("consent not given")

// Sink is the external protective-policy mechanism. Both calls must be safe
// even when the policy is already in the target state; the controller avoids
// redundant calls, but the sink must tolerate them too.
type Sink interface {
	EnableProtection(ctx context.Context) error
	DisableProtection(ctx context.Context) error
}

// SinkFuncs adapts a pair of functions to the Sink interface.
type SinkFuncs struct {
	Enable  func(ctx context.Context) error
	Disable func(ctx context.Context) error
}

func (s SinkFuncs) EnableProtection(ctx context.Context) error {
	if s.Enable == nil {
		return nil
	}
	return s.Enable(ctx)
}

func (s SinkFuncs) DisableProtection(ctx context.Context) error {
	if s.Disable == nil {
		return nil
	}
	return s.Disable(ctx)
}

// NopSink is a Sink with no external effect, for hosts where the policy
// mechanism is managed elsewhere.
func NopSink() Sink { return SinkFuncs{} }
