// Package store persists the small set of values that outlive an analysis
// cycle: the consent flag, the last verdict, and the verification window.
package store

import (
	"context"
	"time"
)

// Keys used by every backend.
const (
	KeyConsentGiven             = "consentGiven"
	KeyIsMinor                  = "isMinor"
	KeyVerificationAllowedUntil = "verificationAllowedUntil"
)

// Store is the persistent key-value capability of the pipeline. Values are
// read at cycle start and written at cycle end; there is no cross-cycle
// concurrency, so backends need no locking beyond their own client safety.
type Store interface {
	// ConsentGiven reports whether the one-time consent flow has completed.
	// The pipeline only reads this flag; it is written by the consent flow.
	ConsentGiven(ctx context.Context) (bool, error)
	SetConsentGiven(ctx context.Context, given bool) error

	// LastVerdictMinor returns the persisted verdict. ok is false when no
	// analysis has completed yet.
	LastVerdictMinor(ctx context.Context) (isMinor bool, ok bool, err error)
	SetLastVerdictMinor(ctx context.Context, isMinor bool) error

	// VerificationAllowedUntil returns the zero time when no window has
	// been recorded yet.
	VerificationAllowedUntil(ctx context.Context) (time.Time, error)
	SetVerificationAllowedUntil(ctx context.Context, t time.Time) error

	Close() error
}
