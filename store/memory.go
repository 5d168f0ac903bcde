package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store used in tests and as a safe default.
type Memory struct {
	mu           sync.Mutex
	consent      bool
	isMinor      bool
	verdictSet   bool
	allowedUntil time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) ConsentGiven(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consent, nil
}

func (m *Memory) SetConsentGiven(_ context.Context, given bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consent = given
	return nil
}

func (m *Memory) LastVerdictMinor(context.Context) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isMinor, m.verdictSet, nil
}

func (m *Memory) SetLastVerdictMinor(_ context.Context, isMinor bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isMinor = isMinor
	m.verdictSet = true
	return nil
}

func (m *Memory) VerificationAllowedUntil(context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowedUntil, nil
}

func (m *Memory) SetVerificationAllowedUntil(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowedUntil = t
	return nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
