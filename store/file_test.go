package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestFile_MissingFileReadsEmpty(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	given, err := f.ConsentGiven(ctx)
	if err != nil || given {
		t.Fatalf("missing file must read consent false, got %v err=%v", given, err)
	}
	if _, ok, err := f.LastVerdictMinor(ctx); err != nil || ok {
		t.Fatalf("missing file must report no verdict, ok=%v err=%v", ok, err)
	}
	until, err := f.VerificationAllowedUntil(ctx)
	if err != nil || !until.IsZero() {
		t.Fatalf("missing file must report zero window, got %v err=%v", until, err)
	}
}

func TestFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	f := NewFile(path)
	ctx := context.Background()

	if err := f.SetConsentGiven(ctx, true); err != nil {
		t.Fatalf("set consent: %v", err)
	}
	if err := f.SetLastVerdictMinor(ctx, true); err != nil {
		t.Fatalf("set verdict: %v", err)
	}
	until := time.Date(2026, 8, 26, 13, 0, 0, 0, time.UTC)
	if err := f.SetVerificationAllowedUntil(ctx, until); err != nil {
		t.Fatalf("set window: %v", err)
	}

	// A fresh handle over the same path sees the persisted values.
	reopened := NewFile(path)
	given, err := reopened.ConsentGiven(ctx)
	if err != nil || !given {
		t.Fatalf("consent lost across reopen: %v err=%v", given, err)
	}
	isMinor, ok, err := reopened.LastVerdictMinor(ctx)
	if err != nil || !ok || !isMinor {
		t.Fatalf("verdict lost across reopen: ok=%v isMinor=%v err=%v", ok, isMinor, err)
	}
	got, err := reopened.VerificationAllowedUntil(ctx)
	if err != nil || !got.Equal(until) {
		t.Fatalf("window lost across reopen: got %v want %v err=%v", got, until, err)
	}
}

func TestFile_VerdictOverwrite(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	f.SetLastVerdictMinor(ctx, true)
	if err := f.SetLastVerdictMinor(ctx, false); err != nil {
		t.Fatalf("overwrite verdict: %v", err)
	}
	isMinor, ok, err := f.LastVerdictMinor(ctx)
	if err != nil || !ok || isMinor {
		t.Fatalf("expected persisted major verdict, ok=%v isMinor=%v err=%v", ok, isMinor, err)
	}
}

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, ok, _ := m.LastVerdictMinor(ctx); ok {
		t.Fatalf("fresh memory store must hold no verdict")
	}
	m.SetConsentGiven(ctx, true)
	m.SetLastVerdictMinor(ctx, true)
	until := time.Now().Add(time.Hour).Truncate(time.Second)
	m.SetVerificationAllowedUntil(ctx, until)

	given, _ := m.ConsentGiven(ctx)
	isMinor, ok, _ := m.LastVerdictMinor(ctx)
	got, _ := m.VerificationAllowedUntil(ctx)
	if !given || !ok || !isMinor || !got.Equal(until) {
		t.Fatalf("round trip mismatch: consent=%v ok=%v isMinor=%v until=%v", given, ok, isMinor, got)
	}
}
