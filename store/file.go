package store

import (
	"context"
	"encoding/json"
	"os"
	"time"
)

// fileState is the on-disk shape of the persisted values.
type fileState struct {
	ConsentGiven             bool   `json:"consentGiven"`
	IsMinor                  *bool  `json:"isMinor,omitempty"`
	VerificationAllowedUntil string `json:"verificationAllowedUntil,omitempty"`
}

// File persists state in a small JSON document. Every write rewrites the
// whole file; the state is three values, so this stays cheap.
type File struct {
	path string
}

// NewFile returns a file-backed store at path. The file is created on the
// first write; a missing file reads as empty state.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) load() (fileState, error) {
	var st fileState
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}

func (f *File) save(st fileState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0644)
}

func (f *File) ConsentGiven(context.Context) (bool, error) {
	st, err := f.load()
	return st.ConsentGiven, err
}

func (f *File) SetConsentGiven(_ context.Context, given bool) error {
	st, err := f.load()
	if err != nil {
		return err
	}
	st.ConsentGiven = given
	return f.save(st)
}

func (f *File) LastVerdictMinor(context.Context) (bool, bool, error) {
	st, err := f.load()
	if err != nil {
		return false, false, err
	}
	if st.IsMinor == nil {
		return false, false, nil
	}
	return *st.IsMinor, true, nil
}

func (f *File) SetLastVerdictMinor(_ context.Context, isMinor bool) error {
	st, err := f.load()
	if err != nil {
		return err
	}
	st.IsMinor = &isMinor
	return f.save(st)
}

func (f *File) VerificationAllowedUntil(context.Context) (time.Time, error) {
	st, err := f.load()
	if err != nil {
		return time.Time{}, err
	}
	if st.VerificationAllowedUntil == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, st.VerificationAllowedUntil)
}

func (f *File) SetVerificationAllowedUntil(_ context.Context, t time.Time) error {
	st, err := f.load()
	if err != nil {
		return err
	}
	st.VerificationAllowedUntil = t.UTC().Format(time.RFC3339)
	return f.save(st)
}

func (f *File) Close() error { return nil }

var _ Store = (*File)(nil)
