// Package storage implements device-local persistence for client state.
package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kasuwa/searchstream/internal/domain/providers"
	apperrors "github.com/kasuwa/searchstream/pkg/errors"
)

// locationFileName is the well-known key the last known device location is
// stored under. The value is raw JSON with no schema version tag; readers
// treat unparsable content as absent.
const locationFileName = "last_location.json"

// FileLocationStore persists the last known location as a JSON file in the
// client's state directory, surviving process restarts with no expiry.
type FileLocationStore struct {
	path string
}

// NewFileLocationStore creates a store under dir; empty dir means the OS
// user config directory.
func NewFileLocationStore(dir string) (*FileLocationStore, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, apperrors.NewInternalError("resolving user config dir", err)
		}
		dir = filepath.Join(base, "searchstream")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, apperrors.NewInternalError("creating state dir", err)
	}
	return &FileLocationStore{path: filepath.Join(dir, locationFileName)}, nil
}

// Load returns the stored bytes, or providers.ErrNotFound when no location
// has been persisted yet.
func (s *FileLocationStore) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, providers.ErrNotFound
		}
		return nil, apperrors.NewInternalError("reading stored location", err)
	}
	return data, nil
}

// Save overwrites the stored value.
func (s *FileLocationStore) Save(ctx context.Context, value []byte) error {
	if err := os.WriteFile(s.path, value, 0o600); err != nil {
		return apperrors.NewInternalError("writing stored location", err)
	}
	return nil
}

var _ providers.LocationStore = (*FileLocationStore)(nil)
