package providers

import (
	"context"
	"errors"
)

// ErrNotFound is returned by LocationStore.Load when no location has been
// persisted yet.
var ErrNotFound = errors.New("location not found")

// LocationStore persists the device's last known position under a well-known
// key across process restarts. Values are raw JSON: readers must tolerate
// unparsable content by treating it as absent, so old stored formats never
// break a newer reader.
type LocationStore interface {
	// Load returns the stored bytes, or ErrNotFound when nothing is stored.
	Load(ctx context.Context) ([]byte, error)

	// Save overwrites the stored value.
	Save(ctx context.Context, value []byte) error
}
