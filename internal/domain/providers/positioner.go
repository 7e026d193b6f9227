package providers

import (
	"context"

	"github.com/kasuwa/searchstream/internal/domain/entities"
)

// Positioner defines the interface for the host device's positioning
// capability: a single-shot high-accuracy position fix. Implementations must
// honor the context deadline; the caller bounds every request.
type Positioner interface {
	CurrentPosition(ctx context.Context) (*entities.GeoCoordinate, error)
}
