package positioning

import (
	"context"

	"github.com/kasuwa/searchstream/internal/domain/entities"
	"github.com/kasuwa/searchstream/internal/domain/providers"
	apperrors "github.com/kasuwa/searchstream/pkg/errors"
)

// StaticPositioner returns a fixed coordinate. Used in development and in
// tests; a zero coordinate denies every fix.
type StaticPositioner struct {
	coord *entities.GeoCoordinate
}

// NewStaticPositioner creates a positioner pinned to (lat, lon). A (0, 0)
// pair produces a positioner that always fails, mimicking a device with the
// capability present but permission withheld.
func NewStaticPositioner(lat, lon float64) *StaticPositioner {
	if lat == 0 && lon == 0 {
		return &StaticPositioner{}
	}
	return &StaticPositioner{coord: &entities.GeoCoordinate{Lat: lat, Lon: lon}}
}

// CurrentPosition returns the pinned coordinate.
func (p *StaticPositioner) CurrentPosition(ctx context.Context) (*entities.GeoCoordinate, error) {
	if p.coord == nil {
		return nil, apperrors.NewPositioningError("permission withheld", nil)
	}
	c := *p.coord
	return &c, nil
}

var _ providers.Positioner = (*StaticPositioner)(nil)
