package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kasuwa/searchstream/internal/domain/entities"
	"github.com/kasuwa/searchstream/internal/domain/providers"
)

// locationFixTimeout bounds one high-accuracy position fix.
const locationFixTimeout = 10 * time.Second

// resolveLocationRequest runs one server-initiated location request to
// completion: Idle -> AwaitingPermission -> Granted|Denied. Both outcomes
// are terminal for the request and both always answer the server, so no
// request is ever left pending. There is no automatic retry; only a fresh
// server request restarts the flow.
func (c *Client) resolveLocationRequest(ctx context.Context) {
	if c.positioner == nil {
		c.logger.Info().Msg("no positioning capability, denying location request")
		c.finishLocationRequest(nil, "unavailable")
		return
	}

	fixCtx, cancel := context.WithTimeout(ctx, locationFixTimeout)
	defer cancel()

	coord, err := c.positioner.CurrentPosition(fixCtx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("position fix failed")
		c.finishLocationRequest(nil, "denied")
		return
	}

	if err := c.persistLocation(ctx, coord); err != nil {
		// The fix itself succeeded; a storage failure must not turn a
		// grant into a denial.
		c.logger.Warn().Err(err).Msg("persisting device location failed")
	}

	c.finishLocationRequest(coord, "")
}

// finishLocationRequest answers the server and notifies local subscribers.
// A nil coordinate means the request resolved as denied/unavailable and an
// explicit null goes upstream.
func (c *Client) finishLocationRequest(coord *entities.GeoCoordinate, reason string) {
	var payload any
	if coord != nil {
		payload = coord
	}
	if err := c.transport.Emit(providers.EventLocationResponse, payload); err != nil {
		c.logger.Warn().Err(err).Msg("sending location response failed")
	}

	c.bus.LocationOutcomes.publish(&entities.LocationOutcome{
		Granted:    coord != nil,
		Coordinate: coord,
		Reason:     reason,
	})
}

func (c *Client) persistLocation(ctx context.Context, coord *entities.GeoCoordinate) error {
	data, err := json.Marshal(coord)
	if err != nil {
		return err
	}
	return c.store.Save(ctx, data)
}
