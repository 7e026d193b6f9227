package stream

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kasuwa/searchstream/internal/domain/entities"
	"github.com/kasuwa/searchstream/internal/domain/providers"
	apperrors "github.com/kasuwa/searchstream/pkg/errors"
)

// userQuery is the outbound payload for a user-initiated search.
type userQuery struct {
	Message      string                  `json:"message"`
	UserLocation *entities.GeoCoordinate `json:"userLocation,omitempty"`
}

// SendQuery composes and emits one user query over the persistent channel,
// enriched with the last known device location when one is stored. The call
// is fire-and-forget: results arrive asynchronously on the search-results
// subscription, with no request/response correlation. A blank message is
// rejected before anything goes on the wire.
func (c *Client) SendQuery(ctx context.Context, message string) error {
	if strings.TrimSpace(message) == "" {
		return apperrors.NewValidationError("query message is empty")
	}

	return c.transport.Emit(providers.EventUserMessage, &userQuery{
		Message:      message,
		UserLocation: c.storedLocation(ctx),
	})
}

// storedLocation reads the persisted device location. Absent or unparsable
// stored content is treated as no location; a query must never fail because
// an old client wrote a format this one no longer understands.
func (c *Client) storedLocation(ctx context.Context) *entities.GeoCoordinate {
	data, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, providers.ErrNotFound) {
			c.logger.Debug().Err(err).Msg("reading stored location failed")
		}
		return nil
	}

	var coord entities.GeoCoordinate
	if err := json.Unmarshal(data, &coord); err != nil {
		c.logger.Debug().Err(err).Msg("stored location is unparsable, treating as absent")
		return nil
	}
	return &coord
}
