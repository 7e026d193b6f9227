// Package stream implements the real-time search-result streaming client:
// it keeps one persistent full-duplex connection to the search backend,
// sends user queries enriched with the device's last known location, and
// normalizes the backend's heterogeneous result payloads into a single
// canonical shape fanned out to subscribers.
package stream

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/kasuwa/searchstream/internal/domain/entities"
	"github.com/kasuwa/searchstream/internal/domain/providers"
)

// Client owns the persistent channel's lifecycle. It is constructed
// explicitly by the composition root and passed by reference to whoever
// needs it; construct one per process and tear it down on shutdown.
type Client struct {
	transport  providers.Transport
	positioner providers.Positioner
	store      providers.LocationStore
	bus        *Bus
	logger     zerolog.Logger
}

// New builds a client around the given collaborators. positioner may be nil
// when the host exposes no positioning capability; store must not be nil.
func New(transport providers.Transport, positioner providers.Positioner, store providers.LocationStore, logger zerolog.Logger) *Client {
	return &Client{
		transport:  transport,
		positioner: positioner,
		store:      store,
		bus:        NewBus(logger),
		logger:     logger,
	}
}

// Start registers the inbound handlers and connects the transport. Once
// connected, reconnection is entirely the transport's concern; the client
// only logs lifecycle transitions.
func (c *Client) Start(ctx context.Context) error {
	c.transport.On(providers.EventAIMessage, c.handleConversational)
	c.transport.On(providers.EventSearchResults, c.handleFlatResults)
	c.transport.On(providers.EventMultiSearchResults, c.handleMultiEntity)
	c.transport.On(providers.EventRequestLocation, c.handleRequestLocation)

	c.transport.OnStateChange(func(state providers.ConnState, reason string) {
		switch state {
		case providers.ConnStateConnected:
			c.logger.Info().
				Str("connection_id", c.transport.ID()).
				Str("transport", c.transport.Name()).
				Msg("stream connected")
		case providers.ConnStateDisconnected:
			c.logger.Info().
				Str("reason", reason).
				Msg("stream disconnected, awaiting auto-reconnect")
		case providers.ConnStateError:
			c.logger.Error().
				Str("reason", reason).
				Msg("stream transport error")
		}
	})

	return c.transport.Connect(ctx)
}

// Close tears the channel down.
func (c *Client) Close() error {
	return c.transport.Close()
}

// OnConversation subscribes to normalized conversational messages.
func (c *Client) OnConversation(fn func(*entities.ConversationalMessage)) *Subscription {
	return c.bus.Conversations.Subscribe(fn)
}

// OnSearchResults subscribes to canonical search events, regardless of the
// wire shape they arrived in.
func (c *Client) OnSearchResults(fn func(*entities.CanonicalSearchEvent)) *Subscription {
	return c.bus.SearchResults.Subscribe(fn)
}

// OnLocationOutcome subscribes to location permission outcomes.
func (c *Client) OnLocationOutcome(fn func(*entities.LocationOutcome)) *Subscription {
	return c.bus.LocationOutcomes.Subscribe(fn)
}

// trace is the generic diagnostic every inbound event passes through before
// category-specific handling.
func (c *Client) trace(event string, raw json.RawMessage) {
	c.logger.Debug().
		Str("event", event).
		RawJSON("payload", normalizeRawForLog(raw)).
		Msg("inbound stream event")
}

// normalizeRawForLog keeps RawJSON from panicking on empty payloads.
func normalizeRawForLog(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

func (c *Client) handleConversational(raw json.RawMessage) {
	c.trace(providers.EventAIMessage, raw)

	msg, err := normalizeConversational(raw)
	if err != nil {
		c.logger.Warn().Err(err).Msg("dropping conversational event")
		return
	}
	c.bus.Conversations.publish(msg)
}

func (c *Client) handleFlatResults(raw json.RawMessage) {
	c.trace(providers.EventSearchResults, raw)

	event, err := normalizeFlatResults(raw)
	if err != nil {
		c.logger.Warn().Err(err).Msg("dropping flat results event")
		return
	}
	c.bus.SearchResults.publish(event)
}

func (c *Client) handleMultiEntity(raw json.RawMessage) {
	c.trace(providers.EventMultiSearchResults, raw)

	event, err := normalizeMultiEntity(raw)
	if err != nil {
		c.logger.Warn().Err(err).Msg("dropping multi-entity event")
		return
	}
	c.bus.SearchResults.publish(event)
}

func (c *Client) handleRequestLocation(raw json.RawMessage) {
	c.trace(providers.EventRequestLocation, raw)

	// The position fix must never block the channel's event processing.
	go c.resolveLocationRequest(context.Background())
}
