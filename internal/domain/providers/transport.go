package providers

import (
	"context"
	"encoding/json"
)

// Transport defines the interface for the persistent full-duplex channel to
// the search backend. Implementations reconnect transparently; callers take
// no corrective action on disconnect beyond logging.
type Transport interface {
	// Connect establishes the channel. It returns once the first connection
	// attempt resolves; later reconnects happen in the background.
	Connect(ctx context.Context) error

	// Emit sends one event with a JSON-serializable payload. Sends while
	// disconnected fail; there is no outbound queue.
	Emit(event string, payload any) error

	// On registers a handler for an inbound event category. Handlers are
	// invoked sequentially in delivery order. Registration must happen
	// before Connect.
	On(event string, handler func(payload json.RawMessage))

	// OnStateChange registers a handler for connection lifecycle changes.
	OnStateChange(handler func(state ConnState, reason string))

	// ID returns the identifier of the current physical connection, or ""
	// when disconnected.
	ID() string

	// Name returns the name of the active transport mechanism.
	Name() string

	// Connected reports whether the channel is currently established.
	Connected() bool

	// Close tears the channel down permanently.
	Close() error
}

// ConnState represents the transport's connection state.
type ConnState string

const (
	ConnStateConnected    ConnState = "connected"
	ConnStateDisconnected ConnState = "disconnected"
	ConnStateError        ConnState = "error"
)

// Event names spoken over the persistent channel.
const (
	// Outbound
	EventUserMessage      = "user_message"
	EventLocationResponse = "location_response"

	// Inbound
	EventAIMessage          = "ai_message"
	EventSearchResults      = "search_results"
	EventMultiSearchResults = "multi_search_results"
	EventRequestLocation    = "request_location"
)
