package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuwa/searchstream/internal/domain/entities"
	"github.com/kasuwa/searchstream/internal/domain/providers"
	apperrors "github.com/kasuwa/searchstream/pkg/errors"
)

type emittedEvent struct {
	event   string
	payload json.RawMessage
}

// fakeTransport implements providers.Transport in-process: inbound events
// are fired by the test, outbound emits are recorded.
type fakeTransport struct {
	handlers      map[string]func(json.RawMessage)
	stateHandlers []func(providers.ConnState, string)
	emitted       []emittedEvent
	emitErr       error
	closed        bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]func(json.RawMessage))}
}

func (f *fakeTransport) Connect(ctx context.Context) error { return nil }

func (f *fakeTransport) Emit(event string, payload any) error {
	if f.emitErr != nil {
		return f.emitErr
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.emitted = append(f.emitted, emittedEvent{event: event, payload: data})
	return nil
}

func (f *fakeTransport) On(event string, handler func(json.RawMessage)) {
	f.handlers[event] = handler
}

func (f *fakeTransport) OnStateChange(handler func(providers.ConnState, string)) {
	f.stateHandlers = append(f.stateHandlers, handler)
}

func (f *fakeTransport) ID() string      { return "conn-test" }
func (f *fakeTransport) Name() string    { return "fake" }
func (f *fakeTransport) Connected() bool { return !f.closed }
func (f *fakeTransport) Close() error    { f.closed = true; return nil }

func (f *fakeTransport) fire(event string, raw string) {
	if handler, ok := f.handlers[event]; ok {
		handler(json.RawMessage(raw))
	}
}

func (f *fakeTransport) notify(state providers.ConnState, reason string) {
	for _, h := range f.stateHandlers {
		h(state, reason)
	}
}

// fakeStore implements providers.LocationStore in memory.
type fakeStore struct {
	data    []byte
	saveErr error
}

func (s *fakeStore) Load(ctx context.Context) ([]byte, error) {
	if s.data == nil {
		return nil, providers.ErrNotFound
	}
	return s.data, nil
}

func (s *fakeStore) Save(ctx context.Context, value []byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data = value
	return nil
}

// fakePositioner returns a fixed coordinate or error.
type fakePositioner struct {
	coord *entities.GeoCoordinate
	err   error
}

func (p *fakePositioner) CurrentPosition(ctx context.Context) (*entities.GeoCoordinate, error) {
	return p.coord, p.err
}

func newTestClient(t *testing.T, transport *fakeTransport, positioner providers.Positioner, store providers.LocationStore) (*Client, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	if store == nil {
		store = &fakeStore{}
	}
	client := New(transport, positioner, store, testLogger(&buf))
	require.NoError(t, client.Start(context.Background()))
	return client, &buf
}

func TestClient_ConversationalStringIsWrappedAndFannedOut(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, nil, nil)

	var got *entities.ConversationalMessage
	client.OnConversation(func(msg *entities.ConversationalMessage) { got = msg })

	transport.fire(providers.EventAIMessage, `"hello"`)

	require.NotNil(t, got)
	assert.Equal(t, entities.FunctionReply, got.Function)
	assert.Equal(t, "hello", got.Parameters["message"])
}

func TestClient_EmptyResultArrayStillFansOut(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, nil, nil)

	var got *entities.CanonicalSearchEvent
	client.OnSearchResults(func(event *entities.CanonicalSearchEvent) { got = event })

	transport.fire(providers.EventSearchResults, `[]`)

	require.NotNil(t, got)
	assert.NotNil(t, got.FlatResults)
	assert.Empty(t, got.FlatResults)
}

func TestClient_MultiEntityEventReachesSameSubscription(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, nil, nil)

	var events []*entities.CanonicalSearchEvent
	client.OnSearchResults(func(event *entities.CanonicalSearchEvent) { events = append(events, event) })

	transport.fire(providers.EventSearchResults, `[{"id": "a", "name": "A"}]`)
	transport.fire(providers.EventMultiSearchResults, `{"results": {"shops": [{"id": "s1", "name": "S1"}]}}`)

	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].FlatResults[0].ID)
	assert.Equal(t, "s1", events[1].FlatResults[0].ID)
}

func TestClient_MalformedEventIsDroppedNotFannedOut(t *testing.T) {
	transport := newFakeTransport()
	client, buf := newTestClient(t, transport, nil, nil)

	fanouts := 0
	client.OnSearchResults(func(*entities.CanonicalSearchEvent) { fanouts++ })
	client.OnConversation(func(*entities.ConversationalMessage) { fanouts++ })

	require.NotPanics(t, func() {
		transport.fire(providers.EventSearchResults, `"garbage"`)
		transport.fire(providers.EventMultiSearchResults, `[]`)
		transport.fire(providers.EventAIMessage, `17`)
	})

	assert.Zero(t, fanouts)
	assert.Contains(t, buf.String(), "dropping")
}

func TestClient_LocationRequestWithoutCapability(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, nil, nil)

	var outcome *entities.LocationOutcome
	client.OnLocationOutcome(func(o *entities.LocationOutcome) { outcome = o })

	client.resolveLocationRequest(context.Background())

	require.Len(t, transport.emitted, 1)
	assert.Equal(t, providers.EventLocationResponse, transport.emitted[0].event)
	assert.Equal(t, "null", string(transport.emitted[0].payload))
	require.NotNil(t, outcome)
	assert.False(t, outcome.Granted)
	assert.Equal(t, "unavailable", outcome.Reason)
}

func TestClient_LocationRequestDenied(t *testing.T) {
	transport := newFakeTransport()
	positioner := &fakePositioner{err: apperrors.NewPositioningError("permission denied", nil)}
	store := &fakeStore{}
	client, _ := newTestClient(t, transport, positioner, store)

	var outcome *entities.LocationOutcome
	client.OnLocationOutcome(func(o *entities.LocationOutcome) { outcome = o })

	client.resolveLocationRequest(context.Background())

	require.Len(t, transport.emitted, 1)
	assert.Equal(t, "null", string(transport.emitted[0].payload))
	require.NotNil(t, outcome)
	assert.False(t, outcome.Granted)
	assert.Equal(t, "denied", outcome.Reason)
	assert.Nil(t, store.data)
}

func TestClient_LocationRequestGrantedPersistsAndReports(t *testing.T) {
	transport := newFakeTransport()
	positioner := &fakePositioner{coord: &entities.GeoCoordinate{Lat: 6.5244, Lon: 3.3792}}
	store := &fakeStore{}
	client, _ := newTestClient(t, transport, positioner, store)

	var outcome *entities.LocationOutcome
	client.OnLocationOutcome(func(o *entities.LocationOutcome) { outcome = o })

	client.resolveLocationRequest(context.Background())

	require.Len(t, transport.emitted, 1)
	assert.Equal(t, providers.EventLocationResponse, transport.emitted[0].event)
	assert.JSONEq(t, `{"lat": 6.5244, "lon": 3.3792}`, string(transport.emitted[0].payload))
	require.NotNil(t, outcome)
	assert.True(t, outcome.Granted)
	require.NotNil(t, outcome.Coordinate)
	assert.Equal(t, 6.5244, outcome.Coordinate.Lat)
	assert.JSONEq(t, `{"lat": 6.5244, "lon": 3.3792}`, string(store.data))
}

func TestClient_StorageFailureDoesNotTurnGrantIntoDenial(t *testing.T) {
	transport := newFakeTransport()
	positioner := &fakePositioner{coord: &entities.GeoCoordinate{Lat: 1, Lon: 2}}
	store := &fakeStore{saveErr: apperrors.NewInternalError("disk full", nil)}
	client, _ := newTestClient(t, transport, positioner, store)

	var outcome *entities.LocationOutcome
	client.OnLocationOutcome(func(o *entities.LocationOutcome) { outcome = o })

	client.resolveLocationRequest(context.Background())

	require.NotNil(t, outcome)
	assert.True(t, outcome.Granted)
}

func TestClient_SendQueryWithoutStoredLocation(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, nil, &fakeStore{})

	require.NoError(t, client.SendQuery(context.Background(), "laundry"))

	require.Len(t, transport.emitted, 1)
	assert.Equal(t, providers.EventUserMessage, transport.emitted[0].event)
	assert.JSONEq(t, `{"message": "laundry"}`, string(transport.emitted[0].payload))
}

func TestClient_SendQueryAttachesStoredLocation(t *testing.T) {
	transport := newFakeTransport()
	store := &fakeStore{data: []byte(`{"lat": 6.5, "lon": 3.4}`)}
	client, _ := newTestClient(t, transport, nil, store)

	require.NoError(t, client.SendQuery(context.Background(), "tailor"))

	require.Len(t, transport.emitted, 1)
	assert.JSONEq(t, `{"message": "tailor", "userLocation": {"lat": 6.5, "lon": 3.4}}`, string(transport.emitted[0].payload))
}

func TestClient_SendQueryToleratesCorruptStoredLocation(t *testing.T) {
	transport := newFakeTransport()
	store := &fakeStore{data: []byte(`{not json`)}
	client, _ := newTestClient(t, transport, nil, store)

	require.NoError(t, client.SendQuery(context.Background(), "tailor"))

	require.Len(t, transport.emitted, 1)
	assert.JSONEq(t, `{"message": "tailor"}`, string(transport.emitted[0].payload))
}

func TestClient_SendQueryRejectsBlankMessage(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, nil, &fakeStore{})

	for _, message := range []string{"", "   ", "\t\n"} {
		err := client.SendQuery(context.Background(), message)
		require.Error(t, err, "message %q should be rejected", message)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	}
	assert.Empty(t, transport.emitted)
}

func TestClient_UnsubscribedCallerStopsReceiving(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, nil, nil)

	var first, second int
	sub := client.OnSearchResults(func(*entities.CanonicalSearchEvent) { first++ })
	client.OnSearchResults(func(*entities.CanonicalSearchEvent) { second++ })

	transport.fire(providers.EventSearchResults, `[]`)
	sub.Cancel()
	transport.fire(providers.EventSearchResults, `[]`)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestClient_LogsLifecycleTransitions(t *testing.T) {
	transport := newFakeTransport()
	_, buf := newTestClient(t, transport, nil, nil)

	transport.notify(providers.ConnStateConnected, "")
	transport.notify(providers.ConnStateDisconnected, "peer closed")
	transport.notify(providers.ConnStateError, "handshake failed")

	logs := buf.String()
	assert.Contains(t, logs, "stream connected")
	assert.Contains(t, logs, "conn-test")
	assert.Contains(t, logs, "awaiting auto-reconnect")
	assert.Contains(t, logs, "peer closed")
	assert.Contains(t, logs, "stream transport error")
}
