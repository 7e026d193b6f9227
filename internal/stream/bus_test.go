package stream

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuwa/searchstream/internal/domain/entities"
)

func testLogger(buf *bytes.Buffer) zerolog.Logger {
	return zerolog.New(buf)
}

func TestTopic_DeliversInRegistrationOrder(t *testing.T) {
	topic := newTopic[int]("test", testLogger(&bytes.Buffer{}))

	var got []int
	topic.Subscribe(func(v int) { got = append(got, v*1) })
	topic.Subscribe(func(v int) { got = append(got, v*10) })
	topic.Subscribe(func(v int) { got = append(got, v*100) })

	topic.publish(2)

	assert.Equal(t, []int{2, 20, 200}, got)
}

func TestTopic_CancelRemovesExactlyOneCallback(t *testing.T) {
	topic := newTopic[string]("test", testLogger(&bytes.Buffer{}))

	var first, second []string
	// Two structurally identical callbacks must be independently removable.
	subA := topic.Subscribe(func(v string) { first = append(first, v) })
	topic.Subscribe(func(v string) { second = append(second, v) })

	subA.Cancel()
	topic.publish("event")

	assert.Empty(t, first)
	assert.Equal(t, []string{"event"}, second)
}

func TestTopic_CancelIsIdempotent(t *testing.T) {
	topic := newTopic[string]("test", testLogger(&bytes.Buffer{}))

	var calls int
	sub := topic.Subscribe(func(string) { calls++ })
	other := topic.Subscribe(func(string) { calls++ })
	_ = other

	sub.Cancel()
	sub.Cancel()
	topic.publish("x")

	assert.Equal(t, 1, calls)
}

func TestTopic_PanickingCallbackDoesNotStopLaterOnes(t *testing.T) {
	var buf bytes.Buffer
	topic := newTopic[string]("test", testLogger(&buf))

	var delivered []string
	topic.Subscribe(func(string) { panic("subscriber bug") })
	topic.Subscribe(func(v string) { delivered = append(delivered, v) })

	require.NotPanics(t, func() { topic.publish("event") })

	assert.Equal(t, []string{"event"}, delivered)
	assert.Contains(t, buf.String(), "subscriber callback panicked")
}

func TestTopic_PublishWithoutSubscribersDiscards(t *testing.T) {
	topic := newTopic[int]("test", testLogger(&bytes.Buffer{}))

	assert.NotPanics(t, func() { topic.publish(1) })
}

func TestTopic_SubscribeDuringLifetimeSeesOnlyLaterEvents(t *testing.T) {
	topic := newTopic[int]("test", testLogger(&bytes.Buffer{}))

	var got []int
	topic.publish(1)
	topic.Subscribe(func(v int) { got = append(got, v) })
	topic.publish(2)

	assert.Equal(t, []int{2}, got)
}

func TestNewBus_TopicsAreIndependent(t *testing.T) {
	bus := NewBus(testLogger(&bytes.Buffer{}))

	var conversations, results int
	bus.Conversations.Subscribe(func(*entities.ConversationalMessage) { conversations++ })
	bus.SearchResults.Subscribe(func(*entities.CanonicalSearchEvent) { results++ })

	bus.SearchResults.publish(&entities.CanonicalSearchEvent{})

	assert.Zero(t, conversations)
	assert.Equal(t, 1, results)
}
