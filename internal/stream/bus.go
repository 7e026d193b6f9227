package stream

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kasuwa/searchstream/internal/domain/entities"
)

// Subscription is the opaque handle returned by every subscribe call.
// Cancel removes exactly the registration that produced it; sibling
// subscriptions on the same topic are unaffected. Cancel is idempotent.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// Cancel removes the subscription.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Topic is one fan-out channel of the bus: an ordered list of callbacks for
// a single event category. Delivery is synchronous and in registration
// order. A callback that panics is isolated: the panic is logged and the
// remaining callbacks still run. Events published with no subscribers are
// discarded; there is no buffering or replay.
type Topic[T any] struct {
	name   string
	logger zerolog.Logger

	mu        sync.Mutex
	order     []string
	callbacks map[string]func(T)
}

func newTopic[T any](name string, logger zerolog.Logger) *Topic[T] {
	return &Topic[T]{
		name:      name,
		logger:    logger,
		callbacks: make(map[string]func(T)),
	}
}

// Subscribe appends fn to the topic's callback list and returns a handle
// removing exactly this registration. Two structurally identical callbacks
// registered twice are independent.
func (t *Topic[T]) Subscribe(fn func(T)) *Subscription {
	token := uuid.NewString()

	t.mu.Lock()
	t.callbacks[token] = fn
	t.order = append(t.order, token)
	t.mu.Unlock()

	return &Subscription{cancel: func() { t.remove(token) }}
}

func (t *Topic[T]) remove(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// O(1): the order slice keeps the stale token until the next publish
	// compacts it.
	delete(t.callbacks, token)
}

// publish delivers event to every currently registered callback in
// registration order.
func (t *Topic[T]) publish(event T) {
	t.mu.Lock()
	live := make([]func(T), 0, len(t.order))
	compacted := t.order[:0]
	for _, token := range t.order {
		if fn, ok := t.callbacks[token]; ok {
			live = append(live, fn)
			compacted = append(compacted, token)
		}
	}
	t.order = compacted
	t.mu.Unlock()

	for _, fn := range live {
		t.invoke(fn, event)
	}
}

func (t *Topic[T]) invoke(fn func(T), event T) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().
				Str("topic", t.name).
				Any("panic", r).
				Msg("subscriber callback panicked")
		}
	}()
	fn(event)
}

// Bus fans normalized events out to UI subscribers. It owns the callback
// lists for the three event categories the client produces.
type Bus struct {
	Conversations    *Topic[*entities.ConversationalMessage]
	SearchResults    *Topic[*entities.CanonicalSearchEvent]
	LocationOutcomes *Topic[*entities.LocationOutcome]
}

// NewBus creates a bus reporting subscriber failures to logger.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		Conversations:    newTopic[*entities.ConversationalMessage]("conversations", logger),
		SearchResults:    newTopic[*entities.CanonicalSearchEvent]("search_results", logger),
		LocationOutcomes: newTopic[*entities.LocationOutcome]("location_outcomes", logger),
	}
}
