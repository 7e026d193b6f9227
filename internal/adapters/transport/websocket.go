// Package transport provides the WebSocket implementation of the persistent
// stream channel.
package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kasuwa/searchstream/internal/domain/providers"
	apperrors "github.com/kasuwa/searchstream/pkg/errors"
	"github.com/kasuwa/searchstream/pkg/retry"
)

const handshakeTimeout = 45 * time.Second

// Frame is the JSON envelope carried on the wire: one named event with an
// optional payload.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WebSocket is a reconnecting full-duplex channel over gorilla/websocket.
// Handlers registered with On are dispatched sequentially from a single
// read pump, preserving delivery order. Reconnection after a drop is
// automatic and invisible to callers beyond state-change notifications;
// sends while disconnected fail, there is no outbound queue.
type WebSocket struct {
	url      string
	logger   zerolog.Logger
	dialer   *websocket.Dialer
	retryCfg retry.Config

	mu     sync.Mutex
	conn   *websocket.Conn
	connID string

	handlers      map[string]func(json.RawMessage)
	stateHandlers []func(providers.ConnState, string)

	shutdown  chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWebSocket creates a channel targeting url. Connect must be called
// before any traffic flows.
func NewWebSocket(url string, logger zerolog.Logger) *WebSocket {
	return &WebSocket{
		url:      url,
		logger:   logger,
		dialer:   &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		retryCfg: retry.DefaultConfig(),
		handlers: make(map[string]func(json.RawMessage)),
		shutdown: make(chan struct{}),
	}
}

// On registers the handler for an inbound event. Must be called before
// Connect.
func (w *WebSocket) On(event string, handler func(payload json.RawMessage)) {
	w.handlers[event] = handler
}

// OnStateChange registers a connection lifecycle handler. Must be called
// before Connect.
func (w *WebSocket) OnStateChange(handler func(state providers.ConnState, reason string)) {
	w.stateHandlers = append(w.stateHandlers, handler)
}

// Connect establishes the first connection, retrying with backoff, then
// keeps the channel alive in the background until Close.
func (w *WebSocket) Connect(ctx context.Context) error {
	if err := w.dial(ctx); err != nil {
		return apperrors.NewTransportError("connecting to "+w.url, err)
	}

	// Close must be able to interrupt a reconnect that is mid-backoff.
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.run(runCtx)
	return nil
}

func (w *WebSocket) dial(ctx context.Context) error {
	return retry.Do(ctx, w.retryCfg, func() error {
		conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
		if err != nil {
			return err
		}

		w.mu.Lock()
		w.conn = conn
		w.connID = uuid.NewString()
		w.mu.Unlock()

		w.notifyState(providers.ConnStateConnected, "")
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		w.logger.Warn().
			Int("attempt", attempt).
			Err(err).
			Dur("next_delay", nextDelay).
			Msg("websocket dial failed, retrying")
	})
}

// run pumps inbound frames and re-dials after every drop until shutdown.
func (w *WebSocket) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		conn := w.current()
		if conn != nil {
			err := w.readPump(conn)

			w.mu.Lock()
			w.conn = nil
			w.connID = ""
			w.mu.Unlock()

			select {
			case <-w.shutdown:
				return
			case <-ctx.Done():
				return
			default:
			}
			w.notifyState(providers.ConnStateDisconnected, err.Error())
		}

		if err := w.dial(ctx); err != nil {
			select {
			case <-w.shutdown:
				// Clean shutdown, not a transport failure.
			default:
				w.notifyState(providers.ConnStateError, err.Error())
			}
			return
		}
	}
}

func (w *WebSocket) readPump(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			w.logger.Warn().Err(err).Msg("discarding unparsable frame")
			continue
		}

		if handler, ok := w.handlers[frame.Event]; ok {
			handler(frame.Payload)
		} else {
			w.logger.Debug().Str("event", frame.Event).Msg("no handler for inbound event")
		}
	}
}

// Emit sends one event. Fails immediately while disconnected.
func (w *WebSocket) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewInternalError("marshaling payload for "+event, err)
	}
	frame, err := json.Marshal(Frame{Event: event, Payload: data})
	if err != nil {
		return apperrors.NewInternalError("marshaling frame for "+event, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return apperrors.NewTransportError("emit "+event, websocket.ErrCloseSent)
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return apperrors.NewTransportError("emit "+event, err)
	}
	return nil
}

// ID returns the current physical connection's identifier.
func (w *WebSocket) ID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connID
}

// Name returns the transport mechanism name.
func (w *WebSocket) Name() string {
	return "websocket"
}

// Connected reports whether the channel is currently established.
func (w *WebSocket) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil
}

// Close tears the channel down permanently.
func (w *WebSocket) Close() error {
	w.closeOnce.Do(func() {
		close(w.shutdown)
		if w.cancel != nil {
			w.cancel()
		}
		w.mu.Lock()
		if w.conn != nil {
			_ = w.conn.Close()
			w.conn = nil
		}
		w.mu.Unlock()
	})
	w.wg.Wait()
	return nil
}

func (w *WebSocket) notifyState(state providers.ConnState, reason string) {
	for _, handler := range w.stateHandlers {
		handler(state, reason)
	}
}

func (w *WebSocket) current() *websocket.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

var _ providers.Transport = (*WebSocket)(nil)
