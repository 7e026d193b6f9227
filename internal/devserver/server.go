// Package devserver is a development stand-in for the production search
// backend: it speaks the stream wire protocol over WebSocket, serves
// scripted results from a fixture directory, and exposes the REST
// cache-token retrieval endpoint.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kasuwa/searchstream/internal/domain/entities"
	"github.com/kasuwa/searchstream/internal/domain/providers"
)

// Server handles stream connections and the REST surface.
type Server struct {
	logger    zerolog.Logger
	cache     *ResultCache
	directory *Directory
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (c *client) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	out, err := json.Marshal(frame{Event: event, Payload: data})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, out)
}

// New creates a devserver. cache may be nil when Redis is unavailable; the
// server then serves results without cache tokens.
func New(cache *ResultCache, logger zerolog.Logger) *Server {
	return &Server{
		logger:    logger,
		cache:     cache,
		directory: NewDirectory(),
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:   make(map[*client]struct{}),
	}
}

// Routes registers the server's HTTP surface on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("GET /api/results/{token}", s.handleResults)
	mux.HandleFunc("POST /api/debug/request-location", s.handleDebugRequestLocation)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("stream client connected")

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Info().Err(err).Msg("stream client disconnected")
			return
		}

		var in frame
		if err := json.Unmarshal(data, &in); err != nil {
			s.logger.Warn().Err(err).Msg("discarding unparsable client frame")
			continue
		}

		switch in.Event {
		case providers.EventUserMessage:
			s.handleUserMessage(r.Context(), c, in.Payload)
		case providers.EventLocationResponse:
			s.logger.Info().RawJSON("payload", in.Payload).Msg("location response received")
		default:
			s.logger.Debug().Str("event", in.Event).Msg("ignoring client event")
		}
	}
}

func (s *Server) handleUserMessage(ctx context.Context, c *client, payload json.RawMessage) {
	var query struct {
		Message      string                  `json:"message"`
		UserLocation *entities.GeoCoordinate `json:"userLocation"`
	}
	if err := json.Unmarshal(payload, &query); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unparsable user message")
		return
	}

	matches := s.directory.Search(query.Message)
	response := s.buildResultBundle(ctx, query.Message, matches)

	if err := c.send(providers.EventMultiSearchResults, response); err != nil {
		s.logger.Warn().Err(err).Msg("sending results failed")
		return
	}
	if err := c.send(providers.EventAIMessage, response["summary_text"]); err != nil {
		s.logger.Warn().Err(err).Msg("sending summary failed")
	}
}

// buildResultBundle composes the modern AI-processed multi-entity payload.
func (s *Server) buildResultBundle(ctx context.Context, query string, matches map[string][]entities.SearchResultItem) map[string]any {
	processed := make([]entities.AIProcessedResult, 0)
	total := 0
	hasRecommended := false
	for _, category := range entities.CategoryOrder {
		for _, item := range matches[category] {
			total++
			if item.Recommended {
				hasRecommended = true
			}
			processed = append(processed, entities.AIProcessedResult{
				SearchResultItem: item,
				Explanation:      fmt.Sprintf("matched %q", query),
				Snippet:          item.Name,
			})
		}
	}

	bundle := map[string]any{
		"processed_results": processed,
		"dynamic_filters": []entities.FilterDescriptor{
			{ID: "rating", Label: "Rating 4+", Field: "rating", Values: []string{"4"}},
		},
		"ai_summary": entities.AISummary{
			Quality:        "high",
			TotalCount:     total,
			HasRecommended: hasRecommended,
		},
		"results":      matches,
		"search_type":  "multi-entity",
		"summary_text": fmt.Sprintf("Found %d matches for %q", total, query),
	}

	if s.cache != nil {
		token, err := s.cache.Store(ctx, matches)
		if err != nil {
			s.logger.Warn().Err(err).Msg("caching result set failed")
		} else {
			bundle["cache"] = map[string]string{"token": token}
		}
	}
	return bundle
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		http.Error(w, "result cache disabled", http.StatusServiceUnavailable)
		return
	}

	token := r.PathValue("token")
	data, err := s.cache.Get(r.Context(), token)
	if err != nil {
		s.logger.Error().Err(err).Msg("result cache lookup failed")
		http.Error(w, "cache lookup failed", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.Error(w, "unknown result token", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// handleDebugRequestLocation asks every connected client for its location,
// mimicking the production backend's location probe.
func (s *Server) handleDebugRequestLocation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.send(providers.EventRequestLocation, nil); err != nil {
			s.logger.Warn().Err(err).Msg("location probe failed")
		}
	}

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, `{"probed_clients": %d}`, len(clients))
}
