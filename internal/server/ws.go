package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/stavrou/ballast/internal/events"
)

// EventsWSHandler streams bus events to websocket clients.
type EventsWSHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsWSHandler creates a new websocket events handler
func NewEventsWSHandler(bus *events.Bus, log zerolog.Logger) *EventsWSHandler {
	return &EventsWSHandler{
		bus: bus,
		log: log.With().Str("component", "events_ws").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws. The optional "types" query
// parameter is a comma-separated allowlist of event types.
func (h *EventsWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	allowed := parseTypesFilter(r.URL.Query().Get("types"))

	h.log.Info().Msg("Client connected to event stream")

	// Buffered so a slow client drops events instead of blocking the bus.
	eventChan := make(chan *events.Event, 100)

	handler := func(event *events.Event) {
		if allowed != nil && !allowed[event.Type] {
			return
		}
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	// Bus subscriptions live for the process lifetime; the handler keeps
	// delivering into the buffered channel after disconnect, which is
	// harmless since sends never block.
	for _, eventType := range events.AllEventTypes() {
		h.bus.Subscribe(eventType, handler)
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			h.log.Info().Msg("Client disconnected from event stream")
			return
		case event := <-eventChan:
			if err := wsjson.Write(ctx, conn, event); err != nil {
				h.log.Debug().Err(err).Msg("Failed to write event to websocket")
				return
			}
		}
	}
}

func parseTypesFilter(raw string) map[events.EventType]bool {
	if raw == "" {
		return nil
	}
	allowed := make(map[events.EventType]bool)
	for _, t := range strings.Split(raw, ",") {
		allowed[events.EventType(strings.TrimSpace(t))] = true
	}
	return allowed
}
