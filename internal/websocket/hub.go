// Package websocket pushes refresh notifications to connected clients so
// they can re-query the REST API instead of polling.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Message is a real-time notification broadcast to every connected client.
// Clients treat these as cache-invalidation hints, not as data transport.
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// EventsRefreshed announces a completed calendar refresh.
func EventsRefreshed(count int, at time.Time) Message {
	return Message{
		Type: "events_refreshed",
		Data: map[string]any{"count": count, "updated_at": at.UTC().Format(time.RFC3339)},
	}
}

// PrayersUpdated announces newly cached prayer times for a day.
func PrayersUpdated(date string) Message {
	return Message{Type: "prayers_updated", Data: map[string]any{"date": date}}
}

// LocationUpdated announces a location change, which invalidates both the
// prayer clocks and the resolved place name.
func LocationUpdated(city string) Message {
	return Message{Type: "location_updated", Data: map[string]any{"city": city}}
}

// Hub maintains the set of active clients and fans broadcasts out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel. Safe to call
// twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients. Clients with a full
// send buffer miss the message; they will catch up on the next one.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
