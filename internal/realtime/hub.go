// Package realtime pushes reservation events to connected dashboards over
// WebSocket and, optionally, mirrors them to Kafka and NATS.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Frame is the JSON envelope every listener receives.
type Frame struct {
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans events out to every attached client.  A client whose buffer is
// full is dropped rather than slowing the publisher down.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     *slog.Logger
	now     func() time.Time
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     log.With(slog.String("component", "ws-hub")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Publish implements the service event contract.  Frames are queued on each
// client in call order, so a client sees events in the order they were
// published.
func (h *Hub) Publish(_ context.Context, event string, payload any) {
	data, err := json.Marshal(Frame{Event: event, Data: payload, Timestamp: h.now()})
	if err != nil {
		h.log.Error("broadcast marshal error", slog.String("event", event), slog.Any("err", err))
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(data) {
			h.log.Warn("ws send buffer full; dropping client", slog.String("sessionId", c.sessionID))
			go h.Detach(c)
		}
	}
}

// Attach queues the greeting frame and then registers c, so the greeting is
// always the first frame the client reads.
func (h *Hub) Attach(c *Client) {
	greeting, _ := json.Marshal(Frame{
		Event:     "connected",
		Data:      map[string]string{"sessionId": c.sessionID},
		Timestamp: h.now(),
	})
	c.enqueue(greeting)

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("ws client attached", slog.String("sessionId", c.sessionID), slog.Int("clients", n))
}

// Detach removes c and closes its connection.  Safe to call more than once.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if !ok {
		return
	}
	c.close()
	h.log.Info("ws client detached", slog.String("sessionId", c.sessionID))
}

// Count returns the number of attached clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close detaches every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
}
