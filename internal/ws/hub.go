// Package ws fans domain events out to connected websocket clients. Fan-out
// is global: every client sees every auction's events. Delivery is best
// effort; a client that cannot keep up is disconnected rather than allowed to
// block the rest.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/auctra/auctra/internal/metrics"
	"github.com/auctra/auctra/internal/models"
)

// Hub owns the client set. All membership changes go through the Run loop so
// the set needs no locking.
type Hub struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

// NewHub creates a hub. metrics may be nil (tests).
func NewHub(log *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		log:        log.With("component", "ws"),
		metrics:    m,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
// Blocking; run in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.setGauge()
			h.log.Debug("client connected", "client_id", client.ID)
			go client.writePump()
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case payload := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- payload:
				default:
					// Send buffer full: a slow client must not block the
					// others.
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	client.Conn.Close()
	h.setGauge()
	h.log.Debug("client disconnected", "client_id", client.ID)
}

func (h *Hub) setGauge() {
	if h.metrics != nil {
		h.metrics.ConnectedClients.Set(float64(len(h.clients)))
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client and closes its connection.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast queues a raw payload for delivery to every connected client.
// Never blocks the caller; the payload is dropped when the hub's queue is
// full.
func (h *Hub) Broadcast(payload []byte) {
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn("broadcast queue full, dropping payload")
	}
}

// Consume implements events.Sink so the hub can subscribe directly to the
// in-process bus when no Redis bridge is configured.
func (h *Hub) Consume(evt models.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.Warn("failed to marshal event", "type", evt.Type, "error", err)
		return
	}
	h.Broadcast(payload)
}
