package dashboard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// clientBuffer is the number of events queued per client before new ones
// are dropped for it.
const clientBuffer = 16

// Hub fans events out to Server-Sent Events connections. Broadcast only
// queues; each connection's handler does its own writing.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

type message struct {
	eventType string
	data      []byte
}

// Client is a single SSE connection.
type Client struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	events  chan message
	done    chan struct{}
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.done)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for every connected client without blocking.
// A client whose queue is full misses the event.
func (h *Hub) Broadcast(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode event", "type", event.Type, "error", err)
		return
	}
	msg := message{eventType: event.Type, data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.events <- msg:
		default:
			slog.Warn("Dropping event for slow SSE client", "type", event.Type)
		}
	}
}

// NewClient prepares w for streaming.
func NewClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &Client{
		writer:  w,
		flusher: flusher,
		events:  make(chan message, clientBuffer),
		done:    make(chan struct{}),
	}, nil
}

// send and ping must only be called from the connection's handler.
func (c *Client) send(eventType string, data []byte) {
	fmt.Fprintf(c.writer, "event: %s\ndata: %s\n\n", eventType, data)
	c.flusher.Flush()
}

func (c *Client) ping() {
	fmt.Fprintf(c.writer, ": ping\n\n")
	c.flusher.Flush()
}
