// Package hub fans events out to Server-Sent Events clients.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

// KeepAliveInterval is how often idle streams get a comment line
const KeepAliveInterval = 30 * time.Second

// Scoped is implemented by events that belong to one sketch. Clients that
// connect with ?sketch=NAME receive only events scoped to NAME plus unscoped
// events such as frames.
type Scoped interface {
	EventScope() string
}

// Client represents a connected SSE client
type Client struct {
	id     string
	sketch string
	events chan []byte
}

// ID returns the client id
func (c *Client) ID() string {
	return c.id
}

// wants reports whether an event with the given scope goes to this client
func (c *Client) wants(scope string) bool {
	return c.sketch == "" || scope == "" || scope == c.sketch
}

func scopeOf(event interface{}) string {
	if s, ok := event.(Scoped); ok {
		return s.EventScope()
	}
	return ""
}

// Hub manages SSE client connections
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan interface{}
	logger     *zap.Logger
}

// New creates a new Hub
func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan interface{}, 256),
		logger:     logger.Named("hub"),
	}
}

// Run starts the hub's event loop. It returns when ctx is cancelled, after
// closing every client stream.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("SSE client connected",
				zap.String("client", client.id),
				zap.String("sketch", client.sketch),
				zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("SSE client disconnected", zap.String("client", client.id), zap.Int("total", total))

		case event := <-h.broadcast:
			msg, err := Encode(event)
			if err != nil {
				h.logger.Error("failed to marshal event", zap.Error(err))
				continue
			}

			scope := scopeOf(event)
			h.mu.RLock()
			for client := range h.clients {
				if !client.wants(scope) {
					continue
				}
				select {
				case client.events <- msg:
				default:
					// Client is slow, skip this message
					h.logger.Debug("SSE client is slow, skipping message", zap.String("client", client.id))
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.events)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Encode renders event as one SSE data frame
func Encode(event interface{}) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("data: %s\n\n", data)), nil
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event interface{}) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := &Client{
		id:     xid.New().String(),
		sketch: r.URL.Query().Get("sketch"),
		events: make(chan []byte, 64),
	}

	select {
	case h.register <- client:
	case <-r.Context().Done():
		return
	}

	// Unregister unless Run already shut the stream down
	closed := false
	defer func() {
		if closed {
			return
		}
		select {
		case h.unregister <- client:
		case <-time.After(time.Second):
		}
	}()

	fmt.Fprintf(w, ": connected %s\n\n", client.id)
	flusher.Flush()

	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.events:
			if !ok {
				closed = true
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
