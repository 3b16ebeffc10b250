// Package feed broadcasts climate snapshots and engine status to websocket
// clients.
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/climabus/climabus/pkg/climate"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/rs/zerolog"
)

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// StatusData is the status payload.
type StatusData struct {
	UptimeMS   int64  `json:"uptime_ms"`
	Frames     uint64 `json:"frames"`
	LastID     uint32 `json:"last_id"`
	Tracked    int    `json:"tracked"`
	Candidates int    `json:"candidates"`
}

const (
	TypeClimate = "climate"
	TypeStatus  = "status"
)

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex

	// last encoded message per type, served to new clients and the api
	last   map[string][]byte
	lastMu sync.Mutex

	done chan struct{}
	tap  func(typ string, b []byte)

	log zerolog.Logger
	now func() time.Time
}

// NewHub returns a hub; call Run to start it.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		last:       make(map[string][]byte),
		done:       make(chan struct{}),
		log:        log,
		now:        time.Now,
	}
}

// Run serves registrations and broadcasts until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	h.log.Debug().Msg("feed hub started")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info().Str("client", c.id).Str("remote", c.remote).Int("clients", n).Msg("feed client connected")
			if b := h.Latest(TypeClimate); b != nil {
				c.send <- b
			}
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			var dead []*Client
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					dead = append(dead, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range dead {
				h.log.Warn().Str("client", c.id).Msg("feed client too slow, dropping")
				h.remove(c)
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishClimate queues a snapshot for every client. New clients receive the
// most recent snapshot on connect.
func (h *Hub) PublishClimate(s climate.Snapshot) {
	b, ok := h.encode(TypeClimate, s)
	if !ok {
		return
	}
	h.remember(TypeClimate, b)
	h.queue(b)
}

// PublishStatus queues an engine status for every client.
func (h *Hub) PublishStatus(st monitor.Status) {
	b, ok := h.encode(TypeStatus, StatusData{
		UptimeMS:   st.Uptime.Milliseconds(),
		Frames:     st.Frames,
		LastID:     st.LastID,
		Tracked:    st.Tracked,
		Candidates: st.Candidates,
	})
	if ok {
		h.remember(TypeStatus, b)
		h.queue(b)
	}
}

// Tap calls fn with every encoded message, on the publishing goroutine. Set
// it before publishing starts; fn must not block.
func (h *Hub) Tap(fn func(typ string, b []byte)) {
	h.tap = fn
}

// Latest returns the most recent encoded message of the given type, or nil.
func (h *Hub) Latest(typ string) []byte {
	h.lastMu.Lock()
	defer h.lastMu.Unlock()
	return h.last[typ]
}

func (h *Hub) remember(typ string, b []byte) {
	h.lastMu.Lock()
	h.last[typ] = b
	h.lastMu.Unlock()
	if h.tap != nil {
		h.tap(typ, b)
	}
}

func (h *Hub) encode(typ string, data interface{}) ([]byte, bool) {
	b, err := json.Marshal(Message{Type: typ, Timestamp: h.now(), Data: data})
	if err != nil {
		h.log.Error().Err(err).Str("type", typ).Msg("encode feed message")
		return nil, false
	}
	return b, true
}

// queue never blocks the caller, which is the engine loop.
func (h *Hub) queue(b []byte) {
	select {
	case h.broadcast <- b:
	default:
		h.log.Warn().Msg("feed broadcast queue full, message dropped")
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.log.Info().Str("client", c.id).Int("clients", len(h.clients)).Msg("feed client disconnected")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
