package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/railops/dispatch/models"
)

const (
	subscriberBuffer = 16
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
	maxInboundBytes  = 512
)

// EventHub streams dashboard events to WebSocket subscribers on GET /api/events.
// It implements the services' EventPublisher.
type EventHub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[uuid.UUID]*subscriber
	closed  bool
}

type subscriber struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewEventHub creates a hub accepting connections from allowedOrigins.
// Requests without an Origin header are always accepted; "*" accepts any.
func NewEventHub(allowedOrigins []string) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
		clients: make(map[uuid.UUID]*subscriber),
	}
}

// ServeHTTP upgrades the request and registers the connection as a subscriber
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, subscriberBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[sub.id] = sub
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("Event subscriber %s connected (%d active)", sub.id, count)

	go h.writePump(sub)
	go h.readPump(sub)
}

// Publish sends event to every subscriber. Slow subscribers whose buffer is
// full miss the event rather than stall the caller.
func (h *EventHub) Publish(event models.Event) {
	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.clients {
		select {
		case sub.send <- message:
		default:
			log.Printf("Event subscriber %s is behind, dropping %s event", sub.id, event.Type)
		}
	}
}

// SubscriberCount returns the number of connected subscribers
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, sub := range h.clients {
		delete(h.clients, id)
		close(sub.done)
	}
}

func (h *EventHub) remove(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[sub.id]; ok {
		delete(h.clients, sub.id)
		close(sub.done)
	}
	h.mu.Unlock()
}

// readPump discards inbound messages and detects disconnects
func (h *EventHub) readPump(sub *subscriber) {
	defer func() {
		h.remove(sub)
		sub.conn.Close()
	}()

	sub.conn.SetReadLimit(maxInboundBytes)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only goroutine writing data frames to the connection
func (h *EventHub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case message := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sub.done:
			sub.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
