package web

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sweeney/gesture-sensor/internal/gesture"
	"github.com/sweeney/gesture-sensor/internal/status"
)

// clientBuffer is how many messages may queue for one slow client.
const clientBuffer = 32

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Hub fans gesture events out to websocket clients. Broadcasts never block;
// a client that falls behind is disconnected.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	tracker *status.Tracker
}

// NewHub creates a Hub. New clients receive a status snapshot from tracker.
func NewHub(tracker *status.Tracker) *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		tracker: tracker,
	}
}

func (h *Hub) addClient(conn *websocket.Conn) *client {
	c := newClient(conn)
	data, _ := json.Marshal(snapshotMessage(status.FormatJSON(h.tracker.Snapshot())))

	// Queued before registration so the snapshot precedes any broadcast.
	h.mu.Lock()
	c.send <- data
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// BroadcastGesture pushes a fired gesture to all clients.
func (h *Hub) BroadcastGesture(e gesture.Event) {
	h.broadcast(gestureMessage(e))
}

// BroadcastReason pushes a changed suppression reason to all clients.
func (h *Hub) BroadcastReason(r gesture.Reason) {
	h.broadcast(Message{Type: MsgReason, Payload: ReasonPayload{Reason: string(r)}})
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("web: broadcast marshal: %v", err)
		return
	}

	// Sends happen under the read lock so removeClient cannot close a
	// channel mid-send.
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Printf("web: ws client too slow, disconnecting")
		h.removeClient(c)
	}
}

// ClientCount returns the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
