package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// businessEvent routes an event to one business room
type businessEvent struct {
	BusinessID int64
	Event      Event
}

// Hub maintains the set of active kitchen/dashboard clients per business and
// broadcasts order events to them.
type Hub struct {
	rooms map[int64]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *businessEvent
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *businessEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every client's send channel. Registrations after that are refused.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for businessID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, businessID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.businessID] == nil {
				h.rooms[client.businessID] = make(map[*Client]bool)
			}
			h.rooms[client.businessID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				log.Printf("ERROR: marshal ws event: %v", err)
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.BusinessID] {
				if !client.wants(event.Event.Type) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Slow consumer
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client to its business room. It returns false once the hub
// has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client. It is a no-op once the hub has stopped, since
// Run already closed every send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.businessID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.businessID)
	}
}

// BroadcastToBusiness queues an event for every client of a business. The
// event is dropped when the queue is full.
func (h *Hub) BroadcastToBusiness(businessID int64, event Event) {
	select {
	case h.broadcast <- &businessEvent{BusinessID: businessID, Event: event}:
	default:
		log.Printf("WARN: ws broadcast queue full, dropping %s for business %d", event.Type, businessID)
	}
}

// ClientCount returns the number of connected clients for a business.
func (h *Hub) ClientCount(businessID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[businessID])
}
