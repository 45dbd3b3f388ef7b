// Package ws streams cart totals and order status notices to
// storefront clients over WebSocket, one room per session.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/caphe-pos/storefront/internal/notify"
)

// Event is one WebSocket message sent to a session's clients.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// sessionEvent routes an event to one session's room.
type sessionEvent struct {
	SessionID string
	Event     Event
}

// Hub maintains the set of active clients grouped by session.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *sessionEvent

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *sessionEvent, 256),
	}
}

// Run is the hub's main loop; start it as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.sessionID] == nil {
				h.rooms[client.sessionID] = make(map[*Client]bool)
			}
			h.rooms[client.sessionID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.sessionID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.sessionID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.SessionID]

			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full; drop the client.
					close(client.send)
					delete(h.rooms[event.SessionID], client)
					if len(h.rooms[event.SessionID]) == 0 {
						delete(h.rooms, event.SessionID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToSession sends an event to every client of one session.
func (h *Hub) BroadcastToSession(sessionID string, event Event) {
	h.broadcast <- &sessionEvent{SessionID: sessionID, Event: event}
}

// Bridge forwards bus events to the owning session's room until the
// context is cancelled. Run it as a goroutine next to Run.
func (h *Hub) Bridge(ctx context.Context, bus *notify.Bus) {
	events, cancel := bus.Subscribe("")
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.forward(ev)
		}
	}
}

func (h *Hub) forward(ev notify.Event) {
	var payload any
	switch {
	case ev.Cart != nil:
		payload = ev.Cart
	case ev.Order != nil:
		payload = ev.Order
	default:
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: encode ws payload: %v", err)
		return
	}
	h.BroadcastToSession(ev.SessionID, Event{Type: string(ev.Type), Payload: data})
}
