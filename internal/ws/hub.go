package ws

import (
	"encoding/json"
	"sync"

	"github.com/busycorner/panel/internal/bus"
)

// signal is the wire shape of an update notification. Events carry no
// payload; views re-pull over the HTTP API when signalled.
type signal struct {
	Type string `json:"type"`
}

// Hub maintains the set of open panel views and pushes update signals to
// all of them.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan bus.Event

	mu sync.RWMutex
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan bus.Event, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, exists := h.clients[client]; exists {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			message, err := json.Marshal(signal{Type: string(ev)})
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast pushes an update signal to every open view.
func (h *Hub) Broadcast(ev bus.Event) {
	h.broadcast <- ev
}

// Bind forwards bus events to connected views and returns a teardown that
// detaches all three subscriptions.
func (h *Hub) Bind(b *bus.Bus) (teardown func()) {
	events := []bus.Event{bus.OrdersUpdated, bus.MenuUpdated, bus.MessagesUpdated}
	unsubs := make([]func(), 0, len(events))
	for _, ev := range events {
		ev := ev
		unsubs = append(unsubs, b.Subscribe(ev, func() { h.Broadcast(ev) }))
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
