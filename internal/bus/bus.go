// Package bus is the in-process broadcast signal between panel views.
// Events carry no payload; listeners re-pull from the store when signalled.
package bus

import "sync"

// Event identifies a broadcast signal kind.
type Event string

const (
	OrdersUpdated   Event = "ordersUpdated"
	MenuUpdated     Event = "menuItemsUpdated"
	MessagesUpdated Event = "messagesUpdated"
)

// Bus fans an event out to every registered listener. Listener callbacks
// run on the publisher's goroutine and must not block; slow reactions
// belong behind a Debouncer.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Event]map[int]func()
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Event]map[int]func())}
}

// Subscribe registers fn for ev and returns a teardown function. Teardown
// is idempotent and must be called when the consuming view goes away.
func (b *Bus) Subscribe(ev Event, fn func()) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[ev] == nil {
		b.subs[ev] = make(map[int]func())
	}
	id := b.nextID
	b.nextID++
	b.subs[ev][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[ev], id)
	}
}

// Publish signals every listener registered for ev.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.subs[ev]))
	for _, fn := range b.subs[ev] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
