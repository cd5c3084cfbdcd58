// Package hub implements fan-out of engine events to subscribed observers.
package hub

import (
	"sync"

	"github.com/google/uuid"

	"github.com/citypulse/trafficd/internal/events"
)

const defaultBuffer = 32

// Hub maintains the set of currently-subscribed observers and delivers each
// published event to every one of them independently. A subscriber whose
// buffer is full is skipped for that event; it is only removed by an
// explicit Unsubscribe.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber
	buffer      int
}

// Subscriber is one observer handle. Events arrive on C in publish order.
// Done is closed on Unsubscribe.
type Subscriber struct {
	ID   uuid.UUID
	C    chan events.Event
	Done chan struct{}
}

// New creates a hub with the default per-subscriber buffer.
func New() *Hub {
	return NewWithBuffer(defaultBuffer)
}

// NewWithBuffer creates a hub with the given per-subscriber channel buffer.
func NewWithBuffer(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subscribers: make(map[uuid.UUID]*Subscriber),
		buffer:      buffer,
	}
}

// Subscribe registers a new observer.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:   uuid.New(),
		C:    make(chan events.Event, h.buffer),
		Done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()

	return sub
}

// Unsubscribe removes an observer and closes its channels. Unknown IDs are
// a no-op.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subscribers[id]
	if !ok {
		return
	}
	delete(h.subscribers, id)
	close(sub.Done)
	close(sub.C)
}

// Publish delivers the event to every current subscriber without blocking.
// The write lock in Unsubscribe excludes channel closes while a publish is
// in flight.
func (h *Hub) Publish(e events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		select {
		case sub.C <- e:
		default:
			// Subscriber is not keeping up; drop this event for it.
		}
	}
}

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
