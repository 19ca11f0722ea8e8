// Package events carries slice change events to whatever renders them.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event types
const (
	JobsUpdated         = "jobs.updated"
	ApplicationsUpdated = "applications.updated"
	AuthChanged         = "auth.changed"
	CompanyUpdated      = "company.updated"
	Notification        = "notification"
	Navigate            = "navigate"
)

// Event is a structured message published on the bus.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// JSON encodes the event; a failed encoding yields an event without payload.
func (e Event) JSON() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		b, _ = json.Marshal(Event{Type: e.Type, At: e.At})
	}
	return b
}

// Bus is a synchronous fan-out. Handlers run on the publisher's goroutine and
// must not block.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]func(Event)
	nextID   int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers evt to every subscriber. Safe on a nil bus.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.handlers))
	for _, fn := range b.handlers {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}
