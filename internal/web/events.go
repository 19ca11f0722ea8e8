package web

import (
	"github.com/blockedby/kandra/internal/events"
)

// Follow forwards every bus event to the connected views. The returned
// function stops forwarding.
func (h *Hub) Follow(bus *events.Bus) func() {
	return bus.Subscribe(func(evt events.Event) {
		h.Broadcast(evt)
	})
}
