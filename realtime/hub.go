package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ryandem1/minesweeper-async/core"
)

// LifecycleEvents are the event types streamed to realtime clients: board
// creation and scoring. Per-space play is never pushed.
var LifecycleEvents = []core.EventType{core.EventBoardCreated, core.EventBoardChecked}

// Hub is a simple pub/sub for broadcasting events to channels.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan core.Event
	next    int
	allowed map[core.EventType]struct{}
}

// NewHub returns a hub relaying only the given event types, or
// LifecycleEvents when none are given.
func NewHub(types ...core.EventType) *Hub {
	if len(types) == 0 {
		types = LifecycleEvents
	}
	allowed := make(map[core.EventType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return &Hub{subs: map[int]chan core.Event{}, allowed: allowed}
}

// Relays reports whether events of type t reach subscribers.
func (h *Hub) Relays(t core.EventType) bool {
	_, ok := h.allowed[t]
	return ok
}

func (h *Hub) Subscribe(buffer int) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan core.Event, buffer)
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribers is the number of attached listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers ev to every subscriber without blocking; full
// subscribers miss the event.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	if !h.Relays(ev.Type) {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default: /* drop if full */
		}
	}
}

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
