package notify

import (
	"sync"
	"time"
)

// Hub is the in-process fan-out behind the /events SSE stream.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{subs: map[chan Event]struct{}{}, buffer: buffer}
}

// Subscribe registers a listener. The returned func unregisters it and
// closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(eventType, matchID string) {
	h.Deliver(Event{Type: eventType, MatchID: matchID, At: time.Now().UTC()})
}

// Deliver hands ev to every subscriber. A subscriber whose buffer is full
// misses the event rather than stalling the publisher.
func (h *Hub) Deliver(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
