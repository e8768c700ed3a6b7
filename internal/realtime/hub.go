// Package realtime fans out committed seat changes to live subscribers
// of a screening.
package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/screening-seat-engine/internal/model"
)

// DefaultBuffer is the per-subscriber event buffer.
const DefaultBuffer = 16

// Subscription is one live listener on a screening.  Events is closed
// by Unsubscribe.
type Subscription struct {
	ID          string
	ScreeningID uint64
	Events      <-chan model.ChangeEvent

	ch chan model.ChangeEvent
}

// Hub delivers every ChangeEvent of a screening to all of its current
// subscribers.  Delivery is at-most-once: a subscriber whose buffer is
// full misses the event and is expected to re-fetch the seat map.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]map[*Subscription]struct{}
	buffer int
}

// NewHub creates a hub with the given per-subscriber buffer size.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[uint64]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a listener for screeningID.
func (h *Hub) Subscribe(screeningID uint64) *Subscription {
	ch := make(chan model.ChangeEvent, h.buffer)
	sub := &Subscription{
		ID:          uuid.NewString(),
		ScreeningID: screeningID,
		Events:      ch,
		ch:          ch,
	}
	h.mu.Lock()
	set, ok := h.subs[screeningID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[screeningID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a listener and closes its channel.  Calling it
// more than once is harmless.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.ScreeningID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.ScreeningID)
	}
}

// Publish hands ev to every subscriber of its screening without blocking.
func (h *Hub) Publish(ev model.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[ev.ScreeningID] {
		select {
		case sub.ch <- ev:
		default:
			// lagging subscriber; it catches up on the next event
		}
	}
}

// Subscribers returns the number of live listeners on screeningID.
func (h *Hub) Subscribers(screeningID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[screeningID])
}
