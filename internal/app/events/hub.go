// Package events provides an in-process broadcast hub for progression
// events. The HTTP layer exposes it over a websocket; services publish into
// it synchronously after state changes have been persisted.
package events

import (
	"sync"
	"time"
)

// Event types published by the ledger service.
const (
	TypeXPAwarded      = "xp_awarded"
	TypeLevelUp        = "level_up"
	TypeEvolution      = "evolution"
	TypePointsRedeemed = "points_redeemed"
	TypeCheckIn        = "check_in"
)

// Event is a single progression notification.
type Event struct {
	Type   string                 `json:"type"`
	UserID string                 `json:"user_id"`
	At     time.Time              `json:"at"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// Hub fans events out to subscribers. Slow subscribers drop events rather
// than block publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

const subscriberBuffer = 16

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release the subscription; the channel is closed afterwards.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every current subscriber. Delivery is
// best-effort; a full subscriber buffer loses the event.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
