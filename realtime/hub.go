package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"scorekeeper/core"
)

// Filter narrows a subscription to one game and optionally one difficulty.
// Empty fields match everything; global events (e.g. games_reset) always match.
type Filter struct {
	Game       core.GameType
	Difficulty core.Difficulty
}

func (f Filter) Match(ev core.Event) bool {
	if ev.Game == "" {
		return true
	}
	if f.Game != "" && ev.Game != f.Game {
		return false
	}
	return f.Difficulty == "" || ev.Difficulty == f.Difficulty
}

type subscriber struct {
	ch     chan core.Event
	filter Filter
}

// Hub is a simple pub/sub for broadcasting events to channels.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	dropped atomic.Int64
}

func NewHub() *Hub { return &Hub{subs: map[int]subscriber{}} }

// Subscribe registers a buffered receiver for events matching filter.
func (h *Hub) Subscribe(buffer int, filter Filter) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan core.Event, buffer)
	h.subs[id] = subscriber{ch: ch, filter: filter}
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

// Broadcast delivers ev to every matching subscriber; full buffers drop the event.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if !s.filter.Match(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Publish lets the hub be used directly as an engine.Publisher.
func (h *Hub) Publish(ctx context.Context, ev core.Event) { h.Broadcast(ctx, ev) }

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped reports events discarded because a subscriber was not keeping up.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
