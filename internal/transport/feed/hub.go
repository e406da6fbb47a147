// Package feed fans zone events out to transport subscribers. A Hub is the
// gameserver.Notifier of a running server; the gRPC WatchZone stream and the
// WebSocket feed each hold one Subscription per connected watcher.
package feed

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/gameserver"
)

// DefaultBuffer is the subscription queue length used when none is given.
const DefaultBuffer = 256

// Hub delivers every event for a zone to that zone's subscribers. Delivery
// never blocks: a subscriber whose queue is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	zones  map[string]map[*Subscription]struct{}
	closed bool
	logger *zap.Logger
}

// NewHub creates an empty Hub.
//
// Precondition: logger must be non-nil.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		panic("feed.NewHub: logger must not be nil")
	}
	return &Hub{
		zones:  make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscription is one watcher of one zone.
type Subscription struct {
	zoneID  string
	ch      chan gameserver.Event
	hub     *Hub
	once    sync.Once
	dropped atomic.Int64
}

// Subscribe registers a watcher of zoneID with a queue of buffer events.
//
// Postcondition: Events delivers every later event for zoneID until Close is
// called or the hub shuts down, after which the channel is closed. A
// subscription taken after the hub closed starts closed.
func (h *Hub) Subscribe(zoneID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &Subscription{zoneID: zoneID, ch: make(chan gameserver.Event, buffer), hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	subs, ok := h.zones[zoneID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.zones[zoneID] = subs
	}
	subs[s] = struct{}{}
	return s
}

// NotifyZone implements gameserver.Notifier.
func (h *Hub) NotifyZone(zoneID string, ev gameserver.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.zones[zoneID] {
		select {
		case s.ch <- ev:
		default:
			if s.dropped.Add(1) == 1 {
				h.logger.Warn("zone subscriber falling behind",
					zap.String("zone", zoneID),
					zap.String("event", string(ev.Type)),
				)
			}
		}
	}
}

// Subscribers counts the live subscriptions of zoneID.
func (h *Hub) Subscribers(zoneID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.zones[zoneID])
}

// Close ends every subscription. Later events are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for zoneID, subs := range h.zones {
		for s := range subs {
			s.once.Do(func() { close(s.ch) })
		}
		delete(h.zones, zoneID)
	}
}

// ZoneID is the watched zone.
func (s *Subscription) ZoneID() string { return s.zoneID }

// Events is the subscription queue.
func (s *Subscription) Events() <-chan gameserver.Event { return s.ch }

// Dropped counts events missed because the queue was full.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Close unregisters the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.zones[s.zoneID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.zones, s.zoneID)
		}
	}
	s.once.Do(func() { close(s.ch) })
}
