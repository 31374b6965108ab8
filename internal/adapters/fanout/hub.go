// Package fanout keeps per-item topics of live subscribers and delivers
// events to them. Delivery is best-effort: a subscriber whose buffer is full
// is evicted rather than allowed to stall the topic.
package fanout

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
	"github.com/Yuvrajsinh007/BidCycle/pkg/metrics"
)

const defaultBuffer = 64

// Subscription is one listener on an item topic.
type Subscription struct {
	ID     string
	ItemID string

	events  chan model.Event
	hub     *Hub
	once    sync.Once
	evicted bool
}

// Events returns the delivery channel. It is closed on Close or eviction.
func (s *Subscription) Events() <-chan model.Event {
	return s.events
}

// Evicted reports whether the hub dropped this subscriber for falling behind.
// Only meaningful after Events is closed.
func (s *Subscription) Evicted() bool {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return s.evicted
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s)
}

type topic struct {
	subs    map[string]*Subscription
	lastSeq int64
}

// Hub is the in-process publish/subscribe point for item topics.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]*topic
	total  int
	buffer int
	closed bool
	logger logger.Logger
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{topics: make(map[string]*topic), buffer: defaultBuffer}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("fanout")
	}
	return h
}

// Subscribe registers a listener on itemID. Callers that need the current
// state must read it after subscribing; nothing is replayed.
func (h *Hub) Subscribe(itemID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	sub := &Subscription{
		ID:     uuid.NewString(),
		ItemID: itemID,
		events: make(chan model.Event, h.buffer),
		hub:    h,
	}
	t, ok := h.topics[itemID]
	if !ok {
		t = &topic{subs: make(map[string]*Subscription)}
		h.topics[itemID] = t
	}
	t.subs[sub.ID] = sub
	h.total++
	metrics.UpdateActiveSubscribers(h.total)
	return sub, nil
}

// Name implements the dispatcher sink contract.
func (h *Hub) Name() string { return "hub" }

// Deliver hands e to every subscriber of its item. Events older than the
// last one seen on the topic are dropped so a topic never goes backwards.
func (h *Hub) Deliver(ctx context.Context, e model.Event) error { //nolint:gocritic // Event is passed by value for channel semantics
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[e.ItemID]
	if !ok {
		return nil
	}
	if e.Seq != 0 && e.Seq <= t.lastSeq {
		metrics.RecordEventDropped("stale")
		return nil
	}
	if e.Seq != 0 {
		t.lastSeq = e.Seq
	}
	for _, sub := range t.subs {
		select {
		case sub.events <- e:
			metrics.RecordEventPublished(string(e.Type))
		default:
			sub.evicted = true
			h.removeLocked(sub)
			metrics.RecordEventDropped("slow_subscriber")
			h.logger.Warn(ctx, "evicted slow subscriber",
				logger.String("item_id", e.ItemID),
				logger.String("subscription_id", sub.ID),
			)
		}
	}
	return nil
}

// Subscribers returns the listener count on one item.
func (h *Hub) Subscribers(itemID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if t, ok := h.topics[itemID]; ok {
		return len(t.subs)
	}
	return 0
}

// Total returns the listener count across items.
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Close drops every subscription and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, t := range h.topics {
		for _, sub := range t.subs {
			h.removeLocked(sub)
		}
	}
}

func (h *Hub) removeLocked(sub *Subscription) {
	sub.once.Do(func() {
		close(sub.events)
		t, ok := h.topics[sub.ItemID]
		if !ok {
			return
		}
		delete(t.subs, sub.ID)
		h.total--
		if len(t.subs) == 0 {
			delete(h.topics, sub.ItemID)
		}
		metrics.UpdateActiveSubscribers(h.total)
	})
}
