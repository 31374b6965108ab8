// Package queue holds bounded FIFO queues of notification events.
package queue

import (
	"context"
	"sync"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
)

const defaultCapacity = 4096

// Event is the payload type flowing through the queue.
type Event = model.Event

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event. Returns false only if the queue is full or
	// closed; the caller's cancellation does not refuse an event.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns the receive side. It is closed when the queue is closed
	// and drained.
	Dequeue() <-chan Event

	Len() int
	Cap() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events chan Event
	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	cfg := options{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &InMemoryQueue{events: make(chan Event, cfg.capacity)}
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(_ context.Context, e Event) bool { //nolint:gocritic // Event is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.events <- e:
		return true
	default:
		return false
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue() <-chan Event {
	return q.events
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len() int {
	return len(q.events)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return cap(q.events)
}

// Close stops accepting events. Queued events can still be drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
