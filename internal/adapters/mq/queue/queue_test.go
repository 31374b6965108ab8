package queue

import (
	"context"
	"testing"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
)

func ev(id string, seq int64) model.Event {
	return model.Event{ID: id, Type: model.EventBidUpdate, ItemID: "item", Seq: seq}
}

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		if !q.Enqueue(ctx, ev(id, int64(i+1))) {
			t.Fatalf("enqueue %s failed", id)
		}
	}
	if l := q.Len(); l != 3 {
		t.Errorf("expected length 3, got %d", l)
	}

	for _, want := range []string{"a", "b", "c"} {
		got := <-q.Dequeue()
		if got.ID != want {
			t.Errorf("expected %s, got %s", want, got.ID)
		}
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if q.Cap() != 2 {
		t.Fatalf("expected capacity 2, got %d", q.Cap())
	}
	q.Enqueue(ctx, ev("a", 1))
	q.Enqueue(ctx, ev("b", 2))
	if q.Enqueue(ctx, ev("c", 3)) {
		t.Error("expected enqueue to fail when full")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()
	q.Enqueue(ctx, ev("a", 1))

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, ev("b", 2)) {
		t.Error("expected enqueue to fail after close")
	}

	got, ok := <-q.Dequeue()
	if !ok || got.ID != "a" {
		t.Errorf("expected queued event to drain after close, got %v %v", got.ID, ok)
	}
	if _, ok := <-q.Dequeue(); ok {
		t.Error("expected channel to be closed once drained")
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if !q.Enqueue(ctx, ev("a", 1)) {
		t.Fatal("expected enqueue to accept an event after the caller cancelled")
	}
	if got := <-q.Dequeue(); got.Seq != 1 {
		t.Errorf("expected seq 1, got %d", got.Seq)
	}
}
