// Package worker delivers notification events to sinks. Events are sharded by
// item so that one worker owns each item and delivery order per item matches
// publish order.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/mq/queue"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
	"github.com/Yuvrajsinh007/BidCycle/pkg/metrics"
)

const (
	defaultShards         = 4
	metricsUpdateInterval = 5 * time.Second
	deliverTimeout        = 5 * time.Second
)

// Sink receives delivered events.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e model.Event) error
}

// shardWorker drains one queue in order.
type shardWorker struct {
	queue  queue.Queue
	sinks  []Sink
	name   string
	done   chan struct{}
	logger logger.Logger
}

func (w *shardWorker) run() {
	defer close(w.done)
	for e := range w.queue.Dequeue() {
		w.deliver(e)
	}
}

func (w *shardWorker) deliver(e model.Event) { //nolint:gocritic // Event is passed by value for channel semantics
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	for _, s := range w.sinks {
		if err := s.Deliver(ctx, e); err != nil {
			metrics.RecordSinkError(s.Name())
			w.logger.Warn(ctx, "sink delivery failed",
				logger.String("sink", s.Name()),
				logger.String("item_id", e.ItemID),
				logger.Int64("seq", e.Seq),
				logger.Error(err),
			)
		}
	}
}

// Dispatcher fans events out to a fixed set of sinks through item-sharded queues.
type Dispatcher struct {
	workers []*shardWorker
	sinks   []Sink

	shards    int
	queueSize int
	logger    logger.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	shutdown  chan struct{}
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(sinks []Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sinks:     sinks,
		shards:    defaultShards,
		queueSize: 1024,
		shutdown:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named("dispatcher")
	}

	d.workers = make([]*shardWorker, d.shards)
	for i := range d.workers {
		d.workers[i] = &shardWorker{
			queue:  queue.NewInMemoryQueue(queue.WithCapacity(d.queueSize)),
			sinks:  sinks,
			name:   "shard-" + strconv.Itoa(i),
			done:   make(chan struct{}),
			logger: d.logger.Named("shard-" + strconv.Itoa(i)),
		}
	}
	metrics.UpdateDispatchCapacity(d.shards * d.queueSize)
	return d
}

// Start launches one goroutine per shard.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.started.Store(true)
		for _, w := range d.workers {
			go w.run()
		}
		d.wg.Add(1)
		go d.metricsLoop(ctx)
		d.logger.Info(ctx, "dispatcher started",
			logger.Int("shards", d.shards),
			logger.Int("queue_size", d.queueSize),
			logger.Int("sinks", len(d.sinks)),
		)
	})
}

// Publish enqueues e on its item's shard. It never blocks; a full shard drops
// the event and returns false.
func (d *Dispatcher) Publish(ctx context.Context, e model.Event) bool { //nolint:gocritic // Event is passed by value for channel semantics
	if d.workers[d.shardFor(e.ItemID)].queue.Enqueue(ctx, e) {
		return true
	}
	metrics.RecordEventDropped("dispatch_full")
	d.logger.Warn(ctx, "dispatch queue full, event dropped",
		logger.String("item_id", e.ItemID),
		logger.String("type", string(e.Type)),
		logger.Int64("seq", e.Seq),
	)
	return false
}

// Depth returns the number of queued events across shards.
func (d *Dispatcher) Depth() int {
	n := 0
	for _, w := range d.workers {
		n += w.queue.Len()
	}
	return n
}

// Shards returns the shard count.
func (d *Dispatcher) Shards() int {
	return d.shards
}

// Shutdown stops intake, drains queued events and waits for the workers.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.stopOnce.Do(func() {
		close(d.shutdown)
		for _, w := range d.workers {
			_ = w.queue.Close()
		}
	})
	d.wg.Wait()
	if !d.started.Load() {
		return nil
	}
	for _, w := range d.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return fmt.Errorf("dispatcher shutdown: %s: %w", w.name, ctx.Err())
		}
	}
	return nil
}

func (d *Dispatcher) shardFor(itemID string) int {
	return int(xxhash.Sum64String(itemID) % uint64(d.shards))
}

func (d *Dispatcher) metricsLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case <-ticker.C:
			metrics.UpdateDispatchQueueDepth(d.Depth())
		}
	}
}
