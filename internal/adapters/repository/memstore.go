package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
	"github.com/Yuvrajsinh007/BidCycle/pkg/metrics"
)

// MemoryStore is an in-process Store. Updates read under a shared lock and
// commit under the exclusive lock after checking the version, so concurrent
// writers on one item surface as ErrConflict rather than lost updates.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]auction.Item
	bids     map[string][]auction.Bid
	byBidder map[string][]auction.Bid

	now                   func() time.Time
	metricsUpdateInterval time.Duration
	beforeCommit          func(id string)

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs an empty in-memory ledger.
func NewMemoryStore(ctx context.Context, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		items:                 make(map[string]auction.Item),
		bids:                  make(map[string][]auction.Bid),
		byBidder:              make(map[string][]auction.Bid),
		now:                   time.Now,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, item auction.Item) error {
	if err := validateNew(item); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; ok {
		return ErrItemExists
	}
	s.items[item.ID] = prepareNew(item, s.now())
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (auction.Item, error) {
	start := time.Now()
	defer recordOp("get", start)

	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return auction.Item{}, auction.ErrNotFound
	}
	return item, nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, id string, fn Mutation) (auction.Item, error) {
	start := time.Now()
	defer recordOp("update", start)

	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return auction.Item{}, auction.ErrNotFound
	}

	prev := item.Version
	newBids, err := fn(&item)
	if err != nil {
		return auction.Item{}, err
	}
	item.ID = id
	commitVersion(&item, prev, s.now())

	if s.beforeCommit != nil {
		s.beforeCommit(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.items[id]; cur.Version != prev {
		return auction.Item{}, ErrConflict
	}
	s.items[id] = item
	for _, b := range newBids {
		s.bids[id] = append(s.bids[id], b)
		s.byBidder[b.BidderID] = append(s.byBidder[b.BidderID], b)
	}
	return item, nil
}

// ListDue implements Store.
func (s *MemoryStore) ListDue(_ context.Context, now time.Time) ([]auction.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []auction.Item
	for _, it := range s.items {
		if it.DueForClose(now) || it.DueForActivation(now) {
			due = append(due, it)
		}
	}
	sortByEnd(due)
	return due, nil
}

// Bids implements Store.
func (s *MemoryStore) Bids(_ context.Context, itemID string) ([]auction.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.items[itemID]; !ok {
		return nil, auction.ErrNotFound
	}
	return append([]auction.Bid(nil), s.bids[itemID]...), nil
}

// BidsByBidder implements Store.
func (s *MemoryStore) BidsByBidder(_ context.Context, bidderID string) ([]auction.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]auction.Bid(nil), s.byBidder[bidderID]...), nil
}

// WonBy implements Store.
func (s *MemoryStore) WonBy(_ context.Context, bidderID string) ([]auction.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var won []auction.Item
	for _, it := range s.items {
		if it.Status == auction.StatusSold && it.WinnerID == bidderID {
			won = append(won, it)
		}
	}
	sortByEnd(won)
	return won, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				n, _ := s.Count(ctx)
				metrics.UpdateAuctionsTracked(n)
			}
		}
	}()
}

func sortByEnd(items []auction.Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndTime.Equal(items[j].EndTime) {
			return items[i].EndTime.Before(items[j].EndTime)
		}
		return items[i].ID < items[j].ID
	})
}

func recordOp(op string, start time.Time) {
	metrics.RecordLedgerOp(op, float64(time.Since(start).Microseconds())/1000)
}
