// Package service is the auction engine: it resolves bids against the ledger,
// drives the item lifecycle and publishes notification events after commit.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/repository"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/proxybid"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
	"github.com/Yuvrajsinh007/BidCycle/pkg/metrics"
)

const (
	defaultMaxAttempts      = 5
	defaultSweepInterval    = time.Minute
	defaultSweepConcurrency = 8
)

// Publisher accepts committed events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, e model.Event) bool
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.Event) bool { return true }

// BidResult is what the submitting bidder is told.
type BidResult struct {
	Outcome    proxybid.Outcome `json:"outcome"`
	Message    string           `json:"message"`
	CurrentBid decimal.Decimal  `json:"currentBid"`
	LeaderName string           `json:"leaderName"`
	IsLeading  bool             `json:"isLeading"`
	Item       auction.View     `json:"item"`
}

// Service implements the API dependencies for the auction engine.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	publisher Publisher
	locks     *keyLock

	increment        decimal.Decimal
	maxAttempts      int
	sweepInterval    time.Duration
	sweepConcurrency int
	now              func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the ledger. An in-memory store is used when none is given.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPublisher sets where committed events go.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithIncrement sets the minimum price step.
func WithIncrement(inc decimal.Decimal) Option {
	return func(s *Service) {
		if inc.IsPositive() {
			s.increment = inc
		}
	}
}

// WithMaxAttempts bounds ledger retries per bid.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSweepInterval sets how often the sweeper runs.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithSweepConcurrency bounds how many items one sweep handles at once.
func WithSweepConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepConcurrency = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		publisher:        nopPublisher{},
		locks:            newKeyLock(),
		increment:        proxybid.DefaultIncrement,
		maxAttempts:      defaultMaxAttempts,
		sweepInterval:    defaultSweepInterval,
		sweepConcurrency: defaultSweepConcurrency,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using in-memory ledger")
	}

	s.started = true
	s.logger.Info(ctx, "auction service started",
		logger.String("increment", s.increment.String()),
		logger.Int("maxAttempts", s.maxAttempts),
		logger.Duration("sweepInterval", s.sweepInterval),
		logger.Int("sweepConcurrency", s.sweepConcurrency),
	)
	return nil
}

// Stop closes the ledger.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing ledger", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "auction service stopped")
}

// Store returns the ledger in use.
func (s *Service) Store() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Increment returns the configured price step.
func (s *Service) Increment() decimal.Decimal {
	return s.increment
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// PlaceBid resolves a submission against the item and commits it. Submissions
// for the same item are serialized in-process; the ledger's version check
// covers writers in other processes. Events are published only after commit.
func (s *Service) PlaceBid(ctx context.Context, itemID string, bidder auction.Bidder, amount decimal.Decimal) (BidResult, error) {
	if err := s.ready(); err != nil {
		return BidResult{}, err
	}
	if bidder.ID == "" {
		return BidResult{}, ErrMissingBidder
	}
	if bidder.Name == "" {
		bidder.Name = bidder.ID
	}
	ctx = logger.ContextWith(ctx, logger.String("item_id", itemID), logger.String("bidder_id", bidder.ID))
	start := time.Now()
	defer func() {
		metrics.RecordResolveLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	unlock := s.locks.lock(itemID)
	defer unlock()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		var res proxybid.Resolution
		now := s.now()
		item, err := s.store.Update(ctx, itemID, func(it *auction.Item) ([]auction.Bid, error) {
			r, err := proxybid.Resolve(*it, proxybid.Request{
				Bidder:       bidder,
				CandidateMax: amount,
				Increment:    s.increment,
				Now:          now,
			})
			if err != nil {
				return nil, err
			}
			*it = r.Item
			res = r
			return r.Bids, nil
		})
		switch {
		case errors.Is(err, repository.ErrConflict):
			metrics.RecordLedgerConflict()
			s.logger.Debug(ctx, "ledger conflict, retrying", logger.Int("attempt", attempt))
			continue
		case err != nil:
			if auction.IsValidation(err) || errors.Is(err, auction.ErrNotFound) {
				metrics.RecordBidRejected(auction.Reason(err))
				return BidResult{}, err
			}
			s.logger.Error(ctx, "committing bid", logger.Error(err))
			return BidResult{}, fmt.Errorf("place bid on %s: %w", itemID, err)
		}

		metrics.RecordBidAccepted(string(res.Outcome))
		if res.Outcome.Broadcast() {
			s.publish(ctx, model.NewBidUpdate(item, string(res.Outcome), now))
		}
		s.logger.Debug(ctx, "bid resolved",
			logger.String("outcome", string(res.Outcome)),
			logger.String("current_bid", item.CurrentPrice().String()),
			logger.Int64("version", item.Version),
		)
		return BidResult{
			Outcome:    res.Outcome,
			Message:    res.Outcome.Message(item.CurrentPrice()),
			CurrentBid: item.CurrentPrice(),
			LeaderName: item.WinnerName,
			IsLeading:  item.IsLeader(bidder.ID),
			Item:       item.View(now, s.increment),
		}, nil
	}

	metrics.RecordContentionFailure()
	s.logger.Warn(ctx, "giving up after repeated ledger conflicts", logger.Int("attempts", s.maxAttempts))
	return BidResult{}, ErrContention
}

func (s *Service) publish(ctx context.Context, e model.Event) { //nolint:gocritic // Event is passed by value for channel semantics
	// The change is committed; a client hanging up must not lose the event.
	ctx = context.WithoutCancel(ctx)
	if !s.publisher.Publish(ctx, e) {
		s.logger.Warn(ctx, "event not published",
			logger.String("type", string(e.Type)),
			logger.Int64("seq", e.Seq),
		)
		return
	}
	metrics.RecordEventPublished(string(e.Type))
}

// Item returns the public view of an item.
func (s *Service) Item(ctx context.Context, id string) (auction.View, error) {
	if err := s.ready(); err != nil {
		return auction.View{}, err
	}
	it, err := s.store.Get(ctx, id)
	if err != nil {
		return auction.View{}, err
	}
	return it.View(s.now(), s.increment), nil
}

// Bids returns an item's bid history, oldest first.
func (s *Service) Bids(ctx context.Context, itemID string) ([]auction.Bid, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return s.store.Bids(ctx, itemID)
}

// BidderBids returns every bid recorded for a bidder, including automatic ones.
func (s *Service) BidderBids(ctx context.Context, bidderID string) ([]auction.Bid, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.BidsByBidder(ctx, bidderID)
}

// WonAuctions returns the items a bidder bought.
func (s *Service) WonAuctions(ctx context.Context, bidderID string) ([]auction.View, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	items, err := s.store.WonBy(ctx, bidderID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]auction.View, 0, len(items))
	for i := range items {
		views = append(views, items[i].View(now, s.increment))
	}
	return views, nil
}

// ActiveBids summarises the still-running auctions a bidder took part in.
func (s *Service) ActiveBids(ctx context.Context, bidderID string) ([]auction.BidderActivity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	bids, err := s.store.BidsByBidder(ctx, bidderID)
	if err != nil {
		return nil, err
	}

	byItem := make(map[string]*auction.BidderActivity)
	var order []string
	for i := range bids {
		b := &bids[i]
		a, ok := byItem[b.ItemID]
		if !ok {
			a = &auction.BidderActivity{}
			byItem[b.ItemID] = a
			order = append(order, b.ItemID)
		}
		a.BidCount++
		if !b.CreatedAt.Before(a.LastBidAt) {
			a.LastBid = b.Amount
			a.LastBidAt = b.CreatedAt
		}
	}

	now := s.now()
	out := make([]auction.BidderActivity, 0, len(order))
	for _, id := range order {
		it, err := s.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, auction.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if it.Phase(now) != auction.StatusActive || !now.Before(it.EndTime) {
			continue
		}
		a := byItem[id]
		a.Item = it.View(now, s.increment)
		a.IsLeading = it.IsLeader(bidderID)
		out = append(out, *a)
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"increment":        s.increment.String(),
		"maxAttempts":      s.maxAttempts,
		"sweepInterval":    s.sweepInterval.String(),
		"sweepConcurrency": s.sweepConcurrency,
		"lockedItems":      s.locks.size(),
		"goroutines":       runtime.NumGoroutine(),
	}
	if d, ok := s.publisher.(interface{ Depth() int }); ok {
		stats["dispatchDepth"] = d.Depth()
	}
	if s.started {
		if n, err := s.store.Count(ctx); err == nil {
			stats["totalItems"] = n
			metrics.UpdateAuctionsTracked(n)
		}
	}
	return stats
}
