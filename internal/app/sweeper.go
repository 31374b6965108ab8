package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/repository"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
	"github.com/Yuvrajsinh007/BidCycle/pkg/metrics"
)

// errNothingDue aborts a sweep mutation when the item changed under us and no
// longer needs a transition.
var errNothingDue = errors.New("nothing due")

// SweepReport summarises one pass.
type SweepReport struct {
	Scanned   int           `json:"scanned"`
	Activated int           `json:"activated"`
	Sold      int           `json:"sold"`
	Expired   int           `json:"expired"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Sweeper periodically activates items whose start has passed and closes
// items whose end has passed.
type Sweeper struct {
	svc    *Service
	mu     sync.Mutex
	last   SweepReport
	logger logger.Logger
}

// NewSweeper creates a sweeper driven by the service's interval and
// concurrency settings.
func NewSweeper(svc *Service) *Sweeper {
	return &Sweeper{svc: svc, logger: logger.Named("sweeper")}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *Sweeper) Run(ctx context.Context) error {
	w.logger.Info(ctx, "sweeper started", logger.Duration("interval", w.svc.sweepInterval))
	ticker := time.NewTicker(w.svc.sweepInterval)
	defer ticker.Stop()

	w.SweepOnce(ctx, w.svc.now())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(context.Background(), "sweeper stopped")
			return nil
		case <-ticker.C:
			w.SweepOnce(ctx, w.svc.now())
		}
	}
}

// Last returns the report of the most recent pass.
func (w *Sweeper) Last() SweepReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// SweepOnce performs one pass at now. A failing item is logged and counted
// but does not stop the others; it is picked up again on the next pass.
func (w *Sweeper) SweepOnce(ctx context.Context, now time.Time) (report SweepReport) {
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		metrics.RecordSweep(float64(report.Duration.Microseconds()) / 1000)
		w.mu.Lock()
		w.last = report
		w.mu.Unlock()
	}()

	if err := w.svc.ready(); err != nil {
		w.logger.Warn(ctx, "sweep skipped", logger.Error(err))
		return report
	}

	due, err := w.svc.store.ListDue(ctx, now)
	if err != nil {
		w.logger.Error(ctx, "listing due items", logger.Error(err))
		report.Failed++
		metrics.RecordSweepItemFailure()
		return report
	}
	report.Scanned = len(due)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(int64(w.svc.sweepConcurrency))
	)
	for i := range due {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)

			status, err := w.transition(ctx, id, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed++
				metrics.RecordSweepItemFailure()
				w.logger.Error(ctx, "sweeping item", logger.String("item_id", id), logger.Error(err))
			case status == auction.StatusActive:
				report.Activated++
			case status == auction.StatusSold:
				report.Sold++
			case status == auction.StatusExpired:
				report.Expired++
			}
		}(due[i].ID)
	}
	wg.Wait()

	if report.Scanned > 0 {
		w.logger.Info(ctx, "sweep finished",
			logger.Int("scanned", report.Scanned),
			logger.Int("activated", report.Activated),
			logger.Int("sold", report.Sold),
			logger.Int("expired", report.Expired),
			logger.Int("failed", report.Failed),
		)
	}
	return report
}

// transition activates or closes one item and returns the status it moved to,
// or "" when nothing was due any more.
func (w *Sweeper) transition(ctx context.Context, id string, now time.Time) (auction.Status, error) {
	s := w.svc
	unlock := s.locks.lock(id)
	defer unlock()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		bids, err := s.store.Bids(ctx, id)
		if err != nil {
			return "", err
		}
		var ended bool
		item, err := s.store.Update(ctx, id, func(it *auction.Item) ([]auction.Bid, error) {
			switch {
			case it.DueForClose(now):
				if int64(len(bids)) != it.BidCount {
					return nil, repository.ErrConflict
				}
				ended = true
				return nil, it.Close(auction.SelectWinningBid(bids, it.WinnerID))
			case it.DueForActivation(now):
				it.Activate(now)
				return nil, nil
			default:
				return nil, errNothingDue
			}
		})
		switch {
		case errors.Is(err, repository.ErrConflict):
			metrics.RecordLedgerConflict()
			continue
		case errors.Is(err, errNothingDue), errors.Is(err, auction.ErrNotFound):
			return "", nil
		case err != nil:
			return "", err
		}

		if !ended {
			metrics.RecordAuctionActivated()
			w.logger.Debug(ctx, "auction activated", logger.String("item_id", id))
			return item.Status, nil
		}
		metrics.RecordAuctionClosed(string(item.Status))
		s.publish(ctx, model.NewAuctionEnded(item, now))
		w.logger.Info(ctx, "auction closed",
			logger.String("item_id", id),
			logger.String("status", string(item.Status)),
			logger.String("winner_id", item.WinnerID),
			logger.String("final_price", item.FinalPrice().String()),
		)
		return item.Status, nil
	}
	return "", ErrContention
}
