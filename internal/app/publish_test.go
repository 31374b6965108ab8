package service_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/fanout"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/mq/worker"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/repository"
	service "github.com/Yuvrajsinh007/BidCycle/internal/app"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

// cancelOnBids cancels the caller's context as soon as the sweeper reads the
// bid list, so the close commits under a context that is already done.
type cancelOnBids struct {
	repository.Store
	cancel context.CancelFunc
}

func (s *cancelOnBids) Bids(ctx context.Context, id string) ([]auction.Bid, error) {
	bids, err := s.Store.Bids(ctx, id)
	s.cancel()
	return bids, err
}

type pipeline struct {
	svc        *service.Service
	store      *repository.MemoryStore
	hub        *fanout.Hub
	dispatcher *worker.Dispatcher
	clock      *fakeClock
}

// newPipeline wires the engine to a real dispatcher and hub.
func newPipeline(wrap func(repository.Store) repository.Store) *pipeline {
	ctx := context.Background()
	p := &pipeline{
		store: repository.NewMemoryStore(ctx),
		hub:   fanout.NewHub(fanout.WithLogger(logger.Nop())),
		clock: &fakeClock{t: base},
	}
	p.dispatcher = worker.NewDispatcher([]worker.Sink{p.hub}, worker.WithShards(2), worker.WithLogger(logger.Nop()))
	p.dispatcher.Start(ctx)

	var store repository.Store = p.store
	if wrap != nil {
		store = wrap(p.store)
	}
	p.svc = service.New(
		service.WithStore(store),
		service.WithPublisher(p.dispatcher),
		service.WithClock(p.clock.Now),
		service.WithIncrement(d(1)),
		service.WithLogger(logger.Nop()),
	)
	if err := p.svc.Start(ctx); err != nil {
		panic(err)
	}
	err := p.store.Create(ctx, auction.Item{
		ID: "lot", SellerID: "seller", BasePrice: d(10),
		StartTime: base.Add(-time.Minute), EndTime: base.Add(time.Hour),
	})
	if err != nil {
		panic(err)
	}
	return p
}

func (p *pipeline) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = p.dispatcher.Shutdown(ctx)
	p.hub.Close()
	p.svc.Stop()
}

func nextEvent(sub *fanout.Subscription) (model.Event, bool) {
	select {
	case e, ok := <-sub.Events():
		return e, ok
	case <-time.After(2 * time.Second):
		return model.Event{}, false
	}
}

func TestService_PublishAfterCallerCancels(t *testing.T) {
	Convey("Given an engine feeding a live hub subscriber", t, func() {
		var cancelSweep context.CancelFunc
		p := newPipeline(func(s repository.Store) repository.Store {
			return &cancelOnBids{Store: s, cancel: func() { cancelSweep() }}
		})
		defer p.stop()
		sub, err := p.hub.Subscribe("lot")
		So(err, ShouldBeNil)
		defer sub.Close()

		Convey("When a bid is placed with a context that is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res, err := p.svc.PlaceBid(ctx, "lot", auction.Bidder{ID: "alice", Name: "Alice"}, d(20))

			Convey("Then the committed bid still reaches the subscriber", func() {
				So(err, ShouldBeNil)
				So(string(res.Outcome), ShouldEqual, "first_bid")

				e, ok := nextEvent(sub)
				So(ok, ShouldBeTrue)
				So(e.Type, ShouldEqual, model.EventBidUpdate)
				So(e.Seq, ShouldEqual, res.Item.Version)
			})
		})

		Convey("When the sweeper's context is cancelled while it closes the item", func() {
			_, err := p.svc.PlaceBid(context.Background(), "lot", auction.Bidder{ID: "alice", Name: "Alice"}, d(20))
			So(err, ShouldBeNil)
			first, ok := nextEvent(sub)
			So(ok, ShouldBeTrue)
			So(first.Type, ShouldEqual, model.EventBidUpdate)

			ctx, cancel := context.WithCancel(context.Background())
			cancelSweep = cancel
			defer cancel()
			report := service.NewSweeper(p.svc).SweepOnce(ctx, base.Add(2*time.Hour))

			Convey("Then the close is committed and announced", func() {
				So(report.Sold, ShouldEqual, 1)

				e, ok := nextEvent(sub)
				So(ok, ShouldBeTrue)
				So(e.Type, ShouldEqual, model.EventAuctionEnded)
				So(e.AuctionEnded, ShouldNotBeNil)
			})
		})
	})
}
