package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

type recordingSink struct {
	mu     sync.Mutex
	byItem map[string][]int64
	fail   bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{byItem: map[string][]int64{}}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, e model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byItem[e.ItemID] = append(s.byItem[e.ItemID], e.Seq)
	if s.fail {
		return errors.New("sink down")
	}
	return nil
}

func (s *recordingSink) seqs(item string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.byItem[item]...)
}

func TestDispatcher(t *testing.T) {
	Convey("Given a started dispatcher with two sinks", t, func() {
		ctx := context.Background()
		a, b := newRecordingSink(), newRecordingSink()
		b.fail = true
		d := NewDispatcher([]Sink{a, b}, WithShards(3), WithQueueSize(256), WithLogger(logger.Nop()))
		d.Start(ctx)

		Convey("When events for several items are published in order", func() {
			for seq := int64(1); seq <= 50; seq++ {
				for i := 0; i < 4; i++ {
					So(d.Publish(ctx, model.Event{ItemID: fmt.Sprintf("item-%d", i), Seq: seq}), ShouldBeTrue)
				}
			}
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(d.Shutdown(shutdownCtx), ShouldBeNil)

			Convey("Then every sink sees each item's events in publish order", func() {
				for i := 0; i < 4; i++ {
					for _, sink := range []*recordingSink{a, b} {
						got := sink.seqs(fmt.Sprintf("item-%d", i))
						So(len(got), ShouldEqual, 50)
						for j := 1; j < len(got); j++ {
							So(got[j], ShouldEqual, got[j-1]+1)
						}
					}
				}
				So(d.Depth(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a dispatcher that is not draining", t, func() {
		ctx := context.Background()
		d := NewDispatcher([]Sink{newRecordingSink()}, WithShards(1), WithQueueSize(1), WithLogger(logger.Nop()))

		Convey("When the shard is full", func() {
			first := d.Publish(ctx, model.Event{ItemID: "x", Seq: 1})
			second := d.Publish(ctx, model.Event{ItemID: "x", Seq: 2})

			Convey("Then the overflow is dropped without blocking", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				So(d.Shards(), ShouldEqual, 1)
				So(d.Shutdown(ctx), ShouldBeNil)
			})
		})
	})
}
