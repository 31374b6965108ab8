package auction_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smartystreets/goconvey/convey"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
)

var now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func newItem(status auction.Status) auction.Item {
	return auction.Item{
		ID:        "lamp",
		SellerID:  "s1",
		BasePrice: decimal.NewFromInt(5),
		Status:    status,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	}
}

func TestLifecycle(t *testing.T) {
	convey.Convey("Given items in each status", t, func() {
		convey.Convey("Then only sold and expired count as closed", func() {
			convey.So(auction.StatusUpcoming.IsClosed(), convey.ShouldBeFalse)
			convey.So(auction.StatusActive.IsClosed(), convey.ShouldBeFalse)
			convey.So(auction.StatusSold.IsClosed(), convey.ShouldBeTrue)
			convey.So(auction.StatusExpired.IsClosed(), convey.ShouldBeTrue)
			convey.So(auction.Status("paused").Valid(), convey.ShouldBeFalse)
		})

		convey.Convey("When an upcoming item's start time has passed", func() {
			it := newItem(auction.StatusUpcoming)

			convey.Convey("Then it reads as active and accepts bids", func() {
				convey.So(it.Phase(now), convey.ShouldEqual, auction.StatusActive)
				convey.So(it.CheckBiddable(now), convey.ShouldBeNil)
				convey.So(it.DueForActivation(now), convey.ShouldBeTrue)
				convey.So(it.Activate(now), convey.ShouldBeTrue)
				convey.So(it.Status, convey.ShouldEqual, auction.StatusActive)
				convey.So(it.Activate(now), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When an upcoming item has not started", func() {
			it := newItem(auction.StatusUpcoming)
			it.StartTime = now.Add(time.Minute)

			convey.Convey("Then bids are refused as not started", func() {
				convey.So(errors.Is(it.CheckBiddable(now), auction.ErrAuctionNotStarted), convey.ShouldBeTrue)
				convey.So(it.Activate(now), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When an active item is past its end time", func() {
			it := newItem(auction.StatusActive)
			it.EndTime = now

			convey.Convey("Then bids are refused and it is due for close", func() {
				convey.So(errors.Is(it.CheckBiddable(now), auction.ErrAuctionClosed), convey.ShouldBeTrue)
				convey.So(it.DueForClose(now), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When closing with a winning bid", func() {
			it := newItem(auction.StatusActive)
			err := it.Close(&auction.Bid{BidderID: "b1", BidderName: "Bea", Amount: decimal.NewFromInt(42)})

			convey.Convey("Then it is sold to that bidder at that amount", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(it.Status, convey.ShouldEqual, auction.StatusSold)
				convey.So(it.WinnerID, convey.ShouldEqual, "b1")
				convey.So(it.FinalPrice().String(), convey.ShouldEqual, "42")
			})

			convey.Convey("Then closing again is refused and changes nothing", func() {
				convey.So(errors.Is(it.Close(nil), auction.ErrAuctionClosed), convey.ShouldBeTrue)
				convey.So(it.Status, convey.ShouldEqual, auction.StatusSold)
				convey.So(it.DueForClose(now.Add(2*time.Hour)), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When closing with no bids", func() {
			it := newItem(auction.StatusActive)

			convey.Convey("Then it expires without a winner", func() {
				convey.So(it.Close(nil), convey.ShouldBeNil)
				convey.So(it.Status, convey.ShouldEqual, auction.StatusExpired)
				convey.So(it.WinnerID, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestSelectWinningBid(t *testing.T) {
	convey.Convey("Given recorded bids", t, func() {
		amount := decimal.NewFromInt
		bids := []auction.Bid{
			{BidderID: "a", Amount: amount(10), Seq: 1, CreatedAt: now},
			{BidderID: "b", Amount: amount(30), Seq: 2, CreatedAt: now.Add(time.Second)},
			{BidderID: "a", Amount: amount(30), Seq: 3, CreatedAt: now.Add(time.Second), Auto: true},
			{BidderID: "c", Amount: amount(20), Seq: 4, CreatedAt: now.Add(2 * time.Second)},
		}

		convey.Convey("When the leader holds a tied amount", func() {
			win := auction.SelectWinningBid(bids, "a")

			convey.Convey("Then the leader's record wins", func() {
				convey.So(win.BidderID, convey.ShouldEqual, "a")
				convey.So(win.Seq, convey.ShouldEqual, int64(3))
			})
		})

		convey.Convey("When no leader is known", func() {
			win := auction.SelectWinningBid(bids, "")

			convey.Convey("Then the earliest of the tied records wins", func() {
				convey.So(win.BidderID, convey.ShouldEqual, "b")
			})
		})

		convey.Convey("When there are no bids", func() {
			convey.Convey("Then there is no winner", func() {
				convey.So(auction.SelectWinningBid(nil, "a"), convey.ShouldBeNil)
			})
		})
	})
}

func TestViewHidesCeiling(t *testing.T) {
	convey.Convey("Given an item with a leader and a private ceiling", t, func() {
		it := newItem(auction.StatusActive)
		it.WinnerID, it.WinnerName = "a", "Ann"
		it.CurrentBid = decimal.NewFromInt(7)
		it.HighestMaxBid = decimal.NewFromInt(99)

		convey.Convey("When projecting the view", func() {
			v := it.View(now, decimal.NewFromInt(1))

			convey.Convey("Then the visible fields are present", func() {
				convey.So(v.CurrentBid.String(), convey.ShouldEqual, "7")
				convey.So(v.MinimumNextBid.String(), convey.ShouldEqual, "8")
				convey.So(v.LeaderName, convey.ShouldEqual, "Ann")
			})
		})

		convey.Convey("When no one has bid", func() {
			fresh := newItem(auction.StatusActive)

			convey.Convey("Then the current price is the base price", func() {
				convey.So(fresh.CurrentPrice().String(), convey.ShouldEqual, "5")
			})
		})
	})
}

func TestErrorClassification(t *testing.T) {
	convey.Convey("Given wrapped engine errors", t, func() {
		convey.Convey("Then validation kinds are recognised and labelled", func() {
			wrapped := errors.Join(errors.New("ctx"), auction.ErrBidTooLow)
			convey.So(auction.IsValidation(wrapped), convey.ShouldBeTrue)
			convey.So(auction.Reason(wrapped), convey.ShouldEqual, "bid_too_low")
			convey.So(auction.IsValidation(errors.New("disk full")), convey.ShouldBeFalse)
			convey.So(auction.Reason(errors.New("disk full")), convey.ShouldEqual, "internal")
		})
	})
}
