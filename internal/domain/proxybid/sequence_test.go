package proxybid

import (
	"testing"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
)

func TestBiddingSequence(t *testing.T) {
	Convey("Given an active item with base price 10", t, func() {
		item := activeItem()
		var ledger []auction.Bid
		apply := func(b auction.Bidder, max string) Resolution {
			res, err := Resolve(item, req(b, max))
			So(err, ShouldBeNil)
			item = res.Item
			ledger = append(ledger, res.Bids...)
			return res
		}

		Convey("When a series of valid bids arrives", func() {
			prices := []decimal.Decimal{}
			for _, step := range []struct {
				b   auction.Bidder
				max string
			}{
				{alice, "20"}, {bob, "15"}, {bob, "19"}, {carol, "35"}, {alice, "30"}, {carol, "50"}, {bob, "49"},
			} {
				apply(step.b, step.max)
				prices = append(prices, item.CurrentPrice())
			}

			Convey("Then the visible price never decreases nor exceeds the leader ceiling", func() {
				for i := 1; i < len(prices); i++ {
					So(prices[i].GreaterThanOrEqual(prices[i-1]), ShouldBeTrue)
				}
				So(item.CurrentBid.LessThanOrEqual(item.HighestMaxBid), ShouldBeTrue)
			})

			Convey("Then the leader holds the top ceiling at one increment over the runner-up", func() {
				So(item.WinnerID, ShouldEqual, carol.ID)
				So(item.CurrentBid.String(), ShouldEqual, "50")
			})

			Convey("Then the winning bid selected from the records is the leader's", func() {
				win := auction.SelectWinningBid(ledger, item.WinnerID)
				So(win, ShouldNotBeNil)
				So(win.BidderID, ShouldEqual, carol.ID)
				So(win.Amount.Equal(item.CurrentBid), ShouldBeTrue)
			})
		})

		Convey("When a challenger exactly ties the leader ceiling", func() {
			apply(alice, "30")
			res := apply(bob, "30")

			Convey("Then the incumbent keeps the item and wins the tie at close", func() {
				So(res.Outcome, ShouldEqual, OutcomeTiedButEarlier)
				win := auction.SelectWinningBid(ledger, item.WinnerID)
				So(win.BidderID, ShouldEqual, alice.ID)
				So(win.Amount.String(), ShouldEqual, "30")
			})
		})
	})
}

func TestConcurrentChallengersConverge(t *testing.T) {
	Convey("Given a leader with ceiling 40", t, func() {
		start := withLeader(alice, "10", "40")

		Convey("When challengers 50 and 60 are applied in either order", func() {
			run := func(first, second Request) auction.Item {
				r1, err := Resolve(start, first)
				So(err, ShouldBeNil)
				r2, err := Resolve(r1.Item, second)
				So(err, ShouldBeNil)
				return r2.Item
			}
			a := run(req(bob, "50"), req(carol, "60"))
			b := run(req(carol, "60"), req(bob, "50"))

			Convey("Then the winner and price agree", func() {
				So(a.WinnerID, ShouldEqual, carol.ID)
				So(b.WinnerID, ShouldEqual, carol.ID)
				So(a.CurrentBid.String(), ShouldEqual, "51")
				So(b.CurrentBid.String(), ShouldEqual, "51")
			})
		})
	})
}
