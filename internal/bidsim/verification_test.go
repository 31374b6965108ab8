package bidsim

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func accepted(bidder string, ceiling, version, price int64) Observation {
	return Observation{
		Submission: Submission{BidderID: bidder, Ceiling: d(ceiling)},
		Status:     StatusCreated,
		CurrentBid: d(price),
		Version:    version,
		Body:       []byte(`{"outcome":"new_leader","currentBid":"` + d(price).String() + `"}`),
	}
}

func rejected(bidder string, ceiling int64) Observation {
	return Observation{
		Submission: Submission{BidderID: bidder, Ceiling: d(ceiling)},
		Status:     400,
		Code:       "bid_too_low",
		Body:       []byte(`{"code":"bid_too_low","message":"too low"}`),
	}
}

func TestVerification(t *testing.T) {
	Convey("Given the responses of a correct engine", t, func() {
		// base 10, increment 1: a leads at 50, b is defended at 31, c ties
		// at 50 and stays behind the earlier ceiling.
		obs := []Observation{
			accepted("c", 50, 3, 50),
			accepted("a", 50, 1, 10),
			rejected("b", 20),
			accepted("b", 30, 2, 31),
		}
		initial := auction.View{ID: "lot", BasePrice: d(10), CurrentBid: d(10)}
		final := auction.View{ID: "lot", BasePrice: d(10), CurrentBid: d(50), LeaderID: "a"}

		Convey("When the results are verified", func() {
			err := verifyResults(context.Background(), obs, initial, final, d(1))

			Convey("Then every check passes", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When the expectation is derived", func() {
			exp, ok := expectedOutcome(obs, initial, d(1))

			Convey("Then the earliest top ceiling leads at the capped runner-up price", func() {
				So(ok, ShouldBeTrue)
				So(exp.LeaderID, ShouldEqual, "a")
				So(exp.PriceKnown, ShouldBeTrue)
				So(exp.Price.Equal(d(50)), ShouldBeTrue)
			})
		})

		Convey("When the item had a leader before the run", func() {
			held := initial
			held.LeaderID = "early"
			exp, ok := expectedOutcome(obs, held, d(1))
			kept := final
			kept.LeaderID = "early"

			Convey("Then either the top ceiling or the incumbent may lead", func() {
				So(ok, ShouldBeTrue)
				So(exp.LeaderID, ShouldEqual, "a")
				So(exp.Incumbent, ShouldEqual, "early")
				So(exp.PriceKnown, ShouldBeFalse)
				So(checkFinalState(exp, kept), ShouldBeNil)
				So(checkFinalState(exp, final), ShouldBeNil)

				kept.LeaderID = "c"
				So(checkFinalState(exp, kept), ShouldNotBeNil)
			})
		})

		Convey("When the final state disagrees", func() {
			wrongLeader := final
			wrongLeader.LeaderID = "c"
			wrongPrice := final
			wrongPrice.CurrentBid = d(51)

			Convey("Then both mismatches are reported", func() {
				err := verifyResults(context.Background(), obs, initial, wrongLeader, d(1))
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, `leader is "c"`)

				err = verifyResults(context.Background(), obs, initial, wrongPrice, d(1))
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "final price is 51")
			})
		})

		Convey("When a response was lost in transit", func() {
			lost := append(obs, Observation{Submission: Submission{BidderID: "z", Ceiling: d(900)}, Err: errors.New("reset")})
			wrongLeader := final
			wrongLeader.LeaderID = "z"

			Convey("Then the leader check is skipped", func() {
				So(verifyResults(context.Background(), lost, initial, wrongLeader, d(1)), ShouldBeNil)
			})
		})
	})

	Convey("Given a lone bidder", t, func() {
		obs := []Observation{accepted("a", 70, 1, 10), accepted("a", 90, 2, 10)}
		initial := auction.View{ID: "lot", BasePrice: d(10)}

		Convey("When the expectation is derived", func() {
			exp, ok := expectedOutcome(obs, initial, d(1))

			Convey("Then the price stays at the base", func() {
				So(ok, ShouldBeTrue)
				So(exp.LeaderID, ShouldEqual, "a")
				So(exp.Price.Equal(d(10)), ShouldBeTrue)
			})
		})
	})

	Convey("Given no accepted bids", t, func() {
		_, ok := expectedOutcome([]Observation{rejected("a", 5)}, auction.View{BasePrice: d(10)}, d(1))

		Convey("Then nothing can be predicted", func() {
			So(ok, ShouldBeFalse)
		})
	})
}

func TestPriceChecks(t *testing.T) {
	Convey("Given accepted responses ordered by version", t, func() {
		Convey("When the price drops between versions", func() {
			err := checkMonotonicPrice([]Observation{accepted("a", 50, 2, 20), accepted("b", 60, 3, 15)})

			Convey("Then the drop is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "dropped from 20")
			})
		})

		Convey("When two responses claim the same version", func() {
			err := checkMonotonicPrice([]Observation{accepted("a", 50, 2, 20), accepted("b", 60, 2, 21)})

			Convey("Then the duplicate is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "share version 2")
			})
		})
	})

	Convey("Given response bodies", t, func() {
		clean := accepted("a", 50, 1, 10)
		leaky := accepted("b", 60, 2, 51)
		leaky.Body = []byte(`{"outcome":"new_leader","item":{"id":"lot","highestMaxBid":"60"}}`)
		listed := rejected("c", 5)
		listed.Body = []byte(`[{"id":"1"},{"maxBid":"5"}]`)

		Convey("Then clean bodies pass and nested ceiling fields are caught", func() {
			So(checkNoCeilingLeak([]Observation{clean}), ShouldBeNil)

			err := checkNoCeilingLeak([]Observation{clean, leaky})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "highestMaxBid")

			So(checkNoCeilingLeak([]Observation{listed}), ShouldNotBeNil)
		})
	})
}

func TestGenerateSubmissions(t *testing.T) {
	Convey("Given a simulation config", t, func() {
		config := &Config{Bidders: 5, BidsPerBidder: 3, Spread: 20}

		Convey("When submissions are generated", func() {
			subs, err := generateSubmissions(context.Background(), config, d(100))

			Convey("Then every bidder gets its ceilings inside the range", func() {
				So(err, ShouldBeNil)
				So(subs, ShouldHaveLength, 15)
				perBidder := map[string]int{}
				for i, s := range subs {
					So(s.Index, ShouldEqual, i)
					So(s.Ceiling.GreaterThan(d(100)), ShouldBeTrue)
					So(s.Ceiling.LessThanOrEqual(d(120)), ShouldBeTrue)
					perBidder[s.BidderID]++
				}
				So(perBidder, ShouldHaveLength, 5)
				for _, n := range perBidder {
					So(n, ShouldEqual, 3)
				}
			})
		})

		Convey("When the counts are not positive", func() {
			_, err := generateSubmissions(context.Background(), &Config{}, d(100))

			Convey("Then generation fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
