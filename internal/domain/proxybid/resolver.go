// Package proxybid resolves a bidder's private maximum against an item's
// current state, English auction style with automatic bidding.
//
// Resolve is pure: it receives a copy of the item and returns the next
// state and the bid records to append. Persisting them atomically is the
// caller's job.
package proxybid

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
)

// DefaultIncrement is the step used when none is configured.
var DefaultIncrement = decimal.NewFromInt(1)

// Request is one bid submission.
type Request struct {
	Bidder       auction.Bidder
	CandidateMax decimal.Decimal
	Increment    decimal.Decimal
	Now          time.Time
	// NewID generates bid ids; uuid when nil.
	NewID func() string
}

// Resolution is the result of a successful resolve.
type Resolution struct {
	Outcome Outcome
	// Item is the next item state, not yet persisted.
	Item auction.Item
	// Bids are the records to append, in insertion order.
	Bids []auction.Bid
}

// CurrentBid is the visible price after resolution.
func (r Resolution) CurrentBid() decimal.Decimal {
	return r.Item.CurrentPrice()
}

// LeaderName is the display name of the leader after resolution.
func (r Resolution) LeaderName() string {
	return r.Item.WinnerName
}

// Resolve validates the submission and computes the next state. On error the
// returned Resolution is empty and the caller must not write anything.
func Resolve(item auction.Item, req Request) (Resolution, error) {
	inc := req.Increment
	if !inc.IsPositive() {
		inc = DefaultIncrement
	}
	if err := validate(&item, req); err != nil {
		return Resolution{}, err
	}

	item.Activate(req.Now)
	r := resolver{item: item, req: req, inc: inc}
	switch {
	case !r.item.HasLeader():
		r.firstBid()
	case r.item.IsLeader(req.Bidder.ID):
		if !req.CandidateMax.GreaterThan(r.item.HighestMaxBid) {
			return Resolution{}, auction.ErrMaxBidNotHigher
		}
		r.raiseMax()
	case req.CandidateMax.GreaterThan(r.item.HighestMaxBid):
		r.newLeader()
	default:
		r.defend()
	}
	r.item.UpdatedAt = req.Now
	return Resolution{Outcome: r.outcome, Item: r.item, Bids: r.bids}, nil
}

func validate(item *auction.Item, req Request) error {
	if err := item.CheckBiddable(req.Now); err != nil {
		return err
	}
	if req.Bidder.ID == item.SellerID {
		return auction.ErrSelfBidForbidden
	}
	if !req.CandidateMax.IsPositive() {
		return auction.ErrInvalidAmount
	}
	if !item.IsLeader(req.Bidder.ID) && !req.CandidateMax.GreaterThan(item.CurrentPrice()) {
		return auction.ErrBidTooLow
	}
	return nil
}

type resolver struct {
	item    auction.Item
	req     Request
	inc     decimal.Decimal
	outcome Outcome
	bids    []auction.Bid
}

func (r *resolver) firstBid() {
	r.item.CurrentBid = r.item.BasePrice
	r.item.HighestMaxBid = r.req.CandidateMax
	r.setLeader(r.req.Bidder)
	r.record(r.req.Bidder, r.item.BasePrice, false)
	r.outcome = OutcomeFirstBid
}

// raiseMax changes only the hidden ceiling.
func (r *resolver) raiseMax() {
	r.item.HighestMaxBid = r.req.CandidateMax
	r.outcome = OutcomeMaxBidRaised
}

// newLeader: the challenger's ceiling beats the incumbent's. The price moves
// one increment past the old ceiling, capped by the new one.
func (r *resolver) newLeader() {
	price := decimal.Min(r.item.HighestMaxBid.Add(r.inc), r.req.CandidateMax)
	r.item.CurrentBid = price
	r.item.HighestMaxBid = r.req.CandidateMax
	r.setLeader(r.req.Bidder)
	r.record(r.req.Bidder, price, false)
	r.outcome = OutcomeNewLeader
}

// defend: the challenger's ceiling does not beat the incumbent's. The attempt
// is recorded, then the engine counter-bids for the leader.
func (r *resolver) defend() {
	challenge := r.req.CandidateMax
	price := decimal.Min(challenge.Add(r.inc), r.item.HighestMaxBid)
	leader := auction.Bidder{ID: r.item.WinnerID, Name: r.item.WinnerName}

	r.record(r.req.Bidder, challenge, false)
	r.record(leader, price, true)
	r.item.CurrentBid = price

	r.outcome = OutcomeOutbidAutomatically
	if price.Equal(challenge) {
		r.outcome = OutcomeTiedButEarlier
	}
}

func (r *resolver) setLeader(b auction.Bidder) {
	r.item.WinnerID = b.ID
	r.item.WinnerName = b.Name
}

func (r *resolver) record(b auction.Bidder, amount decimal.Decimal, auto bool) {
	newID := r.req.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	r.item.BidCount++
	r.bids = append(r.bids, auction.Bid{
		ID:         newID(),
		ItemID:     r.item.ID,
		BidderID:   b.ID,
		BidderName: b.Name,
		Amount:     amount,
		Auto:       auto,
		Seq:        r.item.BidCount,
		CreatedAt:  r.req.Now,
	})
}
