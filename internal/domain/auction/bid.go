package auction

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Bid is an immutable record of a visible price reached on an item.
type Bid struct {
	ID         string          `json:"id"`
	ItemID     string          `json:"itemId"`
	BidderID   string          `json:"bidderId"`
	BidderName string          `json:"bidderName"`
	Amount     decimal.Decimal `json:"amount"`
	// Auto marks a counter-bid placed by the engine on the leader's behalf.
	Auto      bool      `json:"auto"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
}

// SelectWinningBid picks the highest bid. Equal amounts go to the recorded
// leader, whose ceiling arrived first, then to the earliest record.
func SelectWinningBid(bids []Bid, leaderID string) *Bid {
	var best *Bid
	for i := range bids {
		b := &bids[i]
		if best == nil || beats(b, best, leaderID) {
			best = b
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func beats(b, best *Bid, leaderID string) bool {
	if c := b.Amount.Cmp(best.Amount); c != 0 {
		return c > 0
	}
	bLeads, bestLeads := leaderID != "" && b.BidderID == leaderID, leaderID != "" && best.BidderID == leaderID
	if bLeads != bestLeads {
		return bLeads
	}
	if !b.CreatedAt.Equal(best.CreatedAt) {
		return b.CreatedAt.Before(best.CreatedAt)
	}
	return b.Seq < best.Seq
}

// SortBids orders bids by insertion, oldest first.
func SortBids(bids []Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		a, b := bids[i], bids[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		return a.Seq < b.Seq
	})
}
