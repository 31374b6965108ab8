package auction

import (
	"time"

	"github.com/shopspring/decimal"
)

// View is the external projection of an Item. It has no ceiling field.
type View struct {
	ID             string          `json:"id"`
	SellerID       string          `json:"sellerId"`
	Title          string          `json:"title,omitempty"`
	BasePrice      decimal.Decimal `json:"basePrice"`
	CurrentBid     decimal.Decimal `json:"currentBid"`
	MinimumNextBid decimal.Decimal `json:"minimumNextBid"`
	LeaderID       string          `json:"leaderId,omitempty"`
	LeaderName     string          `json:"leaderName,omitempty"`
	Status         Status          `json:"status"`
	StartTime      time.Time       `json:"startTime"`
	EndTime        time.Time       `json:"endTime"`
	Version        int64           `json:"version"`
}

// View projects the item at now, with the lazy phase applied.
func (it *Item) View(now time.Time, increment decimal.Decimal) View {
	return View{
		ID:             it.ID,
		SellerID:       it.SellerID,
		Title:          it.Title,
		BasePrice:      it.BasePrice,
		CurrentBid:     it.CurrentPrice(),
		MinimumNextBid: it.MinimumNextBid(increment),
		LeaderID:       it.WinnerID,
		LeaderName:     it.WinnerName,
		Status:         it.Phase(now),
		StartTime:      it.StartTime,
		EndTime:        it.EndTime,
		Version:        it.Version,
	}
}

// BidderActivity summarises an item from one bidder's point of view.
type BidderActivity struct {
	Item      View            `json:"item"`
	LastBid   decimal.Decimal `json:"lastBid"`
	BidCount  int             `json:"bidCount"`
	IsLeading bool            `json:"isLeading"`
	LastBidAt time.Time       `json:"lastBidAt"`
}
