// Package auction holds the item and bid records and the lifecycle rules over them.
package auction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an item.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusSold     Status = "sold"
	StatusExpired  Status = "expired"
)

// IsClosed is the only definition of an ended auction: sold or expired.
func (s Status) IsClosed() bool {
	return s == StatusSold || s == StatusExpired
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusSold, StatusExpired:
		return true
	}
	return false
}

// Bidder is the authenticated identity supplied by the auth boundary.
type Bidder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Item is the ledger record of one auction.
//
// HighestMaxBid is the leader's private ceiling. It never leaves the engine:
// external callers only ever see a View.
type Item struct {
	ID        string
	SellerID  string
	Title     string
	BasePrice decimal.Decimal

	CurrentBid    decimal.Decimal
	HighestMaxBid decimal.Decimal `json:"-"`
	WinnerID      string
	WinnerName    string

	Status    Status
	StartTime time.Time
	EndTime   time.Time

	// BidCount numbers bid records in insertion order.
	BidCount int64
	// Version increments on every committed mutation.
	Version   int64
	UpdatedAt time.Time
}

// HasLeader reports whether anyone has bid yet.
func (it *Item) HasLeader() bool {
	return it.WinnerID != ""
}

// IsLeader reports whether bidderID currently leads.
func (it *Item) IsLeader(bidderID string) bool {
	return it.HasLeader() && it.WinnerID == bidderID
}

// CurrentPrice is the visible price: the current bid once anyone has bid, else the base price.
func (it *Item) CurrentPrice() decimal.Decimal {
	if it.HasLeader() {
		return it.CurrentBid
	}
	return it.BasePrice
}

// MinimumNextBid is the lowest ceiling a challenger can submit without being rejected as too low.
func (it *Item) MinimumNextBid(increment decimal.Decimal) decimal.Decimal {
	return it.CurrentPrice().Add(increment)
}

// Phase returns the effective status at now, applying the lazy Upcoming to Active step.
func (it *Item) Phase(now time.Time) Status {
	if it.Status == StatusUpcoming && !now.Before(it.StartTime) {
		return StatusActive
	}
	return it.Status
}

// Activate performs the Upcoming to Active transition when start time has passed.
func (it *Item) Activate(now time.Time) bool {
	if it.Status != StatusUpcoming || now.Before(it.StartTime) {
		return false
	}
	it.Status = StatusActive
	return true
}

// CheckBiddable returns nil if a bid may be submitted at now.
// The end time is checked directly so that an item past its end is refused
// even before the sweeper has closed it.
func (it *Item) CheckBiddable(now time.Time) error {
	if it.Status.IsClosed() || !now.Before(it.EndTime) {
		return ErrAuctionClosed
	}
	if it.Phase(now) != StatusActive {
		return ErrAuctionNotStarted
	}
	return nil
}

// DueForClose reports whether the sweeper should close the item at now.
func (it *Item) DueForClose(now time.Time) bool {
	return !it.Status.IsClosed() && !now.Before(it.EndTime)
}

// DueForActivation reports whether the sweeper should activate the item at now.
func (it *Item) DueForActivation(now time.Time) bool {
	return it.Status == StatusUpcoming && !now.Before(it.StartTime) && now.Before(it.EndTime)
}

// Close moves the item to its terminal status. A nil winning bid expires it.
// Closing an already closed item returns ErrAuctionClosed and changes nothing.
func (it *Item) Close(winning *Bid) error {
	if it.Status.IsClosed() {
		return ErrAuctionClosed
	}
	if winning == nil {
		it.Status = StatusExpired
		it.WinnerID = ""
		it.WinnerName = ""
		return nil
	}
	it.Status = StatusSold
	it.WinnerID = winning.BidderID
	it.WinnerName = winning.BidderName
	it.CurrentBid = winning.Amount
	return nil
}

// FinalPrice is the price reported when the auction ends.
func (it *Item) FinalPrice() decimal.Decimal {
	return it.CurrentBid
}
