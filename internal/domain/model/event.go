// Package model contains the notification events passed between the engine and the fan-out layer.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
)

// EventType names a notification.
type EventType string

const (
	EventBidUpdate    EventType = "bid_update"
	EventAuctionEnded EventType = "auction_ended"
)

// Event is one notification on an item's topic. Seq is the item version that
// produced it, so consumers can order and de-duplicate per item.
type Event struct {
	ID           string        `json:"id"`
	Type         EventType     `json:"type"`
	ItemID       string        `json:"itemId"`
	Seq          int64         `json:"seq"`
	At           time.Time     `json:"at"`
	BidUpdate    *BidUpdate    `json:"bidUpdate,omitempty"`
	AuctionEnded *AuctionEnded `json:"auctionEnded,omitempty"`
}

// BidUpdate carries the new visible price and leader.
type BidUpdate struct {
	CurrentBid decimal.Decimal `json:"currentBid"`
	LeaderName string          `json:"leaderName"`
	Outcome    string          `json:"outcome"`
}

// Winner identifies the buyer of a sold item.
type Winner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuctionEnded announces the terminal state. Winner is null for expired items.
type AuctionEnded struct {
	Status     auction.Status  `json:"status"`
	Winner     *Winner         `json:"winner"`
	FinalPrice decimal.Decimal `json:"finalPrice"`
}

// NewBidUpdate builds the event for a committed resolution.
func NewBidUpdate(item auction.Item, outcome string, at time.Time) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   EventBidUpdate,
		ItemID: item.ID,
		Seq:    item.Version,
		At:     at,
		BidUpdate: &BidUpdate{
			CurrentBid: item.CurrentPrice(),
			LeaderName: item.WinnerName,
			Outcome:    outcome,
		},
	}
}

// NewAuctionEnded builds the event for a committed close.
func NewAuctionEnded(item auction.Item, at time.Time) Event {
	ended := &AuctionEnded{Status: item.Status, FinalPrice: item.FinalPrice()}
	if item.Status == auction.StatusSold {
		ended.Winner = &Winner{ID: item.WinnerID, Name: item.WinnerName}
	}
	return Event{
		ID:           uuid.NewString(),
		Type:         EventAuctionEnded,
		ItemID:       item.ID,
		Seq:          item.Version,
		At:           at,
		AuctionEnded: ended,
	}
}
