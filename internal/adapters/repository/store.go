// Package repository is the ledger: durable item records with atomic
// read-modify-write, and append-only bid records.
package repository

import (
	"context"
	"time"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
)

// Mutation edits a copy of the current item and returns the bids to append.
// Returning an error aborts the update and nothing is written. A Store calls
// a Mutation at most once per Update.
type Mutation func(item *auction.Item) ([]auction.Bid, error)

// Store provides read/write access to items and bids.
type Store interface {
	// Create inserts a catalog item. Returns ErrItemExists on duplicate ids.
	Create(ctx context.Context, item auction.Item) error

	// Get returns the item or auction.ErrNotFound.
	Get(ctx context.Context, id string) (auction.Item, error)

	// Update applies fn and commits the item together with the returned bids,
	// provided nobody else committed in between. Otherwise it returns
	// ErrConflict and the caller should re-read and retry.
	Update(ctx context.Context, id string, fn Mutation) (auction.Item, error)

	// ListDue returns non-closed items that are due for activation or close at now.
	ListDue(ctx context.Context, now time.Time) ([]auction.Item, error)

	// Bids returns an item's bids in insertion order.
	Bids(ctx context.Context, itemID string) ([]auction.Bid, error)

	// BidsByBidder returns every bid recorded for a bidder, oldest first.
	BidsByBidder(ctx context.Context, bidderID string) ([]auction.Bid, error)

	// WonBy returns sold items whose winner is bidderID.
	WonBy(ctx context.Context, bidderID string) ([]auction.Item, error)

	// Count returns the number of items.
	Count(ctx context.Context) (int, error)

	Close() error
}

// commitVersion stamps the next version on a mutated item.
func commitVersion(item *auction.Item, prev int64, now time.Time) {
	item.Version = prev + 1
	if item.UpdatedAt.IsZero() || item.UpdatedAt.Before(now) {
		item.UpdatedAt = now
	}
}

func validateNew(item auction.Item) error {
	switch {
	case item.ID == "":
		return ErrInvalidItem
	case !item.BasePrice.IsPositive():
		return ErrInvalidItem
	case !item.EndTime.After(item.StartTime):
		return ErrInvalidItem
	case item.Status != "" && !item.Status.Valid():
		return ErrInvalidItem
	}
	return nil
}

// prepareNew fills defaults on an item entering the ledger.
func prepareNew(item auction.Item, now time.Time) auction.Item {
	if item.Status == "" {
		item.Status = auction.StatusUpcoming
	}
	item.Version = 1
	item.UpdatedAt = now
	return item
}
