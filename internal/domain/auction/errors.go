package auction

import (
	"errors"
)

// Client-correctable failures. They are detected before any write.
var (
	ErrNotFound          = errors.New("auction not found")
	ErrAuctionNotStarted = errors.New("auction has not started")
	ErrAuctionClosed     = errors.New("auction is closed")
	ErrSelfBidForbidden  = errors.New("seller cannot bid on own item")
	ErrInvalidAmount     = errors.New("bid amount must be positive")
	ErrBidTooLow         = errors.New("bid must exceed the current price")
	ErrMaxBidNotHigher   = errors.New("new maximum must exceed your current maximum")
)

var validationErrors = []error{
	ErrNotFound,
	ErrAuctionNotStarted,
	ErrAuctionClosed,
	ErrSelfBidForbidden,
	ErrInvalidAmount,
	ErrBidTooLow,
	ErrMaxBidNotHigher,
}

// IsValidation reports whether err is one of the client-correctable kinds.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Reason maps an error to a short label used in metrics and API payloads.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuctionNotStarted):
		return "auction_not_started"
	case errors.Is(err, ErrAuctionClosed):
		return "auction_closed"
	case errors.Is(err, ErrSelfBidForbidden):
		return "self_bid_forbidden"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrBidTooLow):
		return "bid_too_low"
	case errors.Is(err, ErrMaxBidNotHigher):
		return "max_bid_not_higher"
	default:
		return "internal"
	}
}
