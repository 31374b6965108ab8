package service

import "errors"

var (
	// ErrContention is returned when a bid could not be committed within the
	// configured number of attempts because the item kept changing.
	ErrContention = errors.New("item is under heavy contention, retry")

	// ErrMissingBidder is returned when a bid has no bidder identity.
	ErrMissingBidder = errors.New("bidder id is required")

	// ErrNotStarted is returned by operations invoked before Start.
	ErrNotStarted = errors.New("service not started")
)
