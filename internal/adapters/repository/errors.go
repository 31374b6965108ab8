package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrConflict    = errors.New("item modified concurrently")
	ErrItemExists  = errors.New("item already exists")
	ErrInvalidItem = errors.New("invalid item")
	ErrClosed      = errors.New("store closed")
)
