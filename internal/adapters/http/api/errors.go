package api

import (
	"errors"
	"net/http"

	service "github.com/Yuvrajsinh007/BidCycle/internal/app"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrInProgress = errors.New("a request with this idempotency key is still running")
)

// statusFor maps an engine error to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrMissingBidder):
		return http.StatusUnauthorized, "missing_bidder"
	case errors.Is(err, service.ErrContention):
		return http.StatusServiceUnavailable, "contention"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, auction.ErrNotFound):
		return http.StatusNotFound, auction.Reason(err)
	case errors.Is(err, auction.ErrAuctionClosed), errors.Is(err, auction.ErrAuctionNotStarted):
		return http.StatusConflict, auction.Reason(err)
	case errors.Is(err, auction.ErrSelfBidForbidden):
		return http.StatusForbidden, auction.Reason(err)
	case auction.IsValidation(err):
		return http.StatusBadRequest, auction.Reason(err)
	default:
		return http.StatusInternalServerError, "internal"
	}
}
