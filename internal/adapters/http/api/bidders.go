package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
)

// BidderHandler serves a bidder's own history.
type BidderHandler struct {
	deps Dependencies
}

// NewBidderHandler creates a new bidder handler.
func NewBidderHandler(deps Dependencies) *BidderHandler {
	return &BidderHandler{deps: deps}
}

// HandleBids handles GET /bidders/{id}/bids.
func (h *BidderHandler) HandleBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.deps.BidderBids(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if bids == nil {
		bids = []auction.Bid{}
	}
	writeJSON(w, http.StatusOK, bids)
}

// HandleWon handles GET /bidders/{id}/won.
func (h *BidderHandler) HandleWon(w http.ResponseWriter, r *http.Request) {
	won, err := h.deps.WonAuctions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, won)
}

// HandleActive handles GET /bidders/{id}/active.
func (h *BidderHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	active, err := h.deps.ActiveBids(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, active)
}
