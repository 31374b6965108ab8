package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/idempotency"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
	"github.com/Yuvrajsinh007/BidCycle/pkg/metrics"
)

const maxBidBody = 4 << 10

// bidRequest is the body of POST /items/{id}/bids. Amount is the bidder's
// private maximum and accepts either a JSON number or a decimal string.
type bidRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// BidsHandler handles bid submission and bid history.
type BidsHandler struct {
	deps   Dependencies
	cache  *idempotency.Cache
	logger logger.Logger
}

// NewBidsHandler creates a new bids handler.
func NewBidsHandler(deps Dependencies, cache *idempotency.Cache, l logger.Logger) *BidsHandler {
	return &BidsHandler{deps: deps, cache: cache, logger: l}
}

// HandlePlaceBid handles POST /items/{id}/bids.
func (h *BidsHandler) HandlePlaceBid(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]
	bidder := auction.Bidder{
		ID:   strings.TrimSpace(r.Header.Get(HeaderBidderID)),
		Name: strings.TrimSpace(r.Header.Get(HeaderBidderName)),
	}

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if key != "" && bidder.ID != "" {
		key = bidder.ID + "\x00" + itemID + "\x00" + key
		state, stored := h.cache.Begin(key)
		switch state {
		case idempotency.StateDone:
			metrics.RecordIdempotentReplay()
			w.Header().Set(HeaderReplayed, "true")
			writeRaw(w, stored.Status, stored.Body)
			return
		case idempotency.StatePending:
			writeError(w, http.StatusConflict, "request_in_progress", ErrInProgress)
			return
		}
	} else {
		key = ""
	}

	status, body := h.placeBid(r, itemID, bidder)
	if key != "" {
		if status < statusInternalError && status != http.StatusServiceUnavailable {
			h.cache.Complete(key, idempotency.Response{Status: status, Body: body})
		} else {
			h.cache.Release(key)
		}
	}
	writeRaw(w, status, body)
}

func (h *BidsHandler) placeBid(r *http.Request, itemID string, bidder auction.Bidder) (int, []byte) {
	var req bidRequest
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBidBody))
	if err := dec.Decode(&req); err != nil {
		return encode(http.StatusBadRequest, errorResponse{Code: "bad_request", Message: fmt.Sprintf("invalid body: %v", err)})
	}
	if req.Amount == nil {
		return encode(http.StatusBadRequest, errorResponse{Code: "bad_request", Message: "missing amount"})
	}

	res, err := h.deps.PlaceBid(r.Context(), itemID, bidder, *req.Amount)
	if err != nil {
		status, code := statusFor(err)
		if status == statusInternalError {
			h.logger.Error(r.Context(), "placing bid",
				logger.String("item_id", itemID),
				logger.String("bidder_id", bidder.ID),
				logger.Error(err),
			)
		}
		msg := err.Error()
		if status == statusInternalError {
			msg = http.StatusText(status)
		}
		return encode(status, errorResponse{Code: code, Message: msg})
	}
	return encode(http.StatusCreated, res)
}

// HandleListBids handles GET /items/{id}/bids. Only visible amounts are ever
// stored in bid records, so the history is returned as is.
func (h *BidsHandler) HandleListBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.deps.Bids(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if bids == nil {
		bids = []auction.Bid{}
	}
	writeJSON(w, http.StatusOK, bids)
}

func encode(status int, v any) (int, []byte) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return http.StatusInternalServerError, []byte(`{"code":"internal","message":"Internal Server Error"}` + "\n")
	}
	return status, buf.Bytes()
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
