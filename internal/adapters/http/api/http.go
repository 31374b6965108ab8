// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	service "github.com/Yuvrajsinh007/BidCycle/internal/app"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/idempotency"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

// Identity headers set by the authenticating proxy in front of the engine.
const (
	HeaderBidderID       = "X-Bidder-ID"
	HeaderBidderName     = "X-Bidder-Name"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PlaceBid(ctx context.Context, itemID string, bidder auction.Bidder, amount decimal.Decimal) (service.BidResult, error)
	Item(ctx context.Context, id string) (auction.View, error)
	Bids(ctx context.Context, itemID string) ([]auction.Bid, error)
	BidderBids(ctx context.Context, bidderID string) ([]auction.Bid, error)
	WonAuctions(ctx context.Context, bidderID string) ([]auction.View, error)
	ActiveBids(ctx context.Context, bidderID string) ([]auction.BidderActivity, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	itemsHandler  *ItemsHandler
	bidsHandler   *BidsHandler
	bidderHandler *BidderHandler
	logger        logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("api")
	}
	if o.idempotency == nil {
		c, err := idempotency.New(0)
		if err != nil {
			panic(err)
		}
		o.idempotency = c
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider, o.sweeps),
		itemsHandler:  NewItemsHandler(deps),
		bidsHandler:   NewBidsHandler(deps, o.idempotency, o.logger),
		bidderHandler: NewBidderHandler(deps),
		logger:        o.logger,
	}
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(router *mux.Router) {
	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	router.HandleFunc("/items/{id}", MetricsMiddleware(s.itemsHandler.HandleGetItem, "item")).Methods(http.MethodGet)
	router.HandleFunc("/items/{id}/bids", MetricsMiddleware(s.bidsHandler.HandlePlaceBid, "place_bid")).Methods(http.MethodPost)
	router.HandleFunc("/items/{id}/bids", MetricsMiddleware(s.bidsHandler.HandleListBids, "item_bids")).Methods(http.MethodGet)

	bidders := router.PathPrefix("/bidders/{id}").Subrouter()
	bidders.HandleFunc("/bids", MetricsMiddleware(s.bidderHandler.HandleBids, "bidder_bids")).Methods(http.MethodGet)
	bidders.HandleFunc("/won", MetricsMiddleware(s.bidderHandler.HandleWon, "bidder_won")).Methods(http.MethodGet)
	bidders.HandleFunc("/active", MetricsMiddleware(s.bidderHandler.HandleActive, "bidder_active")).Methods(http.MethodGet)
}

// Router returns a router with every API route and request logging.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware(s.logger))
	s.Register(router)
	return router
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil && status != statusInternalError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError translates an engine error into its HTTP form.
func writeEngineError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
