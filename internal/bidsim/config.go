package bidsim

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
)

// Config holds configuration for a simulation run
type Config struct {
	BaseURL       string        // Base URL of the service
	ItemID        string        // Item to bid on
	Bidders       int           // Number of simulated bidders
	BidsPerBidder int           // Ceilings each bidder submits
	Spread        int64         // Ceilings are drawn from (base, base+Spread]
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	LogFile       string        // Log file for simulator output
	Verbose       bool          // Enable verbose logging
}

// Submission is one ceiling a simulated bidder sends.
type Submission struct {
	Index      int
	BidderID   string
	BidderName string
	Ceiling    decimal.Decimal
}

// Observation is what the service answered to one submission.
type Observation struct {
	Submission
	Status  int
	Code    string
	Outcome string
	// CurrentBid and Version are only set for accepted submissions.
	CurrentBid decimal.Decimal
	Version    int64
	Body       []byte
	Err        error
}

// Accepted reports whether the submission was recorded by the engine.
func (o Observation) Accepted() bool {
	return o.Err == nil && o.Status == StatusCreated
}

// bidResponse mirrors the accepted-bid body.
type bidResponse struct {
	Outcome    string          `json:"outcome"`
	Message    string          `json:"message"`
	CurrentBid decimal.Decimal `json:"currentBid"`
	LeaderName string          `json:"leaderName"`
	IsLeading  bool            `json:"isLeading"`
	Item       auction.View    `json:"item"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stats holds simulation statistics
type Stats struct {
	Submitted  int
	Accepted   int
	Rejected   int
	Contention int
	Failed     int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
