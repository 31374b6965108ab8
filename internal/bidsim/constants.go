package bidsim

import "time"

// HTTP status codes the simulator cares about.
const (
	StatusOK                 = 200
	StatusCreated            = 201
	StatusServiceUnavailable = 503
)

// Header names understood by the bid endpoint.
const (
	headerBidderID   = "X-Bidder-ID"
	headerBidderName = "X-Bidder-Name"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultBidders       = 25
	DefaultBidsPerBidder = 4
	DefaultSpread        = 1000
	DefaultWorkers       = 8
	DefaultTimeout       = 10 * time.Second
)

// WorkerChannelMultiplier sizes the submission channel relative to workers.
const WorkerChannelMultiplier = 2

// maxBodySize bounds how much of a response is read.
const maxBodySize = 1 << 20

// PercentageMultiplier converts ratios to percentages.
const PercentageMultiplier = 100.0
