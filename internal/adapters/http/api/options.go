package api

import (
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/idempotency"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

type options struct {
	idempotency *idempotency.Cache
	sweeps      SweepReporter
	logger      logger.Logger
}

// Option configures a Server.
type Option func(*options)

// WithIdempotencyCache sets the cache used to replay retried bid submissions.
func WithIdempotencyCache(c *idempotency.Cache) Option {
	return func(o *options) {
		if c != nil {
			o.idempotency = c
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSweepReporter adds the last closing sweep to /stats.
func WithSweepReporter(r SweepReporter) Option {
	return func(o *options) {
		if r != nil {
			o.sweeps = r
		}
	}
}
