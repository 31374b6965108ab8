package bidsim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

// generateSubmissions creates Bidders*BidsPerBidder ceilings above base and
// shuffles them so bidders interleave.
func generateSubmissions(ctx context.Context, config *Config, base decimal.Decimal) ([]Submission, error) {
	if config.Bidders <= 0 || config.BidsPerBidder <= 0 {
		return nil, fmt.Errorf("bidders and bids per bidder must be positive")
	}
	spread := config.Spread
	if spread <= 0 {
		spread = DefaultSpread
	}

	run := uuid.NewString()[:8]
	subs := make([]Submission, 0, config.Bidders*config.BidsPerBidder)
	for b := 0; b < config.Bidders; b++ {
		id := "sim-" + run + "-" + strconv.Itoa(b)
		name := "Bidder " + strconv.Itoa(b)
		for i := 0; i < config.BidsPerBidder; i++ {
			step, err := randomInt(spread)
			if err != nil {
				return nil, err
			}
			subs = append(subs, Submission{
				BidderID:   id,
				BidderName: name,
				Ceiling:    base.Add(decimal.NewFromInt(step + 1)),
			})
		}
	}

	if err := shuffle(subs); err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i].Index = i
	}

	logger.Get().Info(ctx, "generated submissions", logger.Int("count", len(subs)))
	return subs, nil
}

// randomInt returns a uniform value in [0, n).
func randomInt(n int64) (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, fmt.Errorf("random source: %w", err)
	}
	return v.Int64(), nil
}

// shuffle is a Fisher-Yates shuffle over crypto/rand.
func shuffle(subs []Submission) error {
	for i := len(subs) - 1; i > 0; i-- {
		j, err := randomInt(int64(i + 1))
		if err != nil {
			return err
		}
		subs[i], subs[j] = subs[j], subs[i]
	}
	return nil
}
