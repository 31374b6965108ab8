package bidsim

import (
	"context"
	"fmt"
	"time"

	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

// Run executes a complete simulation against one item and returns the final
// statistics. A non-nil error means the service was unreachable or one of
// the checks failed.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	applyDefaults(config)
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting bid simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("item", config.ItemID),
		logger.Int("bidders", config.Bidders),
		logger.Int("bidsPerBidder", config.BidsPerBidder),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Bool("verbose", config.Verbose))

	if config.ItemID == "" {
		return stats, fmt.Errorf("item id is required")
	}
	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Read the item and the engine's increment
	initial, err := fetchItem(ctx, client, config)
	if err != nil {
		return stats, fmt.Errorf("reading item: %w", err)
	}
	if initial.Status.IsClosed() || !time.Now().Before(initial.EndTime) {
		return stats, fmt.Errorf("item %s is already closed", initial.ID)
	}
	inc, err := fetchIncrement(ctx, client, config)
	if err != nil {
		return stats, fmt.Errorf("reading increment: %w", err)
	}

	// Step 3: Generate ceilings above the current price
	floor := initial.BasePrice
	if initial.CurrentBid.GreaterThan(floor) {
		floor = initial.CurrentBid
	}
	subs, err := generateSubmissions(ctx, config, floor)
	if err != nil {
		return stats, fmt.Errorf("submission generation failed: %w", err)
	}

	// Step 4: Submit concurrently
	observations := submitBids(ctx, config, subs, stats)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("simulation interrupted: %w", err)
	}

	// Step 5: Read the final state and verify
	final, err := fetchItem(ctx, client, config)
	if err != nil {
		return stats, fmt.Errorf("reading final item: %w", err)
	}
	verr := verifyResults(ctx, observations, initial, final, inc)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if verr != nil {
		return stats, fmt.Errorf("result verification failed: %w", verr)
	}
	logger.Get().Info(ctx, "simulation completed successfully")
	return stats, nil
}

func applyDefaults(config *Config) {
	if config.Bidders <= 0 {
		config.Bidders = DefaultBidders
	}
	if config.BidsPerBidder <= 0 {
		config.BidsPerBidder = DefaultBidsPerBidder
	}
	if config.Spread <= 0 {
		config.Spread = DefaultSpread
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}

	// Any 200 is healthy; the endpoint serves Prometheus metrics.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, bidsPerSecond float64

	if stats.Submitted > 0 {
		acceptRate = float64(stats.Accepted) / float64(stats.Submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		bidsPerSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("contention", stats.Contention),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("bidsPerSecond", bidsPerSecond))
}
