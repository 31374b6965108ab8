package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Yuvrajsinh007/BidCycle/internal/bidsim"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

// Default configuration constants.
const (
	defaultSimTimeout = 10 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		baseURL       = flag.String("url", "http://localhost:9080", "Base URL of the service")
		itemID        = flag.String("item", "", "Item to bid on")
		bidders       = flag.Int("bidders", bidsim.DefaultBidders, "Number of simulated bidders")
		bidsPerBidder = flag.Int("bids", bidsim.DefaultBidsPerBidder, "Ceilings submitted per bidder")
		spread        = flag.Int64("spread", bidsim.DefaultSpread, "Ceilings are drawn above the base price up to this amount")
		workers       = flag.Int("workers", bidsim.DefaultWorkers, "Number of concurrent workers")
		timeout       = flag.Duration("timeout", bidsim.DefaultTimeout, "HTTP request timeout")
		logFile       = flag.String("log", "", "Log file for simulator output (default: bidsim_TIMESTAMP.log)")
		verbose       = flag.Bool("verbose", false, "Log every response")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		bidsim.ShowHelp()
		return 0
	}

	closer, err := bidsim.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = closer.Close() }()
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSimTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config := &bidsim.Config{
		BaseURL:       *baseURL,
		ItemID:        *itemID,
		Bidders:       *bidders,
		BidsPerBidder: *bidsPerBidder,
		Spread:        *spread,
		Workers:       *workers,
		Timeout:       *timeout,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	if _, err := bidsim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}
