package bidsim

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends simulator logs to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "bidsim_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the bid simulator.
func ShowHelp() {
	os.Stdout.WriteString(`BidCycle Bid Simulator
======================

Fires concurrent proxy bids at one item and checks the engine's guarantees:
the visible price never goes down, the highest ceiling wins (earliest on a
tie), and no response reveals a bidder's ceiling.

Usage:
  go run cmd/bid-sim/main.go -item <id> [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -item string
        Item to bid on (required; must be open for bidding)
  -bidders int
        Number of simulated bidders (default 25)
  -bids int
        Ceilings submitted per bidder (default 4)
  -spread int
        Ceilings are drawn above the base price up to this amount (default 1000)
  -workers int
        Number of concurrent workers (default 8)
  -timeout duration
        HTTP request timeout (default 10s)
  -log string
        Log file for simulator output (default: bidsim_TIMESTAMP.log)
  -verbose
        Log every response
  -help
        Show this help message

Examples:
  # Simulate against a local engine
  go run cmd/bid-sim/main.go -item lamp-42

  # Heavier run
  go run cmd/bid-sim/main.go -item lamp-42 -bidders 200 -bids 10 -workers 32
`)
}
