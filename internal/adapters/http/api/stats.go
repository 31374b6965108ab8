package api

import (
	"context"
	"net/http"
	"time"

	service "github.com/Yuvrajsinh007/BidCycle/internal/app"
)

// StatsProvider reports engine counters: increment, retry budget, lock table
// size, dispatch depth and tracked items.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]interface{}
}

// SweepReporter exposes the most recent closing sweep.
type SweepReporter interface {
	Last() service.SweepReport
}

type sweepStats struct {
	Scanned    int     `json:"scanned"`
	Activated  int     `json:"activated"`
	Sold       int     `json:"sold"`
	Expired    int     `json:"expired"`
	Failed     int     `json:"failed"`
	DurationMs float64 `json:"durationMs"`
}

// StatsHandler serves GET /stats. The engine counters stay at the top level
// because the bid simulator reads "increment" from there.
type StatsHandler struct {
	provider StatsProvider
	sweeps   SweepReporter
}

// NewStatsHandler creates a stats handler. sweeps may be nil when the process
// runs no sweeper.
func NewStatsHandler(provider StatsProvider, sweeps SweepReporter) *StatsHandler {
	return &StatsHandler{provider: provider, sweeps: sweeps}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})
	for k, v := range h.provider.GetStats(r.Context()) {
		stats[k] = v
	}
	if h.sweeps != nil {
		last := h.sweeps.Last()
		stats["lastSweep"] = sweepStats{
			Scanned:    last.Scanned,
			Activated:  last.Activated,
			Sold:       last.Sold,
			Expired:    last.Expired,
			Failed:     last.Failed,
			DurationMs: float64(last.Duration.Microseconds()) / 1000,
		}
	}
	stats["generatedAt"] = time.Now().UTC()

	// Counters move with every bid.
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, stats)
}
