package bidsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

// hiddenKeys are field names that would carry a bidder's ceiling.
var hiddenKeys = map[string]struct{}{
	"highestMaxBid": {},
	"maxBid":        {},
	"maxAmount":     {},
	"ceiling":       {},
	"candidateMax":  {},
}

// Expectation is the outcome a correct engine must converge to.
type Expectation struct {
	LeaderID string
	// Incumbent may keep the lead on an item that already had a leader,
	// since its hidden ceiling is unknown.
	Incumbent string
	Price    decimal.Decimal
	// PriceKnown is false when the item already had bids before the run.
	PriceKnown bool
}

// verifyResults checks the observed responses and the final item state.
// All violations are reported together.
func verifyResults(ctx context.Context, observations []Observation, initial, final auction.View, inc decimal.Decimal) error {
	logger.Get().Info(ctx, "verifying results", logger.Int("observations", len(observations)))

	errs := []error{
		checkMonotonicPrice(observations),
		checkNoCeilingLeak(observations),
	}

	if failed := countFailed(observations); failed > 0 {
		// A lost response may hide a committed bid; the leader is unknowable.
		logger.Get().Warn(ctx, "skipping leader check after transport failures", logger.Int("failed", failed))
	} else if exp, ok := expectedOutcome(observations, initial, inc); ok {
		errs = append(errs, checkFinalState(exp, final))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Get().Info(ctx, "result verification completed",
		logger.String("leader", final.LeaderID),
		logger.String("currentBid", final.CurrentBid.String()))
	return nil
}

// checkMonotonicPrice orders accepted responses by the version they produced
// and requires the visible price never to drop.
func checkMonotonicPrice(observations []Observation) error {
	accepted := acceptedByVersion(observations)
	for i := 1; i < len(accepted); i++ {
		prev, cur := accepted[i-1], accepted[i]
		if cur.Version == prev.Version {
			return fmt.Errorf("two accepted bids share version %d (%s, %s)", cur.Version, prev.BidderID, cur.BidderID)
		}
		if cur.CurrentBid.LessThan(prev.CurrentBid) {
			return fmt.Errorf("visible price dropped from %s at version %d to %s at version %d",
				prev.CurrentBid, prev.Version, cur.CurrentBid, cur.Version)
		}
	}
	return nil
}

// checkNoCeilingLeak rejects any response body carrying a ceiling field.
func checkNoCeilingLeak(observations []Observation) error {
	for _, obs := range observations {
		if len(obs.Body) == 0 {
			continue
		}
		var doc interface{}
		if err := json.Unmarshal(obs.Body, &doc); err != nil {
			continue
		}
		if key, ok := findHiddenKey(doc); ok {
			return fmt.Errorf("response to %s exposes %q", obs.BidderID, key)
		}
	}
	return nil
}

func findHiddenKey(doc interface{}) (string, bool) {
	switch v := doc.(type) {
	case map[string]interface{}:
		for k, child := range v {
			if _, hidden := hiddenKeys[k]; hidden {
				return k, true
			}
			if key, ok := findHiddenKey(child); ok {
				return key, true
			}
		}
	case []interface{}:
		for _, child := range v {
			if key, ok := findHiddenKey(child); ok {
				return key, true
			}
		}
	}
	return "", false
}

// expectedOutcome derives the winner from accepted ceilings: the highest
// one, earliest version on a tie. On an item without a prior leader the price
// is the runner-up ceiling plus one increment, capped by the winning ceiling,
// or the base price when nobody else was accepted.
func expectedOutcome(observations []Observation, initial auction.View, inc decimal.Decimal) (Expectation, bool) {
	accepted := acceptedByVersion(observations)
	if len(accepted) == 0 {
		return Expectation{}, false
	}

	top := accepted[0]
	for _, obs := range accepted[1:] {
		if obs.Ceiling.GreaterThan(top.Ceiling) {
			top = obs
		}
	}
	exp := Expectation{LeaderID: top.BidderID}
	if initial.LeaderID != "" {
		exp.Incumbent = initial.LeaderID
		return exp, true
	}

	var (
		runnerUp decimal.Decimal
		found    bool
	)
	for _, obs := range accepted {
		if obs.BidderID == top.BidderID {
			continue
		}
		if !found || obs.Ceiling.GreaterThan(runnerUp) {
			runnerUp, found = obs.Ceiling, true
		}
	}
	exp.PriceKnown = true
	exp.Price = initial.BasePrice
	if found {
		exp.Price = decimal.Min(runnerUp.Add(inc), top.Ceiling)
	}
	return exp, true
}

func checkFinalState(exp Expectation, final auction.View) error {
	if final.LeaderID != exp.LeaderID && (exp.Incumbent == "" || final.LeaderID != exp.Incumbent) {
		return fmt.Errorf("leader is %q, want %q", final.LeaderID, exp.LeaderID)
	}
	if exp.PriceKnown && !final.CurrentBid.Equal(exp.Price) {
		return fmt.Errorf("final price is %s, want %s", final.CurrentBid, exp.Price)
	}
	return nil
}

func acceptedByVersion(observations []Observation) []Observation {
	var accepted []Observation
	for _, obs := range observations {
		if obs.Accepted() {
			accepted = append(accepted, obs)
		}
	}
	sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].Version < accepted[j].Version })
	return accepted
}

func countFailed(observations []Observation) int {
	n := 0
	for _, obs := range observations {
		if obs.Err != nil {
			n++
		}
	}
	return n
}
