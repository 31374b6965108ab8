package proxybid

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Outcome classifies how a submission was resolved.
type Outcome string

const (
	OutcomeFirstBid            Outcome = "first_bid"
	OutcomeMaxBidRaised        Outcome = "max_bid_raised"
	OutcomeOutbidAutomatically Outcome = "outbid_automatically"
	OutcomeTiedButEarlier      Outcome = "tied_but_earlier"
	OutcomeNewLeader           Outcome = "new_leader"
)

// Broadcast reports whether the outcome is a public event. A leader raising
// their own ceiling is private.
func (o Outcome) Broadcast() bool {
	return o != OutcomeMaxBidRaised
}

// Leading reports whether the submitting bidder leads after resolution.
func (o Outcome) Leading() bool {
	switch o {
	case OutcomeFirstBid, OutcomeMaxBidRaised, OutcomeNewLeader:
		return true
	}
	return false
}

// Message is the text shown to the submitting bidder.
func (o Outcome) Message(price decimal.Decimal) string {
	switch o {
	case OutcomeFirstBid:
		return fmt.Sprintf("You are the first bidder. Current price is %s.", price)
	case OutcomeMaxBidRaised:
		return "Your maximum bid was raised. You are still the highest bidder."
	case OutcomeTiedButEarlier:
		return fmt.Sprintf("Another bidder placed the same maximum earlier. Current price is %s.", price)
	case OutcomeOutbidAutomatically:
		return fmt.Sprintf("You were outbid automatically. Current price is %s.", price)
	case OutcomeNewLeader:
		return fmt.Sprintf("You are the highest bidder. Current price is %s.", price)
	default:
		return ""
	}
}
