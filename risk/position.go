package risk

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateInput is returned when a stop distance of zero would divide by zero.
// It points at a malformed signal upstream.
var ErrDegenerateInput = errors.New("degenerate sizing input")

// Position is the sized exposure for one trade.
type Position struct {
	RiskAmount      float64 // balance * riskPct
	StopDistancePct float64 // |entry-stop| / entry
	Value           float64 // notional, capped at buying power
	Quantity        float64 // Value / entry
	Margin          float64 // Value / leverage
}

// Size converts a risk percentage and stop distance into a bounded position.
//
//	risk        = balance * riskPct
//	raw value   = risk / (|entry-stop| / entry)
//	buyingPower = balance * leverage   (leverage > 1)
//	            = balance              (otherwise)
//	value       = min(raw value, buyingPower)
//
// Hitting the stop loses at most riskPct of balance, and the notional never
// exceeds buying power. Leverage below 1 is treated as 1.
func Size(balance, riskPct, entry, stop, leverage float64) (Position, error) {
	if entry <= 0 || entry == stop || math.IsNaN(entry) || math.IsNaN(stop) {
		return Position{}, fmt.Errorf("%w: entry=%v stop=%v", ErrDegenerateInput, entry, stop)
	}
	if leverage < 1 {
		leverage = 1
	}

	riskAmt := balance * riskPct
	dist := abs(entry-stop) / entry
	raw := riskAmt / dist

	buyingPower := balance
	if leverage > 1 {
		buyingPower = balance * leverage
	}

	value := math.Min(raw, buyingPower)
	return Position{
		RiskAmount:      riskAmt,
		StopDistancePct: dist,
		Value:           value,
		Quantity:        value / entry,
		Margin:          value / leverage,
	}, nil
}
