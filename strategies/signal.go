package strategies

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/scalper/market"
)

// ErrInvalidSignal is returned by Validate when the price levels are not
// ordered for the signal's side.
var ErrInvalidSignal = errors.New("invalid signal")

// Signal is a directional entry found by a detector on one matched candle.
// Signals are values; nothing downstream mutates them.
type Signal struct {
	Symbol     string      `json:"symbol"`
	Market     market.Tag  `json:"market"`
	Side       market.Side `json:"side"`
	Entry      float64     `json:"entry"`
	Stop       float64     `json:"stop"`
	Target     float64     `json:"target"`
	Setup      string      `json:"setup"`
	RiskPct    float64     `json:"risk_pct"`
	DetectedAt time.Time   `json:"detected_at"`
}

// Validate checks stop < entry < target for LONG and stop > entry > target
// for SHORT.
func (s Signal) Validate() error {
	for _, v := range []float64{s.Entry, s.Stop, s.Target} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: %s prices must be positive (entry=%v stop=%v target=%v)",
				ErrInvalidSignal, s.Symbol, s.Entry, s.Stop, s.Target)
		}
	}

	switch s.Side {
	case market.Long:
		if !(s.Stop < s.Entry && s.Entry < s.Target) {
			return fmt.Errorf("%w: LONG %s needs stop < entry < target (%v, %v, %v)",
				ErrInvalidSignal, s.Symbol, s.Stop, s.Entry, s.Target)
		}
	case market.Short:
		if !(s.Stop > s.Entry && s.Entry > s.Target) {
			return fmt.Errorf("%w: SHORT %s needs stop > entry > target (%v, %v, %v)",
				ErrInvalidSignal, s.Symbol, s.Stop, s.Entry, s.Target)
		}
	default:
		return fmt.Errorf("%w: unknown side %q", ErrInvalidSignal, s.Side)
	}
	return nil
}

// RewardRisk is the target distance over the stop distance.
func (s Signal) RewardRisk() float64 {
	risk := math.Abs(s.Entry - s.Stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(s.Target-s.Entry) / risk
}
