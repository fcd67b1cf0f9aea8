package ledger

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/scalper/risk"
)

// Realize sizes a closed trade against the running balance and returns its
// profit or loss. A balance with nothing left carries no exposure.
func Realize(balance, leverage float64, t Trade) (float64, error) {
	if err := checkClosed(t); err != nil {
		return 0, err
	}
	if balance <= 0 {
		return 0, nil
	}
	pos, err := risk.Size(balance, t.RiskPct, t.Entry, t.Stop, leverage)
	if err != nil {
		return 0, fmt.Errorf("%w: trade %q: %w", ErrInvalidRecord, t.ID, err)
	}
	return (t.ClosePrice - t.Entry) * pos.Quantity * t.Side.Sign(), nil
}

// Step is the effect of one history record on the running balance.
type Step struct {
	Record  Record
	Delta   float64
	Balance float64
	Err     error // set when the record was skipped
}

// Replay folds records in order and reports every step. Malformed records
// are skipped with a warning so one bad row cannot break the chain.
func Replay(initial, leverage float64, records []Record, logger zerolog.Logger) []Step {
	steps := make([]Step, 0, len(records))
	running := initial

	for i, rec := range records {
		var delta float64
		var err error

		switch r := rec.(type) {
		case Credit:
			if err = checkCredit(r); err == nil {
				delta = r.Amount
			}
		case Trade:
			delta, err = Realize(running, leverage, r)
		default:
			err = fmt.Errorf("%w: unsupported record %T", ErrInvalidRecord, rec)
		}

		if err != nil {
			logger.Warn().Err(err).Int("index", i).Msg("skipping malformed history record")
			steps = append(steps, Step{Record: rec, Balance: running, Err: err})
			continue
		}
		running += delta
		steps = append(steps, Step{Record: rec, Delta: delta, Balance: running})
	}
	return steps
}

// Fold is the balance after replaying records from initial. Same inputs,
// same balance.
func Fold(initial, leverage float64, records []Record, logger zerolog.Logger) float64 {
	steps := Replay(initial, leverage, records, logger)
	if len(steps) == 0 {
		return initial
	}
	return steps[len(steps)-1].Balance
}
