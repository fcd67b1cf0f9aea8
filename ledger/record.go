// Package ledger keeps the append-only trade and credit history of a paper
// account. The balance is never stored; it is always folded from history.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/scalper/market"
)

// ErrInvalidRecord marks a history record the fold cannot use.
var ErrInvalidRecord = errors.New("invalid ledger record")

type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

type Outcome string

const (
	None Outcome = ""
	Win  Outcome = "WIN"
	Loss Outcome = "LOSS"
)

func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case None, Win, Loss:
		return o, nil
	default:
		return None, fmt.Errorf("unknown outcome %q", s)
	}
}

// Record is one entry of ledger history: a closed Trade or a Credit.
type Record interface {
	Kind() string
	When() time.Time
	isRecord()
}

const (
	KindTrade  = "TRADE"
	KindCredit = "CREDIT"
)

// Trade is a paper trade. It is mutated once, OPEN to CLOSED, and is
// immutable once it lands in history.
type Trade struct {
	ID      string      `json:"id"`
	Symbol  string      `json:"symbol"`
	Market  market.Tag  `json:"market"`
	Side    market.Side `json:"side"`
	Entry   float64     `json:"entry"`
	Stop    float64     `json:"stop"`
	Target  float64     `json:"target"`
	RiskPct float64     `json:"risk_pct"`
	Setup   string      `json:"setup,omitempty"`

	Status     Status    `json:"status"`
	OpenTime   time.Time `json:"open_time"`
	CloseTime  time.Time `json:"close_time,omitempty"`
	Outcome    Outcome   `json:"outcome,omitempty"`
	ClosePrice float64   `json:"close_price,omitempty"`
}

func (Trade) Kind() string { return KindTrade }
func (Trade) isRecord()    {}

func (t Trade) When() time.Time {
	if t.Status == StatusClosed {
		return t.CloseTime
	}
	return t.OpenTime
}

// Credit is a synthetic capital injection used to keep a paper account
// trading after drawdowns.
type Credit struct {
	Amount float64   `json:"amount"`
	At     time.Time `json:"at"`
	Note   string    `json:"note,omitempty"`
}

func (Credit) Kind() string      { return KindCredit }
func (Credit) isRecord()         {}
func (c Credit) When() time.Time { return c.At }

func positive(v float64) bool { return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) }

// checkClosed reports why a trade cannot be realized.
func checkClosed(t Trade) error {
	switch {
	case t.Status != StatusClosed:
		return fmt.Errorf("%w: trade %q is %s", ErrInvalidRecord, t.ID, t.Status)
	case t.Side != market.Long && t.Side != market.Short:
		return fmt.Errorf("%w: trade %q has side %q", ErrInvalidRecord, t.ID, t.Side)
	case !positive(t.Entry) || !positive(t.Stop) || !positive(t.ClosePrice):
		return fmt.Errorf("%w: trade %q entry=%v stop=%v close=%v",
			ErrInvalidRecord, t.ID, t.Entry, t.Stop, t.ClosePrice)
	case math.IsNaN(t.RiskPct) || t.RiskPct < 0:
		return fmt.Errorf("%w: trade %q risk_pct=%v", ErrInvalidRecord, t.ID, t.RiskPct)
	}
	return nil
}

func checkCredit(c Credit) error {
	if !positive(c.Amount) {
		return fmt.Errorf("%w: credit amount %v", ErrInvalidRecord, c.Amount)
	}
	return nil
}
