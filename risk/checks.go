package risk

import (
	"errors"
	"fmt"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	Position       Position
	PlannedRisk    float64
	PlannedRiskPct float64
	PlannedRR      float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Codes returns the violation codes in the order they were raised.
func (d Decision) Codes() []string {
	out := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		out = append(out, v.Code)
	}
	return out
}

// Evaluate sizes the intent against the balance and checks it against p.
func Evaluate(p Policy, in Intent) Decision {
	d := Decision{Allowed: true}

	if in.Entry <= 0 || in.Stop <= 0 {
		d.add("NO_STOP_OR_ENTRY", "entry/stop must be set")
		return d
	}
	if in.Balance <= 0 {
		d.add("NO_BALANCE", fmt.Sprintf("balance %.2f is not positive", in.Balance))
		return d
	}

	pos, err := Size(in.Balance, in.RiskPct, in.Entry, in.Stop, in.Leverage)
	if errors.Is(err, ErrDegenerateInput) {
		d.add("DEGENERATE_STOP", err.Error())
		return d
	}
	d.Position = pos
	d.PlannedRisk = PlannedRisk(pos.Quantity, in.Entry, in.Stop)
	d.PlannedRiskPct = RiskPct(d.PlannedRisk, in.Balance)
	d.PlannedRR = RR(in.Entry, in.Stop, in.Target)

	if p.MaxRiskPct > 0 && d.PlannedRiskPct > p.MaxRiskPct {
		d.add("RISK_TOO_HIGH",
			fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
				100*d.PlannedRiskPct, 100*p.MaxRiskPct))
	}
	if p.MinRR > 0 && d.PlannedRR < p.MinRR {
		d.add("RR_TOO_LOW",
			fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
	}
	if p.MaxOpenTrades > 0 && in.OpenTrades >= p.MaxOpenTrades {
		d.add("TOO_MANY_OPEN_TRADES",
			fmt.Sprintf("open trades %d >= max %d", in.OpenTrades, p.MaxOpenTrades))
	}

	return d
}
