package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/scalper/ledger"
)

var historyHeader = []string{
	"n", "kind", "time", "trade_id", "symbol", "side",
	"entry", "stop", "target", "close_price", "outcome",
	"amount", "delta", "balance", "skipped",
}

// WriteHistoryCSV writes a replayed history, one row per step, with the
// running balance after each.
func WriteHistoryCSV(w io.Writer, steps []ledger.Step) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return err
	}

	for i, st := range steps {
		row := make([]string, len(historyHeader))
		row[0] = strconv.Itoa(i + 1)
		row[1] = st.Record.Kind()
		row[2] = ts(st.Record.When())

		switch r := st.Record.(type) {
		case ledger.Trade:
			row[3] = r.ID
			row[4] = r.Symbol
			row[5] = string(r.Side)
			row[6] = price(r.Entry)
			row[7] = price(r.Stop)
			row[8] = price(r.Target)
			row[9] = price(r.ClosePrice)
			row[10] = string(r.Outcome)
		case ledger.Credit:
			row[11] = money(r.Amount)
		}

		row[12] = money(st.Delta)
		row[13] = money(st.Balance)
		row[14] = strconv.FormatBool(st.Err != nil)

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// money rounds half away from zero to cents.
func money(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(2)
}

func price(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(5)
}
