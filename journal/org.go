package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/scalper/ledger"
)

// FormatTradeOrg renders a closed trade as an Org-mode block. Structured
// facts live in the PROPERTIES drawer; the narrative headings are left
// empty for the reader.
func FormatTradeOrg(t ledger.Trade, pnl float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s %s (%s)\n", t.Symbol, t.Side, shortID(t.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":MARKET: %s\n", t.Market)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %s\n", price(t.Entry))
	fmt.Fprintf(&b, ":STOP_PRICE: %s\n", price(t.Stop))
	fmt.Fprintf(&b, ":TARGET_PRICE: %s\n", price(t.Target))
	fmt.Fprintf(&b, ":EXIT_PRICE: %s\n", price(t.ClosePrice))
	fmt.Fprintf(&b, ":RISK_PCT: %s\n", money(100*t.RiskPct))
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", t.OpenTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", t.CloseTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":OUTCOME: %s\n", t.Outcome)
	fmt.Fprintf(&b, ":REALIZED_PL: %s\n", money(pnl))
	fmt.Fprintf(&b, ":SETUP: %s\n", t.Setup)
	b.WriteString(":END:\n\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatStepsOrg renders the trade steps of a replay; credits and skipped
// records are left out.
func FormatStepsOrg(steps []ledger.Step) string {
	var blocks []string
	for _, st := range steps {
		t, ok := st.Record.(ledger.Trade)
		if !ok || st.Err != nil {
			continue
		}
		blocks = append(blocks, FormatTradeOrg(t, st.Delta))
	}
	return strings.Join(blocks, "\n\n")
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
