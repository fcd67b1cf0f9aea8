package journal

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/scalper/ledger"
)

func TestWriteHistoryCSV(t *testing.T) {
	t.Parallel()

	recs := []ledger.Record{
		closedTrade("T1", 100, 99, 101, ledger.Win, t0),
		ledger.Credit{Amount: 5, At: t0.Add(time.Minute)},
		closedTrade("bad", 100, 100, 101, ledger.Win, t0.Add(2*time.Minute)),
		closedTrade("T2", 100, 99, 99, ledger.Loss, t0.Add(time.Hour)),
	}
	steps := ledger.Replay(100, 1, recs, zerolog.Nop())

	var buf bytes.Buffer
	require.NoError(t, WriteHistoryCSV(&buf, steps))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, historyHeader, rows[0])

	assert.Equal(t, []string{
		"1", "TRADE", "2025-01-06T04:00:00Z", "T1", "BTC/USDT", "LONG",
		"100.00000", "99.00000", "102.00000", "101.00000", "WIN",
		"", "1.00", "101.00", "false",
	}, rows[1])
	assert.Equal(t, "CREDIT", rows[2][1])
	assert.Equal(t, "5.00", rows[2][11])
	assert.Equal(t, "106.00", rows[2][13])
	assert.Equal(t, "true", rows[3][14])
	assert.Equal(t, "106.00", rows[3][13])
	// 106 * 1% = 1.06 lost
	assert.Equal(t, "-1.06", rows[4][12])
	assert.Equal(t, "104.94", rows[4][13])
}

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	tr := closedTrade("01JGXYZABCDEF", 100, 99, 101, ledger.Win, t0)
	out := FormatTradeOrg(tr, 1)

	assert.Contains(t, out, "** Trade: BTC/USDT LONG (01JGXYZA)")
	assert.Contains(t, out, ":PROPERTIES:")
	assert.Contains(t, out, ":TRADE_ID: 01JGXYZABCDEF")
	assert.Contains(t, out, ":MARKET: CRYPTO_SPOT")
	assert.Contains(t, out, ":ENTRY_PRICE: 100.00000")
	assert.Contains(t, out, ":EXIT_PRICE: 101.00000")
	assert.Contains(t, out, ":RISK_PCT: 1.00")
	assert.Contains(t, out, ":CLOSE_TIME: 2025-01-06T04:00:00Z")
	assert.Contains(t, out, ":OUTCOME: WIN")
	assert.Contains(t, out, ":REALIZED_PL: 1.00")
	assert.Contains(t, out, ":END:")
	assert.Contains(t, out, "*** Review")
}

func TestFormatStepsOrg(t *testing.T) {
	t.Parallel()

	recs := []ledger.Record{
		closedTrade("T1", 100, 99, 101, ledger.Win, t0),
		ledger.Credit{Amount: 5, At: t0},
		closedTrade("T2", 100, 99, 99, ledger.Loss, t0.Add(time.Hour)),
	}
	out := FormatStepsOrg(ledger.Replay(100, 1, recs, zerolog.Nop()))

	assert.Equal(t, 2, strings.Count(out, "** Trade:"))
	assert.Contains(t, out, ":REALIZED_PL: -1.06")
	assert.Empty(t, FormatStepsOrg(nil))
}
