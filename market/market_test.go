package market

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCandlesCSV(t *testing.T) {
	t.Parallel()

	data := `time,open,high,low,close,volume
2024-01-02T03:04:00Z,1,2,0.5,1.5,100
1704164700000,1.5,2.5,1,2,200

`
	cs, err := ReadCandlesCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, cs, 2)

	assert.Equal(t, 1.5, cs[0].Close)
	assert.Equal(t, 200.0, cs[1].Volume)
	assert.True(t, cs[1].Time.Equal(time.Date(2024, 1, 2, 3, 5, 0, 0, time.UTC)))
	assert.Equal(t, []float64{1.5, 2}, cs.Closes())
	assert.Equal(t, []float64{2, 2.5}, cs.Highs())
}

func TestReadCandlesCSVRejectsUnordered(t *testing.T) {
	t.Parallel()

	data := `2024-01-02T03:05:00Z,1,2,0.5,1.5,100
2024-01-02T03:04:00Z,1,2,0.5,1.5,100
`
	_, err := ReadCandlesCSV(strings.NewReader(data))
	assert.Error(t, err)
}

func TestReadCandlesCSVBadNumber(t *testing.T) {
	t.Parallel()

	_, err := ReadCandlesCSV(strings.NewReader("2024-01-02T03:05:00Z,1,x,0.5,1.5,100\n"))
	assert.Error(t, err)
}

func TestCSVDirFetch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	d := CSVDir{Dir: dir}
	path := d.Path("BTC/USDT", "1m")
	assert.Equal(t, filepath.Join(dir, "BTC-USDT_1m.csv"), path)

	var b strings.Builder
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		b.WriteString(start.Add(time.Duration(i) * time.Minute).Format(time.RFC3339))
		b.WriteString(",1,1,1,1,1\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	cs, err := d.Fetch(context.Background(), "BTC/USDT", "1m", 3)
	require.NoError(t, err)
	assert.Len(t, cs, 3)

	missing, err := d.Fetch(context.Background(), "ETH/USDT", "1m", 3)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestLoadPricesCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("symbol,price\nBTC/USDT,50000.5\nTCS.NS,3500\n"), 0o644))

	p, err := LoadPricesCSV(path)
	require.NoError(t, err)

	v, ok, err := p.LastPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 50000.5, v)

	_, ok, _ = p.LastPrice(context.Background(), "ETH/USDT")
	assert.False(t, ok)
}

func TestParseSideAndTag(t *testing.T) {
	t.Parallel()

	s, err := ParseSide("buy")
	require.NoError(t, err)
	assert.Equal(t, Long, s)
	assert.Equal(t, -1.0, Short.Sign())

	_, err = ParseSide("sideways")
	assert.Error(t, err)

	tag, err := ParseTag("crypto_future")
	require.NoError(t, err)
	assert.Equal(t, CryptoFuture, tag)
	assert.True(t, tag.IsCrypto())
	assert.False(t, Stock.IsCrypto())
	assert.Equal(t, Crypto, CryptoSpot.Family())
	assert.Equal(t, Stock, Stock.Family())
	assert.False(t, CryptoSpot.AllowsShort())
	assert.True(t, CryptoFuture.AllowsShort())
}

func TestSessions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    Session
		at   time.Time
		want bool
	}{
		{"stock open weekday", StockSession, time.Date(2024, 1, 2, 10, 0, 0, 0, IST), true},
		{"stock before open", StockSession, time.Date(2024, 1, 2, 9, 14, 0, 0, IST), false},
		{"stock at close", StockSession, time.Date(2024, 1, 2, 15, 30, 0, 0, IST), false},
		{"stock saturday", StockSession, time.Date(2024, 1, 6, 11, 0, 0, 0, IST), false},
		{"crypto saturday", CryptoSession, time.Date(2024, 1, 6, 11, 0, 0, 0, IST), true},
		{"crypto late night", CryptoSession, time.Date(2024, 1, 6, 23, 30, 0, 0, IST), false},
		{"utc input converted", StockSession, time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.s.IsOpen(tt.at))
		})
	}
}
