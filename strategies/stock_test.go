package strategies

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/scalper/market"
)

func nanSnapshot() StockSnapshot {
	nan := math.NaN()
	return StockSnapshot{
		Close: 100, Volume: 1000,
		EMAFast: nan, EMASlow: nan, EMATrend: nan, TrendSlope: nan,
		ADX: nan, RSI: nan, VolumeAvg: nan,
	}
}

// shieldFixture returns a previous and candidate bar on which all five
// shields pass.
func shieldFixture() (prev, cur StockSnapshot) {
	prev = StockSnapshot{
		Time:    t0,
		Close:   100,
		Volume:  1000,
		EMAFast: 99.9, EMASlow: 100,
		EMATrend: 95, TrendSlope: 0.01,
		ADX: 18, RSI: 50, VolumeAvg: 1000,
	}
	cur = StockSnapshot{
		Time:    t0.Add(5 * time.Minute),
		Close:   101,
		Volume:  2000,
		EMAFast: 100.5, EMASlow: 100.3,
		EMATrend: 96, TrendSlope: 0.01,
		ADX: 25, RSI: 55, VolumeAvg: 1500,
	}
	return prev, cur
}

func fixtureSnaps(prev, cur StockSnapshot) []StockSnapshot {
	return []StockSnapshot{nanSnapshot(), nanSnapshot(), prev, cur}
}

func TestScanSnapshots_AllShieldsPass(t *testing.T) {
	t.Parallel()

	cfg := StockConfigDefaults()
	prev, cur := shieldFixture()

	sig, ok := ScanSnapshots("TCS.NS", fixtureSnaps(prev, cur), cfg, DefaultShields())
	require.True(t, ok)

	// max(100.3*0.9995, 101*0.995) = 100.495
	assert.Equal(t, market.Long, sig.Side)
	assert.Equal(t, market.Stock, sig.Market)
	assert.InDelta(t, 101.0, sig.Entry, 1e-9)
	assert.InDelta(t, math.Max(100.3*0.9995, 101*0.995), sig.Stop, 1e-9)
	assert.InDelta(t, 100.495, sig.Stop, 1e-9)
	assert.InDelta(t, 101+1.5*(101-100.495), sig.Target, 1e-9)
	assert.InDelta(t, 1.5, sig.RewardRisk(), 1e-9)
	assert.InDelta(t, 0.20, sig.RiskPct, 1e-12)
	assert.Equal(t, cur.Time, sig.DetectedAt)
	assert.Contains(t, sig.Setup, "offset 1")
	assert.NoError(t, sig.Validate())
}

func TestScanSnapshots_ADXScenario(t *testing.T) {
	t.Parallel()

	cfg := StockConfigDefaults()
	prev, cur := shieldFixture()

	cur.ADX = 19
	_, ok := ScanSnapshots("TCS.NS", fixtureSnaps(prev, cur), cfg, DefaultShields())
	assert.False(t, ok, "ADX below minimum")

	cur.ADX = 25
	sig, ok := ScanSnapshots("TCS.NS", fixtureSnaps(prev, cur), cfg, DefaultShields())
	require.True(t, ok)
	assert.InDelta(t, math.Max(cur.EMASlow*0.9995, cur.Close*0.995), sig.Stop, 1e-9)
}

func TestScanSnapshots_TrailingStopTighter(t *testing.T) {
	t.Parallel()

	prev, cur := shieldFixture()
	cur.Close = 101.2
	cur.EMAFast, cur.EMASlow = 101.0, 100.8

	sig, ok := ScanSnapshots("INFY.NS", fixtureSnaps(prev, cur), StockConfigDefaults(), DefaultShields())
	require.True(t, ok)
	assert.InDelta(t, 100.8*0.9995, sig.Stop, 1e-9)
	assert.InDelta(t, 101.2+1.5*(101.2-100.8*0.9995), sig.Target, 1e-9)
}

func TestScanSnapshots_EachShieldRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(prev, cur *StockSnapshot)
	}{
		{"no fresh cross", func(p, _ *StockSnapshot) { p.EMAFast = 100.1 }},
		{"cross below threshold", func(_, c *StockSnapshot) { c.EMAFast = 100.35 }},
		{"close under fast ema", func(_, c *StockSnapshot) { c.Close = 100.4 }},
		{"close under trend ema", func(_, c *StockSnapshot) { c.EMATrend = 102 }},
		{"flat trend slope", func(_, c *StockSnapshot) { c.TrendSlope = 0 }},
		{"adx too low", func(_, c *StockSnapshot) { c.ADX = 19 }},
		{"adx too high", func(_, c *StockSnapshot) { c.ADX = 51 }},
		{"adx falling", func(p, _ *StockSnapshot) { p.ADX = 26 }},
		{"rsi too low", func(_, c *StockSnapshot) { c.RSI = 44 }},
		{"rsi too high", func(_, c *StockSnapshot) { c.RSI = 66 }},
		{"volume under average", func(_, c *StockSnapshot) { c.Volume = 1700 }},
		{"volume under previous", func(p, _ *StockSnapshot) { p.Volume = 2500 }},
		{"undefined adx", func(_, c *StockSnapshot) { c.ADX = math.NaN() }},
		{"undefined rsi", func(_, c *StockSnapshot) { c.RSI = math.NaN() }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prev, cur := shieldFixture()
			tt.mutate(&prev, &cur)
			_, ok := ScanSnapshots("TCS.NS", fixtureSnaps(prev, cur), StockConfigDefaults(), DefaultShields())
			assert.False(t, ok)
		})
	}
}

func TestScanSnapshots_ShieldConjunction(t *testing.T) {
	t.Parallel()

	prev, cur := shieldFixture()
	snaps := fixtureSnaps(prev, cur)
	cfg := StockConfigDefaults()

	_, ok := ScanSnapshots("TCS.NS", snaps, cfg, DefaultShields())
	require.True(t, ok)

	never := func(StockSnapshot, StockSnapshot, StockConfig) bool { return false }
	for k, s := range DefaultShields() {
		shields := DefaultShields()
		shields[k].Check = never
		_, ok := ScanSnapshots("TCS.NS", snaps, cfg, shields)
		assert.False(t, ok, "flipping %s must suppress the signal", s.Name)
	}

	_, ok = ScanSnapshots("TCS.NS", snaps, cfg, nil)
	assert.False(t, ok, "an empty conjunction never passes")
}

func TestScanSnapshots_Lookback(t *testing.T) {
	t.Parallel()

	prev, cur := shieldFixture()
	cfg := StockConfigDefaults()

	// Matching pair at offset 3, newer bars fail.
	snaps := []StockSnapshot{nanSnapshot(), prev, cur, nanSnapshot(), nanSnapshot()}
	sig, ok := ScanSnapshots("TCS.NS", snaps, cfg, DefaultShields())
	require.True(t, ok)
	assert.Contains(t, sig.Setup, "offset 3")

	// Offset 5 is outside the four-bar lookback.
	snaps = []StockSnapshot{prev, cur, nanSnapshot(), nanSnapshot(), nanSnapshot(), nanSnapshot()}
	_, ok = ScanSnapshots("TCS.NS", snaps, cfg, DefaultShields())
	assert.False(t, ok)
}

func TestDetectStock_Candles(t *testing.T) {
	t.Parallel()

	cfg := StockConfigDefaults()

	_, ok := DetectStock("TCS.NS", candlesFromCloses(linear(19, 100, 1), 5*time.Minute), cfg)
	assert.False(t, ok, "fewer than 20 candles")

	_, ok = DetectStock("TCS.NS", candlesFromCloses(filled(80, 100), 5*time.Minute), cfg)
	assert.False(t, ok, "flat prices never cross")

	// Detect is ScanSnapshots over StockSnapshots.
	closes := make([]float64, 90)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/6) + float64(i)*0.05
	}
	cs := candlesFromCloses(closes, 5*time.Minute)
	want, wantOK := ScanSnapshots("TCS.NS", StockSnapshots(cs, cfg), cfg, DefaultShields())
	got, gotOK := DetectStock("TCS.NS", cs, cfg)
	assert.Equal(t, wantOK, gotOK)
	assert.Equal(t, want, got)
}

// breakoutCandles: a choppy 60-bar climb, a 10-bar pullback that drags EMA9
// under EMA21, then a +2 breakout bar on triple volume.
func breakoutCandles() market.Candles {
	closes := []float64{100}
	for i := 0; i < 59; i++ {
		d := 0.4
		if i%2 == 1 {
			d = -0.2
		}
		closes = append(closes, closes[len(closes)-1]+d)
	}
	for i := 0; i < 10; i++ {
		d := -0.5
		if i%2 == 1 {
			d = 0.2
		}
		closes = append(closes, closes[len(closes)-1]+d)
	}
	closes = append(closes, closes[len(closes)-1]+2)

	cs := candlesFromCloses(closes, 5*time.Minute)
	for i := range cs {
		cs[i].Volume = 1000
	}
	cs[len(cs)-1].Volume = 3000
	return cs
}

func TestDetectStock_BreakoutFixture(t *testing.T) {
	t.Parallel()

	cfg := StockConfigDefaults()
	cs := breakoutCandles()
	require.Len(t, cs, 71)

	snaps := StockSnapshots(cs, cfg)
	cur, prev := snaps[len(snaps)-1], snaps[len(snaps)-2]
	for _, s := range DefaultShields() {
		assert.True(t, s.Check(cur, prev, cfg), "shield %s", s.Name)
	}
	assert.LessOrEqual(t, prev.EMAFast, prev.EMASlow)
	assert.Greater(t, cur.EMAFast, cur.EMASlow)
	assert.InDelta(t, 21.45, cur.ADX, 0.05)
	assert.InDelta(t, 64.12, cur.RSI, 0.05)

	sig, ok := DetectStock("TCS.NS", cs, cfg)
	require.True(t, ok)
	assert.Equal(t, market.Long, sig.Side)
	assert.Equal(t, market.Stock, sig.Market)
	assert.Equal(t, "EMA Cross + 5 Shields (offset 1)", sig.Setup)
	assert.Equal(t, cs[len(cs)-1].Time, sig.DetectedAt)

	entry := cs[len(cs)-1].Close
	wantStop := math.Max(cur.EMASlow*(1-cfg.TrailingBuffer), entry*(1-cfg.StopLossPct))
	assert.InDelta(t, entry, sig.Entry, 1e-9)
	assert.InDelta(t, wantStop, sig.Stop, 1e-9)
	assert.InDelta(t, entry*0.995, sig.Stop, 1e-9, "percent stop is tighter here")
	assert.InDelta(t, entry+1.5*(entry-wantStop), sig.Target, 1e-9)
	require.NoError(t, sig.Validate())
}

func TestStockSnapshots_WarmUp(t *testing.T) {
	t.Parallel()

	cs := candlesFromCloses(linear(60, 100, 0.5), 5*time.Minute)
	snaps := StockSnapshots(cs, StockConfigDefaults())
	require.Len(t, snaps, 60)

	assert.True(t, math.IsNaN(snaps[0].EMAFast))
	assert.True(t, math.IsNaN(snaps[48].EMATrend))
	assert.False(t, math.IsNaN(snaps[49].EMATrend))
	assert.True(t, math.IsNaN(snaps[58].TrendSlope))
	assert.Greater(t, snaps[59].TrendSlope, 0.0)
	assert.False(t, math.IsNaN(snaps[59].ADX))
	assert.InDelta(t, 1.0, snaps[59].VolumeAvg, 1e-12)
}

func TestStockShieldsDetector(t *testing.T) {
	t.Parallel()

	d := NewStockShields(StockConfigDefaults())
	assert.Equal(t, "stock-shields", d.Name())
	assert.Equal(t, []string{"5m"}, d.Timeframes())
	assert.Len(t, d.Shields, 5)

	assert.Panics(t, func() { NewStockShields(StockConfig{}) })
}
