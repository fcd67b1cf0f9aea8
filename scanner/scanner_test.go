package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/scalper/ledger"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/metrics"
	"github.com/rustyeddy/scalper/notify"
	"github.com/rustyeddy/scalper/paper"
	"github.com/rustyeddy/scalper/risk"
	"github.com/rustyeddy/scalper/strategies"
)

type fakeCandles struct {
	fail map[string]bool
}

func (f fakeCandles) Fetch(_ context.Context, symbol, timeframe string, limit int) (market.Candles, error) {
	if f.fail[symbol] {
		return nil, errors.New("exchange unavailable")
	}
	return market.Candles{{Close: 100}}, nil
}

// fakeDetector emits a fixed signal per symbol and records the windows it saw.
type fakeDetector struct {
	tag     market.Tag
	signals map[string]strategies.Signal

	mu   sync.Mutex
	seen map[string]int
}

func (d *fakeDetector) Name() string         { return "fake" }
func (d *fakeDetector) Market() market.Tag   { return d.tag }
func (d *fakeDetector) Timeframes() []string { return []string{"1m", "5m"} }

func (d *fakeDetector) Scan(symbol string, windows []market.Candles) (strategies.Signal, bool) {
	d.mu.Lock()
	if d.seen == nil {
		d.seen = make(map[string]int)
	}
	d.seen[symbol] = len(windows)
	d.mu.Unlock()

	sig, ok := d.signals[symbol]
	return sig, ok
}

type recorder struct {
	mu      sync.Mutex
	signals []notify.SignalNote
	closes  []notify.CloseNote
	logged  map[string][]market.Tag
}

func (r *recorder) NotifySignal(_ context.Context, n notify.SignalNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, n)
	return nil
}

func (r *recorder) NotifyClose(_ context.Context, n notify.CloseNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes = append(r.closes, n)
	return nil
}

func (r *recorder) LogSignal(_ context.Context, sig strategies.Signal, routed []market.Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logged == nil {
		r.logged = make(map[string][]market.Tag)
	}
	r.logged[sig.Symbol] = routed
	return nil
}

func signal(symbol string, tag market.Tag, side market.Side) strategies.Signal {
	sig := strategies.Signal{
		Symbol:  symbol,
		Market:  tag,
		Side:    side,
		Entry:   100,
		Stop:    99,
		Target:  102,
		RiskPct: 0.01,
		Setup:   "fake",
	}
	if side == market.Short {
		sig.Stop, sig.Target = 101, 98
	}
	return sig
}

func account(t *testing.T, tag market.Tag, capital, leverage, floor, topUp float64) Account {
	t.Helper()
	ctx := context.Background()
	l, err := ledger.Open(ctx, ledger.Account{Tag: tag, Currency: "USDT", InitialCapital: capital, Leverage: leverage}, nil, zerolog.Nop())
	require.NoError(t, err)
	m, err := paper.NewManager(ctx, l, nil, zerolog.Nop())
	require.NoError(t, err)
	return Account{Manager: m, MinBalance: floor, TopUp: topUp}
}

func newScanner(t *testing.T, cfg Config, candles market.CandleProvider, ds ...strategies.Detector) (*Scanner, *recorder) {
	t.Helper()
	s := New(cfg, candles, strategies.NewRegistry(ds...), zerolog.Nop())
	rec := &recorder{}
	s.SetNotifier(rec)
	s.SetSignalLog(rec)
	s.SetMetrics(metrics.New())
	return s, rec
}

func TestRoute(t *testing.T) {
	t.Parallel()

	s, _ := newScanner(t, Config{}, fakeCandles{})
	s.AddAccount(account(t, market.CryptoSpot, 10, 1, 0, 0))
	s.AddAccount(account(t, market.CryptoFuture, 10, 5, 0, 0))

	assert.Equal(t, []market.Tag{market.CryptoFuture, market.CryptoSpot},
		s.Route(signal("BTC/USDT", market.Crypto, market.Long)))
	assert.Equal(t, []market.Tag{market.CryptoFuture},
		s.Route(signal("BTC/USDT", market.Crypto, market.Short)))
	assert.Empty(t, s.Route(signal("TCS.NS", market.Stock, market.Long)), "no stock account")

	s.AddAccount(account(t, market.Stock, 30000, 1, 0, 0))
	assert.Equal(t, []market.Tag{market.Stock},
		s.Route(signal("TCS.NS", market.Stock, market.Long)))
}

func TestScanOpensOnRoutedLedgers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	det := &fakeDetector{
		tag: market.Crypto,
		signals: map[string]strategies.Signal{
			"BTC/USDT": signal("BTC/USDT", market.Crypto, market.Long),
			"ETH/USDT": signal("ETH/USDT", market.Crypto, market.Short),
		},
	}
	s, rec := newScanner(t, Config{Concurrency: 2}, fakeCandles{fail: map[string]bool{"XRP/USDT": true}}, det)
	s.AddAccount(account(t, market.CryptoSpot, 10, 1, 5, 10))
	s.AddAccount(account(t, market.CryptoFuture, 10, 5, 5, 10))
	s.Watch(market.CryptoFuture, []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "XRP/USDT"}, 100)

	rep, err := s.Scan(ctx, market.Crypto)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XRP/USDT")

	assert.Equal(t, market.Crypto, rep.Market)
	assert.Equal(t, 4, rep.Scanned)
	require.Len(t, rep.Signals, 2)
	assert.Equal(t, "BTC/USDT", rep.Signals[0].Symbol)
	assert.Equal(t, "ETH/USDT", rep.Signals[1].Symbol)

	require.Len(t, rep.Opened, 3)
	assert.Equal(t, market.CryptoFuture, rep.Opened[0].Market)
	assert.Equal(t, market.CryptoSpot, rep.Opened[1].Market)
	assert.Equal(t, market.CryptoFuture, rep.Opened[2].Market)
	assert.Equal(t, market.Short, rep.Opened[2].Side)
	assert.Empty(t, rep.Skipped)

	assert.Equal(t, 2, det.seen["SOL/USDT"])
	assert.NotContains(t, det.seen, "XRP/USDT")

	assert.Equal(t, []market.Tag{market.CryptoFuture}, rec.logged["ETH/USDT"])
	require.Len(t, rec.signals, 3)
	first := rec.signals[0]
	assert.Equal(t, market.CryptoFuture, first.Ledger)
	assert.Equal(t, "USDT", first.Currency)
	assert.Equal(t, 5.0, first.Leverage)
	// risk 0.1 at a 1% stop wants 10 notional, within x5 buying power.
	assert.InDelta(t, 10.0, first.Position.Value, 1e-9)
}

func TestScanSkips(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	det := &fakeDetector{
		tag:     market.Crypto,
		signals: map[string]strategies.Signal{"BTC/USDT": signal("BTC/USDT", market.Crypto, market.Long)},
	}
	s, _ := newScanner(t, Config{Concurrency: 1}, fakeCandles{}, det)
	// Spot is under its floor with no top-up configured.
	s.AddAccount(account(t, market.CryptoSpot, 3, 1, 5, 0))
	s.AddAccount(account(t, market.CryptoFuture, 10, 5, 5, 10))
	s.Watch(market.Crypto, []string{"BTC/USDT"}, 100)

	rep, err := s.Scan(ctx, market.Crypto)
	require.NoError(t, err)
	require.Len(t, rep.Opened, 1)
	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, Skip{Symbol: "BTC/USDT", Ledger: market.CryptoSpot, Reason: "insufficient balance"}, rep.Skipped[0])

	rep, err = s.Scan(ctx, market.Crypto)
	require.NoError(t, err)
	assert.Empty(t, rep.Opened)
	require.Len(t, rep.Skipped, 2)
	assert.Equal(t, "active trade", rep.Skipped[0].Reason)
}

func TestScanTopsUp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	det := &fakeDetector{
		tag:     market.Crypto,
		signals: map[string]strategies.Signal{"BTC/USDT": signal("BTC/USDT", market.Crypto, market.Long)},
	}
	s, rec := newScanner(t, Config{Concurrency: 1}, fakeCandles{}, det)
	acct := account(t, market.CryptoSpot, 3, 1, 5, 10)
	s.AddAccount(acct)
	s.Watch(market.Crypto, []string{"BTC/USDT"}, 100)

	rep, err := s.Scan(ctx, market.Crypto)
	require.NoError(t, err)
	require.Len(t, rep.Opened, 1)

	hist := acct.Manager.Ledger().History()
	require.Len(t, hist, 1)
	credit, ok := hist[0].(ledger.Credit)
	require.True(t, ok)
	assert.Equal(t, 10.0, credit.Amount)
	assert.InDelta(t, 13.0, rec.signals[0].Balance, 1e-9)
}

func TestScanPolicyGate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	det := &fakeDetector{
		tag:     market.Stock,
		signals: map[string]strategies.Signal{"TCS.NS": signal("TCS.NS", market.Stock, market.Long)},
	}
	s, rec := newScanner(t, Config{Concurrency: 1, Policy: risk.Policy{MinRR: 3}}, fakeCandles{}, det)
	s.AddAccount(account(t, market.Stock, 30000, 1, 5, 0))
	s.Watch(market.Stock, []string{"TCS.NS"}, 100)

	rep, err := s.Scan(ctx, market.Stock)
	require.NoError(t, err)
	assert.Empty(t, rep.Opened)
	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, "RR_TOO_LOW", rep.Skipped[0].Reason)
	assert.Empty(t, rec.signals)
	assert.Equal(t, []market.Tag{market.Stock}, rec.logged["TCS.NS"])
}

func TestScanSessionGate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	crypto := &fakeDetector{tag: market.Crypto}
	stock := &fakeDetector{tag: market.Stock}
	s, _ := newScanner(t, Config{Concurrency: 1, SessionGate: true}, fakeCandles{}, crypto, stock)
	s.Watch(market.Crypto, []string{"BTC/USDT"}, 100)
	s.Watch(market.Stock, []string{"TCS.NS"}, 100)

	// Saturday 10:00 IST.
	s.SetClock(func() time.Time { return time.Date(2025, 1, 4, 4, 30, 0, 0, time.UTC) })

	reps, err := s.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, reps, 2)
	assert.Equal(t, market.Crypto, reps[0].Market)
	assert.False(t, reps[0].Closed)
	assert.Equal(t, 1, reps[0].Scanned)
	assert.Equal(t, market.Stock, reps[1].Market)
	assert.True(t, reps[1].Closed)
	assert.Zero(t, reps[1].Scanned)
}

func TestScanUnknownMarket(t *testing.T) {
	t.Parallel()

	s, _ := newScanner(t, Config{}, fakeCandles{})
	_, err := s.Scan(context.Background(), market.Stock)
	assert.Error(t, err)
}

func TestPollTrades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	det := &fakeDetector{
		tag:     market.Crypto,
		signals: map[string]strategies.Signal{"BTC/USDT": signal("BTC/USDT", market.Crypto, market.Long)},
	}
	s, rec := newScanner(t, Config{Concurrency: 1}, fakeCandles{}, det)
	spot := account(t, market.CryptoSpot, 10, 1, 5, 10)
	fut := account(t, market.CryptoFuture, 10, 5, 5, 10)
	s.AddAccount(spot)
	s.AddAccount(fut)
	s.Watch(market.Crypto, []string{"BTC/USDT"}, 100)

	_, err := s.Scan(ctx, market.Crypto)
	require.NoError(t, err)

	closed, err := s.PollTrades(ctx, market.NewPrices(map[string]float64{"BTC/USDT": 100.5}))
	require.NoError(t, err)
	assert.Empty(t, closed)

	closed, err = s.PollTrades(ctx, market.NewPrices(map[string]float64{"BTC/USDT": 102}))
	require.NoError(t, err)
	require.Len(t, closed, 2)
	assert.Equal(t, market.CryptoFuture, closed[0].Market)
	assert.Equal(t, market.CryptoSpot, closed[1].Market)

	require.Len(t, rec.closes, 2)
	for _, n := range rec.closes {
		assert.Equal(t, ledger.Win, n.Trade.Outcome)
		assert.Greater(t, n.Balance, 10.0)
	}
	assert.Empty(t, spot.Manager.Active())
	assert.Empty(t, fut.Manager.Active())
}
