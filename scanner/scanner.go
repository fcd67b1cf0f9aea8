// Package scanner runs the detectors over every configured symbol and routes
// the resulting signals onto the paper ledgers.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/scalper/ledger"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/metrics"
	"github.com/rustyeddy/scalper/notify"
	"github.com/rustyeddy/scalper/paper"
	"github.com/rustyeddy/scalper/risk"
	"github.com/rustyeddy/scalper/strategies"
)

// SignalLog records every detected signal with the ledgers it was routed to.
type SignalLog interface {
	LogSignal(ctx context.Context, sig strategies.Signal, routed []market.Tag) error
}

type Config struct {
	Concurrency int
	SessionGate bool
	Policy      risk.Policy
}

// Account is a ledger the scanner may open trades on.
type Account struct {
	Manager    *paper.Manager
	MinBalance float64
	TopUp      float64
}

type watchlist struct {
	symbols []string
	limit   int
}

// Skip explains why a routed signal did not become a trade.
type Skip struct {
	Symbol string
	Ledger market.Tag
	Reason string
}

// Report summarizes one scan of a market.
type Report struct {
	Market   market.Tag
	Closed   bool // outside the session; nothing was scanned
	Scanned  int
	Signals  []strategies.Signal
	Opened   []ledger.Trade
	Skipped  []Skip
	Duration time.Duration
}

type Scanner struct {
	cfg      Config
	candles  market.CandleProvider
	registry *strategies.Registry

	mu       sync.Mutex
	watch    map[market.Tag]watchlist
	accounts map[market.Tag]Account

	signals  SignalLog
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

func New(cfg Config, candles market.CandleProvider, registry *strategies.Registry, logger zerolog.Logger) *Scanner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Scanner{
		cfg:      cfg,
		candles:  candles,
		registry: registry,
		watch:    make(map[market.Tag]watchlist),
		accounts: make(map[market.Tag]Account),
		logger:   logger.With().Str("component", "scanner").Logger(),
		now:      time.Now,
	}
}

func (s *Scanner) SetSignalLog(l SignalLog)       { s.signals = l }
func (s *Scanner) SetNotifier(n notify.Notifier) { s.notifier = n }
func (s *Scanner) SetMetrics(m *metrics.Metrics) { s.metrics = m }
func (s *Scanner) SetClock(now func() time.Time) { s.now = now }

// Watch sets the symbols scanned for a market family and the candle window
// fetched per timeframe.
func (s *Scanner) Watch(family market.Tag, symbols []string, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watch[family.Family()] = watchlist{symbols: append([]string(nil), symbols...), limit: limit}
}

// AddAccount registers a ledger and hooks its closures into notifications
// and metrics.
func (s *Scanner) AddAccount(a Account) {
	tag := a.Manager.Tag()
	a.Manager.SetListener(paper.ListenerFunc(func(t ledger.Trade) { s.onClosed(a, t) }))

	s.mu.Lock()
	s.accounts[tag] = a
	s.mu.Unlock()

	s.metrics.SetBalance(string(tag), a.Manager.Ledger().Balance())
}

func (s *Scanner) account(tag market.Tag) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[tag]
	return a, ok
}

// Accounts returns the registered accounts ordered by tag.
func (s *Scanner) Accounts() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manager.Tag() < out[j].Manager.Tag() })
	return out
}

// Route returns the ledgers a signal is opened on. Crypto signals go to
// futures on either side and to spot only when LONG.
func (s *Scanner) Route(sig strategies.Signal) []market.Tag {
	var candidates []market.Tag
	switch sig.Market.Family() {
	case market.Crypto:
		candidates = []market.Tag{market.CryptoFuture, market.CryptoSpot}
	default:
		candidates = []market.Tag{sig.Market}
	}

	var out []market.Tag
	for _, tag := range candidates {
		if _, ok := s.account(tag); !ok {
			continue
		}
		if sig.Side == market.Short && !tag.AllowsShort() {
			continue
		}
		out = append(out, tag)
	}
	return out
}

type detection struct {
	symbol string
	signal strategies.Signal
	found  bool
	err    error
}

// Scan runs the family's detector over its watchlist. Detection is
// concurrent; trades are opened one signal at a time in watchlist order.
// Per-symbol failures are joined into the returned error without stopping
// the scan.
func (s *Scanner) Scan(ctx context.Context, family market.Tag) (Report, error) {
	family = family.Family()
	rep := Report{Market: family}

	if s.cfg.SessionGate && !market.SessionFor(family).IsOpen(s.now()) {
		s.logger.Debug().Str("market", string(family)).Msg("market closed, skipping scan")
		rep.Closed = true
		return rep, nil
	}

	det, ok := s.registry.Lookup(family)
	if !ok {
		return rep, fmt.Errorf("scan %s: no detector registered", family)
	}
	s.mu.Lock()
	w := s.watch[family]
	s.mu.Unlock()

	start := time.Now()
	found, err := s.detect(ctx, det, w)
	rep.Duration = time.Since(start)
	s.metrics.ObserveScan(string(family), rep.Duration)
	if err != nil {
		return rep, err
	}

	var errs []error
	for _, d := range found {
		rep.Scanned++
		if d.err != nil {
			s.logger.Warn().Err(d.err).Str("symbol", d.symbol).Msg("detection failed")
			errs = append(errs, fmt.Errorf("%s: %w", d.symbol, d.err))
			continue
		}
		if !d.found {
			continue
		}
		rep.Signals = append(rep.Signals, d.signal)
		if err := s.handle(ctx, d.signal, &rep); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.symbol, err))
		}
	}

	s.logger.Info().
		Str("market", string(family)).
		Int("scanned", rep.Scanned).
		Int("signals", len(rep.Signals)).
		Int("opened", len(rep.Opened)).
		Dur("took", rep.Duration).
		Msg("scan complete")
	return rep, errors.Join(errs...)
}

// ScanAll scans every registered market.
func (s *Scanner) ScanAll(ctx context.Context) ([]Report, error) {
	var reports []Report
	var errs []error
	for _, family := range s.registry.Markets() {
		rep, err := s.Scan(ctx, family)
		reports = append(reports, rep)
		if err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return reports, errors.Join(errs...)
}

func (s *Scanner) detect(ctx context.Context, det strategies.Detector, w watchlist) ([]detection, error) {
	out := make([]detection, len(w.symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, sym := range w.symbols {
		i, sym := i, sym
		g.Go(func() error {
			out[i].symbol = sym

			windows := make([]market.Candles, 0, len(det.Timeframes()))
			for _, tf := range det.Timeframes() {
				cs, err := s.candles.Fetch(gctx, sym, tf, w.limit)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					out[i].err = fmt.Errorf("fetch %s: %w", tf, err)
					return nil
				}
				windows = append(windows, cs)
			}
			out[i].signal, out[i].found = det.Scan(sym, windows)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Scanner) handle(ctx context.Context, sig strategies.Signal, rep *Report) error {
	s.metrics.SignalDetected(string(sig.Market), string(sig.Side))

	routed := s.Route(sig)
	if s.signals != nil {
		if err := s.signals.LogSignal(ctx, sig, routed); err != nil {
			s.logger.Error().Err(err).Str("symbol", sig.Symbol).Msg("log signal")
		}
	}

	var errs []error
	for _, tag := range routed {
		acct, _ := s.account(tag)
		t, reason, err := s.open(ctx, acct, sig)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", tag, err))
		case reason != "":
			s.logger.Info().Str("symbol", sig.Symbol).Str("ledger", string(tag)).Str("reason", reason).Msg("signal not traded")
			rep.Skipped = append(rep.Skipped, Skip{Symbol: sig.Symbol, Ledger: tag, Reason: reason})
		default:
			rep.Opened = append(rep.Opened, t)
		}
	}
	return errors.Join(errs...)
}

func (s *Scanner) open(ctx context.Context, acct Account, sig strategies.Signal) (ledger.Trade, string, error) {
	m := acct.Manager
	l := m.Ledger()
	tag := string(m.Tag())

	if m.HasActive(sig.Symbol) {
		return ledger.Trade{}, "active trade", nil
	}

	before := l.Balance()
	ok, balance, err := l.EnsureSufficient(ctx, acct.MinBalance, acct.TopUp)
	if err != nil {
		return ledger.Trade{}, "", err
	}
	if balance > before {
		s.metrics.Credited(tag)
	}
	if !ok {
		return ledger.Trade{}, "insufficient balance", nil
	}

	d := risk.Evaluate(s.cfg.Policy, risk.Intent{
		Symbol:     sig.Symbol,
		Entry:      sig.Entry,
		Stop:       sig.Stop,
		Target:     sig.Target,
		RiskPct:    sig.RiskPct,
		Balance:    balance,
		Leverage:   l.Leverage,
		OpenTrades: len(m.Active()),
	})
	if !d.Allowed {
		return ledger.Trade{}, strings.Join(d.Codes(), ","), nil
	}

	t, opened, err := m.OpenIfIdle(ctx, sig)
	if err != nil {
		return ledger.Trade{}, "", err
	}
	if !opened {
		return ledger.Trade{}, "active trade", nil
	}
	s.metrics.TradeOpened(tag)
	s.metrics.SetBalance(tag, balance)

	if s.notifier != nil {
		note := notify.SignalNote{
			Signal:   sig,
			Ledger:   m.Tag(),
			Currency: l.Currency,
			Balance:  balance,
			Leverage: l.Leverage,
			Position: d.Position,
		}
		if err := s.notifier.NotifySignal(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("trade", t.ID).Msg("notify signal")
		}
	}
	return t, "", nil
}

func (s *Scanner) onClosed(a Account, t ledger.Trade) {
	l := a.Manager.Ledger()
	balance := l.Balance()
	s.metrics.TradeClosed(string(t.Market), string(t.Outcome))
	s.metrics.SetBalance(string(t.Market), balance)

	if s.notifier == nil {
		return
	}
	note := notify.CloseNote{Trade: t, Currency: l.Currency, Balance: balance}
	if err := s.notifier.NotifyClose(context.Background(), note); err != nil {
		s.logger.Error().Err(err).Str("trade", t.ID).Msg("notify close")
	}
}

// PollTrades evaluates the active trades of every account at the last price.
func (s *Scanner) PollTrades(ctx context.Context, prices market.PriceProvider) ([]ledger.Trade, error) {
	var closed []ledger.Trade
	var errs []error
	for _, a := range s.Accounts() {
		done, err := a.Manager.Poll(ctx, prices)
		closed = append(closed, done...)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Manager.Tag(), err))
		}
	}
	return closed, errors.Join(errs...)
}
