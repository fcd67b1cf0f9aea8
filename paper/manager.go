// Package paper manages the lifecycle of paper trades on one ledger:
// open from a signal, evaluate against live prices, close into history.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/scalper/internal/id"
	"github.com/rustyeddy/scalper/ledger"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/strategies"
)

var (
	ErrTradeNotFound = errors.New("trade not found")
	ErrTradeClosed   = errors.New("trade already closed")
	ErrWrongMarket   = errors.New("signal does not belong to this ledger")
)

// Store persists the active set so open trades survive a restart.
type Store interface {
	SaveOpen(ctx context.Context, tag market.Tag, t ledger.Trade) error
	RemoveOpen(ctx context.Context, tag market.Tag, tradeID string) error
	LoadOpen(ctx context.Context, tag market.Tag) ([]ledger.Trade, error)
}

// Listener is notified after a trade is closed. It is called with the
// manager unlocked.
type Listener interface {
	OnTradeClosed(t ledger.Trade)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(t ledger.Trade)

func (f ListenerFunc) OnTradeClosed(t ledger.Trade) { f(t) }

// Manager owns the active trades of one ledger. Every mutation holds mu, so
// closes reach the ledger in a single chronological order.
type Manager struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	active   map[string]*ledger.Trade
	closed   map[string]struct{}
	store    Store
	listener Listener
	logger   zerolog.Logger
	now      func() time.Time
}

// NewManager restores the active set from store. Open rows for trades that
// already reached history are dropped.
func NewManager(ctx context.Context, l *ledger.Ledger, store Store, logger zerolog.Logger) (*Manager, error) {
	m := &Manager{
		ledger: l,
		active: make(map[string]*ledger.Trade),
		closed: make(map[string]struct{}),
		store:  store,
		logger: logger.With().Str("component", "paper").Str("market", string(l.Tag)).Logger(),
		now:    time.Now,
	}

	for _, rec := range l.History() {
		if t, ok := rec.(ledger.Trade); ok {
			m.closed[t.ID] = struct{}{}
		}
	}

	if store == nil {
		return m, nil
	}
	open, err := store.LoadOpen(ctx, l.Tag)
	if err != nil {
		return nil, fmt.Errorf("load open trades: %w", err)
	}
	for i := range open {
		t := open[i]
		if _, done := m.closed[t.ID]; done {
			m.logger.Warn().Str("trade", t.ID).Msg("dropping stale open row for closed trade")
			if err := store.RemoveOpen(ctx, l.Tag, t.ID); err != nil {
				m.logger.Error().Err(err).Str("trade", t.ID).Msg("remove stale open row")
			}
			continue
		}
		m.active[t.ID] = &t
	}
	return m, nil
}

// SetListener sets an optional listener for closed trades.
func (m *Manager) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// SetClock replaces the clock used to stamp open and close times.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Manager) Ledger() *ledger.Ledger { return m.ledger }
func (m *Manager) Tag() market.Tag        { return m.ledger.Tag }

// Open turns a signal into an OPEN trade and adds it to the active set.
func (m *Manager) Open(ctx context.Context, sig strategies.Signal) (ledger.Trade, error) {
	t, _, err := m.open(ctx, sig, false)
	return t, err
}

// OpenIfIdle is Open, but only when sig.Symbol has no open trade. The check
// and the insert happen under one lock; opened is false when the symbol was
// busy.
func (m *Manager) OpenIfIdle(ctx context.Context, sig strategies.Signal) (t ledger.Trade, opened bool, err error) {
	return m.open(ctx, sig, true)
}

func (m *Manager) open(ctx context.Context, sig strategies.Signal, idleOnly bool) (ledger.Trade, bool, error) {
	if err := sig.Validate(); err != nil {
		return ledger.Trade{}, false, fmt.Errorf("open trade: %w", err)
	}
	tag := m.Tag()
	if sig.Market.Family() != tag.Family() {
		return ledger.Trade{}, false, fmt.Errorf("open trade: %w: %s signal on %s", ErrWrongMarket, sig.Market, tag)
	}
	if sig.Side == market.Short && !tag.AllowsShort() {
		return ledger.Trade{}, false, fmt.Errorf("open trade: %w: %s cannot go short", ErrWrongMarket, tag)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if idleOnly && m.hasActive(sig.Symbol) {
		return ledger.Trade{}, false, nil
	}

	now := m.now().UTC()
	t := ledger.Trade{
		ID:       id.NewAt(now),
		Symbol:   sig.Symbol,
		Market:   tag,
		Side:     sig.Side,
		Entry:    sig.Entry,
		Stop:     sig.Stop,
		Target:   sig.Target,
		RiskPct:  sig.RiskPct,
		Setup:    sig.Setup,
		Status:   ledger.StatusOpen,
		OpenTime: now,
	}

	if m.store != nil {
		if err := m.store.SaveOpen(ctx, tag, t); err != nil {
			return ledger.Trade{}, false, fmt.Errorf("open trade: %w", err)
		}
	}
	m.active[t.ID] = &t

	m.logger.Info().
		Str("trade", t.ID).
		Str("symbol", t.Symbol).
		Str("side", string(t.Side)).
		Float64("entry", t.Entry).
		Float64("stop", t.Stop).
		Float64("target", t.Target).
		Msg("opened")
	return t, true, nil
}

// Active returns the open trades ordered by id (and so by open time).
func (m *Manager) Active() []ledger.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ledger.Trade, 0, len(m.active))
	for _, t := range m.active {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HasActive reports whether symbol already has an open trade.
func (m *Manager) HasActive(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasActive(symbol)
}

func (m *Manager) hasActive(symbol string) bool {
	for _, t := range m.active {
		if t.Symbol == symbol {
			return true
		}
	}
	return false
}

func hitStop(t ledger.Trade, price float64) bool {
	if t.Side == market.Short {
		return price >= t.Stop
	}
	return price <= t.Stop
}

func hitTarget(t ledger.Trade, price float64) bool {
	if t.Side == market.Short {
		return price <= t.Target
	}
	return price >= t.Target
}

// Evaluate decides the outcome of t at price. The stop is checked first: a
// single sample past both levels counts as a loss.
func Evaluate(t ledger.Trade, price float64) ledger.Outcome {
	if price <= 0 {
		return ledger.None
	}
	if hitStop(t, price) {
		return ledger.Loss
	}
	if hitTarget(t, price) {
		return ledger.Win
	}
	return ledger.None
}

func (m *Manager) Evaluate(t ledger.Trade, price float64) ledger.Outcome {
	return Evaluate(t, price)
}

// Close moves an active trade to history with outcome and price.
func (m *Manager) Close(ctx context.Context, tradeID string, outcome ledger.Outcome, price float64) (ledger.Trade, error) {
	if outcome != ledger.Win && outcome != ledger.Loss {
		return ledger.Trade{}, fmt.Errorf("close trade: outcome %q is not WIN or LOSS", outcome)
	}
	if price <= 0 {
		return ledger.Trade{}, fmt.Errorf("close trade: price %v must be positive", price)
	}

	m.mu.Lock()
	t, err := m.closeLocked(ctx, tradeID, outcome, price)
	listener := m.listener
	m.mu.Unlock()

	if err != nil {
		return ledger.Trade{}, err
	}
	if listener != nil {
		listener.OnTradeClosed(t)
	}
	return t, nil
}

// EvaluateAndClose evaluates the active trade at price and closes it when the
// stop or target is reached. It returns nil when the trade stays open.
func (m *Manager) EvaluateAndClose(ctx context.Context, tradeID string, price float64) (*ledger.Trade, error) {
	m.mu.Lock()

	t, err := m.lookupLocked(tradeID)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	outcome := Evaluate(*t, price)
	if outcome == ledger.None {
		m.mu.Unlock()
		return nil, nil
	}

	done, err := m.closeLocked(ctx, tradeID, outcome, price)
	listener := m.listener
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if listener != nil {
		listener.OnTradeClosed(done)
	}
	return &done, nil
}

func (m *Manager) lookupLocked(tradeID string) (*ledger.Trade, error) {
	t, ok := m.active[tradeID]
	if ok {
		return t, nil
	}
	if _, ok := m.closed[tradeID]; ok {
		return nil, fmt.Errorf("close trade: %w: %q", ErrTradeClosed, tradeID)
	}
	return nil, fmt.Errorf("close trade: %w: %q", ErrTradeNotFound, tradeID)
}

func (m *Manager) closeLocked(ctx context.Context, tradeID string, outcome ledger.Outcome, price float64) (ledger.Trade, error) {
	t, err := m.lookupLocked(tradeID)
	if err != nil {
		return ledger.Trade{}, err
	}

	done := *t
	done.Status = ledger.StatusClosed
	done.CloseTime = m.now().UTC()
	done.Outcome = outcome
	done.ClosePrice = price

	if err := m.ledger.Append(ctx, done); err != nil {
		return ledger.Trade{}, fmt.Errorf("close trade %q: %w", tradeID, err)
	}
	delete(m.active, tradeID)
	m.closed[tradeID] = struct{}{}

	if m.store != nil {
		if err := m.store.RemoveOpen(ctx, m.ledger.Tag, tradeID); err != nil {
			// History already has the trade; NewManager drops the stale row.
			m.logger.Error().Err(err).Str("trade", tradeID).Msg("remove open row")
		}
	}

	m.logger.Info().
		Str("trade", done.ID).
		Str("symbol", done.Symbol).
		Str("outcome", string(done.Outcome)).
		Float64("price", done.ClosePrice).
		Msg("closed")
	return done, nil
}

// Poll evaluates every active trade at the provider's last price. Symbols
// without a price are left open.
func (m *Manager) Poll(ctx context.Context, prices market.PriceProvider) ([]ledger.Trade, error) {
	var closed []ledger.Trade
	var errs []error

	for _, t := range m.Active() {
		if err := ctx.Err(); err != nil {
			return closed, err
		}

		price, ok, err := prices.LastPrice(ctx, t.Symbol)
		if err != nil {
			m.logger.Warn().Err(err).Str("symbol", t.Symbol).Msg("no live price")
			errs = append(errs, fmt.Errorf("%s: %w", t.Symbol, err))
			continue
		}
		if !ok {
			continue
		}

		done, err := m.EvaluateAndClose(ctx, t.ID, price)
		if err != nil {
			// Closed concurrently by someone else.
			if errors.Is(err, ErrTradeClosed) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		if done != nil {
			closed = append(closed, *done)
		}
	}
	return closed, errors.Join(errs...)
}
