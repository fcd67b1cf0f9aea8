package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/scalper/market"
)

// Account describes one paper account.
type Account struct {
	Tag            market.Tag `json:"tag" yaml:"tag"`
	Currency       string     `json:"currency" yaml:"currency"`
	InitialCapital float64    `json:"initial_capital" yaml:"initial_capital"`
	Leverage       float64    `json:"leverage" yaml:"leverage"`
}

// Ledger is the history of one account. Reads fold a snapshot of history
// under a read lock; appends are serialized so the fold order is the append
// order.
type Ledger struct {
	Account

	mu      sync.RWMutex
	history []Record
	store   Store
	logger  zerolog.Logger
	now     func() time.Time
}

// Open loads the account history from store.
func Open(ctx context.Context, acct Account, store Store, logger zerolog.Logger) (*Ledger, error) {
	if store == nil {
		store = NewMemoryStore()
	}
	recs, err := store.Load(ctx, acct.Tag)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", acct.Tag, err)
	}
	return &Ledger{
		Account: acct,
		history: recs,
		store:   store,
		logger:  logger.With().Str("component", "ledger").Str("market", string(acct.Tag)).Logger(),
		now:     time.Now,
	}, nil
}

// SetClock replaces the clock used to stamp credits.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *Ledger) snapshot() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.history))
	copy(out, l.history)
	return out
}

// History returns a copy of the records in append order.
func (l *Ledger) History() []Record { return l.snapshot() }

// Balance folds the current history.
func (l *Ledger) Balance() float64 {
	return Fold(l.InitialCapital, l.Leverage, l.snapshot(), l.logger)
}

// Append persists rec and then adds it to history. Only closed trades and
// positive credits are accepted.
func (l *Ledger) Append(ctx context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(ctx, rec)
}

func (l *Ledger) appendLocked(ctx context.Context, rec Record) error {
	switch r := rec.(type) {
	case Trade:
		if r.Status != StatusClosed {
			return fmt.Errorf("append: %w: trade %q is %s", ErrInvalidRecord, r.ID, r.Status)
		}
	case Credit:
		if err := checkCredit(r); err != nil {
			return fmt.Errorf("append: %w", err)
		}
	default:
		return fmt.Errorf("append: %w: unsupported record %T", ErrInvalidRecord, rec)
	}

	if err := l.store.Append(ctx, l.Tag, rec); err != nil {
		return fmt.Errorf("append %s record: %w", rec.Kind(), err)
	}
	l.history = append(l.history, rec)
	return nil
}

// EnsureSufficient tops the account up with a Credit of topUp when the
// balance is below minRequired. ok reports whether the resulting balance
// meets minRequired.
func (l *Ledger) EnsureSufficient(ctx context.Context, minRequired, topUp float64) (bool, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := Fold(l.InitialCapital, l.Leverage, l.history, l.logger)
	if bal >= minRequired {
		return true, bal, nil
	}
	if topUp <= 0 {
		return false, bal, nil
	}

	credit := Credit{Amount: topUp, At: l.now().UTC(), Note: "auto top-up"}
	if err := l.appendLocked(ctx, credit); err != nil {
		return false, bal, err
	}
	l.logger.Info().
		Float64("balance", bal).
		Float64("floor", minRequired).
		Float64("credit", topUp).
		Msg("balance under floor, credited")

	bal = Fold(l.InitialCapital, l.Leverage, l.history, l.logger)
	return bal >= minRequired, bal, nil
}

// Summary is a performance overview of the account.
type Summary struct {
	Tag      market.Tag `json:"tag"`
	Currency string     `json:"currency"`

	Initial  float64 `json:"initial"`
	Balance  float64 `json:"balance"`
	Credits  float64 `json:"credits"`
	Realized float64 `json:"realized"`

	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Skipped int     `json:"skipped"`
	WinRate float64 `json:"win_rate"` // wins / trades
	Growth  float64 `json:"growth"`   // (balance - initial) / initial
}

func (l *Ledger) Summary() Summary {
	s := Summary{
		Tag:      l.Tag,
		Currency: l.Currency,
		Initial:  l.InitialCapital,
		Balance:  l.InitialCapital,
	}

	for _, st := range Replay(l.InitialCapital, l.Leverage, l.snapshot(), zerolog.Nop()) {
		s.Balance = st.Balance
		if st.Err != nil {
			s.Skipped++
			continue
		}
		switch r := st.Record.(type) {
		case Credit:
			s.Credits += r.Amount
		case Trade:
			s.Trades++
			s.Realized += st.Delta
			switch r.Outcome {
			case Win:
				s.Wins++
			case Loss:
				s.Losses++
			}
		}
	}

	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	if s.Initial > 0 {
		s.Growth = (s.Balance - s.Initial) / s.Initial
	}
	return s
}
