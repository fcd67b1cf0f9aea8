// Package journal persists ledger history, the active trade set and the
// signal log in SQLite, and renders history as CSV or Org.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/scalper/ledger"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/paper"
	"github.com/rustyeddy/scalper/strategies"
)

var ErrNotFound = errors.New("not found")

// SignalRecord is one logged detection and the ledgers it was routed to.
type SignalRecord struct {
	ID       int64
	Signal   strategies.Signal
	LoggedAt time.Time
	Routed   []market.Tag
}

type SignalLog interface {
	LogSignal(ctx context.Context, sig strategies.Signal, routed []market.Tag) error
}

// Journal is everything the scanner needs persisted.
type Journal interface {
	ledger.Store
	paper.Store
	SignalLog
	Close() error
}
