// Package notify delivers signal and trade messages. Delivery channels
// (chat bots, sheets) live behind Notifier; the bundled implementation
// writes to the log.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/scalper/ledger"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/risk"
	"github.com/rustyeddy/scalper/strategies"
)

// SignalNote is a signal as routed to one ledger, with the size the ledger
// would take at its current balance.
type SignalNote struct {
	Signal   strategies.Signal
	Ledger   market.Tag
	Currency string
	Balance  float64
	Leverage float64
	Position risk.Position
}

// CloseNote is a trade leaving the active set.
type CloseNote struct {
	Trade    ledger.Trade
	Currency string
	Balance  float64
}

type Notifier interface {
	NotifySignal(ctx context.Context, n SignalNote) error
	NotifyClose(ctx context.Context, n CloseNote) error
}

// LogNotifier writes notifications as structured log events.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) NotifySignal(_ context.Context, note SignalNote) error {
	s := note.Signal
	n.logger.Info().
		Str("symbol", s.Symbol).
		Str("ledger", string(note.Ledger)).
		Str("side", string(s.Side)).
		Float64("entry", s.Entry).
		Float64("stop", s.Stop).
		Float64("target", s.Target).
		Str("setup", s.Setup).
		Str("size", amount(note.Currency, note.Position.Value)).
		Msg(FormatSignal(note))
	return nil
}

func (n *LogNotifier) NotifyClose(_ context.Context, note CloseNote) error {
	n.logger.Info().
		Str("trade", note.Trade.ID).
		Str("symbol", note.Trade.Symbol).
		Str("outcome", string(note.Trade.Outcome)).
		Msg(FormatClose(note))
	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifySignal(ctx context.Context, note SignalNote) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifySignal(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify signal: %w", err)
	}
	return nil
}

func (m Multi) NotifyClose(ctx context.Context, note CloseNote) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyClose(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify close: %w", err)
	}
	return nil
}

func amount(currency string, v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// priceFixed keeps more digits for low-priced crypto.
func priceFixed(tag market.Tag, v float64) string {
	places := int32(2)
	if tag.IsCrypto() {
		places = 6
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatSignal renders a one-message summary of a routed signal.
func FormatSignal(n SignalNote) string {
	s := n.Signal
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%s]", s.Symbol, s.Side, n.Ledger)
	fmt.Fprintf(&b, " entry %s", priceFixed(s.Market, s.Entry))
	fmt.Fprintf(&b, " sl %s", priceFixed(s.Market, s.Stop))
	fmt.Fprintf(&b, " tp %s", priceFixed(s.Market, s.Target))
	if s.Setup != "" {
		fmt.Fprintf(&b, " | %s", s.Setup)
	}
	if n.Position.Value > 0 {
		fmt.Fprintf(&b, " | size %s", amount(n.Currency, n.Position.Value))
		if n.Leverage > 1 {
			fmt.Fprintf(&b, " (x%s, margin %s)",
				decimal.NewFromFloat(n.Leverage).String(), amount(n.Currency, n.Position.Margin))
		}
	}
	if n.Balance > 0 {
		fmt.Fprintf(&b, " | balance %s", amount(n.Currency, n.Balance))
	}
	return b.String()
}

func FormatClose(n CloseNote) string {
	t := n.Trade
	return fmt.Sprintf("%s %s %s closed at %s | balance %s",
		t.Symbol, t.Side, t.Outcome, priceFixed(t.Market, t.ClosePrice), amount(n.Currency, n.Balance))
}
