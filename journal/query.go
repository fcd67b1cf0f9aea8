package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/scalper/ledger"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/strategies"
)

// GetTrade returns a closed trade from history by id.
func (j *SQLite) GetTrade(ctx context.Context, tradeID string) (ledger.Trade, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT `+historyCols+` FROM history WHERE kind = ? AND trade_id = ?`, ledger.KindTrade, tradeID)

	_, rec, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Trade{}, fmt.Errorf("trade %q %w", tradeID, ErrNotFound)
		}
		return ledger.Trade{}, err
	}
	return rec.(ledger.Trade), nil
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
// An empty tag matches every ledger.
func (j *SQLite) ListTradesClosedBetween(ctx context.Context, tag market.Tag, start, end time.Time) ([]ledger.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+historyCols+`
		FROM history
		WHERE kind = ? AND close_time >= ? AND close_time < ? AND (? = '' OR tag = ?)
		ORDER BY close_time ASC, seq ASC`,
		ledger.KindTrade, start.UTC(), end.UTC(), string(tag), string(tag))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Trade
	for rows.Next() {
		_, rec, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec.(ledger.Trade))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSignalsBetween returns logged signals with logged_at in [start, end).
func (j *SQLite) ListSignalsBetween(ctx context.Context, start, end time.Time) ([]SignalRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, symbol, market, side, entry, stop, target, risk_pct, setup, detected_at, logged_at, routed
		FROM signals
		WHERE logged_at >= ? AND logged_at < ?
		ORDER BY id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var (
			rec                  SignalRecord
			sig                  strategies.Signal
			mkt, side, routedCSV string
		)
		if err := rows.Scan(&rec.ID, &sig.Symbol, &mkt, &side, &sig.Entry, &sig.Stop, &sig.Target,
			&sig.RiskPct, &sig.Setup, &sig.DetectedAt, &rec.LoggedAt, &routedCSV); err != nil {
			return nil, err
		}
		sig.Market = market.Tag(mkt)
		sig.Side = market.Side(side)
		rec.Signal = sig
		if routedCSV != "" {
			for _, t := range strings.Split(routedCSV, ",") {
				rec.Routed = append(rec.Routed, market.Tag(t))
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
