package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/scalper/ledger"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/strategies"
)

type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Journal = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One writer keeps history appends in order and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// SetClock replaces the clock used to stamp the signal log.
func (j *SQLite) SetClock(now func() time.Time) { j.now = now }

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Append implements ledger.Store.
func (j *SQLite) Append(ctx context.Context, tag market.Tag, rec ledger.Record) error {
	switch r := rec.(type) {
	case ledger.Trade:
		_, err := j.db.ExecContext(ctx, `
			INSERT INTO history
			(tag, kind, trade_id, symbol, side, entry, stop, target, risk_pct, setup, outcome, close_price, open_time, close_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(tag), ledger.KindTrade, r.ID, r.Symbol, string(r.Side),
			r.Entry, r.Stop, r.Target, r.RiskPct, r.Setup,
			string(r.Outcome), r.ClosePrice, nullTime(r.OpenTime), nullTime(r.CloseTime),
		)
		if err != nil {
			return fmt.Errorf("insert trade %q: %w", r.ID, err)
		}
	case ledger.Credit:
		_, err := j.db.ExecContext(ctx, `
			INSERT INTO history (tag, kind, amount, note, at)
			VALUES (?, ?, ?, ?, ?)`,
			string(tag), ledger.KindCredit, r.Amount, r.Note, nullTime(r.At),
		)
		if err != nil {
			return fmt.Errorf("insert credit: %w", err)
		}
	default:
		return fmt.Errorf("append: unsupported record %T", rec)
	}
	return nil
}

const historyCols = `seq, tag, kind, trade_id, symbol, side, entry, stop, target, risk_pct, setup,
	outcome, close_price, open_time, close_time, amount, note, at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(s rowScanner) (int64, ledger.Record, error) {
	var (
		seq                                  int64
		tag, kind, id, symbol, side, setup   string
		outcome, note                        string
		entry, stop, target, riskPct, closeP float64
		amount                               float64
		openT, closeT, at                    sql.NullTime
	)
	if err := s.Scan(&seq, &tag, &kind, &id, &symbol, &side, &entry, &stop, &target, &riskPct, &setup,
		&outcome, &closeP, &openT, &closeT, &amount, &note, &at); err != nil {
		return 0, nil, err
	}

	switch kind {
	case ledger.KindCredit:
		return seq, ledger.Credit{Amount: amount, At: at.Time, Note: note}, nil
	case ledger.KindTrade:
		return seq, ledger.Trade{
			ID:         id,
			Symbol:     symbol,
			Market:     market.Tag(tag),
			Side:       market.Side(side),
			Entry:      entry,
			Stop:       stop,
			Target:     target,
			RiskPct:    riskPct,
			Setup:      setup,
			Status:     ledger.StatusClosed,
			OpenTime:   openT.Time,
			CloseTime:  closeT.Time,
			Outcome:    ledger.Outcome(outcome),
			ClosePrice: closeP,
		}, nil
	default:
		return seq, nil, fmt.Errorf("history row %d: unknown kind %q", seq, kind)
	}
}

// Load implements ledger.Store: the history of tag in append order.
func (j *SQLite) Load(ctx context.Context, tag market.Tag) ([]ledger.Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+historyCols+` FROM history WHERE tag = ? ORDER BY seq ASC`, string(tag))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Record
	for rows.Next() {
		_, rec, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveOpen implements paper.Store.
func (j *SQLite) SaveOpen(ctx context.Context, tag market.Tag, t ledger.Trade) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO open_trades
		(trade_id, tag, symbol, side, entry, stop, target, risk_pct, setup, open_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(tag), t.Symbol, string(t.Side), t.Entry, t.Stop, t.Target, t.RiskPct, t.Setup, t.OpenTime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save open trade %q: %w", t.ID, err)
	}
	return nil
}

func (j *SQLite) RemoveOpen(ctx context.Context, tag market.Tag, tradeID string) error {
	_, err := j.db.ExecContext(ctx,
		`DELETE FROM open_trades WHERE trade_id = ? AND tag = ?`, tradeID, string(tag))
	return err
}

func (j *SQLite) LoadOpen(ctx context.Context, tag market.Tag) ([]ledger.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, symbol, side, entry, stop, target, risk_pct, setup, open_time
		FROM open_trades
		WHERE tag = ?
		ORDER BY trade_id ASC`, string(tag))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Trade
	for rows.Next() {
		t := ledger.Trade{Market: tag, Status: ledger.StatusOpen}
		var side string
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.Entry, &t.Stop, &t.Target, &t.RiskPct, &t.Setup, &t.OpenTime); err != nil {
			return nil, err
		}
		t.Side = market.Side(side)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LogSignal records a detection whether or not it became a trade.
func (j *SQLite) LogSignal(ctx context.Context, sig strategies.Signal, routed []market.Tag) error {
	tags := make([]string, len(routed))
	for i, t := range routed {
		tags[i] = string(t)
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO signals
		(symbol, market, side, entry, stop, target, risk_pct, setup, detected_at, logged_at, routed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.Symbol, string(sig.Market), string(sig.Side), sig.Entry, sig.Stop, sig.Target,
		sig.RiskPct, sig.Setup, sig.DetectedAt.UTC(), j.now().UTC(), strings.Join(tags, ","),
	)
	if err != nil {
		return fmt.Errorf("log signal %s: %w", sig.Symbol, err)
	}
	return nil
}
