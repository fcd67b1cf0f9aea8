package journal

// Schema is applied on every open; statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS history (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	tag TEXT NOT NULL,
	kind TEXT NOT NULL,
	trade_id TEXT NOT NULL DEFAULT '',
	symbol TEXT NOT NULL DEFAULT '',
	side TEXT NOT NULL DEFAULT '',
	entry REAL NOT NULL DEFAULT 0,
	stop REAL NOT NULL DEFAULT 0,
	target REAL NOT NULL DEFAULT 0,
	risk_pct REAL NOT NULL DEFAULT 0,
	setup TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL DEFAULT '',
	close_price REAL NOT NULL DEFAULT 0,
	open_time DATETIME,
	close_time DATETIME,
	amount REAL NOT NULL DEFAULT 0,
	note TEXT NOT NULL DEFAULT '',
	at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_history_tag ON history(tag, seq);
CREATE INDEX IF NOT EXISTS idx_history_trade ON history(trade_id);
CREATE INDEX IF NOT EXISTS idx_history_close ON history(close_time);

CREATE TABLE IF NOT EXISTS open_trades (
	trade_id TEXT PRIMARY KEY,
	tag TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	entry REAL NOT NULL,
	stop REAL NOT NULL,
	target REAL NOT NULL,
	risk_pct REAL NOT NULL,
	setup TEXT NOT NULL,
	open_time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	market TEXT NOT NULL,
	side TEXT NOT NULL,
	entry REAL NOT NULL,
	stop REAL NOT NULL,
	target REAL NOT NULL,
	risk_pct REAL NOT NULL,
	setup TEXT NOT NULL,
	detected_at DATETIME NOT NULL,
	logged_at DATETIME NOT NULL,
	routed TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_logged ON signals(logged_at);
`
