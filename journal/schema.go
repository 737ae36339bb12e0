package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id        TEXT PRIMARY KEY,
	symbol          TEXT NOT NULL,
	entry_price     REAL NOT NULL,
	avg_entry_price REAL NOT NULL,
	exit_price      REAL NOT NULL,
	entry_time      TIMESTAMP NOT NULL,
	exit_time       TIMESTAMP NOT NULL,
	quantity        REAL NOT NULL,
	leverage        REAL NOT NULL,
	margin          REAL NOT NULL,
	realized_pl     REAL NOT NULL,
	return_pct      REAL NOT NULL,
	hold_hours      REAL NOT NULL,
	added           INTEGER NOT NULL,
	reason          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);

CREATE TABLE IF NOT EXISTS decisions (
	symbol          TEXT NOT NULL,
	signal_date     TIMESTAMP NOT NULL,
	scheduled_entry TIMESTAMP NOT NULL,
	entry_pct_chg   REAL NOT NULL,
	delayed         INTEGER NOT NULL,
	reason          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_signal_date ON decisions(signal_date);
`
