package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kovrin/spikeshort/ledger"
	"github.com/kovrin/spikeshort/selector"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t ledger.TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, entry_price, avg_entry_price, exit_price, entry_time, exit_time,
		 quantity, leverage, margin, realized_pl, return_pct, hold_hours, added, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, t.EntryPrice, t.AvgEntryPrice, t.ExitPrice, t.EntryTime, t.ExitTime,
		t.Quantity, t.Leverage, t.Margin, t.RealizedPL, t.ReturnPct, t.HoldHours, t.Added, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordDecision(d selector.EntryDecision) error {
	_, err := j.db.Exec(`
		INSERT INTO decisions
		(symbol, signal_date, scheduled_entry, entry_pct_chg, delayed, reason)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.Symbol, d.SignalDate, d.ScheduledEntryDate, d.EntryPctChg, d.Delayed, d.Reason,
	)
	return err
}

// ListTradesClosedBetween returns trades whose exit time falls in
// [start, end), ordered by exit time.
func (j *SQLiteJournal) ListTradesClosedBetween(start, end time.Time) ([]ledger.TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, entry_price, avg_entry_price, exit_price, entry_time, exit_time,
		       quantity, leverage, margin, realized_pl, return_pct, hold_hours, added, reason
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []ledger.TradeRecord
	for rows.Next() {
		var t ledger.TradeRecord
		if err := rows.Scan(
			&t.ID, &t.Symbol, &t.EntryPrice, &t.AvgEntryPrice, &t.ExitPrice, &t.EntryTime, &t.ExitTime,
			&t.Quantity, &t.Leverage, &t.Margin, &t.RealizedPL, &t.ReturnPct, &t.HoldHours, &t.Added, &t.Reason,
		); err != nil {
			return nil, err
		}
		recs = append(recs, t)
	}
	return recs, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
