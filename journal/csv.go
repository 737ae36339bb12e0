package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/kovrin/spikeshort/ledger"
	"github.com/kovrin/spikeshort/selector"
)

type CSVJournal struct {
	trades    *csv.Writer
	decisions *csv.Writer
	tf, df    *os.File
}

func NewCSV(tradesPath, decisionsPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	df, err := os.Create(decisionsPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	fail := func(err error) (*CSVJournal, error) {
		tf.Close()
		df.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	dw := csv.NewWriter(df)

	if err := tw.Write([]string{
		"trade_id", "symbol", "entry_price", "avg_entry_price", "exit_price",
		"entry_time", "exit_time", "quantity", "leverage", "margin",
		"realized_pl", "return_pct", "hold_hours", "added", "reason",
	}); err != nil {
		return fail(err)
	}
	if err := dw.Write([]string{
		"symbol", "signal_date", "scheduled_entry", "entry_pct_chg", "delayed", "reason",
	}); err != nil {
		return fail(err)
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return fail(err)
	}
	dw.Flush()
	if err := dw.Error(); err != nil {
		return fail(err)
	}

	return &CSVJournal{trades: tw, decisions: dw, tf: tf, df: df}, nil
}

func (j *CSVJournal) RecordTrade(t ledger.TradeRecord) error {
	err := j.trades.Write([]string{
		t.ID,
		t.Symbol,
		f(t.EntryPrice),
		f(t.AvgEntryPrice),
		f(t.ExitPrice),
		t.EntryTime.Format(time.RFC3339),
		t.ExitTime.Format(time.RFC3339),
		f(t.Quantity),
		f(t.Leverage),
		f(t.Margin),
		f(t.RealizedPL),
		f(t.ReturnPct),
		f(t.HoldHours),
		strconv.FormatBool(t.Added),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordDecision(d selector.EntryDecision) error {
	err := j.decisions.Write([]string{
		d.Symbol,
		d.SignalDate.Format("2006-01-02"),
		d.ScheduledEntryDate.Format("2006-01-02"),
		f(d.EntryPctChg),
		strconv.FormatBool(d.Delayed),
		d.Reason,
	})
	if err != nil {
		return err
	}
	j.decisions.Flush()
	return j.decisions.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.decisions.Flush()
	if err := j.decisions.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.df.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
