// Package backtest drives the decision engine over historical candles
// with a day-then-hour double loop. The driver owns the simulated clock
// and the wiring between selector, parameter table, ledger and journal;
// all decisions live in those packages.
package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kovrin/spikeshort/feed"
	"github.com/kovrin/spikeshort/journal"
	"github.com/kovrin/spikeshort/ledger"
	"github.com/kovrin/spikeshort/market"
	"github.com/kovrin/spikeshort/params"
	"github.com/kovrin/spikeshort/selector"
)

type Options struct {
	Start          time.Time // first simulated day; zero means data start
	End            time.Time // last simulated day; zero means data end
	TrailingWindow int       // days in the trailing average, typically 30
	UseEntryWait   bool      // attempt the limit-entry refinement
}

type Driver struct {
	opts     Options
	universe market.Universe
	ratios   feed.RatioSource
	sel      *selector.Selector
	table    params.Table
	led      *ledger.Ledger
	jnl      journal.Journal
	log      *zap.Logger

	pending   []selector.EntryDecision
	decisions []selector.EntryDecision
}

func NewDriver(opts Options, universe market.Universe, ratios feed.RatioSource,
	sel *selector.Selector, table params.Table, led *ledger.Ledger,
	jnl journal.Journal, log *zap.Logger) *Driver {

	if ratios == nil {
		ratios = feed.NoRatios{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TrailingWindow <= 0 {
		opts.TrailingWindow = 30
	}
	return &Driver{
		opts:     opts,
		universe: universe,
		ratios:   ratios,
		sel:      sel,
		table:    table,
		led:      led,
		jnl:      jnl,
		log:      log,
	}
}

// Result summarizes a finished run. Records preserve close order;
// Decisions preserve the order entries were produced.
type Result struct {
	Start          time.Time
	End            time.Time
	Trades         int
	Wins           int
	Losses         int
	InitialCapital float64
	FinalCapital   float64
	ReturnPct      float64
	Records        []ledger.TradeRecord
	Decisions      []selector.EntryDecision
}

// Run walks day by day: execute entries scheduled for the day at its
// open, evaluate every open position hour by hour, then run the
// selector once against the day's completed candles. Any remaining
// positions are force-closed at the last available price.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	start, end := d.opts.Start, d.opts.End
	if start.IsZero() || end.IsZero() {
		bStart, bEnd, ok := d.universe.Bounds()
		if !ok {
			return Result{}, fmt.Errorf("backtest: universe has no daily data")
		}
		if start.IsZero() {
			start = bStart
		}
		if end.IsZero() {
			end = bEnd
		}
	}
	start, end = market.DayKey(start), market.DayKey(end)
	if end.Before(start) {
		return Result{}, fmt.Errorf("backtest: end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	initial := d.led.Account().Total()

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		if err := d.executeEntries(day); err != nil {
			return Result{}, err
		}
		if err := d.evaluateHours(day); err != nil {
			return Result{}, err
		}
		if err := d.selectCandidate(day); err != nil {
			return Result{}, err
		}
	}

	if err := d.closeRemaining(end); err != nil {
		return Result{}, err
	}

	records := d.led.Records()
	res := Result{
		Start:          start,
		End:            end,
		Trades:         len(records),
		InitialCapital: initial,
		FinalCapital:   d.led.Account().Total(),
		Records:        records,
		Decisions:      d.decisions,
	}
	if initial > 0 {
		res.ReturnPct = (res.FinalCapital - initial) / initial
	}
	for _, r := range records {
		if r.RealizedPL > 0 {
			res.Wins++
		} else if r.RealizedPL < 0 {
			res.Losses++
		}
	}
	return res, nil
}

// executeEntries opens positions whose scheduled entry date arrived.
// Per-symbol failures (gaps, capital, limits) discard that candidate and
// never abort the run.
func (d *Driver) executeEntries(day time.Time) error {
	var remaining []selector.EntryDecision
	for _, dec := range d.pending {
		if !dec.ScheduledEntryDate.Equal(day) {
			remaining = append(remaining, dec)
			continue
		}

		series, ok := d.universe[dec.Symbol]
		if !ok {
			continue
		}

		dec, ok = d.sel.ConfirmDelayed(dec, series)
		if !ok {
			if dec.Reason == selector.ReasonAbandoned {
				d.recordDecision(dec)
			} else {
				d.log.Debug("entry skipped, data gap around delayed entry",
					zap.String("symbol", dec.Symbol))
			}
			continue
		}

		open, err := series.OpenOn(day)
		if err != nil {
			d.log.Debug("entry skipped, missing open",
				zap.String("symbol", dec.Symbol),
				zap.Time("day", day))
			continue
		}

		p := d.table.Resolve(dec.EntryPctChg)
		price, entryTime := d.entryFill(series, day, open, p)

		ratio, hasRatio := d.ratios.Ratio(dec.Symbol, entryTime)
		if _, err := d.led.Open(dec.Symbol, price, p, ratio, hasRatio, entryTime); err != nil {
			d.log.Info("entry rejected",
				zap.String("symbol", dec.Symbol),
				zap.Error(err))
		}
	}
	d.pending = remaining
	return nil
}

// entryFill resolves the short's fill. The default is the day's open;
// with the entry-wait refinement enabled, the driver tries to sell into
// a bounce at open*(1+wait) during the entry day first.
func (d *Driver) entryFill(series *market.Series, day time.Time, open float64, p params.Params) (float64, time.Time) {
	if !d.opts.UseEntryWait || p.EntryWait <= 0 {
		return open, day
	}
	limit := open * (1 + p.EntryWait)
	for h := 0; h < 24; h++ {
		hour := day.Add(time.Duration(h) * time.Hour)
		c, ok := series.Hourly(hour)
		if !ok {
			continue
		}
		if c.High >= limit {
			return limit, hour
		}
	}
	return open, day
}

// evaluateHours runs the exit state machine for every open position at
// each hour of the day, in entry order. Missing candles skip just that
// position's hour.
func (d *Driver) evaluateHours(day time.Time) error {
	for h := 0; h < 24; h++ {
		hour := day.Add(time.Duration(h) * time.Hour)
		for _, pos := range d.led.OpenPositions() {
			series, ok := d.universe[pos.Symbol]
			if !ok {
				continue
			}
			c, ok := series.Hourly(hour)
			if !ok || c.Time.Before(pos.EntryTime) {
				continue
			}

			ratio, hasRatio := d.ratios.Ratio(pos.Symbol, hour)
			tr := d.led.EvaluateHour(pos, c.Close, ratio, hasRatio, hour)
			rec, err := d.led.Apply(pos, tr)
			if err != nil {
				return err
			}
			if rec != nil {
				d.recordTrade(*rec)
			}
		}
	}
	return nil
}

// selectCandidate produces at most one entry decision from the day's
// completed candles.
func (d *Driver) selectCandidate(day time.Time) error {
	var snaps []market.RiskSnapshot
	for _, sym := range d.universe.Symbols() {
		if d.held(sym) {
			continue
		}
		ratio, hasRatio := d.ratios.Ratio(sym, day)
		snap, err := market.Snapshot(d.universe[sym], day, d.opts.TrailingWindow, ratio, hasRatio)
		if err != nil {
			// Short or missing history for this symbol today; skip it
			// without touching the others.
			continue
		}
		snaps = append(snaps, snap)
	}

	cand, ok := d.sel.Pick(snaps, d.held)
	if !ok {
		return nil
	}

	dec := d.sel.Gate(cand)
	d.pending = append(d.pending, dec)
	d.recordDecision(dec)
	d.log.Info("candidate selected",
		zap.String("symbol", dec.Symbol),
		zap.Float64("pct_chg", dec.EntryPctChg),
		zap.String("reason", dec.Reason),
		zap.Time("entry", dec.ScheduledEntryDate))
	return nil
}

func (d *Driver) held(symbol string) bool {
	if d.led.Has(symbol) {
		return true
	}
	for _, dec := range d.pending {
		if dec.Symbol == symbol {
			return true
		}
	}
	return false
}

// closeRemaining force-closes whatever is still open at the end of the
// data so every entry yields exactly one trade record.
func (d *Driver) closeRemaining(end time.Time) error {
	cutoff := end.AddDate(0, 0, 1)
	for _, pos := range d.led.OpenPositions() {
		price := pos.AvgEntryPrice
		series, ok := d.universe[pos.Symbol]
		if ok {
			if c, found := series.LastHourlyBefore(cutoff); found {
				price = c.Close
			} else if days := series.Days(); len(days) > 0 {
				if c, found := series.Daily(days[len(days)-1]); found {
					price = c.Close
				}
			}
		}
		rec, err := d.led.Apply(pos, ledger.Transition{
			Kind:   ledger.TransitionClose,
			Price:  price,
			Time:   cutoff,
			Reason: ledger.ReasonEndOfData,
		})
		if err != nil {
			return err
		}
		if rec != nil {
			d.recordTrade(*rec)
		}
	}
	return nil
}

func (d *Driver) recordTrade(rec ledger.TradeRecord) {
	if d.jnl == nil {
		return
	}
	if err := d.jnl.RecordTrade(rec); err != nil {
		d.log.Warn("journal trade failed", zap.Error(err))
	}
}

func (d *Driver) recordDecision(dec selector.EntryDecision) {
	d.decisions = append(d.decisions, dec)
	if d.jnl == nil {
		return
	}
	if err := d.jnl.RecordDecision(dec); err != nil {
		d.log.Warn("journal decision failed", zap.Error(err))
	}
}
