// Package params resolves a position's leverage and exit thresholds from
// the magnitude of the entry-day move. The mapping is an ordered bracket
// table: first bracket whose upper bound exceeds the entry percent change
// wins, the last bracket catches everything else.
package params

import "fmt"

// Params are the per-position thresholds resolved once at entry time.
// They are stored on the position and never re-derived mid-trade; the
// only runtime adjustment is the take-profit reset after an add, which
// the ledger handles.
type Params struct {
	Leverage             float64
	TakeProfitInitial    float64 // favorable move closing the trade in the grace window
	TakeProfitDecayed    float64 // tighter threshold after the grace window
	TakeProfitDecayHours int     // grace window length in hours
	StopLoss             float64 // adverse move closing the trade
	AddTrigger           float64 // adverse move doubling the position, once
	EntryWait            float64 // optional limit-entry offset above the open
}

// Bracket binds parameters to entries below UpperBound. The last bracket
// in a table ignores its bound and acts as the catch-all.
type Bracket struct {
	UpperBound float64
	Params     Params
}

// Table is an ordered list of brackets. The fallthrough semantics are an
// explicit contract: Resolve is pure and total, Validate enforces the
// shape Resolve relies on.
type Table struct {
	Brackets []Bracket
}

// Resolve returns the first bracket's parameters whose upper bound
// exceeds entryPctChg, or the last bracket's if none match. It never
// fails for any input.
func (t Table) Resolve(entryPctChg float64) Params {
	n := len(t.Brackets)
	for i := 0; i < n-1; i++ {
		if entryPctChg < t.Brackets[i].UpperBound {
			return t.Brackets[i].Params
		}
	}
	return t.Brackets[n-1].Params
}

// Validate checks the table at startup. A bad table is a fatal
// configuration error, not something to recover per-trade.
func (t Table) Validate() error {
	if len(t.Brackets) == 0 {
		return fmt.Errorf("params: table must have at least one bracket")
	}
	for i, b := range t.Brackets {
		if i < len(t.Brackets)-1 {
			if b.UpperBound <= 0 {
				return fmt.Errorf("params: bracket %d upper bound must be positive", i)
			}
			if i > 0 && b.UpperBound <= t.Brackets[i-1].UpperBound {
				return fmt.Errorf("params: bracket upper bounds must be strictly increasing (bracket %d)", i)
			}
		}
		p := b.Params
		if p.Leverage <= 0 {
			return fmt.Errorf("params: bracket %d leverage must be positive", i)
		}
		if p.TakeProfitInitial <= 0 || p.TakeProfitInitial >= 1 {
			return fmt.Errorf("params: bracket %d take-profit must be in (0,1)", i)
		}
		if p.TakeProfitDecayed <= 0 || p.TakeProfitDecayed > p.TakeProfitInitial {
			return fmt.Errorf("params: bracket %d decayed take-profit must be in (0, initial]", i)
		}
		if p.TakeProfitDecayHours < 0 {
			return fmt.Errorf("params: bracket %d decay hours must not be negative", i)
		}
		if p.StopLoss <= 0 || p.StopLoss >= 1 {
			return fmt.Errorf("params: bracket %d stop-loss must be in (0,1)", i)
		}
		if p.AddTrigger <= 0 {
			return fmt.Errorf("params: bracket %d add trigger must be positive", i)
		}
		// The add-before-stop precedence only holds when the add trigger
		// sits strictly below the stop. Anything else is undefined, so
		// reject it here.
		if p.AddTrigger >= p.StopLoss {
			return fmt.Errorf("params: bracket %d add trigger %.3f must be below stop-loss %.3f", i, p.AddTrigger, p.StopLoss)
		}
		if p.EntryWait < 0 {
			return fmt.Errorf("params: bracket %d entry wait must not be negative", i)
		}
	}
	return nil
}

// Default returns the production tuning: wider stops and slower profit
// taking for the largest spikes, tighter everything for marginal ones.
func Default() Table {
	return Table{Brackets: []Bracket{
		{UpperBound: 0.30, Params: Params{
			Leverage: 3, TakeProfitInitial: 0.25, TakeProfitDecayed: 0.15,
			TakeProfitDecayHours: 2, StopLoss: 0.30, AddTrigger: 0.22, EntryWait: 0.05,
		}},
		{UpperBound: 0.50, Params: Params{
			Leverage: 4, TakeProfitInitial: 0.30, TakeProfitDecayed: 0.20,
			TakeProfitDecayHours: 2, StopLoss: 0.38, AddTrigger: 0.30, EntryWait: 0.08,
		}},
		{UpperBound: 0.80, Params: Params{
			Leverage: 5, TakeProfitInitial: 0.40, TakeProfitDecayed: 0.25,
			TakeProfitDecayHours: 2, StopLoss: 0.45, AddTrigger: 0.35, EntryWait: 0.10,
		}},
		{UpperBound: 0, Params: Params{ // catch-all
			Leverage: 5, TakeProfitInitial: 0.50, TakeProfitDecayed: 0.30,
			TakeProfitDecayHours: 2, StopLoss: 0.55, AddTrigger: 0.42, EntryWait: 0.12,
		}},
	}}
}
