package ledger

import (
	"time"

	"github.com/kovrin/spikeshort/params"
)

type Status int

const (
	StatusOpen Status = iota
	StatusClosed
)

// Close reasons recorded on trade records.
const (
	ReasonTakeProfit  = "take_profit"
	ReasonStopLoss    = "stop_loss"
	ReasonDynamicStop = "dynamic_stop"
	ReasonTimeout     = "timeout"
	ReasonEndOfData   = "end_of_data"
)

// Position is an open short. The ledger owns positions exclusively:
// AvgEntryPrice, Quantity, Margin and HasAdded mutate on an add event,
// everything else is immutable after open.
type Position struct {
	ID            string
	Symbol        string
	EntryPrice    float64
	AvgEntryPrice float64
	EntryTime     time.Time
	Quantity      float64
	Leverage      float64
	Margin        float64 // reserved margin, grows on add
	HasAdded      bool
	EntryRatio    float64 // long/short ratio at entry, when available
	HasEntryRatio bool
	Params        params.Params
	Status        Status
}

// Drawdown is the favorable move for a short: how far price sits below
// the average entry, as a fraction of it.
func (p *Position) Drawdown(price float64) float64 {
	return (p.AvgEntryPrice - price) / p.AvgEntryPrice
}

// AdverseMove is how far price has risen above the average entry.
func (p *Position) AdverseMove(price float64) float64 {
	return (price - p.AvgEntryPrice) / p.AvgEntryPrice
}

// activeTakeProfit returns the threshold currently in force: the initial
// value inside the decay window or after an add, the decayed value once
// the window has passed.
func (p *Position) activeTakeProfit(now time.Time) float64 {
	if p.HasAdded {
		return p.Params.TakeProfitInitial
	}
	window := time.Duration(p.Params.TakeProfitDecayHours) * time.Hour
	if now.Sub(p.EntryTime) < window {
		return p.Params.TakeProfitInitial
	}
	return p.Params.TakeProfitDecayed
}

// UnrealizedPL values the short at the given mark.
func (p *Position) UnrealizedPL(price float64) float64 {
	return (p.AvgEntryPrice - price) * p.Quantity
}
