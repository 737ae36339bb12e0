package ledger

import "time"

// TradeRecord is the immutable snapshot taken when a position closes.
type TradeRecord struct {
	ID            string
	Symbol        string
	EntryPrice    float64
	AvgEntryPrice float64
	ExitPrice     float64
	EntryTime     time.Time
	ExitTime      time.Time
	Quantity      float64
	Leverage      float64
	Margin        float64
	RealizedPL    float64
	ReturnPct     float64 // realized P&L over reserved margin
	HoldHours     float64
	Added         bool
	Reason        string
}
