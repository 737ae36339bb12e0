// Package journal persists the engine's two output streams: entry
// decisions and closed-trade records. The decision engine itself owns no
// file format; these sinks are collaborators the driver writes through.
//
// Decisions are a lifecycle log, one row per event rather than one per
// candidate: a delayed selection that is later abandoned appears twice,
// first with its delayed_* reason and then as abandoned_price_drop.
package journal

import (
	"github.com/kovrin/spikeshort/ledger"
	"github.com/kovrin/spikeshort/selector"
)

type Journal interface {
	RecordTrade(ledger.TradeRecord) error
	RecordDecision(selector.EntryDecision) error
	Close() error
}

// Nop discards everything. Useful for tests and dry runs.
type Nop struct{}

func (Nop) RecordTrade(ledger.TradeRecord) error        { return nil }
func (Nop) RecordDecision(selector.EntryDecision) error { return nil }
func (Nop) Close() error                                { return nil }
