// Package selector picks the day's short candidate and runs it through
// the pre-entry risk gate. At most one entry decision is produced per
// simulated day.
package selector

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kovrin/spikeshort/market"
)

// Reason codes carried on entry decisions.
const (
	ReasonImmediate       = "immediate"
	ReasonDelayedMomentum = "delayed_momentum"
	ReasonDelayedRatio    = "delayed_ratio"
	ReasonDelayedVolume   = "delayed_volume"
	ReasonAbandoned       = "abandoned_price_drop"
)

// EntryDecision is the selector's output: which symbol to short and
// when. Immutable once produced; the ledger consumes it exactly once.
type EntryDecision struct {
	Symbol             string
	SignalDate         time.Time
	ScheduledEntryDate time.Time
	EntryPctChg        float64
	Delayed            bool
	Reason             string
}

// MomentumStep requires entries whose percent change is at least Floor
// to trade at least Excess above the trailing average price. Lower
// magnitude bands require a higher excess: a small spike has to be well
// clear of its 30-day mean before it is worth shorting.
type MomentumStep struct {
	Floor  float64 `yaml:"floor"`
	Excess float64 `yaml:"excess"`
}

type Config struct {
	MinPctChange    float64        // candidate floor for the day's top gainer
	MomentumSteps   []MomentumStep // sorted by Floor descending, last Floor 0
	RatioFloor      float64        // minimum top-trader long/short ratio
	HighPctChange   float64        // above this, the volume filter applies
	VolumeFloor     float64        // minimum 24h quote volume for large spikes
	AbandonDrawdown float64        // delayed entries give up past this drop
}

type Selector struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Selector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Selector{cfg: cfg, log: log}
}

// Pick returns the candidate snapshot for the day: the not-held symbol
// with the largest same-day percent change, provided it clears the
// minimum. Ties break toward the lexicographically smaller symbol so
// runs are deterministic.
func (s *Selector) Pick(snaps []market.RiskSnapshot, held func(string) bool) (market.RiskSnapshot, bool) {
	sorted := make([]market.RiskSnapshot, len(snaps))
	copy(sorted, snaps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	var best market.RiskSnapshot
	found := false
	for _, snap := range sorted {
		if held != nil && held(snap.Symbol) {
			continue
		}
		if snap.PctChange < s.cfg.MinPctChange {
			continue
		}
		if !found || snap.PctChange > best.PctChange {
			best = snap
			found = true
		}
	}
	return best, found
}

// Gate runs the fixed-order pre-entry checks against the candidate. Any
// failing check delays the entry by one day; checks never partially
// apply. The delayed-entry price sanity check runs later, at execution
// time, via ConfirmDelayed.
func (s *Selector) Gate(snap market.RiskSnapshot) EntryDecision {
	dec := EntryDecision{
		Symbol:             snap.Symbol,
		SignalDate:         snap.Day,
		ScheduledEntryDate: snap.Day.AddDate(0, 0, 1),
		EntryPctChg:        snap.PctChange,
		Reason:             ReasonImmediate,
	}

	delay := func(reason string) EntryDecision {
		dec.Delayed = true
		dec.Reason = reason
		dec.ScheduledEntryDate = snap.Day.AddDate(0, 0, 2)
		return dec
	}

	// 1. Momentum exhaustion: the spike must sit far enough above its
	// trailing average, with the required excess rising as the entry
	// magnitude falls.
	if excess := s.requiredExcess(snap.PctChange); snap.TrailingAvg > 0 &&
		snap.Close < snap.TrailingAvg*(1+excess) {
		s.log.Debug("gate: momentum exhaustion",
			zap.String("symbol", snap.Symbol),
			zap.Float64("close", snap.Close),
			zap.Float64("trailing_avg", snap.TrailingAvg),
			zap.Float64("required_excess", excess))
		return delay(ReasonDelayedMomentum)
	}

	// 2. Long/short ratio, when the data exists for this symbol/day.
	if snap.HasRatio && snap.Ratio < s.cfg.RatioFloor {
		s.log.Debug("gate: ratio below floor",
			zap.String("symbol", snap.Symbol),
			zap.Float64("ratio", snap.Ratio),
			zap.Float64("floor", s.cfg.RatioFloor))
		return delay(ReasonDelayedRatio)
	}

	// 3. Volume filter for the largest spikes.
	if snap.PctChange > s.cfg.HighPctChange && snap.QuoteVolume < s.cfg.VolumeFloor {
		s.log.Debug("gate: thin volume on large spike",
			zap.String("symbol", snap.Symbol),
			zap.Float64("quote_volume", snap.QuoteVolume))
		return delay(ReasonDelayedVolume)
	}

	return dec
}

// ConfirmDelayed applies the delayed-entry price sanity check at
// execution time: if the price already fell further than the drawdown
// limit between the would-have-been entry (D+1 open) and the actual
// delayed entry (D+2 open), the move happened without us and the entry
// is abandoned. Missing opens are a data gap and abort the entry too.
func (s *Selector) ConfirmDelayed(dec EntryDecision, series *market.Series) (EntryDecision, bool) {
	if !dec.Delayed {
		return dec, true
	}
	wouldHave, err := series.OpenOn(dec.SignalDate.AddDate(0, 0, 1))
	if err != nil {
		return dec, false
	}
	actual, err := series.OpenOn(dec.ScheduledEntryDate)
	if err != nil {
		return dec, false
	}
	if wouldHave > 0 && (wouldHave-actual)/wouldHave > s.cfg.AbandonDrawdown {
		dec.Reason = ReasonAbandoned
		s.log.Info("gate: delayed entry abandoned",
			zap.String("symbol", dec.Symbol),
			zap.Float64("would_have", wouldHave),
			zap.Float64("actual", actual))
		return dec, false
	}
	return dec, true
}

func (s *Selector) requiredExcess(pctChg float64) float64 {
	for _, step := range s.cfg.MomentumSteps {
		if pctChg >= step.Floor {
			return step.Excess
		}
	}
	return 0
}
