package market

import "time"

// RiskSnapshot carries the per-symbol per-day derived values the entry
// gate reads. It is computed once per symbol per day; the long/short
// ratio is optional since the data source is incomplete before a known
// cutoff date.
type RiskSnapshot struct {
	Symbol      string
	Day         time.Time
	Close       float64
	PctChange   float64
	TrailingAvg float64 // trailing average of daily closes
	QuoteVolume float64 // 24h quote turnover
	Ratio       float64 // top-trader long/short account ratio
	HasRatio    bool
}

// Snapshot derives the day's risk snapshot for a series. Any missing
// input surfaces as ErrDataGap so the caller can skip the symbol for
// the day.
func Snapshot(s *Series, day time.Time, window int, ratio float64, hasRatio bool) (RiskSnapshot, error) {
	c, ok := s.Daily(day)
	if !ok {
		return RiskSnapshot{}, ErrDataGap
	}
	pct, err := s.PctChange(day)
	if err != nil {
		return RiskSnapshot{}, err
	}
	avg, err := s.TrailingAvgClose(day, window)
	if err != nil {
		return RiskSnapshot{}, err
	}
	return RiskSnapshot{
		Symbol:      s.Symbol,
		Day:         DayKey(day),
		Close:       c.Close,
		PctChange:   pct,
		TrailingAvg: avg,
		QuoteVolume: c.QuoteTurnover(),
		Ratio:       ratio,
		HasRatio:    hasRatio,
	}, nil
}
