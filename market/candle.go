package market

import "time"

// Candle represents one OHLCV bar. Candles are source-provided and
// read-only; series may contain gaps, which callers skip rather than
// interpolate.
type Candle struct {
	Time        time.Time // bar open time, UTC
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64 // base-asset volume
	QuoteVolume float64 // quote-asset turnover, 0 if the source omits it
}

// QuoteTurnover returns the candle's quote-denominated volume. Sources
// that only report base volume get an estimate from the close.
func (c Candle) QuoteTurnover() float64 {
	if c.QuoteVolume > 0 {
		return c.QuoteVolume
	}
	return c.Volume * c.Close
}

// DayKey truncates t to its UTC calendar day.
func DayKey(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// HourKey truncates t to the hour, UTC.
func HourKey(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
