package market

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrDataGap reports missing or short candle history for a requested
// slot. It is always recoverable: callers skip the symbol for that
// day or hour and move on.
var ErrDataGap = errors.New("market: no candle for requested time")

// Series holds one symbol's daily and hourly candles with keyed lookup.
// Construction sorts by time and drops duplicate bars (keep-first).
type Series struct {
	Symbol string

	daily  []Candle
	hourly []Candle

	dayIdx  map[time.Time]int
	hourIdx map[time.Time]int
}

func NewSeries(symbol string, daily, hourly []Candle) *Series {
	s := &Series{
		Symbol:  symbol,
		dayIdx:  make(map[time.Time]int),
		hourIdx: make(map[time.Time]int),
	}

	sort.Slice(daily, func(i, j int) bool { return daily[i].Time.Before(daily[j].Time) })
	for _, c := range daily {
		key := DayKey(c.Time)
		if _, dup := s.dayIdx[key]; dup {
			continue // keep-first policy
		}
		s.dayIdx[key] = len(s.daily)
		s.daily = append(s.daily, c)
	}

	sort.Slice(hourly, func(i, j int) bool { return hourly[i].Time.Before(hourly[j].Time) })
	for _, c := range hourly {
		key := HourKey(c.Time)
		if _, dup := s.hourIdx[key]; dup {
			continue
		}
		s.hourIdx[key] = len(s.hourly)
		s.hourly = append(s.hourly, c)
	}

	return s
}

// Daily returns the candle for the given UTC calendar day.
func (s *Series) Daily(day time.Time) (Candle, bool) {
	i, ok := s.dayIdx[DayKey(day)]
	if !ok {
		return Candle{}, false
	}
	return s.daily[i], true
}

// Hourly returns the candle for the given UTC hour.
func (s *Series) Hourly(hour time.Time) (Candle, bool) {
	i, ok := s.hourIdx[HourKey(hour)]
	if !ok {
		return Candle{}, false
	}
	return s.hourly[i], true
}

// OpenOn returns the daily open price for day.
func (s *Series) OpenOn(day time.Time) (float64, error) {
	c, ok := s.Daily(day)
	if !ok {
		return 0, fmt.Errorf("%w: %s daily %s", ErrDataGap, s.Symbol, DayKey(day).Format("2006-01-02"))
	}
	return c.Open, nil
}

// PctChange returns the same-day percent change for day:
// (close_D - close_prev) / close_prev, where close_prev is the most
// recent earlier daily close (calendar gaps are tolerated).
func (s *Series) PctChange(day time.Time) (float64, error) {
	i, ok := s.dayIdx[DayKey(day)]
	if !ok || i == 0 {
		return 0, fmt.Errorf("%w: %s pct change %s", ErrDataGap, s.Symbol, DayKey(day).Format("2006-01-02"))
	}
	prev := s.daily[i-1].Close
	if prev == 0 {
		return 0, fmt.Errorf("%w: %s zero prior close", ErrDataGap, s.Symbol)
	}
	return (s.daily[i].Close - prev) / prev, nil
}

// TrailingAvgClose returns the average of the last n daily closes ending
// at day (inclusive). Short history is a data gap, not an error to guess
// around.
func (s *Series) TrailingAvgClose(day time.Time, n int) (float64, error) {
	i, ok := s.dayIdx[DayKey(day)]
	if !ok || i+1 < n {
		return 0, fmt.Errorf("%w: %s short history for %d-day average", ErrDataGap, s.Symbol, n)
	}
	sum := 0.0
	for j := i - n + 1; j <= i; j++ {
		sum += s.daily[j].Close
	}
	return sum / float64(n), nil
}

// Days returns the sorted UTC days this series has daily candles for.
func (s *Series) Days() []time.Time {
	days := make([]time.Time, len(s.daily))
	for i, c := range s.daily {
		days[i] = DayKey(c.Time)
	}
	return days
}

// LastHourlyBefore returns the most recent hourly candle at or before t,
// used for end-of-data closes.
func (s *Series) LastHourlyBefore(t time.Time) (Candle, bool) {
	for i := len(s.hourly) - 1; i >= 0; i-- {
		if !s.hourly[i].Time.After(t) {
			return s.hourly[i], true
		}
	}
	return Candle{}, false
}
