// Package feed provides the market-data inputs the engine consumes:
// candle series and the optional top-trader long/short ratio series.
// The backtest loads everything up front from CSV; the live poller pulls
// the same shapes from Binance futures.
package feed

import (
	"time"

	"github.com/kovrin/spikeshort/market"
)

// RatioSource answers long/short ratio lookups keyed by symbol and
// timestamp. Missing data is expected and reported via ok=false, never
// as an error: the engine degrades by disabling ratio-driven rules.
type RatioSource interface {
	Ratio(symbol string, t time.Time) (float64, bool)
}

// NoRatios is a RatioSource with no data at all.
type NoRatios struct{}

func (NoRatios) Ratio(string, time.Time) (float64, bool) { return 0, false }

// RatioSet is an in-memory RatioSource. Hour-keyed; a daily lookup uses
// the day's first hour.
type RatioSet struct {
	m map[string]map[time.Time]float64
}

func NewRatioSet() *RatioSet {
	return &RatioSet{m: make(map[string]map[time.Time]float64)}
}

func (r *RatioSet) Add(symbol string, t time.Time, ratio float64) {
	key := market.HourKey(t)
	if r.m[symbol] == nil {
		r.m[symbol] = make(map[time.Time]float64)
	}
	r.m[symbol][key] = ratio
}

func (r *RatioSet) Ratio(symbol string, t time.Time) (float64, bool) {
	v, ok := r.m[symbol][market.HourKey(t)]
	return v, ok
}
