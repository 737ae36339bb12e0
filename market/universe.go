package market

import (
	"sort"
	"time"
)

// Universe maps symbols to their candle series.
type Universe map[string]*Series

// Symbols returns the universe's symbols in sorted order so iteration
// is deterministic.
func (u Universe) Symbols() []string {
	syms := make([]string, 0, len(u))
	for s := range u {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// Bounds returns the first and last day any series has daily data for.
func (u Universe) Bounds() (start, end time.Time, ok bool) {
	for _, s := range u {
		days := s.Days()
		if len(days) == 0 {
			continue
		}
		if !ok || days[0].Before(start) {
			start = days[0]
		}
		if !ok || days[len(days)-1].After(end) {
			end = days[len(days)-1]
		}
		ok = true
	}
	return start, end, ok
}
