package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kovrin/spikeshort/market"
)

// LoadCandleCSV reads candles from a CSV file with columns
// time,open,high,low,close,volume[,quote_volume]. A header row is
// detected and skipped; bad lines are counted and dropped, matching the
// tolerate-gaps policy for source data.
func LoadCandleCSV(path string) ([]market.Candle, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var candles []market.Candle
	bad := 0
	first := true

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, bad, err
		}
		if first {
			first = false
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}
		c, ok := parseCandleRow(row)
		if !ok {
			bad++
			continue
		}
		candles = append(candles, c)
	}
	return candles, bad, nil
}

func parseCandleRow(row []string) (market.Candle, bool) {
	if len(row) < 6 {
		return market.Candle{}, false
	}
	t, err := parseTime(row[0])
	if err != nil {
		return market.Candle{}, false
	}
	vals := make([]float64, 0, 6)
	for _, s := range row[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return market.Candle{}, false
		}
		vals = append(vals, v)
		if len(vals) == 6 {
			break
		}
	}
	c := market.Candle{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}
	if len(vals) > 5 {
		c.QuoteVolume = vals[5]
	}
	return c, true
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	// Millisecond epoch, the Binance export convention.
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("feed: unrecognized time %q", s)
}

// LoadUniverse builds a Universe from a directory of per-symbol candle
// files named <SYMBOL>_daily.csv and <SYMBOL>_hourly.csv. A symbol
// missing its hourly file is still loaded; hourly lookups for it simply
// report gaps.
func LoadUniverse(dir string) (market.Universe, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_daily.csv"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("feed: no *_daily.csv files in %s", dir)
	}

	u := make(market.Universe, len(matches))
	for _, dailyPath := range matches {
		symbol := strings.TrimSuffix(filepath.Base(dailyPath), "_daily.csv")

		daily, _, err := LoadCandleCSV(dailyPath)
		if err != nil {
			return nil, fmt.Errorf("feed: %s: %w", dailyPath, err)
		}

		var hourly []market.Candle
		hourlyPath := filepath.Join(dir, symbol+"_hourly.csv")
		if _, statErr := os.Stat(hourlyPath); statErr == nil {
			hourly, _, err = LoadCandleCSV(hourlyPath)
			if err != nil {
				return nil, fmt.Errorf("feed: %s: %w", hourlyPath, err)
			}
		}

		u[symbol] = market.NewSeries(symbol, daily, hourly)
	}
	return u, nil
}

// LoadRatioCSV reads a long/short ratio series from a CSV with columns
// time,symbol,ratio. Bad lines are skipped.
func LoadRatioCSV(path string) (*RatioSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	set := NewRatioSet()
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}
		if len(row) < 3 {
			continue
		}
		t, err := parseTime(row[0])
		if err != nil {
			continue
		}
		ratio, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			continue
		}
		set.Add(strings.TrimSpace(row[1]), t, ratio)
	}
	return set, nil
}
