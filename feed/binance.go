package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/kovrin/spikeshort/market"
)

// BinanceSource pulls hourly klines and the top-trader long/short
// account ratio from Binance USD-M futures. It backs the live
// collaborator; backtests read CSV instead.
type BinanceSource struct {
	client *futures.Client
}

func NewBinanceSource(apiKey, apiSecret string, testnet bool) *BinanceSource {
	// The futures endpoint selection is a package-level switch in
	// go-binance; it has to be set before the client is built.
	futures.UseTestnet = testnet
	return &BinanceSource{client: futures.NewClient(apiKey, apiSecret)}
}

// Klines fetches recent candles for symbol at the given interval.
func (b *BinanceSource) Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("feed: binance klines %s: %w", symbol, err)
	}

	candles := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := candleFromKline(k)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func candleFromKline(k *futures.Kline) (market.Candle, error) {
	var (
		c   market.Candle
		err error
	)
	if c.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
		return c, fmt.Errorf("feed: bad kline open %q: %w", k.Open, err)
	}
	if c.High, err = strconv.ParseFloat(k.High, 64); err != nil {
		return c, fmt.Errorf("feed: bad kline high %q: %w", k.High, err)
	}
	if c.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
		return c, fmt.Errorf("feed: bad kline low %q: %w", k.Low, err)
	}
	if c.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
		return c, fmt.Errorf("feed: bad kline close %q: %w", k.Close, err)
	}
	if c.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
		return c, fmt.Errorf("feed: bad kline volume %q: %w", k.Volume, err)
	}
	if c.QuoteVolume, err = strconv.ParseFloat(k.QuoteAssetVolume, 64); err != nil {
		return c, fmt.Errorf("feed: bad kline quote volume %q: %w", k.QuoteAssetVolume, err)
	}
	c.Time = time.UnixMilli(k.OpenTime).UTC()
	return c, nil
}

// RatioPoint is one observation of the top-trader long/short account
// ratio.
type RatioPoint struct {
	Symbol string
	Time   time.Time
	Ratio  float64
}

// TopAccountRatio fetches the recent top-trader long/short account ratio
// series. This is the top-trader endpoint, not the global account ratio;
// the dynamic stop is defined against the former.
func (b *BinanceSource) TopAccountRatio(ctx context.Context, symbol, period string, limit int) ([]RatioPoint, error) {
	rows, err := b.client.NewTopLongShortAccountRatioService().
		Symbol(symbol).
		Period(period).
		Limit(uint32(limit)).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("feed: binance top long/short ratio %s: %w", symbol, err)
	}
	return ratioPoints(symbol, rows)
}

func ratioPoints(symbol string, rows []*futures.TopLongShortAccountRatio) ([]RatioPoint, error) {
	points := make([]RatioPoint, 0, len(rows))
	for _, r := range rows {
		ratio, err := strconv.ParseFloat(r.LongShortRatio, 64)
		if err != nil {
			return nil, fmt.Errorf("feed: bad ratio %q: %w", r.LongShortRatio, err)
		}
		points = append(points, RatioPoint{
			Symbol: symbol,
			Time:   time.UnixMilli(int64(r.Timestamp)).UTC(),
			Ratio:  ratio,
		})
	}
	return points, nil
}

// LatestHourly returns the most recent closed hourly candle for symbol.
func (b *BinanceSource) LatestHourly(ctx context.Context, symbol string) (market.Candle, error) {
	candles, err := b.Klines(ctx, symbol, "1h", 2)
	if err != nil {
		return market.Candle{}, err
	}
	if len(candles) < 2 {
		return market.Candle{}, fmt.Errorf("feed: no closed hourly candle for %s", symbol)
	}
	// The last kline is still forming; the one before it is closed.
	return candles[len(candles)-2], nil
}

// LatestRatio returns the most recent ratio observation for symbol.
// Absence is not an error: the dynamic stop simply stays disabled.
func (b *BinanceSource) LatestRatio(ctx context.Context, symbol string) (float64, bool, error) {
	points, err := b.TopAccountRatio(ctx, symbol, "1h", 1)
	if err != nil {
		return 0, false, err
	}
	if len(points) == 0 {
		return 0, false, nil
	}
	return points[len(points)-1].Ratio, true, nil
}
