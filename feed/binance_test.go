package feed

import (
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBinanceSourceTestnetSwitch(t *testing.T) {
	defer func() { futures.UseTestnet = false }()

	NewBinanceSource("key", "secret", true)
	assert.True(t, futures.UseTestnet)

	NewBinanceSource("key", "secret", false)
	assert.False(t, futures.UseTestnet)
}

func TestCandleFromKline(t *testing.T) {
	k := &futures.Kline{
		OpenTime:         1622851200000, // 2021-06-05 00:00 UTC
		Open:             "140.5",
		High:             "141",
		Low:              "90",
		Close:            "95.25",
		Volume:           "900000",
		QuoteAssetVolume: "90000000",
	}

	c, err := candleFromKline(k)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 6, 5, 0, 0, 0, 0, time.UTC), c.Time)
	assert.Equal(t, 140.5, c.Open)
	assert.Equal(t, 95.25, c.Close)
	assert.Equal(t, 90_000_000.0, c.QuoteVolume)

	_, err = candleFromKline(&futures.Kline{Open: "not-a-number"})
	assert.Error(t, err)
}

func TestRatioPoints(t *testing.T) {
	rows := []*futures.TopLongShortAccountRatio{
		{Symbol: "AAAUSDT", LongShortRatio: "0.62", Timestamp: 1622851200000},
		{Symbol: "AAAUSDT", LongShortRatio: "0.58", Timestamp: 1622854800000},
	}

	pts, err := ratioPoints("AAAUSDT", rows)
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, 0.62, pts[0].Ratio)
	assert.Equal(t, time.Date(2021, 6, 5, 0, 0, 0, 0, time.UTC), pts[0].Time)
	assert.Equal(t, 0.58, pts[1].Ratio)

	_, err = ratioPoints("AAAUSDT", []*futures.TopLongShortAccountRatio{{LongShortRatio: "n/a"}})
	assert.Error(t, err)
}
