// Package live wraps the backtest's decision functions in a polling
// loop. The poller owns its state behind a mutex and communicates
// closed trades over a channel; the engine stays re-entrant since all
// dependencies are passed in explicitly.
package live

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kovrin/spikeshort/ledger"
	"github.com/kovrin/spikeshort/market"
	"github.com/kovrin/spikeshort/params"
)

// MarketData is the slice of a feed the poller needs: the latest closed
// hourly candle and the latest ratio observation per symbol.
type MarketData interface {
	LatestHourly(ctx context.Context, symbol string) (market.Candle, error)
	LatestRatio(ctx context.Context, symbol string) (float64, bool, error)
}

type Poller struct {
	mu       sync.Mutex // guards led: Open may race the polling loop
	led      *ledger.Ledger
	data     MarketData
	interval time.Duration
	log      *zap.Logger

	records chan ledger.TradeRecord
}

func NewPoller(led *ledger.Ledger, data MarketData, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		led:      led,
		data:     data,
		interval: interval,
		log:      log,
		records:  make(chan ledger.TradeRecord, 16),
	}
}

// Records delivers trades the poller closes. The channel is closed when
// Run returns.
func (p *Poller) Records() <-chan ledger.TradeRecord {
	return p.records
}

// Open enters a short at the latest hourly close, mirroring the
// backtest's entry path.
func (p *Poller) Open(ctx context.Context, symbol string, prm params.Params) (*ledger.Position, error) {
	c, err := p.data.LatestHourly(ctx, symbol)
	if err != nil {
		return nil, err
	}
	ratio, hasRatio, err := p.data.LatestRatio(ctx, symbol)
	if err != nil {
		// Ratio data failing only disables the dynamic stop.
		p.log.Warn("ratio fetch failed at entry",
			zap.String("symbol", symbol), zap.Error(err))
		hasRatio = false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.led.Open(symbol, c.Close, prm, ratio, hasRatio, time.Now().UTC())
}

// Run polls until ctx is cancelled. Each tick maps onto the same hourly
// evaluation the backtest performs; a failed fetch skips that symbol for
// the tick and never stops the loop.
func (p *Poller) Run(ctx context.Context) error {
	defer close(p.records)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("live poller started", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.log.Info("live poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.step(ctx)
		}
	}
}

func (p *Poller) step(ctx context.Context) {
	now := time.Now().UTC()

	p.mu.Lock()
	open := p.led.OpenPositions()
	p.mu.Unlock()

	for _, pos := range open {
		c, err := p.data.LatestHourly(ctx, pos.Symbol)
		if err != nil {
			p.log.Warn("candle fetch failed, skipping symbol this tick",
				zap.String("symbol", pos.Symbol), zap.Error(err))
			continue
		}

		ratio, hasRatio, err := p.data.LatestRatio(ctx, pos.Symbol)
		if err != nil {
			p.log.Warn("ratio fetch failed, dynamic stop disabled this tick",
				zap.String("symbol", pos.Symbol), zap.Error(err))
			hasRatio = false
		}

		p.mu.Lock()
		tr := p.led.EvaluateHour(pos, c.Close, ratio, hasRatio, now)
		rec, err := p.led.Apply(pos, tr)
		p.mu.Unlock()
		if err != nil {
			p.log.Error("apply failed", zap.String("symbol", pos.Symbol), zap.Error(err))
			continue
		}
		if rec != nil {
			select {
			case p.records <- *rec:
			case <-ctx.Done():
				return
			}
		}
	}
}
