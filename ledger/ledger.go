// Package ledger owns open positions and the capital account, and
// implements the hourly exit-decision state machine. Evaluation is split
// from application so the same decision logic serves both the
// deterministic backtest driver and the live poller: EvaluateHour never
// mutates anything, Apply performs exactly one transition.
package ledger

import (
	"time"

	"go.uber.org/zap"

	"github.com/kovrin/spikeshort/params"
	"github.com/kovrin/spikeshort/pkg/id"
)

// Config carries the engine knobs shared by every position.
type Config struct {
	PositionSizeRatio float64       // fraction of free capital staked per entry
	MaxPositions      int           // hard cap on concurrent positions
	MaxHold           time.Duration // timeout, supports fractional days
	DynamicStopDelta  float64       // negative ratio drift closing the trade
	RatioCutoff       time.Time     // ratio data is only trusted from here on
}

type Ledger struct {
	cfg  Config
	acct *Account
	log  *zap.Logger

	open    []*Position // entry order, preserved for deterministic output
	bySym   map[string]*Position
	records []TradeRecord
}

func New(cfg Config, acct *Account, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		cfg:   cfg,
		acct:  acct,
		log:   log,
		bySym: make(map[string]*Position),
	}
}

// Open creates a short position at price. Sizing compounds: the stake is
// a fraction of current free capital, and quantity is the leveraged
// notional over price. The candidate is rejected outright when capital
// or the position cap does not allow it.
func (l *Ledger) Open(symbol string, price float64, p params.Params, entryRatio float64, hasRatio bool, now time.Time) (*Position, error) {
	if _, held := l.bySym[symbol]; held {
		return nil, ErrDuplicatePosition
	}
	if len(l.open) >= l.cfg.MaxPositions {
		return nil, ErrPositionLimit
	}

	margin := l.acct.Free() * l.cfg.PositionSizeRatio
	if err := l.acct.Reserve(margin); err != nil {
		return nil, err
	}

	pos := &Position{
		ID:            id.New(),
		Symbol:        symbol,
		EntryPrice:    price,
		AvgEntryPrice: price,
		EntryTime:     now,
		Quantity:      margin * p.Leverage / price,
		Leverage:      p.Leverage,
		Margin:        margin,
		EntryRatio:    entryRatio,
		HasEntryRatio: hasRatio,
		Params:        p,
		Status:        StatusOpen,
	}
	l.open = append(l.open, pos)
	l.bySym[symbol] = pos

	l.log.Info("position opened",
		zap.String("id", pos.ID),
		zap.String("symbol", symbol),
		zap.Float64("price", price),
		zap.Float64("quantity", pos.Quantity),
		zap.Float64("leverage", p.Leverage),
		zap.Float64("margin", margin))
	return pos, nil
}

// EvaluateHour runs the exit-decision state machine for one position at
// one simulated hour. The priority order is fixed and first match wins:
//
//  1. take-profit (against the currently active threshold)
//  2. add-position trigger (once, only while free capital can fund the
//     add; intercepts the first stop breach)
//  3. stop-loss
//  4. dynamic stop on ratio drift (needs entry and current ratio, and
//     the data-completeness cutoff satisfied)
//  5. timeout
//
// A missing ratio disables only rule 4. Evaluating a closed position is
// a no-op.
func (l *Ledger) EvaluateHour(p *Position, price float64, ratio float64, hasRatio bool, now time.Time) Transition {
	if p == nil || p.Status == StatusClosed {
		return none()
	}

	if p.Drawdown(price) >= p.activeTakeProfit(now) {
		return closeAt(price, now, ReasonTakeProfit)
	}

	if !p.HasAdded && p.AdverseMove(price) >= p.Params.AddTrigger {
		if l.canFundAdd(p, price) {
			return addAt(price, now)
		}
		// An add the account cannot fund does not intercept the stop:
		// fall through so rule 3 still closes the position.
	}

	if p.AdverseMove(price) >= p.Params.StopLoss {
		return closeAt(price, now, ReasonStopLoss)
	}

	if p.HasEntryRatio && hasRatio && !now.Before(l.cfg.RatioCutoff) {
		// Leading indicator, not a P&L rule: fires regardless of the
		// current mark.
		if ratio-p.EntryRatio <= l.cfg.DynamicStopDelta {
			return closeAt(price, now, ReasonDynamicStop)
		}
	}

	if now.Sub(p.EntryTime) >= l.cfg.MaxHold {
		return closeAt(price, now, ReasonTimeout)
	}

	return none()
}

// canFundAdd reports whether free capital covers the margin an add at
// price would reserve.
func (l *Ledger) canFundAdd(p *Position, price float64) bool {
	margin := price * p.Quantity / p.Leverage
	return margin > 0 && margin <= l.acct.Free()
}

// Apply performs a transition. Closes return the trade record; adds and
// no-ops return nil.
func (l *Ledger) Apply(p *Position, tr Transition) (*TradeRecord, error) {
	if p == nil || p.Status == StatusClosed || tr.Kind == TransitionNone {
		return nil, nil
	}

	switch tr.Kind {
	case TransitionAdd:
		// Equal-size averaging-in: quantity doubles at the add price and
		// its margin is staked like an entry. EvaluateHour only emits an
		// add it could fund; re-check here in case capital moved between
		// evaluate and apply.
		addMargin := tr.Price * p.Quantity / p.Leverage
		if err := l.acct.Reserve(addMargin); err != nil {
			l.log.Warn("add skipped, insufficient free capital",
				zap.String("id", p.ID),
				zap.String("symbol", p.Symbol),
				zap.Float64("add_margin", addMargin),
				zap.Float64("free", l.acct.Free()))
			return nil, nil
		}
		p.AvgEntryPrice = (p.AvgEntryPrice + tr.Price) / 2
		p.Quantity *= 2
		p.Margin += addMargin
		p.HasAdded = true
		l.log.Info("position added",
			zap.String("id", p.ID),
			zap.String("symbol", p.Symbol),
			zap.Float64("add_price", tr.Price),
			zap.Float64("avg_entry", p.AvgEntryPrice),
			zap.Float64("quantity", p.Quantity))
		return nil, nil

	case TransitionClose:
		pnl := (p.AvgEntryPrice - tr.Price) * p.Quantity
		l.acct.Release(p.Margin, pnl)
		p.Status = StatusClosed
		delete(l.bySym, p.Symbol)
		for i, op := range l.open {
			if op == p {
				l.open = append(l.open[:i], l.open[i+1:]...)
				break
			}
		}

		rec := TradeRecord{
			ID:            p.ID,
			Symbol:        p.Symbol,
			EntryPrice:    p.EntryPrice,
			AvgEntryPrice: p.AvgEntryPrice,
			ExitPrice:     tr.Price,
			EntryTime:     p.EntryTime,
			ExitTime:      tr.Time,
			Quantity:      p.Quantity,
			Leverage:      p.Leverage,
			Margin:        p.Margin,
			RealizedPL:    pnl,
			ReturnPct:     pnl / p.Margin,
			HoldHours:     tr.Time.Sub(p.EntryTime).Hours(),
			Added:         p.HasAdded,
			Reason:        tr.Reason,
		}
		l.records = append(l.records, rec)

		l.log.Info("position closed",
			zap.String("id", p.ID),
			zap.String("symbol", p.Symbol),
			zap.String("reason", tr.Reason),
			zap.Float64("exit", tr.Price),
			zap.Float64("pnl", pnl),
			zap.Float64("capital", l.acct.Total()))
		return &rec, nil
	}
	return nil, nil
}

// OpenPositions returns the open positions in entry order.
func (l *Ledger) OpenPositions() []*Position {
	out := make([]*Position, len(l.open))
	copy(out, l.open)
	return out
}

func (l *Ledger) OpenCount() int { return len(l.open) }

func (l *Ledger) Has(symbol string) bool {
	_, ok := l.bySym[symbol]
	return ok
}

// Records returns the closed-trade history in close order.
func (l *Ledger) Records() []TradeRecord {
	out := make([]TradeRecord, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Ledger) Account() *Account { return l.acct }
