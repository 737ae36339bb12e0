package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/kovrin/spikeshort/params"
)

var t0 = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		PositionSizeRatio: 0.30,
		MaxPositions:      3,
		MaxHold:           11 * 24 * time.Hour,
		DynamicStopDelta:  -0.18,
		RatioCutoff:       time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testParams() params.Params {
	return params.Params{
		Leverage:             5,
		TakeProfitInitial:    0.40,
		TakeProfitDecayed:    0.25,
		TakeProfitDecayHours: 2,
		StopLoss:             0.45,
		AddTrigger:           0.35,
		EntryWait:            0.10,
	}
}

func newLedger(t *testing.T, capital float64) *Ledger {
	t.Helper()
	return New(testConfig(), NewAccount(capital), nil)
}

func openShort(t *testing.T, l *Ledger, symbol string, price float64) *Position {
	t.Helper()
	pos, err := l.Open(symbol, price, testParams(), 0.50, true, t0)
	if err != nil {
		t.Fatalf("open %s: %v", symbol, err)
	}
	return pos
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func TestOpenCompoundingSizing(t *testing.T) {
	l := newLedger(t, 10_000)

	pos := openShort(t, l, "AAAUSDT", 100)
	if !approx(pos.Margin, 3_000) {
		t.Fatalf("margin: %.2f", pos.Margin)
	}
	// quantity = margin * leverage / price
	if !approx(pos.Quantity, 150) {
		t.Fatalf("quantity: %.4f", pos.Quantity)
	}
	if !approx(l.Account().Free(), 7_000) {
		t.Fatalf("free after open: %.2f", l.Account().Free())
	}

	// Second entry sizes off remaining free capital, not the original.
	pos2 := openShort(t, l, "BBBUSDT", 50)
	if !approx(pos2.Margin, 2_100) {
		t.Fatalf("second margin should compound: %.2f", pos2.Margin)
	}
}

func TestOpenRejections(t *testing.T) {
	l := newLedger(t, 10_000)

	openShort(t, l, "AAAUSDT", 100)
	if _, err := l.Open("AAAUSDT", 100, testParams(), 0, false, t0); err != ErrDuplicatePosition {
		t.Fatalf("want ErrDuplicatePosition, got %v", err)
	}

	openShort(t, l, "BBBUSDT", 100)
	openShort(t, l, "CCCUSDT", 100)
	if _, err := l.Open("DDDUSDT", 100, testParams(), 0, false, t0); err != ErrPositionLimit {
		t.Fatalf("want ErrPositionLimit, got %v", err)
	}

	drained := New(testConfig(), NewAccount(0), nil)
	if _, err := drained.Open("AAAUSDT", 100, testParams(), 0, false, t0); err != ErrInsufficientCapital {
		t.Fatalf("want ErrInsufficientCapital, got %v", err)
	}
}

func TestTakeProfitDecay(t *testing.T) {
	l := newLedger(t, 10_000)
	pos := openShort(t, l, "AAAUSDT", 100)

	// Hour 1: 39% drop, initial threshold 0.40 still active -> no close.
	tr := l.EvaluateHour(pos, 61, 0, false, t0.Add(1*time.Hour))
	if tr.Kind != TransitionNone {
		t.Fatalf("hour 1 should hold, got kind %d reason %q", tr.Kind, tr.Reason)
	}

	// Hour 3: 41% drop, grace window passed, decayed threshold 0.25.
	tr = l.EvaluateHour(pos, 59, 0, false, t0.Add(3*time.Hour))
	if tr.Kind != TransitionClose || tr.Reason != ReasonTakeProfit {
		t.Fatalf("hour 3 should take profit, got kind %d reason %q", tr.Kind, tr.Reason)
	}
}

func TestTakeProfitBeatsStopLoss(t *testing.T) {
	// Synthetic parameters where both rule 1 and rule 3 fire at the same
	// price; the priority order must pick take-profit.
	l := newLedger(t, 10_000)
	pos := openShort(t, l, "AAAUSDT", 100)
	pos.Params.TakeProfitInitial = 0.10
	pos.Params.TakeProfitDecayed = 0.10
	pos.Params.StopLoss = -0.20
	pos.HasAdded = true // keep rule 2 out of the way

	tr := l.EvaluateHour(pos, 85, 0, false, t0.Add(1*time.Hour))
	if tr.Kind != TransitionClose || tr.Reason != ReasonTakeProfit {
		t.Fatalf("take-profit must win, got kind %d reason %q", tr.Kind, tr.Reason)
	}
}

func TestAddInterceptsFirstStopBreach(t *testing.T) {
	l := newLedger(t, 10_000)
	pos := openShort(t, l, "AAAUSDT", 100)
	pos.Params.AddTrigger = 0.40
	pos.Params.StopLoss = 0.45

	// 42% adverse move with no add yet: rule 2 fires, not rule 3.
	tr := l.EvaluateHour(pos, 142, 0, false, t0.Add(1*time.Hour))
	if tr.Kind != TransitionAdd {
		t.Fatalf("expected add, got kind %d reason %q", tr.Kind, tr.Reason)
	}
}

func TestAddPosition(t *testing.T) {
	l := newLedger(t, 10_000)
	pos := openShort(t, l, "AAAUSDT", 100)
	qty := pos.Quantity

	tr := l.EvaluateHour(pos, 136, 0, false, t0.Add(5*time.Hour))
	if tr.Kind != TransitionAdd {
		t.Fatalf("expected add at 36%% adverse, got kind %d", tr.Kind)
	}
	if _, err := l.Apply(pos, tr); err != nil {
		t.Fatalf("apply add: %v", err)
	}

	if !approx(pos.AvgEntryPrice, 118) {
		t.Fatalf("avg entry: %.4f", pos.AvgEntryPrice)
	}
	if !approx(pos.Quantity, 2*qty) {
		t.Fatalf("quantity should double: %.4f", pos.Quantity)
	}
	if !pos.HasAdded {
		t.Fatal("HasAdded must be set")
	}

	// Take-profit resets to the initial threshold after the add, even
	// past the decay window.
	if got := pos.activeTakeProfit(t0.Add(10 * time.Hour)); !approx(got, 0.40) {
		t.Fatalf("active TP after add: %.2f", got)
	}

	// No second add.
	tr = l.EvaluateHour(pos, 170, 0, false, t0.Add(6*time.Hour))
	if tr.Kind == TransitionAdd {
		t.Fatal("add must fire at most once")
	}
}

func TestUnfundableAddDoesNotShadowStopLoss(t *testing.T) {
	l := newLedger(t, 10_000)
	pos := openShort(t, l, "AAAUSDT", 100) // margin 3000, qty 150, free 7000

	// Drain free capital so no add can be funded.
	if err := l.Account().Reserve(6_900); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// 40% adverse: the add trigger is breached but unfundable
	// (140*150/5 = 4200 > 100 free) and the stop (0.45) not yet hit.
	// The position holds instead of emitting an add forever.
	tr := l.EvaluateHour(pos, 140, 0, false, t0.Add(1*time.Hour))
	if tr.Kind != TransitionNone {
		t.Fatalf("unfundable add must not transition, got kind %d reason %q", tr.Kind, tr.Reason)
	}

	// 46% adverse: the stop closes the trade.
	tr = l.EvaluateHour(pos, 146, 0, false, t0.Add(2*time.Hour))
	if tr.Kind != TransitionClose || tr.Reason != ReasonStopLoss {
		t.Fatalf("stop must fire past an unfundable add, got kind %d reason %q", tr.Kind, tr.Reason)
	}
	if pos.HasAdded {
		t.Fatal("no add may have been applied")
	}
}

func TestStopLossAfterAdd(t *testing.T) {
	l := newLedger(t, 100_000)
	pos := openShort(t, l, "AAAUSDT", 100)

	add := l.EvaluateHour(pos, 136, 0, false, t0.Add(1*time.Hour))
	if _, err := l.Apply(pos, add); err != nil {
		t.Fatalf("apply add: %v", err)
	}

	// avg 118, stop 0.45 -> breach above 171.1 closes directly.
	tr := l.EvaluateHour(pos, 172, 0, false, t0.Add(2*time.Hour))
	if tr.Kind != TransitionClose || tr.Reason != ReasonStopLoss {
		t.Fatalf("expected stop-loss close, got kind %d reason %q", tr.Kind, tr.Reason)
	}
}

func TestDynamicStopOnRatioDrift(t *testing.T) {
	l := newLedger(t, 10_000)
	pos := openShort(t, l, "AAAUSDT", 100) // entry ratio 0.50

	// Price is in profit (5% drop): rules 1-3 pass, ratio drift of -0.20
	// breaches the -0.18 delta.
	tr := l.EvaluateHour(pos, 95, 0.30, true, t0.Add(3*time.Hour))
	if tr.Kind != TransitionClose || tr.Reason != ReasonDynamicStop {
		t.Fatalf("expected dynamic stop, got kind %d reason %q", tr.Kind, tr.Reason)
	}
}

func TestDynamicStopNeedsCutoffAndData(t *testing.T) {
	l := newLedger(t, 10_000)
	pos := openShort(t, l, "AAAUSDT", 100)

	// Missing current ratio disables only rule 4.
	tr := l.EvaluateHour(pos, 95, 0, false, t0.Add(3*time.Hour))
	if tr.Kind != TransitionNone {
		t.Fatalf("missing ratio must not close, got reason %q", tr.Reason)
	}

	// Before the data-completeness cutoff the rule stays off too.
	early := New(Config{
		PositionSizeRatio: 0.30,
		MaxPositions:      3,
		MaxHold:           11 * 24 * time.Hour,
		DynamicStopDelta:  -0.18,
		RatioCutoff:       t0.AddDate(1, 0, 0),
	}, NewAccount(10_000), nil)
	pos2, err := early.Open("AAAUSDT", 100, testParams(), 0.50, true, t0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	tr = early.EvaluateHour(pos2, 95, 0.30, true, t0.Add(3*time.Hour))
	if tr.Kind != TransitionNone {
		t.Fatalf("pre-cutoff ratio must not close, got reason %q", tr.Reason)
	}
}

func TestTimeout(t *testing.T) {
	l := newLedger(t, 10_000)
	pos := openShort(t, l, "AAAUSDT", 100)

	tr := l.EvaluateHour(pos, 100, 0, false, t0.Add(11*24*time.Hour))
	if tr.Kind != TransitionClose || tr.Reason != ReasonTimeout {
		t.Fatalf("expected timeout close, got kind %d reason %q", tr.Kind, tr.Reason)
	}
}

func TestCloseRealizesShortPL(t *testing.T) {
	l := newLedger(t, 10_000)
	pos := openShort(t, l, "AAAUSDT", 100) // margin 3000, qty 150

	tr := l.EvaluateHour(pos, 59, 0, false, t0.Add(3*time.Hour))
	rec, err := l.Apply(pos, tr)
	if err != nil {
		t.Fatalf("apply close: %v", err)
	}
	if rec == nil {
		t.Fatal("close must produce a record")
	}

	wantPL := (100.0 - 59.0) * 150
	if !approx(rec.RealizedPL, wantPL) {
		t.Fatalf("pnl: %.2f want %.2f", rec.RealizedPL, wantPL)
	}
	if !approx(l.Account().Total(), 10_000+wantPL) {
		t.Fatalf("capital: %.2f", l.Account().Total())
	}
	if rec.Reason != ReasonTakeProfit || rec.Added {
		t.Fatalf("record fields: reason %q added %v", rec.Reason, rec.Added)
	}
	if l.OpenCount() != 0 || l.Has("AAAUSDT") {
		t.Fatal("position must leave the open set")
	}
}

func TestClosedPositionIsInert(t *testing.T) {
	l := newLedger(t, 10_000)
	pos := openShort(t, l, "AAAUSDT", 100)

	tr := l.EvaluateHour(pos, 59, 0, false, t0.Add(3*time.Hour))
	if _, err := l.Apply(pos, tr); err != nil {
		t.Fatalf("apply: %v", err)
	}
	total := l.Account().Total()

	// Re-evaluating or re-applying a closed position must not touch
	// capital or produce a second record.
	tr2 := l.EvaluateHour(pos, 10, 0, false, t0.Add(4*time.Hour))
	if tr2.Kind != TransitionNone {
		t.Fatalf("closed position must evaluate to none, got %d", tr2.Kind)
	}
	rec, err := l.Apply(pos, tr)
	if err != nil || rec != nil {
		t.Fatalf("re-apply must be a no-op, rec=%v err=%v", rec, err)
	}
	if !approx(l.Account().Total(), total) {
		t.Fatalf("capital mutated on no-op: %.2f", l.Account().Total())
	}
	if len(l.Records()) != 1 {
		t.Fatalf("records: %d", len(l.Records()))
	}
}

func TestCapitalInvariantAcrossTransitions(t *testing.T) {
	l := newLedger(t, 10_000)

	check := func(stage string, wantTotal float64) {
		t.Helper()
		if !approx(l.Account().Total(), wantTotal) {
			t.Fatalf("%s: free %.2f + reserved %.2f != %.2f",
				stage, l.Account().Free(), l.Account().Reserved(), wantTotal)
		}
	}

	pos := openShort(t, l, "AAAUSDT", 100)
	check("after open", 10_000)

	add := l.EvaluateHour(pos, 136, 0, false, t0.Add(1*time.Hour))
	if _, err := l.Apply(pos, add); err != nil {
		t.Fatalf("apply add: %v", err)
	}
	check("after add", 10_000)

	qty := pos.Quantity
	closeTr := l.EvaluateHour(pos, 172, 0, false, t0.Add(2*time.Hour))
	if _, err := l.Apply(pos, closeTr); err != nil {
		t.Fatalf("apply close: %v", err)
	}
	check("after close", 10_000+(118-172)*qty)
}
