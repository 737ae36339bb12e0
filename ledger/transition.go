package ledger

import "time"

type TransitionKind int

const (
	TransitionNone TransitionKind = iota
	TransitionAdd
	TransitionClose
)

// Transition is the state machine's verdict for one position at one
// evaluated hour. Price and Time describe the fill; Reason is set for
// closes only.
type Transition struct {
	Kind   TransitionKind
	Price  float64
	Time   time.Time
	Reason string
}

func none() Transition { return Transition{Kind: TransitionNone} }

func closeAt(price float64, t time.Time, reason string) Transition {
	return Transition{Kind: TransitionClose, Price: price, Time: t, Reason: reason}
}

func addAt(price float64, t time.Time) Transition {
	return Transition{Kind: TransitionAdd, Price: price, Time: t}
}
