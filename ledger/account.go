package ledger

import "errors"

var (
	ErrInsufficientCapital = errors.New("ledger: insufficient free capital")
	ErrPositionLimit       = errors.New("ledger: max open positions reached")
	ErrDuplicatePosition   = errors.New("ledger: symbol already held")
)

// Account tracks the simulated capital as a single scalar split between
// free capital and margin reserved by open positions. The invariant
// free + reserved == initial + realized P&L holds after every
// transition; Reserve fails rather than letting capital go negative.
type Account struct {
	free     float64
	reserved float64
}

func NewAccount(initial float64) *Account {
	return &Account{free: initial}
}

func (a *Account) Free() float64     { return a.free }
func (a *Account) Reserved() float64 { return a.reserved }
func (a *Account) Total() float64    { return a.free + a.reserved }

// Reserve moves margin from free capital into the reserved bucket.
func (a *Account) Reserve(margin float64) error {
	if margin <= 0 || margin > a.free {
		return ErrInsufficientCapital
	}
	a.free -= margin
	a.reserved += margin
	return nil
}

// Release returns a position's margin to free capital along with its
// realized P&L.
func (a *Account) Release(margin, pnl float64) {
	a.reserved -= margin
	a.free += margin + pnl
}
