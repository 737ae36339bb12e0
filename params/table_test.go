package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFirstMatchWins(t *testing.T) {
	table := Default()
	require.NoError(t, table.Validate())

	cases := []struct {
		name     string
		pctChg   float64
		leverage float64
	}{
		{"below first bound", 0.16, 3},
		{"just under first bound", 0.299, 3},
		{"second bracket", 0.30, 4},
		{"third bracket", 0.55, 5},
		{"catch-all", 0.80, 5},
		{"far beyond table", 4.2, 5},
		{"negative input still resolves", -0.10, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := table.Resolve(tc.pctChg)
			assert.Equal(t, tc.leverage, p.Leverage)
		})
	}
}

func TestResolveCatchAllIgnoresItsBound(t *testing.T) {
	table := Default()
	last := table.Brackets[len(table.Brackets)-1].Params

	// Values past every bound land in the last bracket regardless of its
	// (ignored) upper bound.
	assert.Equal(t, last, table.Resolve(100))
}

func TestResolveIsTotalOverTable(t *testing.T) {
	table := Default()

	// Every input maps to exactly one bracket's params: sweep a range
	// and check the result always equals one of the table rows.
	for x := -1.0; x <= 5.0; x += 0.01 {
		p := table.Resolve(x)
		found := false
		for _, b := range table.Brackets {
			if b.Params == p {
				found = true
				break
			}
		}
		require.True(t, found, "resolve(%f) returned params outside the table", x)
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	good := Params{
		Leverage: 3, TakeProfitInitial: 0.30, TakeProfitDecayed: 0.20,
		TakeProfitDecayHours: 2, StopLoss: 0.40, AddTrigger: 0.30, EntryWait: 0.05,
	}

	t.Run("empty table", func(t *testing.T) {
		assert.Error(t, Table{}.Validate())
	})

	t.Run("non-monotonic bounds", func(t *testing.T) {
		table := Table{Brackets: []Bracket{
			{UpperBound: 0.50, Params: good},
			{UpperBound: 0.30, Params: good},
			{UpperBound: 0, Params: good},
		}}
		assert.Error(t, table.Validate())
	})

	t.Run("add trigger at or above stop-loss", func(t *testing.T) {
		bad := good
		bad.AddTrigger = bad.StopLoss
		table := Table{Brackets: []Bracket{{UpperBound: 0, Params: bad}}}
		assert.Error(t, table.Validate())
	})

	t.Run("decayed above initial", func(t *testing.T) {
		bad := good
		bad.TakeProfitDecayed = bad.TakeProfitInitial + 0.01
		table := Table{Brackets: []Bracket{{UpperBound: 0, Params: bad}}}
		assert.Error(t, table.Validate())
	})

	t.Run("zero leverage", func(t *testing.T) {
		bad := good
		bad.Leverage = 0
		table := Table{Brackets: []Bracket{{UpperBound: 0, Params: bad}}}
		assert.Error(t, table.Validate())
	})
}
