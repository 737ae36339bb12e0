// Package config loads and validates the simulation configuration.
// Everything is explicit: engine packages take their pieces as
// constructor parameters, nothing reads this at package level.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kovrin/spikeshort/ledger"
	"github.com/kovrin/spikeshort/params"
	"github.com/kovrin/spikeshort/selector"
)

type Config struct {
	Account  AccountConfig   `yaml:"account"`
	Selector SelectorConfig  `yaml:"selector"`
	Engine   EngineConfig    `yaml:"engine"`
	Brackets []BracketConfig `yaml:"brackets"`
	Journal  JournalConfig   `yaml:"journal"`
	Live     LiveConfig      `yaml:"live"`
}

// AccountConfig sets up the capital account and sizing.
type AccountConfig struct {
	InitialCapital    float64 `yaml:"initial_capital"`
	PositionSizeRatio float64 `yaml:"position_size_ratio"`
	MaxPositions      int     `yaml:"max_positions"`
}

// SelectorConfig carries the candidate and risk-gate thresholds.
type SelectorConfig struct {
	MinPctChange    float64                 `yaml:"min_pct_change"`
	MomentumSteps   []selector.MomentumStep `yaml:"momentum_steps"`
	RatioFloor      float64                 `yaml:"ratio_floor"`
	HighPctChange   float64                 `yaml:"high_pct_change"`
	VolumeFloor     float64                 `yaml:"volume_floor"`
	AbandonDrawdown float64                 `yaml:"abandon_drawdown"`
	UseEntryWait    bool                    `yaml:"use_entry_wait"`
}

// EngineConfig carries the per-position engine knobs.
type EngineConfig struct {
	MaxHoldDays      float64 `yaml:"max_hold_days"` // fractional days supported
	DynamicStopDelta float64 `yaml:"dynamic_stop_delta"`
	RatioCutoff      string  `yaml:"ratio_cutoff"` // YYYY-MM-DD
	TrailingWindow   int     `yaml:"trailing_window"`
}

// BracketConfig is one row of the dynamic-parameter table. The last row
// is the catch-all and its upper bound is ignored.
type BracketConfig struct {
	UpperBound      float64 `yaml:"upper_bound"`
	Leverage        float64 `yaml:"leverage"`
	TakeProfit      float64 `yaml:"take_profit"`
	TakeProfitDecay float64 `yaml:"take_profit_decayed"`
	DecayHours      int     `yaml:"decay_hours"`
	StopLoss        float64 `yaml:"stop_loss"`
	AddTrigger      float64 `yaml:"add_trigger"`
	EntryWait       float64 `yaml:"entry_wait"`
}

type JournalConfig struct {
	Type          string `yaml:"type"` // "sqlite", "csv" or "none"
	DBPath        string `yaml:"db_path,omitempty"`
	TradesFile    string `yaml:"trades_file,omitempty"`
	DecisionsFile string `yaml:"decisions_file,omitempty"`
}

type LiveConfig struct {
	APIKey          string   `yaml:"api_key"`
	APISecret       string   `yaml:"api_secret"`
	Testnet         bool     `yaml:"testnet"`
	Symbols         []string `yaml:"symbols"`
	IntervalSeconds int      `yaml:"interval_seconds"`
}

// Load reads a YAML config file and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the production tuning.
func Default() *Config {
	table := params.Default()
	brackets := make([]BracketConfig, len(table.Brackets))
	for i, b := range table.Brackets {
		brackets[i] = BracketConfig{
			UpperBound:      b.UpperBound,
			Leverage:        b.Params.Leverage,
			TakeProfit:      b.Params.TakeProfitInitial,
			TakeProfitDecay: b.Params.TakeProfitDecayed,
			DecayHours:      b.Params.TakeProfitDecayHours,
			StopLoss:        b.Params.StopLoss,
			AddTrigger:      b.Params.AddTrigger,
			EntryWait:       b.Params.EntryWait,
		}
	}
	return &Config{
		Account: AccountConfig{
			InitialCapital:    10_000,
			PositionSizeRatio: 0.30,
			MaxPositions:      3,
		},
		Selector: SelectorConfig{
			MinPctChange: 0.15,
			MomentumSteps: []selector.MomentumStep{
				{Floor: 0.50, Excess: 0.10},
				{Floor: 0.30, Excess: 0.30},
				{Floor: 0, Excess: 0.50},
			},
			RatioFloor:      0.55,
			HighPctChange:   0.50,
			VolumeFloor:     30_000_000,
			AbandonDrawdown: 0.15,
		},
		Engine: EngineConfig{
			MaxHoldDays:      11,
			DynamicStopDelta: -0.18,
			RatioCutoff:      "2021-03-01",
			TrailingWindow:   30,
		},
		Brackets: brackets,
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./spikeshort.sqlite",
		},
		Live: LiveConfig{
			IntervalSeconds: 60,
		},
	}
}

// Validate checks the configuration. Errors here are fatal at startup;
// nothing recovers from a bad table per-trade.
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if c.Account.PositionSizeRatio <= 0 || c.Account.PositionSizeRatio > 1 {
		return fmt.Errorf("account.position_size_ratio must be in (0,1]")
	}
	if c.Account.MaxPositions <= 0 {
		return fmt.Errorf("account.max_positions must be positive")
	}
	if c.Selector.MinPctChange <= 0 {
		return fmt.Errorf("selector.min_pct_change must be positive")
	}
	if len(c.Selector.MomentumSteps) == 0 {
		return fmt.Errorf("selector.momentum_steps must not be empty")
	}
	for i, s := range c.Selector.MomentumSteps {
		if i > 0 && s.Floor >= c.Selector.MomentumSteps[i-1].Floor {
			return fmt.Errorf("selector.momentum_steps floors must be strictly decreasing")
		}
		if s.Excess < 0 {
			return fmt.Errorf("selector.momentum_steps excess must not be negative")
		}
	}
	if c.Selector.AbandonDrawdown <= 0 {
		return fmt.Errorf("selector.abandon_drawdown must be positive")
	}
	if c.Engine.MaxHoldDays <= 0 {
		return fmt.Errorf("engine.max_hold_days must be positive")
	}
	if c.Engine.DynamicStopDelta >= 0 {
		return fmt.Errorf("engine.dynamic_stop_delta must be negative")
	}
	if _, err := c.ratioCutoff(); err != nil {
		return fmt.Errorf("engine.ratio_cutoff: %w", err)
	}
	if c.Engine.TrailingWindow <= 0 {
		return fmt.Errorf("engine.trailing_window must be positive")
	}
	if err := c.Table().Validate(); err != nil {
		return err
	}
	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.DecisionsFile == "" {
			return fmt.Errorf("journal.trades_file and journal.decisions_file required for csv journal")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be sqlite, csv or none")
	}
	return nil
}

// Table builds the params bracket table.
func (c *Config) Table() params.Table {
	brackets := make([]params.Bracket, len(c.Brackets))
	for i, b := range c.Brackets {
		brackets[i] = params.Bracket{
			UpperBound: b.UpperBound,
			Params: params.Params{
				Leverage:             b.Leverage,
				TakeProfitInitial:    b.TakeProfit,
				TakeProfitDecayed:    b.TakeProfitDecay,
				TakeProfitDecayHours: b.DecayHours,
				StopLoss:             b.StopLoss,
				AddTrigger:           b.AddTrigger,
				EntryWait:            b.EntryWait,
			},
		}
	}
	return params.Table{Brackets: brackets}
}

// SelectorConfig builds the selector's configuration.
func (c *Config) SelectorConfig() selector.Config {
	return selector.Config{
		MinPctChange:    c.Selector.MinPctChange,
		MomentumSteps:   c.Selector.MomentumSteps,
		RatioFloor:      c.Selector.RatioFloor,
		HighPctChange:   c.Selector.HighPctChange,
		VolumeFloor:     c.Selector.VolumeFloor,
		AbandonDrawdown: c.Selector.AbandonDrawdown,
	}
}

// LedgerConfig builds the engine knobs for the position ledger.
func (c *Config) LedgerConfig() ledger.Config {
	cutoff, _ := c.ratioCutoff() // validated at load time
	return ledger.Config{
		PositionSizeRatio: c.Account.PositionSizeRatio,
		MaxPositions:      c.Account.MaxPositions,
		MaxHold:           time.Duration(c.Engine.MaxHoldDays * 24 * float64(time.Hour)),
		DynamicStopDelta:  c.Engine.DynamicStopDelta,
		RatioCutoff:       cutoff,
	}
}

func (c *Config) ratioCutoff() (time.Time, error) {
	if c.Engine.RatioCutoff == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", c.Engine.RatioCutoff)
}
