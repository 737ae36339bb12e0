package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kovrin/spikeshort/backtest"
	"github.com/kovrin/spikeshort/config"
	"github.com/kovrin/spikeshort/feed"
	"github.com/kovrin/spikeshort/journal"
	"github.com/kovrin/spikeshort/ledger"
	"github.com/kovrin/spikeshort/logger"
	"github.com/kovrin/spikeshort/selector"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the strategy against historical candle data",
	Long: `Backtest replays daily and hourly candles from a data directory
(<SYMBOL>_daily.csv and <SYMBOL>_hourly.csv per symbol), optionally
joined with a long/short ratio CSV, and writes entry decisions and
trade records to the configured journal.

Example:
  spikeshort backtest --config strategy.yaml --data ./candles --ratios ./ratios.csv`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btDataDir    string
	btRatiosPath string
	btStart      string
	btEnd        string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to YAML config (defaults apply if empty)")
	backtestCmd.Flags().StringVarP(&btDataDir, "data", "d", "", "directory with per-symbol candle CSVs (required)")
	backtestCmd.Flags().StringVarP(&btRatiosPath, "ratios", "r", "", "optional long/short ratio CSV (time,symbol,ratio)")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "first simulated day (YYYY-MM-DD, default: data start)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "last simulated day (YYYY-MM-DD, default: data end)")

	backtestCmd.MarkFlagRequired("data")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log, err := logger.New(logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg := config.Default()
	if btConfigPath != "" {
		cfg, err = config.Load(btConfigPath)
		if err != nil {
			return err
		}
	}

	universe, err := feed.LoadUniverse(btDataDir)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	var ratios feed.RatioSource = feed.NoRatios{}
	if btRatiosPath != "" {
		set, err := feed.LoadRatioCSV(btRatiosPath)
		if err != nil {
			return fmt.Errorf("load ratios: %w", err)
		}
		ratios = set
	}

	jnl, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jnl.Close()

	opts := backtest.Options{
		TrailingWindow: cfg.Engine.TrailingWindow,
		UseEntryWait:   cfg.Selector.UseEntryWait,
	}
	if btStart != "" {
		if opts.Start, err = time.Parse("2006-01-02", btStart); err != nil {
			return fmt.Errorf("bad --start: %w", err)
		}
	}
	if btEnd != "" {
		if opts.End, err = time.Parse("2006-01-02", btEnd); err != nil {
			return fmt.Errorf("bad --end: %w", err)
		}
	}

	acct := ledger.NewAccount(cfg.Account.InitialCapital)
	led := ledger.New(cfg.LedgerConfig(), acct, log)
	sel := selector.New(cfg.SelectorConfig(), log)

	driver := backtest.NewDriver(opts, universe, ratios, sel, cfg.Table(), led, jnl, log)
	res, err := driver.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Backtest complete: %s .. %s\n",
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"))
	fmt.Printf("  Trades:  %d (%d wins / %d losses)\n", res.Trades, res.Wins, res.Losses)
	fmt.Printf("  Capital: %.2f -> %.2f (%+.2f%%)\n",
		res.InitialCapital, res.FinalCapital, 100*res.ReturnPct)
	return nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	case "csv":
		return journal.NewCSV(jc.TradesFile, jc.DecisionsFile)
	default:
		return journal.Nop{}, nil
	}
}
