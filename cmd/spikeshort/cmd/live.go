package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kovrin/spikeshort/config"
	"github.com/kovrin/spikeshort/feed"
	"github.com/kovrin/spikeshort/ledger"
	"github.com/kovrin/spikeshort/live"
	"github.com/kovrin/spikeshort/logger"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Poll Binance futures and manage open shorts with the same engine",
	Long: `Live runs the exit-decision state machine against Binance USD-M
futures market data on a polling interval. It manages positions opened
through it with exactly the backtest's decision logic; entries remain a
manual/operator concern.`,
	RunE: runLive,
}

var liveConfigPath string

func init() {
	rootCmd.AddCommand(liveCmd)
	liveCmd.Flags().StringVarP(&liveConfigPath, "config", "c", "", "path to YAML config (required)")
	liveCmd.MarkFlagRequired("config")
}

func runLive(cmd *cobra.Command, args []string) error {
	log, err := logger.New(logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(liveConfigPath)
	if err != nil {
		return err
	}
	if cfg.Live.APIKey == "" || cfg.Live.APISecret == "" {
		return fmt.Errorf("live.api_key and live.api_secret are required")
	}

	source := feed.NewBinanceSource(cfg.Live.APIKey, cfg.Live.APISecret, cfg.Live.Testnet)

	acct := ledger.NewAccount(cfg.Account.InitialCapital)
	led := ledger.New(cfg.LedgerConfig(), acct, log)

	interval := time.Duration(cfg.Live.IntervalSeconds) * time.Second
	poller := live.NewPoller(led, source, interval, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for rec := range poller.Records() {
			log.Info("trade closed",
				zap.String("symbol", rec.Symbol),
				zap.String("reason", rec.Reason),
				zap.Float64("pnl", rec.RealizedPL))
		}
	}()

	err = poller.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
