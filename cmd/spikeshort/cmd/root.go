package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spikeshort",
	Short: "Backtester for a leveraged short strategy against daily spikes",
	Long: `Spikeshort simulates a leveraged short-selling strategy against
historical candles: it shorts the day's biggest gainer after a
multi-stage risk gate, sizes with compounding leverage, and manages the
position hour by hour through take-profit decay, one-shot averaging-in,
stop-loss, a sentiment-driven dynamic stop and a hold timeout.

It produces per-trade records for strategy research; it places no
orders except through the separate live poller.`,
}

var logLevel string

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
