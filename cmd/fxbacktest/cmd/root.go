package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fxbacktest",
	Short: "Tick-level FX backtesting engine",
	Long: `fxbacktest replays historical candle data as a synthesized tick
stream through a simulated execution venue.

It provides tools for:
  - Running tick-level backtests of the trend-confluence strategy
  - Grid-searching strategy parameters across isolated runs
  - Journaling trades and equity curves to SQLite or CSV
  - Risk-based position sizing with daily loss limits`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
