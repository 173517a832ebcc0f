package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantlab/fxbacktest/backtest"
	"github.com/quantlab/fxbacktest/config"
	"github.com/quantlab/fxbacktest/journal"
	"github.com/quantlab/fxbacktest/market"
	"github.com/quantlab/fxbacktest/pkg/id"
	"github.com/quantlab/fxbacktest/report"
	"github.com/quantlab/fxbacktest/risk"
	"github.com/quantlab/fxbacktest/sim"
	"github.com/quantlab/fxbacktest/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest from a config file",
	Long: `Run a tick-level backtest using settings from a configuration file.

The config file names the candle data files per timeframe, the simulated
venue's spread and commission, the risk policy, and the strategy
parameters.

Example:
  fxbacktest run -f examples/configs/eurusd-m5.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runShowTrades bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().BoolVar(&runShowTrades, "trades", false, "print the closed-trade ledger after the summary")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := loadData(cfg)
	if err != nil {
		return err
	}

	runID := id.New()
	jrnl, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer jrnl.Close()

	runCfg, err := cfg.RunConfig(runID)
	if err != nil {
		return err
	}
	venue := sim.NewVenue(cfg.InitialCapital, cfg.VenueConfig(runID), jrnl)
	gate := risk.NewGate(cfg.RiskConfig())
	strat := strategy.NewTrend(cfg.TrendParams())

	eng := backtest.New(runCfg, venue, strat, gate, jrnl)
	if err := eng.LoadData(data); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Running %s %s backtest (run %s)\n", cfg.Symbol, cfg.Timeframe, runID)
	res, err := eng.Run(ctx)
	if res != nil {
		report.WriteSummary(os.Stdout, res)
		if runShowTrades {
			report.WriteTrades(os.Stdout, res)
		}
	}
	return err
}

func loadData(cfg config.Config) (map[market.Timeframe][]market.Candle, error) {
	if len(cfg.Data.Files) == 0 {
		return nil, fmt.Errorf("config: no data files listed")
	}
	data := make(map[market.Timeframe][]market.Candle, len(cfg.Data.Files))
	for tf, path := range cfg.Data.Files {
		candles, err := market.LoadCSV(path, cfg.Symbol, market.Timeframe(tf))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		data[market.Timeframe(tf)] = candles
	}
	if _, ok := data[market.Timeframe(cfg.Timeframe)]; !ok {
		return nil, fmt.Errorf("config: no data file for entry timeframe %s", cfg.Timeframe)
	}
	return data, nil
}

func openJournal(cfg config.Config) (journal.Journal, error) {
	switch cfg.Journal.Backend {
	case "sqlite":
		path := cfg.Journal.Path
		if path == "" {
			path = "./fxbacktest.sqlite"
		}
		return journal.NewSQLite(path)
	case "csv":
		base := cfg.Journal.Path
		if base == "" {
			base = "./fxbacktest"
		}
		return journal.NewCSV(base+"-trades.csv", base+"-equity.csv")
	default:
		return journal.NewMemory(), nil
	}
}
