package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantlab/fxbacktest/backtest"
	"github.com/quantlab/fxbacktest/config"
	"github.com/quantlab/fxbacktest/pkg/id"
	"github.com/quantlab/fxbacktest/report"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Grid-search fast/slow EMA periods",
	Long: `Run one isolated backtest per fast/slow EMA pair and rank the grid
by total P&L. Pairs where fast >= slow are skipped.

Example:
  fxbacktest optimize -f eurusd-m5.yaml --fast 5,9,12 --slow 21,50,100`,
	RunE: runOptimize,
}

var (
	optConfigPath string
	optFast       []int
	optSlow       []int
	optWorkers    int
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVarP(&optConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	optimizeCmd.Flags().IntSliceVar(&optFast, "fast", []int{5, 9, 12}, "fast EMA periods to try")
	optimizeCmd.Flags().IntSliceVar(&optSlow, "slow", []int{21, 50}, "slow EMA periods to try")
	optimizeCmd.Flags().IntVarP(&optWorkers, "workers", "w", 0, "concurrent runs (0 = all CPUs)")
	optimizeCmd.MarkFlagRequired("config")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(optConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := loadData(cfg)
	if err != nil {
		return err
	}

	baseID := id.New()
	runCfg, err := cfg.RunConfig(baseID)
	if err != nil {
		return err
	}

	opt := backtest.OptimizeConfig{
		Run:      runCfg,
		Venue:    cfg.VenueConfig(baseID),
		Risk:     cfg.RiskConfig(),
		Params:   cfg.TrendParams(),
		FastEMAs: optFast,
		SlowEMAs: optSlow,
		Workers:  optWorkers,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Optimizing %s %s over %d fast x %d slow periods\n",
		cfg.Symbol, cfg.Timeframe, len(optFast), len(optSlow))
	points, err := backtest.Optimize(ctx, opt, data)
	if err != nil {
		return err
	}
	return report.WriteGrid(os.Stdout, points)
}
