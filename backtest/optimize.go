package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/quantlab/fxbacktest/journal"
	"github.com/quantlab/fxbacktest/market"
	"github.com/quantlab/fxbacktest/risk"
	"github.com/quantlab/fxbacktest/sim"
	"github.com/quantlab/fxbacktest/strategy"
)

// OptimizeConfig describes a grid search over the trend strategy's fast
// and slow EMA periods. Every other parameter is held fixed.
type OptimizeConfig struct {
	Run   Config
	Venue sim.Config
	Risk  risk.Config

	Params strategy.TrendParams

	FastEMAs []int
	SlowEMAs []int

	// Workers bounds the concurrent runs; zero means GOMAXPROCS.
	Workers int
}

// OptimizePoint is one grid cell's outcome.
type OptimizePoint struct {
	FastEMA int
	SlowEMA int

	Summary      Summary
	FinalBalance float64
	Err          error
}

// Optimize runs one isolated backtest per parameter pair and returns
// the grid sorted by total P&L, best first. Each point gets its own
// venue, gate, strategy, and in-memory journal, plus a deterministic
// seed derived from the base seed and the point's index, so the grid is
// reproducible and points never share noise streams.
func Optimize(ctx context.Context, cfg OptimizeConfig, data map[market.Timeframe][]market.Candle) ([]OptimizePoint, error) {
	if len(cfg.FastEMAs) == 0 || len(cfg.SlowEMAs) == 0 {
		return nil, fmt.Errorf("optimize: empty parameter grid")
	}

	type cell struct {
		idx        int
		fast, slow int
	}
	var grid []cell
	for _, fast := range cfg.FastEMAs {
		for _, slow := range cfg.SlowEMAs {
			if fast >= slow {
				continue
			}
			grid = append(grid, cell{idx: len(grid), fast: fast, slow: slow})
		}
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("optimize: no valid pairs (fast must be below slow)")
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(grid) {
		workers = len(grid)
	}

	results := make([]OptimizePoint, len(grid))
	jobs := make(chan cell)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				results[c.idx] = runPoint(ctx, cfg, data, c.idx, c.fast, c.slow)
			}
		}()
	}

	for _, c := range grid {
		select {
		case jobs <- c:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Summary.TotalPL > results[j].Summary.TotalPL
	})
	return results, nil
}

func runPoint(ctx context.Context, cfg OptimizeConfig, data map[market.Timeframe][]market.Candle, idx, fast, slow int) OptimizePoint {
	point := OptimizePoint{FastEMA: fast, SlowEMA: slow}

	runCfg := cfg.Run
	runCfg.RunID = fmt.Sprintf("%s-f%d-s%d", cfg.Run.RunID, fast, slow)
	if runCfg.Synth.Seed != 0 {
		runCfg.Synth.Seed += int64(idx)
	}

	venueCfg := cfg.Venue
	venueCfg.RunID = runCfg.RunID

	params := cfg.Params
	params.FastEMA = fast
	params.SlowEMA = slow

	jrnl := journal.NewMemory()
	venue := sim.NewVenue(runCfg.InitialCapital, venueCfg, jrnl)
	gate := risk.NewGate(cfg.Risk)
	eng := New(runCfg, venue, strategy.NewTrend(params), gate, jrnl)

	if err := eng.LoadData(data); err != nil {
		point.Err = err
		return point
	}
	res, err := eng.Run(ctx)
	if err != nil {
		point.Err = err
	}
	if res != nil {
		point.Summary = res.Summary
		point.FinalBalance = res.FinalBalance
	}
	return point
}
