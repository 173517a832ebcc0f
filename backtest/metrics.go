package backtest

import (
	"math"

	"github.com/quantlab/fxbacktest/broker"
	"github.com/quantlab/fxbacktest/journal"
)

// Summary is the performance report computed from a finished run's
// trade ledger and equity curve. A run with zero trades yields the zero
// Summary rather than an error.
type Summary struct {
	TotalTrades int
	Wins        int
	Losses      int

	WinRate float64 // percent
	TotalPL float64

	AverageWin  float64
	AverageLoss float64 // negative or zero

	// Expectancy is the mean expected P&L per trade. It stays zero
	// until the ledger holds at least one winner and one loser.
	Expectancy float64

	MaxDrawdownPct float64

	// SharpeRatio is computed over equity-to-equity returns and
	// annualized with sqrt(252). Zero when fewer than two equity points
	// exist or the returns have no variance.
	SharpeRatio float64

	TotalReturnPct float64

	// AnnualizedReturnPct extrapolates total return by 252/trades. It
	// treats each trade as one trading day, which overstates short
	// runs; read it as a rough scale, not a forecast.
	AnnualizedReturnPct float64
}

// Summarize derives the report from the closed trades, the sampled
// equity curve, and the starting capital.
func Summarize(trades []broker.ClosedTrade, equity []journal.EquitySnapshot, initialCapital float64) Summary {
	var s Summary
	s.TotalTrades = len(trades)

	var winSum, lossSum float64
	for _, t := range trades {
		s.TotalPL += t.RealizedPL
		switch {
		case t.RealizedPL > 0:
			s.Wins++
			winSum += t.RealizedPL
		case t.RealizedPL < 0:
			s.Losses++
			lossSum += t.RealizedPL
		}
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100
	}
	if s.Wins > 0 {
		s.AverageWin = winSum / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AverageLoss = lossSum / float64(s.Losses)
	}

	// Expectancy needs both sides of the ledger to mean anything.
	if s.Wins > 0 && s.Losses > 0 {
		p := s.WinRate / 100
		s.Expectancy = p*s.AverageWin + (1-p)*s.AverageLoss
	}

	s.MaxDrawdownPct = maxDrawdown(equity)
	s.SharpeRatio = sharpe(equity)

	if initialCapital > 0 && s.TotalTrades > 0 {
		s.TotalReturnPct = s.TotalPL / initialCapital * 100
		s.AnnualizedReturnPct = s.TotalReturnPct * 252 / float64(s.TotalTrades)
	}
	return s
}

// DrawdownSeries returns, for each equity point, its drop from the
// expanding maximum as a percentage of that maximum.
func DrawdownSeries(equity []journal.EquitySnapshot) []float64 {
	if len(equity) == 0 {
		return nil
	}
	out := make([]float64, len(equity))
	var peak float64
	for i, e := range equity {
		if e.Equity > peak {
			peak = e.Equity
		}
		if peak > 0 {
			out[i] = (peak - e.Equity) / peak * 100
		}
	}
	return out
}

// maxDrawdown is the deepest point of the drawdown series.
func maxDrawdown(equity []journal.EquitySnapshot) float64 {
	var worst float64
	for _, dd := range DrawdownSeries(equity) {
		if dd > worst {
			worst = dd
		}
	}
	return worst
}

func sharpe(equity []journal.EquitySnapshot) float64 {
	if len(equity) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (equity[i].Equity-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}
