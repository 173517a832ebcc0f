package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantlab/fxbacktest/broker"
	"github.com/quantlab/fxbacktest/journal"
)

func closedTrade(pl float64) broker.ClosedTrade {
	return broker.ClosedTrade{
		Position:   broker.Position{Symbol: "EURUSD", Side: broker.Buy, Volume: 0.1},
		RealizedPL: pl,
	}
}

func equityCurve(values ...float64) []journal.EquitySnapshot {
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	out := make([]journal.EquitySnapshot, len(values))
	for i, v := range values {
		out[i] = journal.EquitySnapshot{Time: base.Add(time.Duration(i) * time.Minute), Balance: v, Equity: v}
	}
	return out
}

func TestSummarizeWinRateAndExpectancy(t *testing.T) {
	trades := []broker.ClosedTrade{closedTrade(10), closedTrade(-5), closedTrade(20)}

	s := Summarize(trades, nil, 10_000)

	assert.Equal(t, 3, s.TotalTrades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 66.67, s.WinRate, 0.01)
	assert.InDelta(t, 25.0, s.TotalPL, 1e-9)
	assert.InDelta(t, 15.0, s.AverageWin, 1e-9)
	assert.InDelta(t, -5.0, s.AverageLoss, 1e-9)
	// (2/3)*15 + (1/3)*(-5) = 8.33
	assert.InDelta(t, 8.33, s.Expectancy, 0.01)
	assert.InDelta(t, 0.25, s.TotalReturnPct, 1e-9)
}

func TestSummarizeOneSidedLedgers(t *testing.T) {
	// Expectancy is undefined without both winners and losers.
	wins := Summarize([]broker.ClosedTrade{closedTrade(10), closedTrade(20)}, nil, 10_000)
	assert.Equal(t, 2, wins.Wins)
	assert.Equal(t, 0, wins.Losses)
	assert.InDelta(t, 15.0, wins.AverageWin, 1e-9)
	assert.Zero(t, wins.Expectancy)

	losses := Summarize([]broker.ClosedTrade{closedTrade(-10)}, nil, 10_000)
	assert.Equal(t, 0, losses.Wins)
	assert.Equal(t, 1, losses.Losses)
	assert.InDelta(t, -10.0, losses.AverageLoss, 1e-9)
	assert.Zero(t, losses.Expectancy)
}

func TestSummarizeBreakEvenTradeCountsNeither(t *testing.T) {
	trades := []broker.ClosedTrade{closedTrade(10), closedTrade(0), closedTrade(-5)}
	s := Summarize(trades, nil, 10_000)

	assert.Equal(t, 3, s.TotalTrades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, -5.0, s.AverageLoss, 1e-9)
	assert.InDelta(t, 33.33, s.WinRate, 0.01)
}

func TestSummarizeZeroTrades(t *testing.T) {
	s := Summarize(nil, nil, 10_000)

	assert.Equal(t, 0, s.TotalTrades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.TotalPL)
	assert.Zero(t, s.Expectancy)
	assert.Zero(t, s.MaxDrawdownPct)
	assert.Zero(t, s.SharpeRatio)
	assert.Zero(t, s.TotalReturnPct)
	assert.Zero(t, s.AnnualizedReturnPct)
}

func TestMaxDrawdown(t *testing.T) {
	// Peak 10500, trough 9975: (10500-9975)/10500 = 5%.
	eq := equityCurve(10_000, 10_500, 10_200, 9_975, 10_400)
	assert.InDelta(t, 5.0, maxDrawdown(eq), 1e-9)

	series := DrawdownSeries(eq)
	assert.Len(t, series, 5)
	assert.Zero(t, series[0])
	assert.Zero(t, series[1])
	assert.InDelta(t, 5.0, series[3], 1e-9)
}

func TestMaxDrawdownMonotonic(t *testing.T) {
	eq := equityCurve(10_000, 10_100, 10_100, 10_350)
	assert.Zero(t, maxDrawdown(eq))
}

func TestMaxDrawdownSinglePoint(t *testing.T) {
	assert.Zero(t, maxDrawdown(equityCurve(10_000)))
}

func TestSharpeDegenerateCases(t *testing.T) {
	assert.Zero(t, sharpe(nil))
	assert.Zero(t, sharpe(equityCurve(10_000)))
	// Constant returns: zero variance.
	assert.Zero(t, sharpe(equityCurve(10_000, 10_000, 10_000)))
}

func TestSharpePositiveForRisingCurve(t *testing.T) {
	eq := equityCurve(10_000, 10_100, 10_150, 10_300, 10_320)
	assert.Greater(t, sharpe(eq), 0.0)
}

func TestAnnualizedReturnScalesByTradeCount(t *testing.T) {
	trades := []broker.ClosedTrade{closedTrade(50), closedTrade(50)}
	s := Summarize(trades, nil, 10_000)

	// total return 1%, scaled by 252/2 trades.
	assert.InDelta(t, 1.0, s.TotalReturnPct, 1e-9)
	assert.InDelta(t, 126.0, s.AnnualizedReturnPct, 1e-9)
}
