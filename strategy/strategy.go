// Package strategy defines the signal-generation capability the
// backtest driver consumes, plus the trend-confluence implementation.
package strategy

import (
	"time"

	"github.com/quantlab/fxbacktest/broker"
	"github.com/quantlab/fxbacktest/market"
)

// Signal is a directional trade recommendation. Strength runs 0-100;
// Confirmations lists the conditions that fired. StopLoss/TakeProfit
// are suggestions only; the risk gate has the final word.
type Signal struct {
	Symbol    string
	Direction broker.Side
	Strength  float64

	Entry      float64
	StopLoss   float64 // 0 means no suggestion
	TakeProfit float64

	Reason        string
	Confirmations []string

	// ATR carries the entry-frame volatility for ATR-based stops.
	ATR float64

	Time time.Time
}

// FrameAnalysis is the indicator snapshot for one timeframe.
type FrameAnalysis struct {
	Timeframe market.Timeframe
	Close     float64

	EMAFast float64
	EMAMid  float64
	EMASlow float64

	// Previous-bar fast/mid EMAs, for crossover detection.
	PrevEMAFast float64
	PrevEMAMid  float64

	RSI        float64
	MACD       float64
	MACDSignal float64
	ATR        float64
}

// Analysis is the multi-timeframe market picture a strategy produces.
type Analysis struct {
	Symbol string
	Time   time.Time
	Frames map[market.Timeframe]FrameAnalysis

	// Trend is the higher-timeframe bias: +1 up, -1 down, 0 flat.
	Trend int
}

// Strategy is the capability pair the driver depends on. Implementations
// must be stateless between runs or resettable via Reset.
type Strategy interface {
	Analyze(window map[market.Timeframe][]market.Candle) (Analysis, error)
	Signals(a Analysis) []Signal
	Reset()
}
