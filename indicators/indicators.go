// Package indicators provides the technical-analysis calculations the
// strategy layer runs over candle windows.
package indicators

import (
	"fmt"
	"math"

	"github.com/quantlab/fxbacktest/market"
)

// SMA calculates the simple moving average of closes over the last
// period candles.
func SMA(candles []market.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(candles) < period {
		return 0, fmt.Errorf("not enough candles: need %d, got %d", period, len(candles))
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period), nil
}

// EMA calculates the exponential moving average of closes, seeded with
// an SMA over the first period candles.
func EMA(candles []market.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(candles) < period {
		return 0, fmt.Errorf("not enough candles: need %d, got %d", period, len(candles))
	}

	multiplier := 2.0 / float64(period+1)

	ema := 0.0
	for i := 0; i < period; i++ {
		ema += candles[i].Close
	}
	ema /= float64(period)

	for i := period; i < len(candles); i++ {
		ema = (candles[i].Close-ema)*multiplier + ema
	}
	return ema, nil
}

// RSI calculates the relative strength index over the last period
// deltas using simple averages of gains and losses.
func RSI(candles []market.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(candles) < period+1 {
		return 0, fmt.Errorf("not enough candles: need %d, got %d", period+1, len(candles))
	}

	gains, losses := 0.0, 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		delta := candles[i].Close - candles[i-1].Close
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50, nil
		}
		return 100, nil
	}

	rs := gains / losses
	return 100 - 100/(1+rs), nil
}

// MACD returns the MACD line (fast EMA minus slow EMA) and its signal
// line (EMA of the MACD series over signalPeriod).
func MACD(candles []market.Candle, fast, slow, signalPeriod int) (macd, signal float64, err error) {
	if fast <= 0 || slow <= 0 || signalPeriod <= 0 {
		return 0, 0, fmt.Errorf("periods must be positive, got %d/%d/%d", fast, slow, signalPeriod)
	}
	if fast >= slow {
		return 0, 0, fmt.Errorf("fast period %d must be below slow period %d", fast, slow)
	}
	if len(candles) < slow+signalPeriod {
		return 0, 0, fmt.Errorf("not enough candles: need %d, got %d", slow+signalPeriod, len(candles))
	}

	// Build the MACD series over the tail so the signal EMA has
	// history to smooth.
	n := len(candles) - slow + 1
	series := make([]float64, 0, n)
	for i := slow; i <= len(candles); i++ {
		f, err := EMA(candles[:i], fast)
		if err != nil {
			return 0, 0, err
		}
		s, err := EMA(candles[:i], slow)
		if err != nil {
			return 0, 0, err
		}
		series = append(series, f-s)
	}

	macd = series[len(series)-1]

	multiplier := 2.0 / float64(signalPeriod+1)
	signal = series[0]
	for i := 1; i < len(series); i++ {
		signal = (series[i]-signal)*multiplier + signal
	}
	return macd, signal, nil
}

// ATR calculates the Wilder-smoothed average true range for period.
func ATR(candles []market.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(candles) < period+1 {
		return 0, fmt.Errorf("not enough candles: need %d, got %d", period+1, len(candles))
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trs = append(trs, trueRange(candles[i], candles[i-1]))
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trs[i]
	}
	atr /= float64(period)

	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}
	return atr, nil
}

func trueRange(current, previous market.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
