package strategy

import (
	"fmt"
	"strings"

	"github.com/quantlab/fxbacktest/broker"
	"github.com/quantlab/fxbacktest/indicators"
	"github.com/quantlab/fxbacktest/market"
)

// TrendParams tunes the trend-confluence strategy.
type TrendParams struct {
	EntryTimeframe market.Timeframe
	TrendTimeframe market.Timeframe

	FastEMA int // 9
	MidEMA  int // 21
	SlowEMA int // 50

	RSIPeriod     int     // 14
	RSIOversold   float64 // 30
	RSIOverbought float64 // 70

	MACDFast   int // 12
	MACDSlow   int // 26
	MACDSignal int // 9

	ATRPeriod int // 14

	// MinConditions is how many conditions must agree before a signal
	// is emitted.
	MinConditions int
}

// DefaultTrendParams returns the stock parameter set.
func DefaultTrendParams(entry market.Timeframe) TrendParams {
	return TrendParams{
		EntryTimeframe: entry,
		TrendTimeframe: market.H1,
		FastEMA:        9,
		MidEMA:         21,
		SlowEMA:        50,
		RSIPeriod:      14,
		RSIOversold:    30,
		RSIOverbought:  70,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		ATRPeriod:      14,
		MinConditions:  2,
	}
}

// Trend scores EMA crossovers, RSI extremes, MACD posture, and the
// higher-timeframe trend, and emits a signal when enough of them agree.
type Trend struct {
	params TrendParams
}

func NewTrend(params TrendParams) *Trend {
	if params.MinConditions <= 0 {
		params.MinConditions = 2
	}
	return &Trend{params: params}
}

// Reset clears run-scoped state. Trend keeps none, but the driver calls
// this at the start of every run so stateful strategies stay isolated.
func (s *Trend) Reset() {}

// Analyze computes the indicator snapshot for every timeframe that has
// enough history, plus the higher-timeframe trend bias.
func (s *Trend) Analyze(window map[market.Timeframe][]market.Candle) (Analysis, error) {
	a := Analysis{Frames: make(map[market.Timeframe]FrameAnalysis)}

	for tf, candles := range window {
		fa, ok := s.analyzeFrame(tf, candles)
		if !ok {
			continue
		}
		a.Frames[tf] = fa

		last := candles[len(candles)-1]
		if a.Symbol == "" {
			a.Symbol = last.Symbol
		}
		if last.Time.After(a.Time) {
			a.Time = last.Time
		}
	}

	if len(a.Frames) == 0 {
		return a, fmt.Errorf("analyze %s: no timeframe has enough history", a.Symbol)
	}

	if tf, ok := a.Frames[s.params.TrendTimeframe]; ok {
		switch {
		case tf.Close > tf.EMASlow:
			a.Trend = +1
		case tf.Close < tf.EMASlow:
			a.Trend = -1
		}
	}
	return a, nil
}

func (s *Trend) analyzeFrame(tf market.Timeframe, candles []market.Candle) (FrameAnalysis, bool) {
	need := s.params.SlowEMA + 1
	if macdNeed := s.params.MACDSlow + s.params.MACDSignal; macdNeed > need {
		need = macdNeed
	}
	if len(candles) < need {
		return FrameAnalysis{}, false
	}

	fast, err := indicators.EMA(candles, s.params.FastEMA)
	if err != nil {
		return FrameAnalysis{}, false
	}
	mid, err := indicators.EMA(candles, s.params.MidEMA)
	if err != nil {
		return FrameAnalysis{}, false
	}
	slow, err := indicators.EMA(candles, s.params.SlowEMA)
	if err != nil {
		return FrameAnalysis{}, false
	}
	prevFast, err := indicators.EMA(candles[:len(candles)-1], s.params.FastEMA)
	if err != nil {
		return FrameAnalysis{}, false
	}
	prevMid, err := indicators.EMA(candles[:len(candles)-1], s.params.MidEMA)
	if err != nil {
		return FrameAnalysis{}, false
	}
	rsi, err := indicators.RSI(candles, s.params.RSIPeriod)
	if err != nil {
		return FrameAnalysis{}, false
	}
	macd, signal, err := indicators.MACD(candles, s.params.MACDFast, s.params.MACDSlow, s.params.MACDSignal)
	if err != nil {
		return FrameAnalysis{}, false
	}
	atr, err := indicators.ATR(candles, s.params.ATRPeriod)
	if err != nil {
		return FrameAnalysis{}, false
	}

	return FrameAnalysis{
		Timeframe:   tf,
		Close:       candles[len(candles)-1].Close,
		EMAFast:     fast,
		EMAMid:      mid,
		EMASlow:     slow,
		PrevEMAFast: prevFast,
		PrevEMAMid:  prevMid,
		RSI:         rsi,
		MACD:        macd,
		MACDSignal:  signal,
		ATR:         atr,
	}, true
}

// Signals evaluates the entry timeframe's conditions in both directions
// and emits at most one signal per direction.
func (s *Trend) Signals(a Analysis) []Signal {
	entry, ok := a.Frames[s.params.EntryTimeframe]
	if !ok {
		return nil
	}

	var out []Signal
	if sig, ok := s.buildSignal(a, entry, broker.Buy); ok {
		out = append(out, sig)
	}
	if sig, ok := s.buildSignal(a, entry, broker.Sell); ok {
		out = append(out, sig)
	}
	return out
}

func (s *Trend) buildSignal(a Analysis, f FrameAnalysis, dir broker.Side) (Signal, bool) {
	var confirmations []string

	if dir == broker.Buy {
		if f.PrevEMAFast <= f.PrevEMAMid && f.EMAFast > f.EMAMid {
			confirmations = append(confirmations, "ema-cross-up")
		}
		if f.RSI < s.params.RSIOversold {
			confirmations = append(confirmations, "rsi-oversold")
		}
		if f.MACD > f.MACDSignal {
			confirmations = append(confirmations, "macd-bullish")
		}
		if a.Trend > 0 {
			confirmations = append(confirmations, "trend-up")
		}
	} else {
		if f.PrevEMAFast >= f.PrevEMAMid && f.EMAFast < f.EMAMid {
			confirmations = append(confirmations, "ema-cross-down")
		}
		if f.RSI > s.params.RSIOverbought {
			confirmations = append(confirmations, "rsi-overbought")
		}
		if f.MACD < f.MACDSignal {
			confirmations = append(confirmations, "macd-bearish")
		}
		if a.Trend < 0 {
			confirmations = append(confirmations, "trend-down")
		}
	}

	if len(confirmations) < s.params.MinConditions {
		return Signal{}, false
	}

	strength := 25 * float64(len(confirmations))
	if strength > 100 {
		strength = 100
	}

	return Signal{
		Symbol:        a.Symbol,
		Direction:     dir,
		Strength:      strength,
		Entry:         f.Close,
		Reason:        strings.Join(confirmations, "+"),
		Confirmations: confirmations,
		ATR:           f.ATR,
		Time:          a.Time,
	}, true
}
