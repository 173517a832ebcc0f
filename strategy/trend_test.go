package strategy

import (
	"testing"
	"time"

	"github.com/quantlab/fxbacktest/broker"
	"github.com/quantlab/fxbacktest/market"
)

func trendCandles(tf market.Timeframe, closes []float64) []market.Candle {
	base := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			Symbol:    "EURUSD",
			Timeframe: tf,
			Time:      base.Add(time.Duration(i) * tf.Duration()),
			Open:      c,
			High:      c + 0.0005,
			Low:       c - 0.0005,
			Close:     c,
		}
	}
	return out
}

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.1000 + float64(i)*0.0010
	}
	return out
}

func falling(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.2000 - float64(i)*0.0010
	}
	return out
}

func TestAnalyzeNeedsHistory(t *testing.T) {
	s := NewTrend(DefaultTrendParams(market.M5))

	_, err := s.Analyze(map[market.Timeframe][]market.Candle{
		market.M5: trendCandles(market.M5, rising(10)),
	})
	if err == nil {
		t.Fatal("expected an error with only 10 candles of history")
	}
}

func TestAnalyzeUptrend(t *testing.T) {
	s := NewTrend(DefaultTrendParams(market.M5))

	a, err := s.Analyze(map[market.Timeframe][]market.Candle{
		market.M5: trendCandles(market.M5, rising(80)),
		market.H1: trendCandles(market.H1, rising(80)),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if a.Symbol != "EURUSD" {
		t.Errorf("symbol = %q", a.Symbol)
	}
	if a.Trend != 1 {
		t.Errorf("trend = %d, want +1 for a rising H1 series", a.Trend)
	}

	entry, ok := a.Frames[market.M5]
	if !ok {
		t.Fatal("entry frame missing")
	}
	if entry.EMAFast <= entry.EMASlow {
		t.Errorf("rising series: fast EMA %.5f not above slow %.5f", entry.EMAFast, entry.EMASlow)
	}
	if entry.ATR <= 0 {
		t.Error("ATR not computed")
	}
}

func TestSignalsBuyInUptrend(t *testing.T) {
	s := NewTrend(DefaultTrendParams(market.M5))

	a, err := s.Analyze(map[market.Timeframe][]market.Candle{
		market.M5: trendCandles(market.M5, rising(80)),
		market.H1: trendCandles(market.H1, rising(80)),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	signals := s.Signals(a)
	if len(signals) != 1 {
		t.Fatalf("signals = %d, want exactly one buy", len(signals))
	}

	sig := signals[0]
	if sig.Direction != broker.Buy {
		t.Errorf("direction = %v, want BUY", sig.Direction)
	}
	if len(sig.Confirmations) < 2 {
		t.Errorf("confirmations = %v, want at least 2", sig.Confirmations)
	}
	if sig.Strength < 50 {
		t.Errorf("strength = %.0f, want >= 50", sig.Strength)
	}
	if sig.Entry == 0 || sig.ATR == 0 {
		t.Errorf("signal missing entry %.5f or ATR %.5f", sig.Entry, sig.ATR)
	}
}

func TestSignalsSellInDowntrend(t *testing.T) {
	s := NewTrend(DefaultTrendParams(market.M5))

	a, err := s.Analyze(map[market.Timeframe][]market.Candle{
		market.M5: trendCandles(market.M5, falling(80)),
		market.H1: trendCandles(market.H1, falling(80)),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	signals := s.Signals(a)
	if len(signals) != 1 || signals[0].Direction != broker.Sell {
		t.Fatalf("want exactly one SELL signal, got %+v", signals)
	}
}

func TestSignalsQuietWithoutEntryFrame(t *testing.T) {
	s := NewTrend(DefaultTrendParams(market.M5))

	// Only the trend frame has history; the entry frame is missing.
	a, err := s.Analyze(map[market.Timeframe][]market.Candle{
		market.H1: trendCandles(market.H1, rising(80)),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if signals := s.Signals(a); len(signals) != 0 {
		t.Errorf("signals without an entry frame: %+v", signals)
	}
}

func TestMinConditionsRaisesBar(t *testing.T) {
	params := DefaultTrendParams(market.M5)
	params.MinConditions = 4
	s := NewTrend(params)

	a, err := s.Analyze(map[market.Timeframe][]market.Candle{
		market.M5: trendCandles(market.M5, rising(80)),
		market.H1: trendCandles(market.H1, rising(80)),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	// A steady uptrend fires macd-bullish and trend-up but no fresh
	// EMA cross and no oversold RSI, so 4 conditions cannot be met.
	if signals := s.Signals(a); len(signals) != 0 {
		t.Errorf("signals under a 4-condition minimum: %+v", signals)
	}
}
