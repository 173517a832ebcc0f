package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/fxbacktest/broker"
	"github.com/quantlab/fxbacktest/strategy"
)

func buySignal() strategy.Signal {
	return strategy.Signal{
		Symbol:        "EURUSD",
		Direction:     broker.Buy,
		Strength:      75,
		Entry:         1.10000,
		Reason:        "ema-cross-up+rsi-oversold",
		Confirmations: []string{"ema-cross-up", "rsi-oversold", "trend-up"},
		ATR:           0.0010,
		Time:          time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
	}
}

func TestValidateAcceptsStrongSignal(t *testing.T) {
	g := NewGate(DefaultConfig(10_000))
	assert.NoError(t, g.Validate(buySignal()))
}

func TestValidateRejectsWeakSignal(t *testing.T) {
	g := NewGate(DefaultConfig(10_000))

	sig := buySignal()
	sig.Strength = 40
	assert.Error(t, g.Validate(sig))

	sig = buySignal()
	sig.Confirmations = []string{"ema-cross-up"}
	assert.Error(t, g.Validate(sig))

	sig = buySignal()
	sig.Entry = 0
	assert.Error(t, g.Validate(sig))
}

func TestDailyTradeLimit(t *testing.T) {
	cfg := DefaultConfig(10_000)
	cfg.MaxDailyTrades = 2
	cfg.MaxDailyRiskPct = 0 // isolate the trade-count cap
	g := NewGate(cfg)

	sig := buySignal()
	for i := 0; i < 2; i++ {
		require.NoError(t, g.Validate(sig))
		_, err := g.PrepareOrder(sig)
		require.NoError(t, err)
	}
	assert.Error(t, g.Validate(sig), "third trade of the day should be rejected")

	// Next simulated day resets the counter.
	sig.Time = sig.Time.Add(24 * time.Hour)
	assert.NoError(t, g.Validate(sig))
}

func TestDailyRiskLimit(t *testing.T) {
	cfg := DefaultConfig(10_000)
	cfg.RiskPerTradePct = 2
	cfg.MaxDailyRiskPct = 5
	cfg.MaxDailyTrades = 0
	g := NewGate(cfg)

	sig := buySignal()
	for i := 0; i < 3; i++ {
		_, err := g.PrepareOrder(sig)
		require.NoError(t, err)
	}
	// 6% accumulated against a 5% cap.
	assert.Error(t, g.Validate(sig))
}

func TestPrepareOrderATRStops(t *testing.T) {
	g := NewGate(DefaultConfig(10_000))

	order, err := g.PrepareOrder(buySignal())
	require.NoError(t, err)

	assert.Equal(t, broker.KindMarket, order.Kind)
	assert.Equal(t, broker.Buy, order.Side)
	require.NotNil(t, order.StopLoss)
	require.NotNil(t, order.TakeProfit)

	// stop = entry - 1.5*ATR, target = entry + 2x the stop distance
	assert.InDelta(t, 1.10000-0.0015, *order.StopLoss, 1e-9)
	assert.InDelta(t, 1.10000+0.0030, *order.TakeProfit, 1e-9)

	// risk $100 over 15 pips at $10/pip/lot = 0.67 lots
	assert.InDelta(t, 0.67, order.Volume, 0.005)
}

func TestPrepareOrderSellMirrors(t *testing.T) {
	g := NewGate(DefaultConfig(10_000))

	sig := buySignal()
	sig.Direction = broker.Sell
	order, err := g.PrepareOrder(sig)
	require.NoError(t, err)

	assert.Greater(t, *order.StopLoss, sig.Entry)
	assert.Less(t, *order.TakeProfit, sig.Entry)
}

func TestPrepareOrderFixedPips(t *testing.T) {
	cfg := DefaultConfig(10_000)
	cfg.Stop = StopConfig{Mode: StopFixed, FixedPips: 20}
	cfg.Target = TargetConfig{Mode: TargetFixed, FixedPips: 40}
	g := NewGate(cfg)

	order, err := g.PrepareOrder(buySignal())
	require.NoError(t, err)

	assert.InDelta(t, 1.09800, *order.StopLoss, 1e-9)
	assert.InDelta(t, 1.10400, *order.TakeProfit, 1e-9)
	// risk $100 over 20 pips = 0.5 lots
	assert.InDelta(t, 0.5, order.Volume, 1e-9)
}

func TestPrepareOrderPercentage(t *testing.T) {
	cfg := DefaultConfig(10_000)
	cfg.Stop = StopConfig{Mode: StopPercentage, Percent: 1}
	cfg.Target = TargetConfig{Mode: TargetPercentage, Percent: 2}
	g := NewGate(cfg)

	order, err := g.PrepareOrder(buySignal())
	require.NoError(t, err)

	assert.InDelta(t, 1.10000*0.99, *order.StopLoss, 1e-9)
	assert.InDelta(t, 1.10000*1.02, *order.TakeProfit, 1e-9)
}

func TestPrepareOrderCustomPipSize(t *testing.T) {
	// JPY-style quoting: one pip is 0.01.
	cfg := DefaultConfig(10_000)
	cfg.PipSize = 0.01
	cfg.Stop = StopConfig{Mode: StopFixed, FixedPips: 20}
	cfg.Target = TargetConfig{Mode: TargetFixed, FixedPips: 40}
	g := NewGate(cfg)

	sig := buySignal()
	sig.Entry = 150.00
	order, err := g.PrepareOrder(sig)
	require.NoError(t, err)

	assert.InDelta(t, 149.80, *order.StopLoss, 1e-9)
	assert.InDelta(t, 150.40, *order.TakeProfit, 1e-9)
	// risk $100 over 20 pips = 0.5 lots
	assert.InDelta(t, 0.5, order.Volume, 1e-9)
}

func TestVolumeClampsToMinimumLot(t *testing.T) {
	cfg := DefaultConfig(100) // tiny account
	g := NewGate(cfg)

	order, err := g.PrepareOrder(buySignal())
	require.NoError(t, err)
	assert.Equal(t, 0.01, order.Volume)
}

func TestUpdateCapitalResizesPositions(t *testing.T) {
	g := NewGate(DefaultConfig(10_000))

	small, err := g.PrepareOrder(buySignal())
	require.NoError(t, err)

	g.Reset()
	g.UpdateCapital(20_000)
	big, err := g.PrepareOrder(buySignal())
	require.NoError(t, err)

	assert.Greater(t, big.Volume, small.Volume)
}

func TestUnknownModesRejected(t *testing.T) {
	cfg := DefaultConfig(10_000)
	cfg.Stop.Mode = "martingale"
	g := NewGate(cfg)

	_, err := g.PrepareOrder(buySignal())
	assert.Error(t, err)
}
