// Package risk validates trade signals and sizes the orders that pass.
package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/quantlab/fxbacktest/broker"
	"github.com/quantlab/fxbacktest/strategy"
)

// StopMode selects how the stop-loss distance is derived.
type StopMode string

const (
	StopATR        StopMode = "atr"
	StopFixed      StopMode = "fixed"
	StopPercentage StopMode = "percentage"
)

// TargetMode selects how the take-profit distance is derived.
type TargetMode string

const (
	TargetRR         TargetMode = "rr"
	TargetFixed      TargetMode = "fixed"
	TargetPercentage TargetMode = "percentage"
)

// StopConfig parameterizes the stop-loss calculation.
type StopConfig struct {
	Mode        StopMode
	ATRMultiple float64 // distance = ATR * ATRMultiple
	FixedPips   float64 // distance = pips * PipSize
	Percent     float64 // distance = price * Percent/100
}

// TargetConfig parameterizes the take-profit calculation.
type TargetConfig struct {
	Mode        TargetMode
	RewardRatio float64 // distance = stop distance * RewardRatio
	FixedPips   float64
	Percent     float64
}

// Config is the gate policy.
type Config struct {
	Capital float64

	// RiskPerTradePct is the percentage of capital risked per trade.
	RiskPerTradePct float64

	// MaxDailyRiskPct caps the summed per-trade risk for one simulated
	// day; MaxDailyTrades caps the count. Zero disables either cap.
	MaxDailyRiskPct float64
	MaxDailyTrades  int

	MinStrength      float64 // signals below this are rejected
	MinConfirmations int

	MinimumLot float64
	PipValue   float64 // account currency per pip per lot
	PipSize    float64 // price increment of one pip

	Stop   StopConfig
	Target TargetConfig
}

// DefaultConfig mirrors the conventional retail risk profile.
func DefaultConfig(capital float64) Config {
	return Config{
		Capital:          capital,
		RiskPerTradePct:  1,
		MaxDailyRiskPct:  5,
		MaxDailyTrades:   10,
		MinStrength:      50,
		MinConfirmations: 2,
		MinimumLot:       0.01,
		PipValue:         10,
		PipSize:          0.0001,
		Stop:             StopConfig{Mode: StopATR, ATRMultiple: 1.5},
		Target:           TargetConfig{Mode: TargetRR, RewardRatio: 2},
	}
}

// Gate applies the policy. Daily counters roll over on the signal's
// simulated date, not the wall clock, so backtests over historical
// ranges behave the same every run.
type Gate struct {
	cfg Config

	dayRiskPct float64
	dayTrades  int
	day        time.Time // UTC midnight of the current counter day
}

func NewGate(cfg Config) *Gate {
	if cfg.MinimumLot <= 0 {
		cfg.MinimumLot = 0.01
	}
	if cfg.PipValue <= 0 {
		cfg.PipValue = 10
	}
	if cfg.PipSize <= 0 {
		cfg.PipSize = 0.0001
	}
	return &Gate{cfg: cfg}
}

// Reset clears the daily counters; call it when starting a fresh run.
func (g *Gate) Reset() {
	g.dayRiskPct = 0
	g.dayTrades = 0
	g.day = time.Time{}
}

// UpdateCapital tracks account growth so position sizing follows the
// balance.
func (g *Gate) UpdateCapital(capital float64) {
	if capital > 0 {
		g.cfg.Capital = capital
	}
}

// Validate returns nil when the signal passes the policy, or the reason
// it was rejected. Rejection is non-fatal to the run.
func (g *Gate) Validate(sig strategy.Signal) error {
	g.rolloverDay(sig.Time)

	if g.cfg.MaxDailyTrades > 0 && g.dayTrades >= g.cfg.MaxDailyTrades {
		return fmt.Errorf("daily trade limit reached (%d)", g.cfg.MaxDailyTrades)
	}
	if g.cfg.MaxDailyRiskPct > 0 && g.dayRiskPct >= g.cfg.MaxDailyRiskPct {
		return fmt.Errorf("daily risk limit reached (%.2f%%)", g.dayRiskPct)
	}
	if sig.Strength < g.cfg.MinStrength {
		return fmt.Errorf("signal strength %.0f below minimum %.0f", sig.Strength, g.cfg.MinStrength)
	}
	if len(sig.Confirmations) < g.cfg.MinConfirmations {
		return fmt.Errorf("confirmations %d below minimum %d", len(sig.Confirmations), g.cfg.MinConfirmations)
	}
	if sig.Entry <= 0 {
		return fmt.Errorf("signal has no entry price")
	}
	return nil
}

// PrepareOrder builds a market order from a validated signal: stop and
// target levels per the configured modes, then volume sized so a stop
// hit loses RiskPerTradePct of capital.
func (g *Gate) PrepareOrder(sig strategy.Signal) (broker.Order, error) {
	stop, err := g.stopLevel(sig)
	if err != nil {
		return broker.Order{}, err
	}
	target, err := g.targetLevel(sig, stop)
	if err != nil {
		return broker.Order{}, err
	}

	volume := g.volume(sig.Entry, stop)

	order := broker.Order{
		Symbol:     sig.Symbol,
		Side:       sig.Direction,
		Volume:     volume,
		Kind:       broker.KindMarket,
		Price:      sig.Entry,
		StopLoss:   &stop,
		TakeProfit: &target,
		Comment:    "signal: " + sig.Reason,
	}

	g.rolloverDay(sig.Time)
	g.dayTrades++
	g.dayRiskPct += g.cfg.RiskPerTradePct

	return order, nil
}

func (g *Gate) stopLevel(sig strategy.Signal) (float64, error) {
	var distance float64
	switch g.cfg.Stop.Mode {
	case StopATR:
		atr := sig.ATR
		if atr <= 0 {
			atr = 0.001
		}
		distance = atr * g.cfg.Stop.ATRMultiple
	case StopFixed:
		distance = g.cfg.Stop.FixedPips * g.cfg.PipSize
	case StopPercentage:
		distance = sig.Entry * g.cfg.Stop.Percent / 100
	default:
		return 0, fmt.Errorf("unknown stop mode %q", g.cfg.Stop.Mode)
	}
	if distance <= 0 {
		return 0, fmt.Errorf("stop distance must be positive, got %.6f", distance)
	}

	if sig.Direction == broker.Buy {
		return sig.Entry - distance, nil
	}
	return sig.Entry + distance, nil
}

func (g *Gate) targetLevel(sig strategy.Signal, stop float64) (float64, error) {
	var distance float64
	switch g.cfg.Target.Mode {
	case TargetRR:
		distance = math.Abs(sig.Entry-stop) * g.cfg.Target.RewardRatio
	case TargetFixed:
		distance = g.cfg.Target.FixedPips * g.cfg.PipSize
	case TargetPercentage:
		distance = sig.Entry * g.cfg.Target.Percent / 100
	default:
		return 0, fmt.Errorf("unknown target mode %q", g.cfg.Target.Mode)
	}
	if distance <= 0 {
		return 0, fmt.Errorf("target distance must be positive, got %.6f", distance)
	}

	if sig.Direction == broker.Buy {
		return sig.Entry + distance, nil
	}
	return sig.Entry - distance, nil
}

// volume sizes the position so a stop hit costs RiskPerTradePct of
// capital, clamped to the minimum lot and rounded to 0.01.
func (g *Gate) volume(entry, stop float64) float64 {
	riskMoney := g.cfg.Capital * g.cfg.RiskPerTradePct / 100
	stopPips := math.Abs(entry-stop) / g.cfg.PipSize
	if stopPips == 0 {
		return g.cfg.MinimumLot
	}

	volume := riskMoney / (stopPips * g.cfg.PipValue)
	if volume < g.cfg.MinimumLot {
		volume = g.cfg.MinimumLot
	}
	return math.Round(volume*100) / 100
}

func (g *Gate) rolloverDay(at time.Time) {
	day := at.UTC().Truncate(24 * time.Hour)
	if !day.Equal(g.day) {
		g.day = day
		g.dayRiskPct = 0
		g.dayTrades = 0
	}
}
