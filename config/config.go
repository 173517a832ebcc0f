// Package config loads and validates backtest configuration files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantlab/fxbacktest/backtest"
	"github.com/quantlab/fxbacktest/market"
	"github.com/quantlab/fxbacktest/risk"
	"github.com/quantlab/fxbacktest/sim"
	"github.com/quantlab/fxbacktest/strategy"
	"github.com/quantlab/fxbacktest/synth"
)

// Config is the file-level schema. YAML is primary; .json works too.
type Config struct {
	Symbol    string `yaml:"symbol" json:"symbol"`
	Timeframe string `yaml:"timeframe" json:"timeframe"`

	Start string `yaml:"start,omitempty" json:"start,omitempty"`
	End   string `yaml:"end,omitempty" json:"end,omitempty"`

	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	Currency       string  `yaml:"currency,omitempty" json:"currency,omitempty"`

	Data struct {
		// Files maps a timeframe to a CSV (optionally .xz) candle file.
		Files map[string]string `yaml:"files" json:"files"`
	} `yaml:"data" json:"data"`

	Sim struct {
		Spread           float64 `yaml:"spread" json:"spread"`
		CommissionPerLot float64 `yaml:"commission_per_lot" json:"commission_per_lot"`
		Seed             int64   `yaml:"seed,omitempty" json:"seed,omitempty"`
	} `yaml:"sim" json:"sim"`

	Engine struct {
		// AnalysisInterval throttles strategy evaluation, e.g. "5m".
		AnalysisInterval string `yaml:"analysis_interval,omitempty" json:"analysis_interval,omitempty"`
		// EquitySampleEvery samples the equity curve every N ticks.
		EquitySampleEvery int `yaml:"equity_sample_every,omitempty" json:"equity_sample_every,omitempty"`
	} `yaml:"engine,omitempty" json:"engine,omitempty"`

	Risk struct {
		RiskPerTradePct  float64 `yaml:"risk_per_trade_pct" json:"risk_per_trade_pct"`
		MaxDailyRiskPct  float64 `yaml:"max_daily_risk_pct" json:"max_daily_risk_pct"`
		MaxDailyTrades   int     `yaml:"max_daily_trades" json:"max_daily_trades"`
		MinStrength      float64 `yaml:"min_strength" json:"min_strength"`
		MinConfirmations int     `yaml:"min_confirmations" json:"min_confirmations"`

		StopMode    string  `yaml:"stop_mode" json:"stop_mode"` // atr | fixed | percentage
		ATRMultiple float64 `yaml:"atr_multiple,omitempty" json:"atr_multiple,omitempty"`
		StopPips    float64 `yaml:"stop_pips,omitempty" json:"stop_pips,omitempty"`
		StopPercent float64 `yaml:"stop_percent,omitempty" json:"stop_percent,omitempty"`

		TargetMode    string  `yaml:"target_mode" json:"target_mode"` // rr | fixed | percentage
		RewardRatio   float64 `yaml:"reward_ratio,omitempty" json:"reward_ratio,omitempty"`
		TargetPips    float64 `yaml:"target_pips,omitempty" json:"target_pips,omitempty"`
		TargetPercent float64 `yaml:"target_percent,omitempty" json:"target_percent,omitempty"`
	} `yaml:"risk" json:"risk"`

	Strategy struct {
		TrendTimeframe string `yaml:"trend_timeframe" json:"trend_timeframe"`
		FastEMA        int    `yaml:"fast_ema" json:"fast_ema"`
		MidEMA         int    `yaml:"mid_ema" json:"mid_ema"`
		SlowEMA        int    `yaml:"slow_ema" json:"slow_ema"`
		RSIPeriod      int    `yaml:"rsi_period" json:"rsi_period"`
		MinConditions  int    `yaml:"min_conditions" json:"min_conditions"`
	} `yaml:"strategy" json:"strategy"`

	Journal struct {
		Backend string `yaml:"backend" json:"backend"` // memory | sqlite | csv
		Path    string `yaml:"path,omitempty" json:"path,omitempty"`
	} `yaml:"journal" json:"journal"`
}

// Default returns a runnable EURUSD M5 configuration.
func Default() Config {
	var c Config
	c.Symbol = "EURUSD"
	c.Timeframe = string(market.M5)
	c.InitialCapital = 10_000
	c.Currency = "USD"
	c.Sim.Spread = 0.0002
	c.Sim.CommissionPerLot = 0.25
	c.Risk.RiskPerTradePct = 1
	c.Risk.MaxDailyRiskPct = 5
	c.Risk.MaxDailyTrades = 10
	c.Risk.MinStrength = 50
	c.Risk.MinConfirmations = 2
	c.Risk.StopMode = string(risk.StopATR)
	c.Risk.ATRMultiple = 1.5
	c.Risk.TargetMode = string(risk.TargetRR)
	c.Risk.RewardRatio = 2
	c.Strategy.TrendTimeframe = string(market.H1)
	c.Strategy.FastEMA = 9
	c.Strategy.MidEMA = 21
	c.Strategy.SlowEMA = 50
	c.Strategy.RSIPeriod = 14
	c.Strategy.MinConditions = 2
	c.Journal.Backend = "memory"
	return c
}

// Load reads and validates a config file; the extension picks the
// decoder.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &cfg)
	default:
		err = yaml.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func (c Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func (c Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("config: symbol is required")
	}
	if !market.Timeframe(c.Timeframe).Valid() {
		return fmt.Errorf("config: unknown timeframe %q", c.Timeframe)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("config: initial_capital must be positive")
	}
	if c.Sim.Spread < 0 {
		return fmt.Errorf("config: spread cannot be negative")
	}
	for tf := range c.Data.Files {
		if !market.Timeframe(tf).Valid() {
			return fmt.Errorf("config: data file for unknown timeframe %q", tf)
		}
	}
	if _, _, err := c.window(); err != nil {
		return err
	}
	switch c.Journal.Backend {
	case "", "memory", "sqlite", "csv":
	default:
		return fmt.Errorf("config: unknown journal backend %q", c.Journal.Backend)
	}
	return nil
}

func (c Config) window() (start, end time.Time, _ error) {
	var err error
	if c.Start != "" {
		if start, err = parseDate(c.Start); err != nil {
			return start, end, fmt.Errorf("config: start: %w", err)
		}
	}
	if c.End != "" {
		if end, err = parseDate(c.End); err != nil {
			return start, end, fmt.Errorf("config: end: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("config: end %s before start %s", c.End, c.Start)
	}
	return start, end, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// RunConfig maps the file onto the engine's run configuration.
func (c Config) RunConfig(runID string) (backtest.Config, error) {
	start, end, err := c.window()
	if err != nil {
		return backtest.Config{}, err
	}
	cfg := backtest.Config{
		RunID:          runID,
		Symbol:         c.Symbol,
		EntryTimeframe: market.Timeframe(c.Timeframe),
		Start:          start,
		End:            end,
		InitialCapital: c.InitialCapital,
		Synth: synth.Config{
			Spread: c.Sim.Spread,
			Seed:   c.Sim.Seed,
		},
		EquitySampleEvery: c.Engine.EquitySampleEvery,
	}
	if c.Engine.AnalysisInterval != "" {
		d, err := time.ParseDuration(c.Engine.AnalysisInterval)
		if err != nil {
			return backtest.Config{}, fmt.Errorf("config: analysis_interval: %w", err)
		}
		cfg.AnalysisInterval = d
	}
	return cfg, nil
}

// VenueConfig maps the file onto the simulated venue's configuration,
// pulling the symbol's contract conventions from the instrument table.
func (c Config) VenueConfig(runID string) sim.Config {
	meta := market.Meta(c.Symbol)
	return sim.Config{
		Spread:           c.Sim.Spread,
		CommissionPerLot: c.Sim.CommissionPerLot,
		MinimumLot:       meta.MinimumLot,
		ContractSize:     meta.ContractSize,
		Currency:         c.Currency,
		RunID:            runID,
	}
}

// RiskConfig maps the file onto the gate policy. Pip value and pip size
// come from the symbol's instrument metadata.
func (c Config) RiskConfig() risk.Config {
	meta := market.Meta(c.Symbol)
	rc := risk.DefaultConfig(c.InitialCapital)
	rc.MinimumLot = meta.MinimumLot
	rc.PipValue = meta.PipValue
	rc.PipSize = meta.PipSize()
	rc.RiskPerTradePct = c.Risk.RiskPerTradePct
	rc.MaxDailyRiskPct = c.Risk.MaxDailyRiskPct
	rc.MaxDailyTrades = c.Risk.MaxDailyTrades
	rc.MinStrength = c.Risk.MinStrength
	rc.MinConfirmations = c.Risk.MinConfirmations
	if c.Risk.StopMode != "" {
		rc.Stop.Mode = risk.StopMode(c.Risk.StopMode)
	}
	if c.Risk.ATRMultiple > 0 {
		rc.Stop.ATRMultiple = c.Risk.ATRMultiple
	}
	rc.Stop.FixedPips = c.Risk.StopPips
	rc.Stop.Percent = c.Risk.StopPercent
	if c.Risk.TargetMode != "" {
		rc.Target.Mode = risk.TargetMode(c.Risk.TargetMode)
	}
	if c.Risk.RewardRatio > 0 {
		rc.Target.RewardRatio = c.Risk.RewardRatio
	}
	rc.Target.FixedPips = c.Risk.TargetPips
	rc.Target.Percent = c.Risk.TargetPercent
	return rc
}

// TrendParams maps the file onto the trend strategy's parameters.
func (c Config) TrendParams() strategy.TrendParams {
	p := strategy.DefaultTrendParams(market.Timeframe(c.Timeframe))
	if c.Strategy.TrendTimeframe != "" {
		p.TrendTimeframe = market.Timeframe(c.Strategy.TrendTimeframe)
	}
	if c.Strategy.FastEMA > 0 {
		p.FastEMA = c.Strategy.FastEMA
	}
	if c.Strategy.MidEMA > 0 {
		p.MidEMA = c.Strategy.MidEMA
	}
	if c.Strategy.SlowEMA > 0 {
		p.SlowEMA = c.Strategy.SlowEMA
	}
	if c.Strategy.RSIPeriod > 0 {
		p.RSIPeriod = c.Strategy.RSIPeriod
	}
	if c.Strategy.MinConditions > 0 {
		p.MinConditions = c.Strategy.MinConditions
	}
	return p
}
