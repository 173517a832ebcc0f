// Package backtest drives a strategy through synthesized ticks against
// a simulated venue and reports the outcome.
package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantlab/fxbacktest/broker"
	"github.com/quantlab/fxbacktest/journal"
	"github.com/quantlab/fxbacktest/market"
	"github.com/quantlab/fxbacktest/risk"
	"github.com/quantlab/fxbacktest/strategy"
	"github.com/quantlab/fxbacktest/synth"
)

// State is the engine lifecycle phase.
type State int32

const (
	Idle State = iota
	Running
	Finalizing
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	}
	return "unknown"
}

const (
	// defaultAnalysisInterval throttles strategy evaluation to once per
	// five minutes of simulated time.
	defaultAnalysisInterval = 5 * time.Minute

	// defaultEquitySampleEvery samples the equity curve every N ticks.
	defaultEquitySampleEvery = 100

	// defaultWindowSize caps the candle history handed to the strategy.
	defaultWindowSize = 500
)

// Config describes one backtest run.
type Config struct {
	RunID  string
	Symbol string

	EntryTimeframe market.Timeframe

	// Start and End bound the candle range, inclusive. Zero means
	// unbounded on that side.
	Start time.Time
	End   time.Time

	InitialCapital float64

	Synth synth.Config

	AnalysisInterval  time.Duration
	EquitySampleEvery int
	WindowSize        int
}

func (c *Config) applyDefaults() {
	if c.AnalysisInterval <= 0 {
		c.AnalysisInterval = defaultAnalysisInterval
	}
	if c.EquitySampleEvery <= 0 {
		c.EquitySampleEvery = defaultEquitySampleEvery
	}
	if c.WindowSize <= 0 {
		c.WindowSize = defaultWindowSize
	}
}

// Result is the outcome of one finished run.
type Result struct {
	RunID      string
	Symbol     string
	Timeframe  market.Timeframe
	Start, End time.Time

	InitialCapital float64
	FinalBalance   float64
	FinalEquity    float64

	Summary Summary

	TicksProcessed  int
	CandlesCovered  int
	SignalsPlaced   int
	SignalsRejected int

	Trades []broker.ClosedTrade
	Equity []journal.EquitySnapshot

	// Drawdowns holds the percentage drop from the running equity peak
	// at each equity sample.
	Drawdowns []float64

	Elapsed time.Duration
}

// Engine is the run driver. It owns the tick loop; the venue owns the
// account. One engine runs one backtest at a time.
type Engine struct {
	cfg   Config
	venue broker.Venue
	strat strategy.Strategy
	gate  *risk.Gate
	jrnl  journal.Journal

	mu    sync.Mutex
	state State

	sim     *synth.Simulator
	data    map[market.Timeframe][]market.Candle
	cursors map[market.Timeframe]int
}

// New wires an engine; dependencies are injected so runs stay isolated.
// The journal may be nil when persistence is not wanted.
func New(cfg Config, venue broker.Venue, strat strategy.Strategy, gate *risk.Gate, jrnl journal.Journal) *Engine {
	cfg.applyDefaults()
	if jrnl == nil {
		jrnl = journal.NewMemory()
	}
	return &Engine{
		cfg:   cfg,
		venue: venue,
		strat: strat,
		gate:  gate,
		jrnl:  jrnl,
		state: Idle,
	}
}

// LoadData filters each timeframe's candles to the configured range,
// validates them, and builds the tick stream from the entry timeframe.
// The entry timeframe must be present and non-empty after filtering.
func (e *Engine) LoadData(data map[market.Timeframe][]market.Candle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Running || e.state == Finalizing {
		return fmt.Errorf("engine is %s, cannot load data", e.state)
	}

	filtered := make(map[market.Timeframe][]market.Candle, len(data))
	for tf, candles := range data {
		sub := market.FilterRange(candles, e.cfg.Start, e.cfg.End)
		if err := market.ValidateSeries(sub); err != nil {
			return fmt.Errorf("timeframe %s: %w", tf, err)
		}
		filtered[tf] = sub
	}

	entry := filtered[e.cfg.EntryTimeframe]
	if len(entry) == 0 {
		return &market.DataError{Reason: fmt.Sprintf(
			"no %s candles for %s in the requested range", e.cfg.EntryTimeframe, e.cfg.Symbol)}
	}

	sim, err := synth.New(entry, e.cfg.Synth)
	if err != nil {
		return err
	}

	e.data = filtered
	e.sim = sim
	e.cursors = make(map[market.Timeframe]int, len(filtered))
	return nil
}

// Run executes the full tick loop and finalizes. Cancellation via ctx
// stops the loop at a tick boundary and still finalizes, so the result
// is internally consistent; Run then returns ctx.Err alongside it.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.state != Idle {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine is %s, want idle", e.state)
	}
	if e.sim == nil {
		e.mu.Unlock()
		return nil, &market.DataError{Reason: "no data loaded"}
	}
	e.state = Running
	e.mu.Unlock()

	started := time.Now()
	e.strat.Reset()
	e.gate.Reset()
	e.gate.UpdateCapital(e.cfg.InitialCapital)

	var (
		equity       []journal.EquitySnapshot
		ticks        int
		placed       int
		rejected     int
		lastAnalysis time.Time
		lastTick     market.Tick
		runErr       error
	)

	for {
		tick, ok := e.sim.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		ticks++
		lastTick = tick

		e.venue.MarkToMarket(tick)
		e.checkStops(ctx, tick)

		if lastAnalysis.IsZero() || tick.Time.Sub(lastAnalysis) > e.cfg.AnalysisInterval {
			lastAnalysis = tick.Time
			p, r := e.evaluate(ctx, tick)
			placed += p
			rejected += r
		}

		if ticks%e.cfg.EquitySampleEvery == 0 {
			equity = append(equity, e.sampleEquity(tick.Time))
		}
	}

	e.mu.Lock()
	e.state = Finalizing
	e.mu.Unlock()

	if err := e.venue.CloseAll(ctx, "end_of_data"); err != nil {
		if runErr == nil {
			runErr = err
		}
	}
	if !lastTick.Time.IsZero() {
		equity = append(equity, e.sampleEquity(lastTick.Time))
	}

	account := e.venue.Account()
	trades := e.venue.History()
	summary := Summarize(trades, equity, e.cfg.InitialCapital)

	res := &Result{
		RunID:           e.cfg.RunID,
		Symbol:          e.cfg.Symbol,
		Timeframe:       e.cfg.EntryTimeframe,
		Start:           e.cfg.Start,
		End:             e.cfg.End,
		InitialCapital:  e.cfg.InitialCapital,
		FinalBalance:    account.Balance,
		FinalEquity:     account.Equity,
		Summary:         summary,
		TicksProcessed:  ticks,
		CandlesCovered:  e.sim.Candles(),
		SignalsPlaced:   placed,
		SignalsRejected: rejected,
		Trades:          trades,
		Equity:          equity,
		Drawdowns:       DrawdownSeries(equity),
		Elapsed:         time.Since(started),
	}

	if err := e.jrnl.RecordRun(runRecord(res)); err != nil && runErr == nil {
		runErr = err
	}

	e.mu.Lock()
	e.state = Done
	e.mu.Unlock()
	return res, runErr
}

// checkStops enforces stop-loss then take-profit per position, at most
// one close per position per tick. Positions missing either level are
// skipped; both levels are compared against the tick's last price.
func (e *Engine) checkStops(ctx context.Context, t market.Tick) {
	for _, p := range e.venue.OpenPositions() {
		if p.Symbol != t.Symbol {
			continue
		}
		if p.StopLoss == nil || p.TakeProfit == nil {
			continue
		}
		if stopHit(p.Side, t.Last, *p.StopLoss) {
			e.venue.CloseOrder(ctx, p.Ticket, 0, "stop_loss")
			continue
		}
		if targetHit(p.Side, t.Last, *p.TakeProfit) {
			e.venue.CloseOrder(ctx, p.Ticket, 0, "take_profit")
		}
	}
}

func stopHit(side broker.Side, last, sl float64) bool {
	if side == broker.Buy {
		return last <= sl
	}
	return last >= sl
}

func targetHit(side broker.Side, last, tp float64) bool {
	if side == broker.Buy {
		return last >= tp
	}
	return last <= tp
}

// evaluate runs the strategy over the current candle windows and routes
// any signals through the risk gate to the venue.
func (e *Engine) evaluate(ctx context.Context, t market.Tick) (placed, rejected int) {
	window := e.windows(t.Time)
	if len(window[e.cfg.EntryTimeframe]) == 0 {
		return 0, 0
	}

	analysis, err := e.strat.Analyze(window)
	if err != nil {
		return 0, 0
	}
	analysis.Time = t.Time

	for _, sig := range e.strat.Signals(analysis) {
		sig.Time = t.Time
		if sig.Entry == 0 {
			sig.Entry = t.Last
		}
		if err := e.gate.Validate(sig); err != nil {
			rejected++
			continue
		}
		order, err := e.gate.PrepareOrder(sig)
		if err != nil {
			rejected++
			continue
		}
		if res := e.venue.PlaceOrder(ctx, order); res.Success {
			placed++
		} else {
			rejected++
		}
	}

	e.gate.UpdateCapital(e.venue.Account().Balance)
	return placed, rejected
}

// windows advances each timeframe's cursor to the simulated clock and
// returns the trailing candle history, capped at the window size. Only
// closed candles are exposed, so the strategy never sees the future.
func (e *Engine) windows(now time.Time) map[market.Timeframe][]market.Candle {
	out := make(map[market.Timeframe][]market.Candle, len(e.data))
	for tf, candles := range e.data {
		cur := e.cursors[tf]
		for cur < len(candles) && !candles[cur].Time.Add(tf.Duration()).After(now) {
			cur++
		}
		e.cursors[tf] = cur

		lo := cur - e.cfg.WindowSize
		if lo < 0 {
			lo = 0
		}
		out[tf] = candles[lo:cur]
	}
	return out
}

func (e *Engine) sampleEquity(at time.Time) journal.EquitySnapshot {
	account := e.venue.Account()
	snap := journal.EquitySnapshot{
		RunID:   e.cfg.RunID,
		Time:    at,
		Balance: account.Balance,
		Equity:  account.Equity,
	}
	e.jrnl.RecordEquity(snap)
	return snap
}

// Progress reports the fraction of the tick stream consumed.
func (e *Engine) Progress() float64 {
	if e.sim == nil {
		return 0
	}
	return e.sim.Progress()
}

// State reports the lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Reset rewinds the engine for another run over the same data. A fresh
// venue must be supplied; venues are single-run and keep their history.
func (e *Engine) Reset(venue broker.Venue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.venue = venue
	e.state = Idle
	if e.sim != nil {
		e.sim.Reset()
	}
	for tf := range e.cursors {
		e.cursors[tf] = 0
	}
	e.strat.Reset()
	e.gate.Reset()
}

func runRecord(r *Result) journal.RunRecord {
	return journal.RunRecord{
		RunID:          r.RunID,
		Created:        time.Now().UTC(),
		Symbol:         r.Symbol,
		Timeframe:      string(r.Timeframe),
		Start:          r.Start,
		End:            r.End,
		InitialCapital: r.InitialCapital,
		FinalBalance:   r.FinalBalance,
		Trades:         r.Summary.TotalTrades,
		Wins:           r.Summary.Wins,
		Losses:         r.Summary.Losses,
		TotalPL:        r.Summary.TotalPL,
		WinRate:        r.Summary.WinRate,
		MaxDrawdownPct: r.Summary.MaxDrawdownPct,
		SharpeRatio:    r.Summary.SharpeRatio,
		Expectancy:     r.Summary.Expectancy,
	}
}
