// Package journal persists trade ledgers, equity curves, and run
// summaries produced by backtests.
package journal

import "time"

// TradeRecord is one closed trade as written to storage.
type TradeRecord struct {
	RunID      string
	Ticket     int64
	Symbol     string
	Side       string
	Volume     float64
	OpenPrice  float64
	ClosePrice float64
	OpenTime   time.Time
	CloseTime  time.Time
	Commission float64
	RealizedPL float64
	Reason     string
}

// EquitySnapshot is one point of the account over time.
type EquitySnapshot struct {
	RunID   string
	Time    time.Time
	Balance float64
	Equity  float64
}

// RunRecord summarizes one finished backtest run.
type RunRecord struct {
	RunID          string
	Created        time.Time
	Symbol         string
	Timeframe      string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalBalance   float64

	Trades int
	Wins   int
	Losses int

	TotalPL        float64
	WinRate        float64
	MaxDrawdownPct float64
	SharpeRatio    float64
	Expectancy     float64
}

// Journal receives records as the simulation produces them.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	RecordRun(RunRecord) error
	Close() error
}
