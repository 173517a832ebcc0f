package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/quantlab/fxbacktest/backtest"
	"github.com/quantlab/fxbacktest/broker"
	"github.com/quantlab/fxbacktest/market"
)

func sampleResult() *backtest.Result {
	return &backtest.Result{
		RunID:          "run-7",
		Symbol:         "EURUSD",
		Timeframe:      market.M5,
		Start:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: 10_000,
		FinalBalance:   10_047.50,
		Summary: backtest.Summary{
			TotalTrades: 1,
			Wins:        1,
			WinRate:     100,
			TotalPL:     47.75,
		},
		TicksProcessed: 300,
		CandlesCovered: 30,
		Trades: []broker.ClosedTrade{{
			Position: broker.Position{
				Ticket: 1000,
				Symbol: "EURUSD",
				Side:   broker.Buy,
				Volume: 0.1,

				OpenPrice: 1.10010,
			},
			ClosePrice: 1.10490,
			RealizedPL: 47.75,
			Reason:     "take_profit",
		}},
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, sampleResult()); err != nil {
		t.Fatalf("render: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"run-7", "EURUSD", "10047.50", "+47.75", "100.00%"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTrades(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTrades(&buf, sampleResult()); err != nil {
		t.Fatalf("render: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"1000", "BUY", "1.10010", "take_profit"} {
		if !strings.Contains(out, want) {
			t.Errorf("trade line missing %q:\n%s", want, out)
		}
	}
}

func TestWriteGrid(t *testing.T) {
	points := []backtest.OptimizePoint{
		{FastEMA: 9, SlowEMA: 21, Summary: backtest.Summary{TotalPL: 120.5, TotalTrades: 8, WinRate: 62.5}},
		{FastEMA: 5, SlowEMA: 50, Summary: backtest.Summary{TotalPL: -30}},
	}

	var buf bytes.Buffer
	if err := WriteGrid(&buf, points); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "120.5") {
		t.Errorf("grid missing P&L column:\n%s", buf.String())
	}
}
